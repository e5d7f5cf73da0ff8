// Package queue implements a fixed-size message queue safe to use from
// both the main line and interrupt context.
//
// # Overview
//
// The queue is a ring buffer embedded in a caller-supplied byte region
// sized elementSize x capacity. Elements are fixed-size, bitwise-copyable
// payloads; Send and Receive copy exactly elementSize bytes. Operations
// either complete immediately or fail immediately when the queue is full
// or empty; there is no waiting variant.
//
// Send, Receive and Flush run their whole copy-and-index update inside an
// interrupt-mask critical section (see internal/intr), which makes them
// callable from concurrent contexts. Count reads a single counter without
// the mask: the snapshot may be stale under concurrent senders/receivers.
package queue

import (
	"errors"
	"sync/atomic"

	"minirtos/internal/intr"
)

// MaxElements caps the capacity of a queue. Requests above it are
// silently reduced.
const MaxElements = 20

var (
	// ErrBadArgument reports a nil/short buffer or a zero size at
	// creation, or a short source/destination slice.
	ErrBadArgument = errors.New("queue: bad argument")
	// ErrFull reports that Send found count == capacity.
	ErrFull = errors.New("queue: full")
	// ErrEmpty reports that Receive found count == 0.
	ErrEmpty = errors.New("queue: empty")
)

// Queue is a fixed-capacity ring buffer. Create instances with New; the
// zero value is not usable.
type Queue struct {
	mask intr.Mask

	buf      []byte
	elemSize int
	capacity int

	head  int
	tail  int
	count atomic.Int32
}

// New initializes a queue over buf. The buffer is owned by the caller and
// must outlive the queue. capacity is clamped to MaxElements before the
// buffer length is checked, matching the leniency policy for out-of-range
// configuration.
func New(buf []byte, elemSize, capacity int) (*Queue, error) {
	if len(buf) == 0 || elemSize <= 0 || capacity <= 0 {
		return nil, ErrBadArgument
	}
	if capacity > MaxElements {
		capacity = MaxElements
	}
	if len(buf) < elemSize*capacity {
		return nil, ErrBadArgument
	}
	return &Queue{buf: buf, elemSize: elemSize, capacity: capacity}, nil
}

// ElementSize returns the fixed per-element size in bytes.
func (q *Queue) ElementSize() int { return q.elemSize }

// Capacity returns the clamped element capacity.
func (q *Queue) Capacity() int { return q.capacity }

// Send copies one element from src into the queue. It fails with ErrFull
// when the queue is full and with ErrBadArgument when src holds fewer
// than ElementSize bytes. Only the first ElementSize bytes of src are
// used.
func (q *Queue) Send(src []byte) error {
	if len(src) < q.elemSize {
		return ErrBadArgument
	}
	prev := q.mask.Enter()
	defer q.mask.Restore(prev)

	if int(q.count.Load()) == q.capacity {
		return ErrFull
	}
	off := q.tail * q.elemSize
	copy(q.buf[off:off+q.elemSize], src[:q.elemSize])
	q.tail = (q.tail + 1) % q.capacity
	q.count.Add(1)
	return nil
}

// Receive copies the oldest element into dst and removes it. On ErrEmpty
// or ErrBadArgument dst is left unmodified.
func (q *Queue) Receive(dst []byte) error {
	if len(dst) < q.elemSize {
		return ErrBadArgument
	}
	prev := q.mask.Enter()
	defer q.mask.Restore(prev)

	if q.count.Load() == 0 {
		return ErrEmpty
	}
	off := q.head * q.elemSize
	copy(dst[:q.elemSize], q.buf[off:off+q.elemSize])
	q.head = (q.head + 1) % q.capacity
	q.count.Add(-1)
	return nil
}

// Count returns the number of occupied slots. The read is lock-free; a
// concurrent Send or Receive may race with it, so callers must not treat
// the value as exact while other contexts mutate the queue.
func (q *Queue) Count() int { return int(q.count.Load()) }

// Flush resets head, tail and count under the mask. Buffer contents are
// not zeroed.
func (q *Queue) Flush() {
	q.mask.Section(func() {
		q.head = 0
		q.tail = 0
		q.count.Store(0)
	})
}
