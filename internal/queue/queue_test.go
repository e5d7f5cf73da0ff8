package queue

import (
	"bytes"
	"encoding/binary"
	"errors"
	"runtime"
	"sync"
	"testing"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		buf      []byte
		elemSize int
		capacity int
		wantErr  error
	}{
		{name: "ok", buf: make([]byte, 12), elemSize: 4, capacity: 3},
		{name: "nil buffer", buf: nil, elemSize: 4, capacity: 3, wantErr: ErrBadArgument},
		{name: "zero element size", buf: make([]byte, 12), elemSize: 0, capacity: 3, wantErr: ErrBadArgument},
		{name: "zero capacity", buf: make([]byte, 12), elemSize: 4, capacity: 0, wantErr: ErrBadArgument},
		{name: "short buffer", buf: make([]byte, 8), elemSize: 4, capacity: 3, wantErr: ErrBadArgument},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			q, err := New(tt.buf, tt.elemSize, tt.capacity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && q.Count() != 0 {
				t.Fatalf("Count() after New = %d, want 0", q.Count())
			}
		})
	}
}

func TestCapacityClamp(t *testing.T) {
	t.Parallel()
	// Requested capacity above MaxElements is silently reduced, and the
	// buffer only needs to cover the clamped capacity.
	q, err := New(make([]byte, 2*MaxElements), 2, 1000)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if q.Capacity() != MaxElements {
		t.Fatalf("Capacity() = %d, want %d", q.Capacity(), MaxElements)
	}
}

func TestSendReceiveScenario(t *testing.T) {
	t.Parallel()
	q, err := New(make([]byte, 12), 4, 3)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	put := func(v uint32) error {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], v)
		return q.Send(b[:])
	}

	for _, v := range []uint32{0xAAAABBBB, 0xCCCCDDDD, 0xEEEEFFFF} {
		if err := put(v); err != nil {
			t.Fatalf("Send(%#x) error: %v", v, err)
		}
	}
	if err := put(0x11112222); !errors.Is(err, ErrFull) {
		t.Fatalf("Send on full queue = %v, want ErrFull", err)
	}

	var out [4]byte
	if err := q.Receive(out[:]); err != nil {
		t.Fatalf("Receive() error: %v", err)
	}
	if got := binary.BigEndian.Uint32(out[:]); got != 0xAAAABBBB {
		t.Fatalf("Receive() = %#x, want 0xAAAABBBB", got)
	}
	if q.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", q.Count())
	}
}

func TestFIFOOrderAndRoundTrip(t *testing.T) {
	t.Parallel()
	const elems = 7
	q, err := New(make([]byte, 8*elems), 8, elems)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	var sent [][]byte
	for i := 0; i < elems; i++ {
		e := []byte{byte(i), 0xDE, 0xAD, byte(i * 3), 0xBE, 0xEF, byte(i ^ 0x55), 0xFF}
		sent = append(sent, e)
		if err := q.Send(e); err != nil {
			t.Fatalf("Send #%d error: %v", i, err)
		}
	}
	for i := 0; i < elems; i++ {
		got := make([]byte, 8)
		if err := q.Receive(got); err != nil {
			t.Fatalf("Receive #%d error: %v", i, err)
		}
		if !bytes.Equal(got, sent[i]) {
			t.Fatalf("Receive #%d = %x, want %x", i, got, sent[i])
		}
	}
	if err := q.Receive(make([]byte, 8)); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Receive on empty queue = %v, want ErrEmpty", err)
	}
}

func TestReceiveLeavesDestinationOnFailure(t *testing.T) {
	t.Parallel()
	q, err := New(make([]byte, 4), 2, 2)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	dst := []byte{0x12, 0x34}
	if err := q.Receive(dst); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Receive = %v, want ErrEmpty", err)
	}
	if dst[0] != 0x12 || dst[1] != 0x34 {
		t.Fatalf("destination modified on failed receive: %x", dst)
	}
}

func TestFlushResetsIndices(t *testing.T) {
	t.Parallel()
	q, err := New(make([]byte, 6), 2, 3)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := q.Send([]byte{byte(i), byte(i)}); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}
	q.Flush()
	if q.Count() != 0 {
		t.Fatalf("Count() after Flush = %d, want 0", q.Count())
	}
	// The ring must be fully reusable after a flush.
	if err := q.Send([]byte{9, 9}); err != nil {
		t.Fatalf("Send after Flush error: %v", err)
	}
	got := make([]byte, 2)
	if err := q.Receive(got); err != nil {
		t.Fatalf("Receive after Flush error: %v", err)
	}
	if got[0] != 9 || got[1] != 9 {
		t.Fatalf("Receive after Flush = %x, want 0909", got)
	}
}

func TestWrapAroundReuse(t *testing.T) {
	t.Parallel()
	q, err := New(make([]byte, 3), 1, 3)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	// Push the indices around the ring several times.
	next := byte(0)
	expect := byte(0)
	for i := 0; i < 50; i++ {
		if err := q.Send([]byte{next}); err != nil {
			t.Fatalf("Send #%d error: %v", i, err)
		}
		next++
		if q.Count() == 3 || i%2 == 1 {
			got := make([]byte, 1)
			if err := q.Receive(got); err != nil {
				t.Fatalf("Receive #%d error: %v", i, err)
			}
			if got[0] != expect {
				t.Fatalf("Receive #%d = %d, want %d", i, got[0], expect)
			}
			expect++
		}
	}
}

func TestConcurrentSendersAndReceiver(t *testing.T) {
	t.Parallel()
	const (
		producers = 4
		perProd   = 2_000
		total     = producers * perProd
	)
	q, err := New(make([]byte, 4*MaxElements), 4, MaxElements)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				var b [4]byte
				binary.LittleEndian.PutUint32(b[:], uint32(p*perProd+i))
				for q.Send(b[:]) != nil {
					runtime.Gosched() // full; retry
				}
			}
		}(p)
	}

	seen := make([]bool, total)
	for n := 0; n < total; {
		var b [4]byte
		if q.Receive(b[:]) != nil {
			runtime.Gosched()
			continue
		}
		id := binary.LittleEndian.Uint32(b[:])
		if int(id) >= total {
			t.Fatalf("received id %d, want < %d", id, total)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
		n++
	}
	wg.Wait()
}
