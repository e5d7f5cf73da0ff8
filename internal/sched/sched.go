package sched

import (
	"context"
	"errors"
	"runtime"
)

const (
	// MaxTasks is the capacity of the task arena.
	MaxTasks = 255
	// MaxInterval is the largest accepted period, in ticks (one hour at
	// a 1ms quantum).
	MaxInterval = 3_600_000
	// DefaultInterval replaces periods outside [1, MaxInterval].
	DefaultInterval = 100
)

var (
	ErrNotInitialized = errors.New("sched: not initialized")
	ErrTaskLimit      = errors.New("sched: task limit reached")
	ErrNilAction      = errors.New("sched: nil action")
	ErrTaskNotFound   = errors.New("sched: task not found")
	ErrInvalidState   = errors.New("sched: invalid state")
)

// none marks an empty head or cursor.
const none = -1

// Handle identifies a registered task. The zero Handle is invalid and
// handles to removed tasks go stale rather than aliasing a reused slot.
type Handle struct {
	idx int
	gen uint32
}

// slot is one arena entry. Linkage is by slot index so traversal never
// dereferences freed storage.
type slot struct {
	action func()
	period uint32
	dueAt  uint32
	state  State
	next   int
	used   bool
	gen    uint32
}

// Scheduler owns the task circle and the dispatch cursor. The zero value
// is uninitialized: every operation fails until Init runs.
type Scheduler struct {
	initialized bool
	now         func() uint32

	count  int
	head   int
	cursor int
	slots  [MaxTasks]slot
}

// New returns an initialized scheduler reading time from now.
func New(now func() uint32) *Scheduler {
	s := &Scheduler{}
	s.Init(now)
	return s
}

// Init resets the task count, clears the list and marks the subsystem
// ready. A nil now pins the clock at tick zero (useful in tests).
// Calling Init again discards all registered tasks.
func (s *Scheduler) Init(now func() uint32) {
	if now == nil {
		now = func() uint32 { return 0 }
	}
	gens := [MaxTasks]uint32{}
	for i := range s.slots {
		gens[i] = s.slots[i].gen
	}
	*s = Scheduler{initialized: true, now: now, head: none, cursor: none}
	for i := range s.slots {
		s.slots[i].next = none
		s.slots[i].gen = gens[i] // keep old handles stale, not aliased
	}
}

// Len returns the number of registered tasks.
func (s *Scheduler) Len() int { return s.count }

// Add registers action with the given period (in ticks) and requested
// state and links it at the end of the circle. A period outside
// [1, MaxInterval] is replaced by DefaultInterval; an unrecognized or
// terminal state is coerced to StateScheduled. StateRunNow and
// StateOneShotNow make the task due immediately.
func (s *Scheduler) Add(action func(), period uint32, state State) (Handle, error) {
	if !s.initialized {
		return Handle{}, ErrNotInitialized
	}
	if s.count == MaxTasks {
		return Handle{}, ErrTaskLimit
	}
	if action == nil {
		return Handle{}, ErrNilAction
	}
	if period < 1 || period > MaxInterval {
		period = DefaultInterval
	}
	if !state.valid() {
		state = StateScheduled
	}

	idx := s.grab()
	sl := &s.slots[idx]
	sl.action = action
	sl.period = period
	sl.state = state

	now := s.now()
	if state == StateRunNow || state == StateOneShotNow {
		sl.dueAt = now
	} else {
		sl.dueAt = now + period
	}

	if s.head == none {
		// Sole task: a circle of one, and the dispatch cursor.
		sl.next = idx
		s.head = idx
		s.cursor = idx
	} else {
		// Append before the head: walk from the cursor to the node that
		// links back to the head and splice in behind it.
		p := s.cursor
		for s.slots[p].next != s.head {
			p = s.slots[p].next
		}
		s.slots[p].next = idx
		sl.next = s.head
	}

	s.count++
	return Handle{idx: idx, gen: sl.gen}, nil
}

// Remove unlinks the task from the circle. The slot is released but the
// walk is bounded by the task count, so a handle that is not actually
// linked fails with ErrTaskNotFound instead of looping. The capacity
// check mirrors Add.
func (s *Scheduler) Remove(h Handle) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.count == MaxTasks {
		return ErrTaskLimit
	}
	sl := s.lookup(h)
	if sl == nil {
		return ErrTaskNotFound
	}

	// Find the predecessor of the target.
	p := s.head
	found := false
	for i := 0; i < s.count; i++ {
		if s.slots[p].next == h.idx {
			found = true
			break
		}
		p = s.slots[p].next
	}
	if !found {
		return ErrTaskNotFound
	}

	if sl.next == h.idx {
		// Sole task; the circle empties.
		s.head = none
		s.cursor = none
	} else {
		s.slots[p].next = sl.next
		if s.head == h.idx {
			s.head = sl.next
		}
		if s.cursor == h.idx {
			s.cursor = sl.next
		}
	}

	s.release(h.idx)
	s.count--
	return nil
}

// Pause sets the task to StatePaused without touching its deadline.
func (s *Scheduler) Pause(h Handle) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	sl := s.lookup(h)
	if sl == nil {
		return ErrTaskNotFound
	}
	sl.state = StatePaused
	return nil
}

// Resume sets the task back to StateScheduled and restarts its period
// from now, discarding any prior one-shot semantics.
func (s *Scheduler) Resume(h Handle) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	sl := s.lookup(h)
	if sl == nil {
		return ErrTaskNotFound
	}
	sl.state = StateScheduled
	sl.dueAt = s.now() + sl.period
	return nil
}

// Modify sets period and state directly. Unlike Add it does not clamp the
// period and rejects states outside the requestable set. Scheduled and
// one-shot tasks get a fresh deadline; any other accepted state resets
// the deadline to the epoch.
func (s *Scheduler) Modify(h Handle, period uint32, state State) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	sl := s.lookup(h)
	if sl == nil {
		return ErrTaskNotFound
	}
	if !state.valid() {
		return ErrInvalidState
	}

	sl.period = period
	sl.state = state
	if state == StateScheduled || state == StateOneShot {
		sl.dueAt = s.now() + period
	} else {
		sl.dueAt = 0
	}
	return nil
}

// Status returns the task's current state, or StateNotFound for an
// unknown handle or an uninitialized scheduler.
func (s *Scheduler) Status(h Handle) State {
	if !s.initialized {
		return StateNotFound
	}
	sl := s.lookup(h)
	if sl == nil {
		return StateNotFound
	}
	return sl.state
}

// Step performs one iteration of the dispatch loop: inspect the task
// under the cursor, fire it if due, advance the cursor. It reports
// whether a callback ran. Callbacks may mutate the task list; Step keeps
// the cursor consistent when the current task removes itself.
func (s *Scheduler) Step() bool {
	if !s.initialized || s.count == 0 || s.cursor == none {
		return false
	}

	cur := s.cursor
	sl := &s.slots[cur]
	fired := false

	if sl.state != StatePaused {
		if elapsed := int32(sl.dueAt - s.now()); elapsed <= 0 {
			if sl.state.oneShot() {
				gen := sl.gen
				sl.action()
				// Self-pause, unless the callback removed the task.
				if sl.used && sl.gen == gen {
					sl.state = StatePaused
				}
			} else {
				// Reschedule before invoking, as the original does.
				sl.dueAt = s.now() + sl.period
				sl.action()
			}
			fired = true
		}
	}

	// Advance, unless a callback already moved the cursor off a removed
	// task (or emptied the list).
	if s.cursor == cur && s.slots[cur].used {
		s.cursor = s.slots[cur].next
	}
	return fired
}

// Run executes the dispatch loop until ctx is done; it never returns
// during normal operation. The loop yields the processor on idle
// iterations but never blocks, and callbacks are trusted to return: one
// that blocks forever stalls every task.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.Step() {
			runtime.Gosched()
		}
	}
}

func (s *Scheduler) lookup(h Handle) *slot {
	if h.gen == 0 || h.idx < 0 || h.idx >= MaxTasks {
		return nil
	}
	sl := &s.slots[h.idx]
	if !sl.used || sl.gen != h.gen {
		return nil
	}
	return sl
}

// grab claims a free slot and bumps its generation. The caller must have
// checked count < MaxTasks, so a free slot always exists.
func (s *Scheduler) grab() int {
	for i := range s.slots {
		if !s.slots[i].used {
			s.slots[i].used = true
			s.slots[i].gen++
			return i
		}
	}
	panic("sched: arena full past count check")
}

func (s *Scheduler) release(idx int) {
	sl := &s.slots[idx]
	sl.used = false
	sl.action = nil
	sl.next = none
}
