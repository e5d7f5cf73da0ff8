// Package tick provides the scheduler timebase: a monotonically
// incrementing counter that wraps on overflow.
//
// The counter is advanced by exactly one per time quantum. On hardware
// that is a timer interrupt; here Run drives it from a wall-clock ticker
// while Advance stays available as the raw hook for tests and bridges.
package tick

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultQuantum is the tick period used when the caller does not
// configure one.
const DefaultQuantum = time.Millisecond

// Clock is the global tick counter. The zero value is a clock at tick 0.
// All methods are safe for concurrent use.
type Clock struct {
	ticks atomic.Uint32
}

// Now returns the current tick count. The value wraps at 2^32; consumers
// must compare ticks with signed wraparound arithmetic, not directly.
func (c *Clock) Now() uint32 { return c.ticks.Load() }

// Advance increments the counter by one quantum. This is the timer-ISR
// entry point.
func (c *Clock) Advance() { c.ticks.Add(1) }

// SetNow forces the counter to v. Intended for tests (e.g. placing the
// clock just before the wraparound point).
func (c *Clock) SetNow(v uint32) { c.ticks.Store(v) }

// Run advances the clock once per quantum until ctx is done. A quantum
// <= 0 falls back to DefaultQuantum.
func (c *Clock) Run(ctx context.Context, quantum time.Duration) error {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	t := time.NewTicker(quantum)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			c.Advance()
		}
	}
}
