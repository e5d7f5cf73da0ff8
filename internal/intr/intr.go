// Package intr models the interrupt-enable state of a bare-metal target.
//
// On the microcontroller this design descends from, exclusive access is
// obtained by disabling all maskable interrupts and later restoring the
// saved enable state (PRIMASK on Cortex-M). On a hosted runtime the
// "interrupt context" is any other goroutine, so Mask keeps the same
// save/restore contract on top of an atomic flag: Enter spins until the
// mask is held, Restore re-enables only if the caller observed interrupts
// enabled.
//
// The section must stay short: no unbounded loops, no calls back into the
// scheduler, no nested acquisition of the same Mask.
package intr

import (
	"runtime"
	"sync/atomic"
)

// Mask is a non-reentrant interrupt mask. The zero value is an unmasked
// (interrupts enabled) state. A Mask must not be copied after first use.
type Mask struct {
	_      [0]func() // prevent accidental copying
	masked atomic.Bool
}

// Enter disables interrupts and reports whether they were enabled before.
// If another context already holds the mask, Enter spins (yielding) until
// it can take it. Re-entering from the holder deadlocks: the mask is not
// reentrant.
func (m *Mask) Enter() (wasEnabled bool) {
	for !m.masked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	return true
}

// Restore re-enables interrupts if wasEnabled says they were enabled when
// the matching Enter ran. It is the PRIMASK write-back of the original
// macros.
func (m *Mask) Restore(wasEnabled bool) {
	if wasEnabled {
		m.masked.Store(false)
	}
}

// Section runs fn with the mask held, restoring the prior state on every
// exit path, including a panicking fn.
func (m *Mask) Section(fn func()) {
	prev := m.Enter()
	defer m.Restore(prev)
	fn()
}
