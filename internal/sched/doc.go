// Package sched implements a cooperative, tick-driven task scheduler.
//
// # Overview
//
// Tasks are zero-argument callbacks registered with a period (in ticks)
// and an initial state. The scheduler keeps them in a circular list and
// dispatches from a single endless loop: each iteration inspects the task
// under the cursor, fires it if due, and advances the cursor. There is no
// preemption and no per-task stack; a callback that never returns stalls
// the whole loop.
//
// # Time
//
// The scheduler reads time through the tick function given to Init. Ticks
// are a uint32 counter that wraps on overflow; readiness is decided with
// signed wraparound arithmetic (int32(due-now) <= 0), trading bounded
// lateness of up to half the counter range for overflow safety.
//
// # Storage
//
// Task records live in a fixed arena of slots linked by index, so no
// allocation happens on Add, Remove or during dispatch. Handles are
// generation-tagged slot references: a handle to a removed task reports
// StateNotFound instead of aliasing a later registration.
//
// # Concurrency
//
// A Scheduler is confined to one goroutine. List mutations (Add, Remove,
// Modify, ...) are not protected by any critical section and must only be
// invoked from the dispatch context, including from task callbacks. Only
// the tick function is expected to be updated concurrently.
package sched
