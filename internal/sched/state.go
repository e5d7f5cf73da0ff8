package sched

// State is the lifecycle state of a registered task.
//
// The numeric values are part of the on-device ABI this package descends
// from and are kept stable.
type State uint8

const (
	// StatePaused marks a task the dispatcher skips entirely.
	StatePaused State = 0x00
	// StateScheduled marks a periodic task that fires after each period.
	StateScheduled State = 0x01
	// StateOneShot marks a task that fires once and then self-pauses.
	StateOneShot State = 0x02
	// StateRunNow marks a periodic task eligible immediately on Add.
	StateRunNow State = 0x03
	// StateOneShotNow marks a one-shot task eligible immediately on Add.
	StateOneShotNow State = 0x05
	// StateRunning is reserved; Add coerces it to StateScheduled and
	// Modify rejects it.
	StateRunning State = 0x06
	// StateNotFound is the sentinel returned by Status for unknown
	// handles or an uninitialized scheduler.
	StateNotFound State = 0xFF
)

// oneShot reports whether a task in state s fires at most once per
// activation. RunNow also carries the historical one-shot bit but is
// periodic; only the two one-shot states qualify.
func (s State) oneShot() bool {
	return s == StateOneShot || s == StateOneShotNow
}

// valid reports whether s may be requested through the API.
func (s State) valid() bool {
	switch s {
	case StatePaused, StateScheduled, StateOneShot, StateRunNow, StateOneShotNow:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateScheduled:
		return "scheduled"
	case StateOneShot:
		return "one-shot"
	case StateRunNow:
		return "run-now"
	case StateOneShotNow:
		return "one-shot-now"
	case StateRunning:
		return "running"
	case StateNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}
