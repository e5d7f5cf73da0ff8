package config

// Config mirrors the daemon config file (YAML or JSON).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging     LoggingConfig     `json:"logging"`
	Tick        TickConfig        `json:"tick"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Queues      []QueueConfig     `json:"queues,omitempty"`
	Storage     *StorageConfig    `json:"storage,omitempty"`
	Maintenance MaintenanceConfig `json:"maintenance"`
}

type LoggingConfig struct {
	Level   string          `json:"level,omitempty"`
	Console bool            `json:"console"`
	File    LogFileConfig   `json:"file"`
	Alerts  LogAlertsConfig `json:"alerts"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LogAlertsConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// TickConfig controls the timebase.
type TickConfig struct {
	// Quantum is the wall-clock duration of one tick. Defaults to "1ms".
	Quantum string `json:"quantum,omitempty"`
}

// SchedulerConfig declares the tasks registered at startup.
type SchedulerConfig struct {
	Tasks []TaskConfig `json:"tasks,omitempty"`
}

// TaskConfig binds a built-in action to a period and an initial state.
//
// Period is in ticks. Values outside [1, 3600000] fall back to the
// scheduler default rather than failing, and an unknown state falls back
// to "scheduled" — malformed configuration degrades, it does not halt.
type TaskConfig struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Period uint32 `json:"period,omitempty"`
	// State is one of: paused, scheduled, one-shot, run-now,
	// one-shot-now.
	State string `json:"state,omitempty"`
	// Queue names the queue the action operates on, for actions that
	// take one (produce/consume).
	Queue string `json:"queue,omitempty"`
}

// QueueConfig declares a message queue shared by tasks.
//
// Capacity above the queue maximum (20) is silently reduced.
type QueueConfig struct {
	Name        string `json:"name"`
	ElementSize int    `json:"element_size"`
	Capacity    int    `json:"capacity"`
}

// StorageConfig controls run-history persistence. If the section is
// omitted or driver is ""/"none", persistence is disabled.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// MaintenanceConfig controls periodic pruning of persisted history.
type MaintenanceConfig struct {
	// Schedule is a cron spec or descriptor ("@hourly", "@every 30m").
	// Empty means "@hourly". Maintenance only runs when storage is
	// enabled.
	Schedule string `json:"schedule,omitempty"`
	// Retention is how long history rows are kept. Defaults to "168h".
	Retention string `json:"retention,omitempty"`
}
