package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration resolves a duration-typed field. Empty (or whitespace) yields
// def; anything else must parse as a positive Go duration string.
func Duration(path, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d <= 0:
		return 0, fmt.Errorf("%s: duration must be positive, got %q", path, raw)
	}
	return d, nil
}

// Validate checks the structural constraints a config must satisfy before
// it is committed. Out-of-range periods and capacities are deliberately
// NOT rejected here: the scheduler and queue layers clamp them so that
// malformed configuration degrades instead of halting the daemon.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if _, err := Duration("tick.quantum", cfg.Tick.Quantum, 0); err != nil {
		return err
	}
	if _, err := Duration("maintenance.retention", cfg.Maintenance.Retention, 0); err != nil {
		return err
	}
	if cfg.Storage != nil {
		if _, err := Duration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver)
		}
	}

	queues := map[string]bool{}
	for i, q := range cfg.Queues {
		if strings.TrimSpace(q.Name) == "" {
			return fmt.Errorf("queues[%d]: name is required", i)
		}
		if queues[q.Name] {
			return fmt.Errorf("queues[%d]: duplicate name %q", i, q.Name)
		}
		queues[q.Name] = true
		if q.ElementSize <= 0 {
			return fmt.Errorf("queues[%d] (%s): element_size must be > 0", i, q.Name)
		}
		if q.Capacity <= 0 {
			return fmt.Errorf("queues[%d] (%s): capacity must be > 0", i, q.Name)
		}
	}

	tasks := map[string]bool{}
	for i, t := range cfg.Scheduler.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("scheduler.tasks[%d]: name is required", i)
		}
		if tasks[t.Name] {
			return fmt.Errorf("scheduler.tasks[%d]: duplicate name %q", i, t.Name)
		}
		tasks[t.Name] = true
		if strings.TrimSpace(t.Action) == "" {
			return fmt.Errorf("scheduler.tasks[%d] (%s): action is required", i, t.Name)
		}
		if t.Queue != "" && !queues[t.Queue] {
			return fmt.Errorf("scheduler.tasks[%d] (%s): unknown queue %q", i, t.Name, t.Queue)
		}
	}

	return nil
}
