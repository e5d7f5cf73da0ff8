package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
logging:
  level: debug
  console: true
tick:
  quantum: 5ms
scheduler:
  tasks:
    - name: heartbeat
      action: heartbeat
      period: 1000
    - name: banner
      action: oneshot-banner
      state: oneshot-now
queues:
  - name: telemetry
    element_size: 8
    capacity: 16
storage:
  driver: sqlite
  path: runs.db
  busy_timeout: 2s
maintenance:
  schedule: "@hourly"
  retention: 24h
`

func TestParseSample(t *testing.T) {
	t.Parallel()

	m := NewManager("config.yml")
	cfg, err := m.Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging section mismatch: %+v", cfg.Logging)
	}
	if got := len(cfg.Scheduler.Tasks); got != 2 {
		t.Fatalf("tasks = %d, want 2", got)
	}
	if cfg.Scheduler.Tasks[0].Period != 1000 {
		t.Fatalf("period = %d, want 1000", cfg.Scheduler.Tasks[0].Period)
	}
	if cfg.Scheduler.Tasks[1].State != "oneshot-now" {
		t.Fatalf("state = %q", cfg.Scheduler.Tasks[1].State)
	}
	if len(cfg.Queues) != 1 || cfg.Queues[0].Capacity != 16 {
		t.Fatalf("queues mismatch: %+v", cfg.Queues)
	}
	if cfg.Storage == nil || cfg.Storage.Path != "runs.db" {
		t.Fatalf("storage mismatch: %+v", cfg.Storage)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d, err := Duration("tick.quantum", cfg.Tick.Quantum, 0)
	if err != nil || d != 5*time.Millisecond {
		t.Fatalf("quantum = %v, %v", d, err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager("config.yml")
	if _, err := m.Parse([]byte("tick:\n  quantum: 1ms\n  qantum: 2ms\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		mut  func(*Config)
		ok   bool
	}{
		{"valid", func(c *Config) {}, true},
		{"duplicate task", func(c *Config) {
			c.Scheduler.Tasks = append(c.Scheduler.Tasks, c.Scheduler.Tasks[0])
		}, false},
		{"missing action", func(c *Config) { c.Scheduler.Tasks[0].Action = "" }, false},
		{"unknown queue ref", func(c *Config) { c.Scheduler.Tasks[0].Queue = "nope" }, false},
		{"zero element size", func(c *Config) { c.Queues[0].ElementSize = 0 }, false},
		{"bad retention", func(c *Config) { c.Maintenance.Retention = "soon" }, false},
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }, false},
		{"file driver", func(c *Config) { c.Storage.Driver = "file"; c.Storage.Path = "runs.jsonl" }, true},
		{"disabled driver", func(c *Config) { c.Storage.Driver = "none" }, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := NewManager("config.yml")
			cfg, err := m.Parse([]byte(sampleYAML))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			tc.mut(cfg)
			err = Validate(cfg)
			if tc.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		def  time.Duration
		want time.Duration
		ok   bool
	}{
		{"", time.Second, time.Second, true},
		{"  ", 5 * time.Millisecond, 5 * time.Millisecond, true},
		{"250ms", time.Second, 250 * time.Millisecond, true},
		{"2h30m", 0, 2*time.Hour + 30*time.Minute, true},
		{"0s", time.Second, 0, false},
		{"-1s", time.Second, 0, false},
		{"soon", time.Second, 0, false},
	}
	for _, tc := range cases {
		got, err := Duration("field", tc.raw, tc.def)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("Duration(%q) = %v, %v; want %v", tc.raw, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("Duration(%q): expected error", tc.raw)
		}
	}
}

func TestLoadAndGet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tick.Quantum != "5ms" {
		t.Fatalf("quantum = %q", cfg.Tick.Quantum)
	}
	if got := m.Get(); got == nil || got.Tick.Quantum != "5ms" {
		t.Fatal("Get did not return the committed config")
	}
}

func TestCommitSkipsUnchanged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := NewManager(path)
	ch := m.Subscribe(2)
	defer m.Unsubscribe(ch)

	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no update after first load")
	}

	// Reloading identical content must not publish again.
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	select {
	case <-ch:
		t.Fatal("unexpected update for unchanged config")
	case <-time.After(50 * time.Millisecond):
	}
}
