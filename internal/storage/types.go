package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunEntry records one dispatched task callback.
// Keep it compact and schema-stable.
type RunEntry struct {
	At   time.Time     `json:"at"`
	Task string        `json:"task"`
	Tick uint32        `json:"tick"`
	Took time.Duration `json:"took"`
}
