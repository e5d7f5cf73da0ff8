package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "minirtos/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none", "NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q): expected nil store", driver)
		}
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func testStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		e := RunEntry{
			At:   base.Add(time.Duration(i) * time.Minute),
			Task: "heartbeat",
			Tick: uint32(100 * (i + 1)),
			Took: time.Duration(i+1) * time.Millisecond,
		}
		if err := st.AppendRun(ctx, e); err != nil {
			t.Fatalf("AppendRun: %v", err)
		}
	}

	got, err := st.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentRuns returned %d entries, want 3", len(got))
	}
	// Newest first.
	if got[0].Tick != 500 || got[2].Tick != 300 {
		t.Fatalf("unexpected order: %+v", got)
	}

	removed, err := st.PruneBefore(ctx, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if removed != 3 {
		t.Fatalf("PruneBefore removed %d, want 3", removed)
	}
	got, err = st.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns after prune: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(got))
	}
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testStore(t, st)
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: tail must be rebuilt from disk.
	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	got, err := st.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after reopen, got %d", len(got))
	}
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	testStore(t, st)
}
