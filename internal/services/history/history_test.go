package history

import (
	"context"
	"sync"
	"testing"
	"time"

	"minirtos/internal/eventbus"
	"minirtos/internal/storage"
	logx "minirtos/pkg/logx"
)

type memStore struct {
	mu      sync.Mutex
	entries []storage.RunEntry
}

func (m *memStore) AppendRun(ctx context.Context, e storage.RunEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) RecentRuns(ctx context.Context, limit int) ([]storage.RunEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.RunEntry(nil), m.entries...), nil
}

func (m *memStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestRecordsTaskFired(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	st := &memStore{}
	svc := New(Config{}, bus, st, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Give Run a moment to subscribe.
	deadline := time.Now().Add(2 * time.Second)
	for st.len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no run recorded")
		}
		bus.Publish(eventbus.Event{
			Type: eventbus.TypeTaskFired,
			Data: eventbus.TaskFired{Name: "heartbeat", Tick: 42, Duration: time.Millisecond},
		})
		time.Sleep(5 * time.Millisecond)
	}

	got, _ := st.RecentRuns(context.Background(), 1)
	if got[0].Task != "heartbeat" || got[0].Tick != 42 {
		t.Fatalf("recorded entry = %+v", got[0])
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	st := &memStore{}
	svc := New(Config{}, bus, st, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	for i := 0; i < 10; i++ {
		bus.Publish(eventbus.Event{
			Type: eventbus.TypeQueueStats,
			Data: eventbus.QueueStats{Name: "telemetry", Count: 1, Capacity: 4},
		})
		time.Sleep(2 * time.Millisecond)
	}
	if n := st.len(); n != 0 {
		t.Fatalf("recorded %d entries from non-run events", n)
	}
}

func TestNilStoreIdlesUntilCancel(t *testing.T) {
	t.Parallel()

	svc := New(Config{}, eventbus.New(), nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
