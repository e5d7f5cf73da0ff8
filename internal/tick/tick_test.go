package tick

import (
	"context"
	"testing"
	"time"
)

func TestAdvanceAndSetNow(t *testing.T) {
	t.Parallel()
	var c Clock

	if c.Now() != 0 {
		t.Fatalf("Now() = %d, want 0", c.Now())
	}
	for i := 0; i < 5; i++ {
		c.Advance()
	}
	if c.Now() != 5 {
		t.Fatalf("Now() = %d, want 5", c.Now())
	}

	c.SetNow(0xFFFFFFFF)
	c.Advance()
	if c.Now() != 0 {
		t.Fatalf("Now() after wraparound = %d, want 0", c.Now())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()
	var c Clock

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 100*time.Microsecond) }()

	// Wait until at least one tick has landed, then cancel.
	deadline := time.Now().Add(2 * time.Second)
	for c.Now() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("clock never advanced")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
