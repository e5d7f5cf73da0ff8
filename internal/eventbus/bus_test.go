package eventbus

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	t.Parallel()
	b := New()

	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeTaskFired, Data: TaskFired{Name: "heartbeat", Tick: 7}})

	select {
	case e := <-ch:
		if e.Type != TypeTaskFired {
			t.Fatalf("Type = %q, want %q", e.Type, TypeTaskFired)
		}
		if e.Time.IsZero() {
			t.Fatal("Publish did not stamp event time")
		}
		tf, ok := e.Data.(TaskFired)
		if !ok || tf.Name != "heartbeat" || tf.Tick != 7 {
			t.Fatalf("unexpected payload: %#v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	b := New()

	ch, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: TypeQueueStats})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if got := len(ch); got != 1 {
		t.Fatalf("buffered events = %d, want 1 (rest dropped)", got)
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	t.Parallel()
	b := New()

	ch, unsub := b.Subscribe(1)
	_ = ch
	unsub()
	unsub() // idempotent

	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: TypeConfig})
}
