package notifications

import (
	"testing"
	"time"

	"github.com/sika-app/backend/internal/model"
)

func TestHubDeliversToSubscriber(t *testing.T) {
	hub := NewHub()
	events, unsubscribe := hub.Subscribe("u1")
	defer unsubscribe()

	hub.Publish("u1", Event{Type: "level_up", Notification: &model.Notification{UserID: "u1"}})

	select {
	case event := <-events:
		if event.Type != "level_up" {
			t.Errorf("expected level_up, got %s", event.Type)
		}
		if event.Timestamp.IsZero() {
			t.Error("publish must stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestHubIsolatesUsers(t *testing.T) {
	hub := NewHub()
	events, unsubscribe := hub.Subscribe("u1")
	defer unsubscribe()

	hub.Publish("u2", Event{Type: "badge_earned"})

	select {
	case event := <-events:
		t.Fatalf("u1 must not see u2's event: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	events, unsubscribe := hub.Subscribe("u1")
	unsubscribe()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected a closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel should be closed")
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish("u1", Event{Type: "level_up"})
}

func TestHubNeverBlocksPublisher(t *testing.T) {
	hub := NewHub()
	_, unsubscribe := hub.Subscribe("u1")
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		// Well past the subscriber buffer with nobody reading.
		for i := 0; i < 100; i++ {
			hub.Publish("u1", Event{Type: "level_up"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
