// Package notifications provides an in-process per-user broadcast hub.
// The gamification notifier publishes emitted notifications here so the
// API layer can stream them without polling the store.
package notifications

import (
	"sync"
	"time"

	"github.com/sika-app/backend/internal/model"
)

// Event wraps a notification for streaming subscribers.
type Event struct {
	Type         string              `json:"type"`
	Timestamp    time.Time           `json:"timestamp"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// Hub fans events out to per-user subscribers. Publishing never blocks:
// a subscriber that cannot keep up drops events.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for one user's events and returns the
// channel plus an unsubscribe function. The channel is closed on
// unsubscribe.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, 10)

	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[chan Event]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, exists := h.subscribers[userID]; exists {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, userID)
			}
		}
		close(ch)
	}
}

// Publish delivers an event to every subscriber of the user.
func (h *Hub) Publish(userID string, event Event) {
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[userID]
	if !ok {
		return
	}
	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}
