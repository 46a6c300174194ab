package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sika-app/backend/internal/model"
	"github.com/sika-app/backend/internal/notifications"
	"github.com/sika-app/backend/internal/store"
)

//go:generate mockgen -source=notifier.go -destination=notifier_mock.go -package=gamification

// Notifier receives notifications emitted by the engine (level-ups,
// badge awards). Delivery beyond the sink is an external concern.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// StoreNotifier persists notifications and publishes them on the
// in-process hub. The hub may be nil (e.g. in batch contexts).
type StoreNotifier struct {
	store store.Store
	hub   *notifications.Hub
	log   *logrus.Logger
}

// NewStoreNotifier builds the default notification sink.
func NewStoreNotifier(s store.Store, hub *notifications.Hub, log *logrus.Logger) *StoreNotifier {
	return &StoreNotifier{store: s, hub: hub, log: log}
}

// Notify fills in ID/CreatedAt, stores the notification and broadcasts
// it to live subscribers.
func (n *StoreNotifier) Notify(ctx context.Context, notification *model.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if n.hub != nil {
		n.hub.Publish(notification.UserID, notifications.Event{
			Type:         string(notification.Type),
			Notification: notification,
		})
	}
	n.log.Infof("[Gamification] notification %s for user %s: %s", notification.Type, notification.UserID, notification.Title)
	return nil
}
