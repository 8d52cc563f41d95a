package notify

import (
	"context"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/logx"
)

// Store persists notification rows.
type Store interface {
	Insert(ctx context.Context, n *domain.Notification) error
}

// Publisher pushes events to live subscribers.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// Sink stores a notification and pushes it to the user's live topic. Push and
// email channel flags are recorded for the delivery pipeline; the sink itself
// only serves the websocket channel.
type Sink struct {
	store Store
	bus   Publisher
	log   logx.Logger
}

// NewSink creates a Sink.
func NewSink(store Store, bus Publisher, log logx.Logger) *Sink {
	return &Sink{store: store, bus: bus, log: log}
}

// Notify persists the notification and publishes it on user:{id}.
func (s *Sink) Notify(ctx context.Context, n domain.Notification) error {
	if err := s.store.Insert(ctx, &n); err != nil {
		return err
	}

	s.bus.Publish(eventbus.Event{
		Topic: eventbus.UserTopic(n.UserID),
		Type:  eventbus.EvNotification,
		Data: map[string]any{
			"id":          n.ID,
			"type":        n.Type,
			"title":       n.Title,
			"content":     n.Content,
			"delivery_id": n.DeliveryID,
			"action_url":  n.ActionURL,
			"created_at":  n.CreatedAt,
		},
	})

	s.log.Debug("notification stored",
		logx.Int64("user_id", n.UserID),
		logx.String("type", string(n.Type)),
	)
	return nil
}
