// Package messages relays the per-delivery chat between the sender, the
// assigned courier, and the package recipient following a tracking link.
package messages

import (
	"context"
	"fmt"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/logx"
)

const maxContentLen = 2000

// Store persists chat messages.
type Store interface {
	Insert(ctx context.Context, m *domain.Message) error
	Get(ctx context.Context, id int64) (*domain.Message, error)
	ListByDelivery(ctx context.Context, deliveryID int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID, recipientID int64, at time.Time) (bool, error)
}

// Deliveries reads delivery participants.
type Deliveries interface {
	Get(ctx context.Context, id int64) (*domain.Delivery, error)
}

// Publisher pushes events to live subscribers.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// Notifier stores and pushes a persistent per-user notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Caller identifies who is talking. Recipient callers come from a tracking
// token the transport has already bound to the delivery.
type Caller struct {
	UserID    int64
	Recipient bool
}

// Relay is the chat service.
type Relay struct {
	store      Store
	deliveries Deliveries
	bus        Publisher
	notify     Notifier
	log        logx.Logger

	now func() time.Time
}

// NewRelay creates a Relay.
func NewRelay(store Store, deliveries Deliveries, bus Publisher, notify Notifier, log logx.Logger) *Relay {
	return &Relay{
		store:      store,
		deliveries: deliveries,
		bus:        bus,
		notify:     notify,
		log:        log,
		now:        time.Now,
	}
}

// History returns the chat of a delivery, oldest first.
func (r *Relay) History(ctx context.Context, deliveryID int64, caller Caller) ([]domain.Message, error) {
	if _, err := r.authorize(ctx, deliveryID, caller); err != nil {
		return nil, err
	}
	return r.store.ListByDelivery(ctx, deliveryID)
}

// Send stores one message and fans it out. Recipient messages are routed to
// the courier when one is assigned, otherwise to the sender; participant
// messages always go to the counterpart.
func (r *Relay) Send(ctx context.Context, deliveryID int64, caller Caller, content, attachmentURL string) (*domain.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", apperr.ErrInvalid)
	}
	if len(content) > maxContentLen {
		return nil, fmt.Errorf("%w: message exceeds %d characters", apperr.ErrInvalid, maxContentLen)
	}

	d, err := r.authorize(ctx, deliveryID, caller)
	if err != nil {
		return nil, err
	}

	m := &domain.Message{
		DeliveryID:    deliveryID,
		Content:       content,
		AttachmentURL: attachmentURL,
	}
	switch {
	case caller.Recipient:
		m.SenderLabel = domain.RecipientSender
		if d.CourierID != nil {
			m.RecipientID = *d.CourierID
		} else {
			m.RecipientID = d.SenderID
		}
	case caller.UserID == d.SenderID:
		if d.CourierID == nil {
			return nil, fmt.Errorf("%w: no courier assigned to message", apperr.ErrConflict)
		}
		id := caller.UserID
		m.SenderID = &id
		m.SenderLabel = "sender"
		m.RecipientID = *d.CourierID
	default: // the assigned courier, authorize already vetted the rest
		id := caller.UserID
		m.SenderID = &id
		m.SenderLabel = "courier"
		m.RecipientID = d.SenderID
	}

	if err := r.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"id":             m.ID,
		"delivery_id":    m.DeliveryID,
		"sender_id":      m.SenderID,
		"sender_label":   m.SenderLabel,
		"recipient_id":   m.RecipientID,
		"content":        m.Content,
		"attachment_url": m.AttachmentURL,
		"created_at":     m.CreatedAt,
	}
	r.bus.Publish(eventbus.Event{
		Topic: eventbus.DeliveryTopic(deliveryID),
		Type:  eventbus.EvNewMessage,
		Data:  payload,
	})
	r.bus.Publish(eventbus.Event{
		Topic: eventbus.UserTopic(m.RecipientID),
		Type:  eventbus.EvNewMessage,
		Data:  payload,
	})

	deliveryRef := deliveryID
	if err := r.notify.Notify(ctx, domain.Notification{
		UserID:     m.RecipientID,
		Type:       domain.NotifyMessage,
		Title:      "New message",
		Content:    fmt.Sprintf("New message on delivery #%d.", deliveryID),
		DeliveryID: &deliveryRef,
	}); err != nil {
		r.log.Warn("message notification failed",
			logx.Int64("message_id", m.ID),
			logx.Any("err", err),
		)
	}
	return m, nil
}

// MarkRead flags a message read on behalf of its recipient. Re-reading an
// already read message is a no-op.
func (r *Relay) MarkRead(ctx context.Context, messageID, readerID int64) error {
	m, err := r.store.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: message %d", apperr.ErrNotFound, messageID)
	}
	if m.RecipientID != readerID {
		return fmt.Errorf("%w: not the recipient of message %d", apperr.ErrForbidden, messageID)
	}

	now := r.now()
	changed, err := r.store.MarkRead(ctx, messageID, readerID, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	r.bus.Publish(eventbus.Event{
		Topic: eventbus.DeliveryTopic(m.DeliveryID),
		Type:  eventbus.EvMessageRead,
		Data: map[string]any{
			"message_id":  messageID,
			"delivery_id": m.DeliveryID,
			"reader_id":   readerID,
			"read_at":     now,
		},
	})
	return nil
}

func (r *Relay) authorize(ctx context.Context, deliveryID int64, caller Caller) (*domain.Delivery, error) {
	d, err := r.deliveries.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: delivery %d", apperr.ErrNotFound, deliveryID)
	}
	if caller.Recipient {
		return d, nil
	}
	if d.SenderID == caller.UserID {
		return d, nil
	}
	if d.CourierID != nil && *d.CourierID == caller.UserID {
		return d, nil
	}
	return nil, fmt.Errorf("%w: not a participant of delivery %d", apperr.ErrForbidden, deliveryID)
}
