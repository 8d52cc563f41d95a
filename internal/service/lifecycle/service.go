// Package lifecycle drives deliveries through their state machine: creation
// with upfront payment authorization, the claim race, actor-guarded status
// transitions with their money side effects, and the post-delivery flows.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/lifecycletx"
)

// Service is the delivery lifecycle engine.
type Service struct {
	runner       lifecycletx.Runner
	deliveries   Deliveries
	pkgTypes     PackageTypes
	settings     SettingsSource
	payments     Payments
	paymentsRead PaymentsRead
	promos       Promos
	issues       Issues
	matcher      Matcher
	bus          Publisher
	notify       Notifier
	log          logx.Logger

	now func() time.Time
}

// NewService creates the lifecycle Service.
func NewService(
	runner lifecycletx.Runner,
	deliveries Deliveries,
	pkgTypes PackageTypes,
	settings SettingsSource,
	payments Payments,
	paymentsRead PaymentsRead,
	promos Promos,
	issues Issues,
	matcher Matcher,
	bus Publisher,
	notify Notifier,
	log logx.Logger,
) *Service {
	return &Service{
		runner:       runner,
		deliveries:   deliveries,
		pkgTypes:     pkgTypes,
		settings:     settings,
		payments:     payments,
		paymentsRead: paymentsRead,
		promos:       promos,
		issues:       issues,
		matcher:      matcher,
		bus:          bus,
		notify:       notify,
		log:          log,
		now:          time.Now,
	}
}

// participant reports whether userID is the sender or the assigned courier.
func participant(d *domain.Delivery, userID int64) bool {
	if d.SenderID == userID {
		return true
	}
	return d.CourierID != nil && *d.CourierID == userID
}

func authorizeActor(d *domain.Delivery, req domain.TransitionRequest) error {
	switch req.Actor {
	case domain.ActorSender:
		if d.SenderID != req.ActorID {
			return fmt.Errorf("%w: not the sender of delivery %d", apperr.ErrForbidden, d.ID)
		}
	case domain.ActorCourier:
		if d.CourierID == nil || *d.CourierID != req.ActorID {
			return fmt.Errorf("%w: not the courier of delivery %d", apperr.ErrForbidden, d.ID)
		}
	case domain.ActorSystem:
	default:
		return fmt.Errorf("%w: unknown actor %q", apperr.ErrInvalid, req.Actor)
	}
	return nil
}

func (s *Service) publishStatus(d *domain.Delivery, prev domain.DeliveryStatus) {
	s.bus.Publish(eventbus.Event{
		Topic: eventbus.DeliveryTopic(d.ID),
		Type:  eventbus.EvDeliveryStatus,
		Data: map[string]any{
			"delivery_id": d.ID,
			"status":      d.Status,
			"previous":    prev,
			"at":          d.StatusSince,
		},
	})
}

// notifyUser stores a notification; failures are logged, never fatal to the
// operation that triggered them.
func (s *Service) notifyUser(ctx context.Context, n domain.Notification) {
	if err := s.notify.Notify(ctx, n); err != nil {
		s.log.Warn("notification failed",
			logx.Int64("user_id", n.UserID),
			logx.Any("err", err),
		)
	}
}

func (s *Service) notifyStatus(ctx context.Context, d *domain.Delivery, actor domain.Actor) {
	content := fmt.Sprintf("Delivery #%d is now %s.", d.ID, d.Status)
	deliveryID := d.ID

	switch actor {
	case domain.ActorSender:
		if d.CourierID != nil {
			s.notifyUser(ctx, domain.Notification{
				UserID:     *d.CourierID,
				Type:       domain.NotifyStatusUpdate,
				Title:      "Delivery update",
				Content:    content,
				DeliveryID: &deliveryID,
			})
		}
	default:
		s.notifyUser(ctx, domain.Notification{
			UserID:     d.SenderID,
			Type:       domain.NotifyStatusUpdate,
			Title:      "Delivery update",
			Content:    content,
			DeliveryID: &deliveryID,
		})
	}
}
