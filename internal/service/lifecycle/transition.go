package lifecycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/ports/lifecycletx"
	"courier-dispatch/internal/pricing"
)

// Cancellation fee charged once a courier is en route: the smaller of a flat
// fee and a share of the order.
const (
	cancelFeeFlat = 5.00
	cancelFeeRate = 0.15
)

// Claim decides the claim race for a searching delivery. Exactly one courier
// wins; everyone else gets ErrAlreadyAssigned. The winner receives the full
// delivery, including the pickup address and access code.
func (s *Service) Claim(ctx context.Context, deliveryID, courierID int64) (*domain.Delivery, error) {
	set, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	var d *domain.Delivery
	err = s.runner.WithTx(ctx, func(tx lifecycletx.Repository) error {
		var err error
		d, err = tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: delivery %d", apperr.ErrNotFound, deliveryID)
		}
		if d.Status != domain.StatusSearchingCourier || d.CourierID != nil {
			return fmt.Errorf("%w: delivery %d", apperr.ErrAlreadyAssigned, deliveryID)
		}

		c, err := tx.GetCourierForUpdate(ctx, courierID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("%w: courier %d", apperr.ErrNotFound, courierID)
		}
		if !c.Dispatchable() {
			return fmt.Errorf("%w: courier %d is not available for dispatch", apperr.ErrForbidden, courierID)
		}
		if d.PackageWeight > c.MaxWeightCapacity {
			return fmt.Errorf("%w: package exceeds courier weight capacity", apperr.ErrForbidden)
		}
		if c.Rating < set.MinCourierRating {
			return fmt.Errorf("%w: courier rating below dispatch floor", apperr.ErrForbidden)
		}

		ok, err := tx.ClaimDelivery(ctx, deliveryID, courierID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: delivery %d", apperr.ErrAlreadyAssigned, deliveryID)
		}
		ok, err = tx.SetCourierActiveDelivery(ctx, courierID, deliveryID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: courier %d already has an active delivery", apperr.ErrConflict, courierID)
		}

		now := s.now()
		actorID := courierID
		if err := tx.InsertStatusEvent(ctx, &domain.StatusEvent{
			DeliveryID: deliveryID,
			Status:     domain.StatusCourierAssigned,
			ActorID:    &actorID,
			System:     true,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		d.CourierID = &actorID
		d.Status = domain.StatusCourierAssigned
		d.StatusSince = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(d, domain.StatusSearchingCourier)
	s.bus.Publish(eventbus.Event{
		Topic: eventbus.UserTopic(d.SenderID),
		Type:  eventbus.EvRequestAccepted,
		Data: map[string]any{
			"delivery_id": d.ID,
			"courier_id":  courierID,
		},
	})
	deliveryRef := d.ID
	s.notifyUser(ctx, domain.Notification{
		UserID:     d.SenderID,
		Type:       domain.NotifyStatusUpdate,
		Title:      "Courier assigned",
		Content:    fmt.Sprintf("A courier accepted delivery #%d and is on the way to pickup.", d.ID),
		DeliveryID: &deliveryRef,
	})
	return d, nil
}

// Transition moves a delivery to a new status on behalf of an actor, running
// the status-specific side effects (timestamps, proof, capture, payout,
// refunds) in the same transaction. Requesting the current status is an
// idempotent no-op.
func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Delivery, error) {
	if !req.To.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperr.ErrInvalid, req.To)
	}
	set, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	var (
		d    *domain.Delivery
		prev domain.DeliveryStatus
		noop bool
	)
	err = s.runner.WithTx(ctx, func(tx lifecycletx.Repository) error {
		var err error
		d, err = tx.GetDeliveryForUpdate(ctx, req.DeliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: delivery %d", apperr.ErrNotFound, req.DeliveryID)
		}
		if err := authorizeActor(d, req); err != nil {
			return err
		}
		// Only a participant gets the idempotent no-op answer.
		if d.Status == req.To {
			noop = true
			return nil
		}
		if !domain.CanTransition(d.Status, req.To, req.Actor) {
			return fmt.Errorf("%w: %s -> %s by %s", apperr.ErrInvalidTransition, d.Status, req.To, req.Actor)
		}
		if domain.ReasonRequired(req.To) && req.Reason == "" {
			return fmt.Errorf("%w: a reason is required for %s", apperr.ErrInvalid, req.To)
		}

		now := s.now()
		prev = d.Status

		switch req.To {
		case domain.StatusPickedUp:
			if err := s.applyPickup(ctx, tx, d, now); err != nil {
				return err
			}
		case domain.StatusDelivered:
			if err := s.applyDelivered(ctx, tx, d, req.Proof, set, now); err != nil {
				return err
			}
		case domain.StatusCancelled, domain.StatusFailed, domain.StatusReturned:
			if err := s.applyTermination(ctx, tx, d, req.To, req.Reason); err != nil {
				return err
			}
		}

		if err := tx.UpdateDeliveryStatus(ctx, d.ID, req.To, now); err != nil {
			return err
		}
		ev := &domain.StatusEvent{
			DeliveryID: d.ID,
			Status:     req.To,
			Lat:        req.Lat,
			Lng:        req.Lng,
			Notes:      req.Notes,
			System:     req.Actor == domain.ActorSystem,
			CreatedAt:  now,
		}
		if req.Actor != domain.ActorSystem {
			actorID := req.ActorID
			ev.ActorID = &actorID
		}
		if err := tx.InsertStatusEvent(ctx, ev); err != nil {
			return err
		}
		d.Status = req.To
		d.StatusSince = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return d, nil
	}

	s.publishStatus(d, prev)
	s.notifyStatus(ctx, d, req.Actor)
	return d, nil
}

func (s *Service) applyPickup(ctx context.Context, tx lifecycletx.Repository, d *domain.Delivery, now time.Time) error {
	if err := tx.SetActualPickupTime(ctx, d.ID, now); err != nil {
		return err
	}
	eta := now.Add(time.Duration(d.EstimatedMinutes) * time.Minute)
	if err := tx.SetEstimatedDeliveryTime(ctx, d.ID, eta); err != nil {
		return err
	}
	if d.ActualPickupAt == nil {
		t := now
		d.ActualPickupAt = &t
	}
	d.EstimatedDeliveryAt = &eta
	return nil
}

// applyDelivered captures the payment and pays the courier their commission
// share plus the full tip.
func (s *Service) applyDelivered(ctx context.Context, tx lifecycletx.Repository, d *domain.Delivery, proof domain.Proof, set domain.Settings, now time.Time) error {
	if err := checkProof(d, proof); err != nil {
		return err
	}
	if err := tx.SetDeliveryProof(ctx, d.ID, proof); err != nil {
		return err
	}

	p, err := s.payments.Capture(ctx, tx, d.ID)
	if err != nil {
		return err
	}
	if err := tx.SetActualDeliveryTime(ctx, d.ID, now); err != nil {
		return err
	}
	if d.ActualDeliveryAt == nil {
		t := now
		d.ActualDeliveryAt = &t
	}

	if d.CourierID == nil {
		return nil
	}
	earnings := pricing.Round2(p.Amount*set.CommissionRate) + p.Tip
	if err := tx.CreditCourierBalance(ctx, domain.LedgerEntry{
		CourierID:  *d.CourierID,
		DeliveryID: d.ID,
		Amount:     earnings,
		Kind:       "delivery",
		CreatedAt:  now,
	}); err != nil {
		return err
	}
	if err := tx.IncrementCourierCounters(ctx, *d.CourierID, 1, 0); err != nil {
		return err
	}
	return tx.ClearCourierActiveDelivery(ctx, *d.CourierID, d.ID)
}

// applyTermination releases the payment hold and the courier. Failed and
// returned deliveries refund the sender in full; cancellations follow the fee
// schedule for the status they were cancelled from.
func (s *Service) applyTermination(ctx context.Context, tx lifecycletx.Repository, d *domain.Delivery, to domain.DeliveryStatus, reason string) error {
	p, err := tx.GetPaymentForUpdate(ctx, d.ID)
	if err != nil {
		return err
	}
	if p != nil && p.Status == domain.PaymentAuthorized {
		refund := p.Amount
		if to == domain.StatusCancelled {
			refund = cancellationRefund(d.Status, p.Amount)
		}
		if err := s.payments.Refund(ctx, tx, d.ID, refund, reason); err != nil {
			return err
		}
	}

	if to == domain.StatusCancelled {
		if err := tx.SetCancellationReason(ctx, d.ID, reason); err != nil {
			return err
		}
		d.CancellationReason = reason
	}

	if d.CourierID == nil {
		return nil
	}
	// Failed and returned deliveries count toward the total only; the
	// cancelled counter tracks actual cancellations.
	cancelled := 0
	if to == domain.StatusCancelled {
		cancelled = 1
	}
	if err := tx.IncrementCourierCounters(ctx, *d.CourierID, 0, cancelled); err != nil {
		return err
	}
	return tx.ClearCourierActiveDelivery(ctx, *d.CourierID, d.ID)
}

// cancellationRefund is the sender refund schedule: full before a courier is
// involved, minus the cancellation fee once one is en route, nothing later.
func cancellationRefund(from domain.DeliveryStatus, amount float64) float64 {
	switch from {
	case domain.StatusPending, domain.StatusSearchingCourier:
		return amount
	case domain.StatusCourierAssigned, domain.StatusEnRouteToPickup:
		fee := math.Min(cancelFeeFlat, pricing.Round2(amount*cancelFeeRate))
		return pricing.Round2(amount - fee)
	default:
		return 0
	}
}

func checkProof(d *domain.Delivery, p domain.Proof) error {
	if d.RequiresPhotoProof && p.PhotoURL == "" {
		return fmt.Errorf("%w: photo proof", apperr.ErrProofRequired)
	}
	if d.RequiresSignature && p.SignatureURL == "" {
		return fmt.Errorf("%w: recipient signature", apperr.ErrProofRequired)
	}
	if d.RequiresID && !p.IDVerified {
		return fmt.Errorf("%w: recipient ID verification", apperr.ErrProofRequired)
	}
	return nil
}
