package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/lifecycletx"
)

// Service drives the payment rows through their monotonic lifecycle. Every
// method runs inside a caller-owned transaction; the gateway call itself is
// the only thing that can leave a row behind in pending.
type Service struct {
	gw  Gateway
	log logx.Logger
}

// NewService creates a payment Service over the gateway.
func NewService(gw Gateway, log logx.Logger) *Service {
	return &Service{gw: gw, log: log}
}

// Authorize inserts the pending payment row and places the hold. The row ends
// authorized, failed, or stays pending when the gateway outcome is unknown
// (ErrPaymentPending).
func (s *Service) Authorize(ctx context.Context, tx lifecycletx.Repository, p *domain.Payment) error {
	p.Status = domain.PaymentPending
	if err := tx.InsertPayment(ctx, p); err != nil {
		return err
	}

	res, err := s.gw.Authorize(ctx, ChargeRequest{
		DeliveryID:      p.DeliveryID,
		Amount:          p.Amount,
		PaymentMethodID: p.PaymentMethodID,
		IdempotencyKey:  uuid.NewString(),
	})
	if err != nil {
		if isOutcomeUnknown(err) {
			s.log.Warn("payment outcome unknown, left pending",
				logx.Int64("delivery_id", p.DeliveryID),
				logx.Any("err", err),
			)
			return fmt.Errorf("%w: %s", apperr.ErrPaymentPending, err)
		}
		if stErr := tx.UpdatePaymentStatus(ctx, p.ID, domain.PaymentFailed, ""); stErr != nil {
			return stErr
		}
		p.Status = domain.PaymentFailed
		return fmt.Errorf("%w: %s", apperr.ErrPaymentDeclined, err)
	}
	if !res.Approved {
		if stErr := tx.UpdatePaymentStatus(ctx, p.ID, domain.PaymentFailed, res.TransactionID); stErr != nil {
			return stErr
		}
		p.Status = domain.PaymentFailed
		return fmt.Errorf("%w: %s", apperr.ErrPaymentDeclined, res.DeclineReason)
	}

	if err := tx.UpdatePaymentStatus(ctx, p.ID, domain.PaymentAuthorized, res.TransactionID); err != nil {
		return err
	}
	p.Status = domain.PaymentAuthorized
	p.TransactionID = res.TransactionID
	return nil
}

// Capture settles the hold for amount+tip on delivery completion. Calling it
// on an already captured payment is a no-op, so replayed transitions stay
// idempotent. Returns the captured total.
func (s *Service) Capture(ctx context.Context, tx lifecycletx.Repository, deliveryID int64) (*domain.Payment, error) {
	p, err := tx.GetPaymentForUpdate(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no payment for delivery %d", apperr.ErrNotFound, deliveryID)
	}
	if p.Status == domain.PaymentCaptured {
		return p, nil
	}
	if !p.Status.CanAdvanceTo(domain.PaymentCaptured) {
		return nil, fmt.Errorf("%w: payment is %s, cannot capture", apperr.ErrConflict, p.Status)
	}

	total := p.Amount + p.Tip
	if err := s.gw.Capture(ctx, p.TransactionID, total); err != nil {
		if isOutcomeUnknown(err) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrPaymentPending, err)
		}
		return nil, fmt.Errorf("%w: %s", apperr.ErrDependency, err)
	}
	if err := tx.UpdatePaymentStatus(ctx, p.ID, domain.PaymentCaptured, ""); err != nil {
		return nil, err
	}
	p.Status = domain.PaymentCaptured
	return p, nil
}

// Refund releases the hold, fully or partially, and records why. A zero amount
// still moves the row to refunded so the hold is released.
func (s *Service) Refund(ctx context.Context, tx lifecycletx.Repository, deliveryID int64, amount float64, reason string) error {
	p, err := tx.GetPaymentForUpdate(ctx, deliveryID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: no payment for delivery %d", apperr.ErrNotFound, deliveryID)
	}
	if p.Status == domain.PaymentRefunded {
		return nil
	}
	if !p.Status.CanAdvanceTo(domain.PaymentRefunded) {
		return fmt.Errorf("%w: payment is %s, cannot refund", apperr.ErrConflict, p.Status)
	}

	if err := s.gw.Refund(ctx, p.TransactionID, amount, reason); err != nil {
		if isOutcomeUnknown(err) {
			return fmt.Errorf("%w: %s", apperr.ErrPaymentPending, err)
		}
		return fmt.Errorf("%w: %s", apperr.ErrDependency, err)
	}
	if err := tx.UpdatePaymentStatus(ctx, p.ID, domain.PaymentRefunded, ""); err != nil {
		return err
	}
	return tx.SetPaymentRefund(ctx, p.ID, amount, reason)
}

// AddTip authorizes the extra amount and adds it to the payment row. Tips are
// only accepted while the payment can still be captured.
func (s *Service) AddTip(ctx context.Context, tx lifecycletx.Repository, deliveryID int64, delta float64) (*domain.Payment, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("%w: tip must be positive", apperr.ErrInvalid)
	}
	p, err := tx.GetPaymentForUpdate(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no payment for delivery %d", apperr.ErrNotFound, deliveryID)
	}
	if p.Status != domain.PaymentAuthorized && p.Status != domain.PaymentCaptured {
		return nil, fmt.Errorf("%w: payment is %s, cannot tip", apperr.ErrConflict, p.Status)
	}

	res, err := s.gw.Authorize(ctx, ChargeRequest{
		DeliveryID:     deliveryID,
		Amount:         delta,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		if isOutcomeUnknown(err) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrPaymentPending, err)
		}
		return nil, fmt.Errorf("%w: %s", apperr.ErrPaymentDeclined, err)
	}
	if !res.Approved {
		return nil, fmt.Errorf("%w: %s", apperr.ErrPaymentDeclined, res.DeclineReason)
	}
	if p.Status == domain.PaymentCaptured {
		if err := s.gw.Capture(ctx, res.TransactionID, delta); err != nil {
			if isOutcomeUnknown(err) {
				return nil, fmt.Errorf("%w: %s", apperr.ErrPaymentPending, err)
			}
			return nil, fmt.Errorf("%w: %s", apperr.ErrDependency, err)
		}
	}

	if err := tx.AddPaymentTip(ctx, p.ID, delta); err != nil {
		return nil, err
	}
	p.Tip += delta
	return p, nil
}
