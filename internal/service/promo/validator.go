package promo

import (
	"context"
	"fmt"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/ports/lifecycletx"
)

// Codes is the read surface the dry-run validator needs.
type Codes interface {
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	UsageExists(ctx context.Context, userID, promoID int64) (bool, error)
	CountDeliveredBySender(ctx context.Context, userID int64) (int, error)
}

// Result is a successful validation: the code and the discount it yields.
type Result struct {
	Promo    domain.PromoCode
	Discount float64
}

// Validator checks promo eligibility. Validate is the read-only dry run behind
// POST /promo-codes/validate; Apply re-checks under the row lock and commits
// the usage inside the payment-authorization transaction.
type Validator struct {
	codes Codes
	now   func() time.Time
}

// NewValidator creates a Validator.
func NewValidator(codes Codes) *Validator {
	return &Validator{codes: codes, now: time.Now}
}

// Validate runs all eligibility rules for (code, user, orderAmount).
func (v *Validator) Validate(ctx context.Context, code string, userID int64, orderAmount float64) (*Result, error) {
	p, err := v.codes.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: unknown promo code", apperr.ErrNotFound)
	}

	used := false
	if p.OneTimePerUser {
		used, err = v.codes.UsageExists(ctx, userID, p.ID)
		if err != nil {
			return nil, err
		}
	}
	delivered := 0
	if p.FirstTimeOnly {
		delivered, err = v.codes.CountDeliveredBySender(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	if err := eligible(p, v.now(), orderAmount, used, delivered); err != nil {
		return nil, err
	}
	return &Result{Promo: *p, Discount: p.Discount(orderAmount)}, nil
}

// Apply validates under the promo row lock and records the redemption. It must
// run in the same transaction that authorizes the payment so the usage counter
// and the discount commit or roll back together.
func (v *Validator) Apply(ctx context.Context, tx lifecycletx.Repository, code string, userID, deliveryID int64, orderAmount float64) (*Result, error) {
	p, err := tx.GetPromoForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: unknown promo code", apperr.ErrNotFound)
	}

	used := false
	if p.OneTimePerUser {
		used, err = tx.PromoUsageExists(ctx, userID, p.ID)
		if err != nil {
			return nil, err
		}
	}
	delivered := 0
	if p.FirstTimeOnly {
		delivered, err = tx.CountDeliveredBySender(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	if err := eligible(p, v.now(), orderAmount, used, delivered); err != nil {
		return nil, err
	}

	usage := &domain.PromoUsage{UserID: userID, PromoID: p.ID, DeliveryID: deliveryID}
	if err := tx.InsertPromoUsage(ctx, usage); err != nil {
		return nil, err
	}
	if err := tx.IncrementPromoUsage(ctx, p.ID); err != nil {
		return nil, err
	}
	return &Result{Promo: *p, Discount: p.Discount(orderAmount)}, nil
}

// eligible applies the rule set. Every rule must hold.
func eligible(p *domain.PromoCode, now time.Time, orderAmount float64, used bool, delivered int) error {
	if !p.Active {
		return fmt.Errorf("%w: promo code is inactive", apperr.ErrInvalid)
	}
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return fmt.Errorf("%w: promo code is outside its validity window", apperr.ErrInvalid)
	}
	if p.UsageLimit != nil && p.CurrentUsage >= *p.UsageLimit {
		return fmt.Errorf("%w: promo code usage limit reached", apperr.ErrInvalid)
	}
	if orderAmount < p.MinimumOrder {
		return fmt.Errorf("%w: order amount below promo minimum", apperr.ErrInvalid)
	}
	if p.OneTimePerUser && used {
		return fmt.Errorf("%w: promo code already used", apperr.ErrInvalid)
	}
	if p.FirstTimeOnly && delivered > 0 {
		return fmt.Errorf("%w: promo code is for first-time users", apperr.ErrInvalid)
	}
	return nil
}
