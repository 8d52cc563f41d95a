package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

const promoSelect = `
    SELECT id, code, discount_type, discount_value, minimum_order, maximum_discount,
           valid_from, valid_until, is_one_time, is_first_time_user, usage_limit,
           current_usage, is_active
    FROM promo_codes`

func scanPromo(row rowScanner) (*domain.PromoCode, error) {
	var p domain.PromoCode
	err := row.Scan(
		&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &p.MinimumOrder,
		&p.MaximumDiscount, &p.ValidFrom, &p.ValidUntil, &p.OneTimePerUser,
		&p.FirstTimeOnly, &p.UsageLimit, &p.CurrentUsage, &p.Active,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PromoRepo reads promo codes outside transactions (dry-run validation).
type PromoRepo struct{ db *pgxpool.Pool }

// NewPromoRepo creates a new PromoRepo.
func NewPromoRepo(db *pgxpool.Pool) *PromoRepo { return &PromoRepo{db: db} }

// GetByCode - returns a promo code row.
func (r *PromoRepo) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	row := r.db.QueryRow(ctx, promoSelect+` WHERE code=$1`, code)
	p, err := scanPromo(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promo %q: %w", code, err)
	}
	return p, nil
}

// UsageExists reports whether the user redeemed the promo before.
func (r *PromoRepo) UsageExists(ctx context.Context, userID, promoID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM promo_usages WHERE user_id=$1 AND promo_id=$2)`,
		userID, promoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check promo usage: %w", err)
	}
	return exists, nil
}

// CountDeliveredBySender counts completed deliveries for first-time-user checks.
func (r *PromoRepo) CountDeliveredBySender(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM deliveries WHERE sender_id=$1 AND status=$2`,
		userID, domain.StatusDelivered).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count delivered for sender %d: %w", userID, err)
	}
	return n, nil
}
