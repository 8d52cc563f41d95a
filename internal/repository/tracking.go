package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

// TrackingRepo persists public tracking tokens.
type TrackingRepo struct{ db *pgxpool.Pool }

// NewTrackingRepo creates a new TrackingRepo.
func NewTrackingRepo(db *pgxpool.Pool) *TrackingRepo { return &TrackingRepo{db: db} }

// GetByToken - returns a token row by its opaque value.
func (r *TrackingRepo) GetByToken(ctx context.Context, token string) (*domain.TrackingToken, error) {
	var t domain.TrackingToken
	err := r.db.QueryRow(ctx, `
        SELECT id, token, delivery_id, is_recipient, expires_at, access_count, last_accessed_at, created_at
        FROM tracking_tokens WHERE token=$1
    `, token).Scan(&t.ID, &t.Token, &t.DeliveryID, &t.IsRecipient, &t.ExpiresAt,
		&t.AccessCount, &t.LastAccessedAt, &t.CreatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tracking token: %w", err)
	}
	return &t, nil
}

// GetByDelivery returns the newest token issued for a delivery, if any.
func (r *TrackingRepo) GetByDelivery(ctx context.Context, deliveryID int64) (*domain.TrackingToken, error) {
	var t domain.TrackingToken
	err := r.db.QueryRow(ctx, `
        SELECT id, token, delivery_id, is_recipient, expires_at, access_count, last_accessed_at, created_at
        FROM tracking_tokens
        WHERE delivery_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `, deliveryID).Scan(&t.ID, &t.Token, &t.DeliveryID, &t.IsRecipient, &t.ExpiresAt,
		&t.AccessCount, &t.LastAccessedAt, &t.CreatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tracking token for delivery %d: %w", deliveryID, err)
	}
	return &t, nil
}

// Insert - stores a fresh token and fills in its ID.
func (r *TrackingRepo) Insert(ctx context.Context, t *domain.TrackingToken) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO tracking_tokens (token, delivery_id, is_recipient, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at
    `, t.Token, t.DeliveryID, t.IsRecipient, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tracking token: %w", err)
	}
	return nil
}

// Touch bumps the access counter for audit purposes.
func (r *TrackingRepo) Touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `
        UPDATE tracking_tokens SET access_count = access_count + 1, last_accessed_at = $2
        WHERE id = $1
    `, id, at)
	if err != nil {
		return fmt.Errorf("touch tracking token %d: %w", id, err)
	}
	return nil
}
