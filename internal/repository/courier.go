package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

const courierProfileSelect = `
    SELECT user_id, is_available, lat, lng, location_updated_at, max_weight_capacity,
           service_radius_miles, service_center_lat, service_center_lng,
           background_check, id_verification, active_delivery_id, rating,
           account_balance, total_deliveries, completed_deliveries, cancelled_deliveries
    FROM courier_profiles`

func scanCourierProfile(row rowScanner) (*domain.CourierProfile, error) {
	var c domain.CourierProfile
	err := row.Scan(
		&c.UserID, &c.Available, &c.Lat, &c.Lng, &c.LocationUpdatedAt, &c.MaxWeightCapacity,
		&c.ServiceRadiusMiles, &c.ServiceCenterLat, &c.ServiceCenterLng,
		&c.BackgroundCheck, &c.IDVerification, &c.ActiveDeliveryID, &c.Rating,
		&c.AccountBalance, &c.TotalDeliveries, &c.CompletedDeliveries, &c.CancelledDeliveries,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CourierRepo persists courier profiles and earnings.
type CourierRepo struct{ db *pgxpool.Pool }

// NewCourierRepo creates a new CourierRepo.
func NewCourierRepo(db *pgxpool.Pool) *CourierRepo { return &CourierRepo{db: db} }

// Get - returns a courier profile by user ID.
func (r *CourierRepo) Get(ctx context.Context, userID int64) (*domain.CourierProfile, error) {
	row := r.db.QueryRow(ctx, courierProfileSelect+` WHERE user_id=$1`, userID)
	c, err := scanCourierProfile(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get courier %d: %w", userID, err)
	}
	return c, nil
}

// SetAvailability toggles the availability flag, optionally with a position.
func (r *CourierRepo) SetAvailability(ctx context.Context, userID int64, available bool, lat, lng *float64) error {
	ct, err := r.db.Exec(ctx, `
        UPDATE courier_profiles
        SET is_available = $2,
            lat = COALESCE($3, lat),
            lng = COALESCE($4, lng),
            location_updated_at = CASE WHEN $3 IS NOT NULL THEN now() ELSE location_updated_at END,
            updated_at = now()
        WHERE user_id = $1
    `, userID, available, lat, lng)
	if err != nil {
		return fmt.Errorf("set availability for courier %d: %w", userID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("courier %d not found", userID)
	}
	return nil
}

// UpdatePosition stores a newer position. Returns false when the sample is not
// newer than the stored one (late or reordered sample).
func (r *CourierRepo) UpdatePosition(ctx context.Context, userID int64, lat, lng float64, at time.Time) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE courier_profiles
        SET lat = $2, lng = $3, location_updated_at = $4, updated_at = now()
        WHERE user_id = $1
          AND (location_updated_at IS NULL OR location_updated_at < $4)
    `, userID, lat, lng, at)
	if err != nil {
		return false, fmt.Errorf("update position for courier %d: %w", userID, err)
	}
	return ct.RowsAffected() > 0, nil
}

// Eligible returns available, verified, idle couriers whose capacity and
// rating fit the delivery. The service-radius check needs the per-courier
// distance, so it is applied by the caller on this candidate set.
func (r *CourierRepo) Eligible(ctx context.Context, packageWeight, minRating float64) ([]domain.CourierProfile, error) {
	rows, err := r.db.Query(ctx, courierProfileSelect+`
        WHERE is_available = TRUE
          AND active_delivery_id IS NULL
          AND background_check = $1
          AND id_verification = $2
          AND max_weight_capacity >= $3
          AND rating >= $4
          AND lat IS NOT NULL AND lng IS NOT NULL
    `, domain.VerificationApproved, domain.VerificationVerified, packageWeight, minRating)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CourierProfile
	for rows.Next() {
		c, err := scanCourierProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Earnings aggregates ledger credits since the given cutoff (zero = all time).
func (r *CourierRepo) Earnings(ctx context.Context, courierID int64, since time.Time) (total float64, daily []domain.DailyEarnings, err error) {
	q := `
        SELECT date_trunc('day', created_at) AS day, SUM(amount), COUNT(*)
        FROM courier_ledger
        WHERE courier_id = $1 AND created_at >= $2
        GROUP BY day
        ORDER BY day DESC`
	rows, err := r.db.Query(ctx, q, courierID, since)
	if err != nil {
		return 0, nil, fmt.Errorf("earnings for courier %d: %w", courierID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var d domain.DailyEarnings
		if err := rows.Scan(&d.Day, &d.Amount, &d.Count); err != nil {
			return 0, nil, err
		}
		total += d.Amount
		daily = append(daily, d)
	}
	return total, daily, rows.Err()
}

// RecentCredits returns the latest ledger entries for a courier.
func (r *CourierRepo) RecentCredits(ctx context.Context, courierID int64, limit int) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, courier_id, delivery_id, amount, kind, created_at
        FROM courier_ledger
        WHERE courier_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `, courierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.CourierID, &e.DeliveryID, &e.Amount, &e.Kind, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
