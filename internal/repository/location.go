package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

// LocationRepo keeps the raw location sample trail.
type LocationRepo struct{ db *pgxpool.Pool }

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *pgxpool.Pool) *LocationRepo { return &LocationRepo{db: db} }

// InsertSample appends a raw courier position sample.
func (r *LocationRepo) InsertSample(ctx context.Context, s *domain.LocationSample) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO location_samples (user_id, delivery_id, lat, lng, accuracy_m, heading, speed_mps, battery_level, recorded_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id
    `, s.UserID, s.DeliveryID, s.Lat, s.Lng, s.AccuracyM, s.Heading, s.SpeedMps, s.BatteryLevel, s.RecordedAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert location sample: %w", err)
	}
	return nil
}

// Trail returns the recorded samples for a delivery oldest first.
func (r *LocationRepo) Trail(ctx context.Context, deliveryID int64) ([]domain.LocationSample, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, user_id, delivery_id, lat, lng, accuracy_m, heading, speed_mps, battery_level, recorded_at
        FROM location_samples
        WHERE delivery_id = $1
        ORDER BY recorded_at, id
    `, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LocationSample
	for rows.Next() {
		var s domain.LocationSample
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeliveryID, &s.Lat, &s.Lng,
			&s.AccuracyM, &s.Heading, &s.SpeedMps, &s.BatteryLevel, &s.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
