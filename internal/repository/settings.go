package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier-dispatch/internal/domain"
)

// SettingsRepo loads the typed system settings view.
type SettingsRepo struct{ db *pgxpool.Pool }

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *pgxpool.Pool) *SettingsRepo { return &SettingsRepo{db: db} }

// Load reads system_settings and overlays the values onto the defaults.
// Rows with unparseable values are skipped, keeping the default.
func (r *SettingsRepo) Load(ctx context.Context) (domain.Settings, error) {
	s := domain.DefaultSettings()
	rows, err := r.db.Query(ctx, `SELECT key, value FROM system_settings`)
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return s, err
		}
		applySetting(&s, key, value)
	}
	return s, rows.Err()
}

func applySetting(s *domain.Settings, key, value string) {
	switch key {
	case domain.SettingBasePriceMultiplier:
		setFloat(&s.BasePriceMultiplier, value)
	case domain.SettingUrgentMultiplier:
		setFloat(&s.UrgentMultiplier, value)
	case domain.SettingExpressMultiplier:
		setFloat(&s.ExpressMultiplier, value)
	case domain.SettingTaxRate:
		setFloat(&s.TaxRate, value)
	case domain.SettingCommissionRate:
		setFloat(&s.CommissionRate, value)
	case domain.SettingMaxDeliveryDistance:
		setFloat(&s.MaxDeliveryDistance, value)
	case domain.SettingMinCourierRating:
		setFloat(&s.MinCourierRating, value)
	case domain.SettingMaxSearchTime:
		setInt(&s.MaxSearchMinutes, value)
	case domain.SettingCourierIdleTimeout:
		setInt(&s.IdleTimeoutMinutes, value)
	}
}

func setFloat(dst *float64, value string) {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		*dst = f
	}
}

func setInt(dst *int, value string) {
	if n, err := strconv.Atoi(value); err == nil {
		*dst = n
	}
}
