package domain

// System setting keys used by pricing and dispatch.
const (
	SettingBasePriceMultiplier   = "base_price_multiplier"
	SettingUrgentMultiplier      = "urgent_price_multiplier"
	SettingExpressMultiplier     = "express_price_multiplier"
	SettingTaxRate               = "tax_rate"
	SettingCommissionRate        = "courier_commission_rate"
	SettingMaxDeliveryDistance   = "max_delivery_distance"
	SettingMinCourierRating      = "min_courier_rating"
	SettingMaxSearchTime         = "max_search_time"
	SettingCourierIdleTimeout    = "courier_idle_timeout"
)

// Settings is the typed view of the system_settings table with fallbacks
// applied for missing keys.
type Settings struct {
	BasePriceMultiplier float64
	UrgentMultiplier    float64
	ExpressMultiplier   float64
	TaxRate             float64
	CommissionRate      float64
	MaxDeliveryDistance float64
	MinCourierRating    float64
	MaxSearchMinutes    int
	IdleTimeoutMinutes  int
}

// DefaultSettings returns the fallback values used when a key is absent.
func DefaultSettings() Settings {
	return Settings{
		BasePriceMultiplier: 1.0,
		UrgentMultiplier:    2.0,
		ExpressMultiplier:   1.5,
		TaxRate:             0.0875,
		CommissionRate:      0.8,
		MaxDeliveryDistance: 50,
		MinCourierRating:    0,
		MaxSearchMinutes:    30,
		IdleTimeoutMinutes:  15,
	}
}
