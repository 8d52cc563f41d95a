package domain

import "time"

type (
	// VerificationStatus represents a background-check or ID-verification state.
	VerificationStatus string
)

// List of possible verification statuses.
const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// CourierProfile is the dispatch-relevant profile of a courier user.
type CourierProfile struct {
	UserID              int64
	Available           bool
	Lat                 *float64
	Lng                 *float64
	LocationUpdatedAt   *time.Time
	MaxWeightCapacity   float64
	ServiceRadiusMiles  float64
	ServiceCenterLat    *float64
	ServiceCenterLng    *float64
	BackgroundCheck     VerificationStatus
	IDVerification      VerificationStatus
	ActiveDeliveryID    *int64
	Rating              float64
	AccountBalance      float64
	TotalDeliveries     int
	CompletedDeliveries int
	CancelledDeliveries int
}

// Dispatchable reports whether the profile passes the static parts of the
// eligibility predicate (availability, checks); per-delivery parts (weight,
// radius, rating floor) are evaluated against the delivery.
func (c CourierProfile) Dispatchable() bool {
	return c.Available &&
		c.ActiveDeliveryID == nil &&
		c.BackgroundCheck == VerificationApproved &&
		c.IDVerification == VerificationVerified
}

// EarningsPeriod selects the aggregation window for courier earnings.
type EarningsPeriod string

// List of earnings periods.
const (
	EarningsDay   EarningsPeriod = "day"
	EarningsWeek  EarningsPeriod = "week"
	EarningsMonth EarningsPeriod = "month"
	EarningsAll   EarningsPeriod = "all"
)

// Valid checks if the EarningsPeriod is valid.
func (p EarningsPeriod) Valid() bool {
	switch p {
	case EarningsDay, EarningsWeek, EarningsMonth, EarningsAll:
		return true
	}
	return false
}

// LedgerEntry is one courier balance credit (delivery earning or tip delta).
type LedgerEntry struct {
	ID         int64
	CourierID  int64
	DeliveryID int64
	Amount     float64
	Kind       string
	CreatedAt  time.Time
}

// DailyEarnings is one day of aggregated courier credits.
type DailyEarnings struct {
	Day    time.Time
	Amount float64
	Count  int
}
