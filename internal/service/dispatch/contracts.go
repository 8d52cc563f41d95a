package dispatch

import (
	"context"
	"time"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
)

// Deliveries is the read side of the delivery store used by dispatch.
type Deliveries interface {
	Get(ctx context.Context, id int64) (*domain.Delivery, error)
	Searching(ctx context.Context) ([]domain.Delivery, error)
	ExpiredSearches(ctx context.Context, before time.Time) ([]domain.Delivery, error)
}

// Couriers is the read side of the courier store used by dispatch.
type Couriers interface {
	Get(ctx context.Context, userID int64) (*domain.CourierProfile, error)
	Eligible(ctx context.Context, packageWeight, minRating float64) ([]domain.CourierProfile, error)
}

// Payments reads the payment bound to a delivery; dispatch needs its amount
// to quote estimated courier earnings.
type Payments interface {
	GetByDelivery(ctx context.Context, deliveryID int64) (*domain.Payment, error)
}

// SettingsSource loads the current system settings.
type SettingsSource interface {
	Load(ctx context.Context) (domain.Settings, error)
}

// CandidateIndex narrows the courier candidate set by distance to the pickup.
type CandidateIndex interface {
	Nearby(ctx context.Context, lat, lng, radiusMiles float64) ([]int64, error)
}

// Publisher pushes events to live subscribers.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// Notifier stores and pushes a persistent per-user notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
