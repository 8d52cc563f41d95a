package lifecycle

import (
	"context"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/ports/lifecycletx"
	"courier-dispatch/internal/service/promo"
)

// Deliveries is the read side of the delivery store.
type Deliveries interface {
	Get(ctx context.Context, id int64) (*domain.Delivery, error)
}

// PackageTypes reads the bookable package classes.
type PackageTypes interface {
	Get(ctx context.Context, id int64) (*domain.PackageType, error)
}

// SettingsSource loads the current system settings.
type SettingsSource interface {
	Load(ctx context.Context) (domain.Settings, error)
}

// Payments is the payment lifecycle driven from inside delivery transactions.
type Payments interface {
	Authorize(ctx context.Context, tx lifecycletx.Repository, p *domain.Payment) error
	Capture(ctx context.Context, tx lifecycletx.Repository, deliveryID int64) (*domain.Payment, error)
	Refund(ctx context.Context, tx lifecycletx.Repository, deliveryID int64, amount float64, reason string) error
	AddTip(ctx context.Context, tx lifecycletx.Repository, deliveryID int64, delta float64) (*domain.Payment, error)
}

// PaymentsRead fetches the payment bound to a delivery outside a transaction.
type PaymentsRead interface {
	GetByDelivery(ctx context.Context, deliveryID int64) (*domain.Payment, error)
}

// Promos validates and redeems promo codes.
type Promos interface {
	Validate(ctx context.Context, code string, userID int64, orderAmount float64) (*promo.Result, error)
	Apply(ctx context.Context, tx lifecycletx.Repository, code string, userID, deliveryID int64, orderAmount float64) (*promo.Result, error)
}

// Issues stores delivery problem reports.
type Issues interface {
	Insert(ctx context.Context, issue *domain.DeliveryIssue) error
}

// Matcher starts the courier search for a freshly created delivery.
type Matcher interface {
	Kickoff(ctx context.Context, deliveryID int64) (int, error)
}

// Publisher pushes events to live subscribers.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// Notifier stores and pushes a persistent per-user notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
