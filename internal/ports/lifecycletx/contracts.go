package lifecycletx

import (
	"context"
	"time"

	"courier-dispatch/internal/domain"
)

// Repository is the transactional surface the lifecycle engine mutates state
// through. Every method runs inside the transaction opened by Runner.WithTx.
type Repository interface {
	// Deliveries. GetDeliveryForUpdate takes the row lock that serializes
	// transitions for a single delivery.
	GetDeliveryForUpdate(ctx context.Context, id int64) (*domain.Delivery, error)
	InsertDelivery(ctx context.Context, d *domain.Delivery) error
	UpdateDeliveryStatus(ctx context.Context, id int64, status domain.DeliveryStatus, since time.Time) error
	InsertStatusEvent(ctx context.Context, ev *domain.StatusEvent) error
	SetActualPickupTime(ctx context.Context, id int64, at time.Time) error
	SetActualDeliveryTime(ctx context.Context, id int64, at time.Time) error
	SetEstimatedDeliveryTime(ctx context.Context, id int64, at time.Time) error
	SetCancellationReason(ctx context.Context, id int64, reason string) error
	SetDeliveryProof(ctx context.Context, id int64, proof domain.Proof) error

	// Claims. ClaimDelivery and SetCourierActiveDelivery are conditional
	// writes; false means the condition did not hold (claim lost).
	ClaimDelivery(ctx context.Context, deliveryID, courierID int64) (bool, error)
	SetCourierActiveDelivery(ctx context.Context, courierID, deliveryID int64) (bool, error)
	ClearCourierActiveDelivery(ctx context.Context, courierID, deliveryID int64) error
	GetCourierForUpdate(ctx context.Context, courierID int64) (*domain.CourierProfile, error)
	IncrementCourierCounters(ctx context.Context, courierID int64, completed, cancelled int) error
	CreditCourierBalance(ctx context.Context, entry domain.LedgerEntry) error

	// Payments.
	InsertPayment(ctx context.Context, p *domain.Payment) error
	GetPaymentForUpdate(ctx context.Context, deliveryID int64) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID int64, status domain.PaymentStatus, txnID string) error
	SetPaymentRefund(ctx context.Context, paymentID int64, amount float64, reason string) error
	AddPaymentTip(ctx context.Context, paymentID int64, delta float64) error

	// Promo application.
	GetPromoForUpdate(ctx context.Context, code string) (*domain.PromoCode, error)
	InsertPromoUsage(ctx context.Context, u *domain.PromoUsage) error
	IncrementPromoUsage(ctx context.Context, promoID int64) error
	PromoUsageExists(ctx context.Context, userID, promoID int64) (bool, error)
	CountDeliveredBySender(ctx context.Context, userID int64) (int, error)

	// Tracking tokens are issued in the delivery-creation transaction.
	InsertTrackingToken(ctx context.Context, t *domain.TrackingToken) error

	// Ratings.
	InsertRating(ctx context.Context, r *domain.Rating) error
	RecalculateCourierRating(ctx context.Context, courierID int64) error
}

// Runner opens a transaction and executes fn within it.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
