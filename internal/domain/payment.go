package domain

import "time"

// PaymentStatus represents the status of a payment.
type PaymentStatus string

// List of possible payment statuses.
const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentRefunded   PaymentStatus = "refunded"
	PaymentFailed     PaymentStatus = "failed"
)

// CanAdvanceTo enforces the monotonic payment lifecycle:
// pending → authorized → captured, authorized → refunded, pending → failed.
func (s PaymentStatus) CanAdvanceTo(to PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return to == PaymentAuthorized || to == PaymentFailed
	case PaymentAuthorized:
		return to == PaymentCaptured || to == PaymentRefunded
	}
	return false
}

// Breakdown is the deterministic cost decomposition of a delivery.
type Breakdown struct {
	BaseFee     float64
	DistanceFee float64
	WeightFee   float64
	PriorityFee float64
	Tax         float64
	Discount    float64
}

// Total returns the payable amount: fee components plus tax minus discount.
func (b Breakdown) Total() float64 {
	return b.BaseFee + b.DistanceFee + b.WeightFee + b.PriorityFee + b.Tax - b.Discount
}

// Payment is the single payment row bound to a delivery.
type Payment struct {
	ID              int64
	DeliveryID      int64
	Status          PaymentStatus
	Amount          float64
	Tip             float64
	Breakdown       Breakdown
	PaymentMethodID *int64
	PromoCodeID     *int64
	TransactionID   string
	RefundAmount    float64
	RefundReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
