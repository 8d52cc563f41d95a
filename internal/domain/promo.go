package domain

import "time"

// DiscountType represents how a promo code discounts an order.
type DiscountType string

// List of possible discount types.
const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed_amount"
)

// PromoCode describes a redeemable discount code.
type PromoCode struct {
	ID              int64
	Code            string
	DiscountType    DiscountType
	DiscountValue   float64
	MinimumOrder    float64
	MaximumDiscount *float64
	ValidFrom       time.Time
	ValidUntil      time.Time
	OneTimePerUser  bool
	FirstTimeOnly   bool
	UsageLimit      *int
	CurrentUsage    int
	Active          bool
}

// Discount computes the discount the code yields for the given order amount.
// Eligibility is the validator's concern; this is pure arithmetic.
func (p PromoCode) Discount(orderAmount float64) float64 {
	var d float64
	switch p.DiscountType {
	case DiscountPercentage:
		d = orderAmount * p.DiscountValue / 100
		if p.MaximumDiscount != nil && d > *p.MaximumDiscount {
			d = *p.MaximumDiscount
		}
	case DiscountFixed:
		d = p.DiscountValue
		if d > orderAmount {
			d = orderAmount
		}
	}
	return d
}

// PromoUsage records one redemption of a code by a user on a delivery.
type PromoUsage struct {
	ID         int64
	UserID     int64
	PromoID    int64
	DeliveryID int64
	CreatedAt  time.Time
}
