// Package pricing computes the deterministic cost breakdown of a delivery.
// Quote is a pure function: no clocks, no I/O, no state.
package pricing

import (
	"math"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
)

const (
	perMileFee        = 1.25
	minutesPerMile    = 5.0
	weightFeeMax      = 5.0
	weightFeeCutoff   = 0.5 // fraction of the package type's max weight
)

// QuoteInput carries everything Quote needs.
type QuoteInput struct {
	Pickup      geo.Point
	Dropoff     geo.Point
	PackageType domain.PackageType
	Weight      float64
	Priority    domain.PriorityLevel
}

// Quote is the full pricing result.
type Quote struct {
	BaseFee          float64
	DistanceFee      float64
	WeightFee        float64
	PriorityFee      float64
	Tax              float64
	DistanceMiles    float64
	EstimatedMinutes int
}

// Subtotal returns the pre-discount payable amount.
func (q Quote) Subtotal() float64 {
	return Round2(q.BaseFee + q.DistanceFee + q.WeightFee + q.PriorityFee + q.Tax)
}

// Breakdown converts the quote into a payment breakdown with the given discount.
func (q Quote) Breakdown(discount float64) domain.Breakdown {
	return domain.Breakdown{
		BaseFee:     q.BaseFee,
		DistanceFee: q.DistanceFee,
		WeightFee:   q.WeightFee,
		PriorityFee: q.PriorityFee,
		Tax:         q.Tax,
		Discount:    Round2(discount),
	}
}

// Compute prices a delivery from coordinates, package and priority using the
// current system settings. All monetary components are rounded to 2 decimals,
// half away from zero.
func Compute(in QuoteInput, s domain.Settings) Quote {
	miles := geo.DistanceMiles(in.Pickup, in.Dropoff)

	base := Round2(in.PackageType.BasePrice * s.BasePriceMultiplier)
	distance := Round2(miles * perMileFee)

	var weight float64
	if in.PackageType.MaxWeight > 0 && in.Weight > weightFeeCutoff*in.PackageType.MaxWeight {
		weight = Round2(in.Weight / in.PackageType.MaxWeight * weightFeeMax)
	}

	var priority float64
	switch in.Priority {
	case domain.PriorityUrgent:
		priority = Round2(base * (s.UrgentMultiplier - 1))
	case domain.PriorityExpress:
		priority = Round2(base * (s.ExpressMultiplier - 1))
	}

	tax := Round2((base + distance + weight + priority) * s.TaxRate)

	return Quote{
		BaseFee:          base,
		DistanceFee:      distance,
		WeightFee:        weight,
		PriorityFee:      priority,
		Tax:              tax,
		DistanceMiles:    Round2(miles),
		EstimatedMinutes: int(math.Round(miles * minutesPerMile)),
	}
}

// Round2 rounds to 2 decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
