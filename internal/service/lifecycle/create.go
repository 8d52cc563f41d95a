package lifecycle

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/ports/lifecycletx"
	"courier-dispatch/internal/pricing"
	"courier-dispatch/internal/service/tracking"
)

// EstimateInput is a priced-but-not-booked delivery request.
type EstimateInput struct {
	SenderID      int64
	Pickup        geo.Point
	Dropoff       geo.Point
	PackageTypeID int64
	Weight        float64
	Priority      domain.PriorityLevel
	PromoCode     string
}

// Estimate is the quoted cost of a delivery before booking.
type Estimate struct {
	Quote    pricing.Quote
	Discount float64
	Total    float64
}

// CreateInput books a delivery.
type CreateInput struct {
	SenderID            int64
	Pickup              domain.Address
	Dropoff             domain.Address
	PackageTypeID       int64
	Weight              float64
	Description         string
	Fragile             bool
	RequiresSignature   bool
	RequiresID          bool
	RequiresPhotoProof  bool
	Recipient           domain.RecipientContact
	SpecialInstructions string
	Priority            domain.PriorityLevel
	ScheduledPickupAt   *time.Time
	PaymentMethodID     *int64
	PromoCode           string
	PackagePhotoURL     string
}

// CreateResult is everything a successful booking hands back: the delivery in
// searching_courier, the authorized payment, and both tracking tokens.
type CreateResult struct {
	Delivery       domain.Delivery
	Payment        domain.Payment
	SenderToken    domain.TrackingToken
	RecipientToken domain.TrackingToken
}

// Estimate prices a delivery without booking it. The promo dry run does not
// reserve the code.
func (s *Service) Estimate(ctx context.Context, in EstimateInput) (*Estimate, error) {
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	pt, err := s.packageType(ctx, in.PackageTypeID, in.Weight)
	if err != nil {
		return nil, err
	}

	set, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	quote := pricing.Compute(pricing.QuoteInput{
		Pickup:      in.Pickup,
		Dropoff:     in.Dropoff,
		PackageType: *pt,
		Weight:      in.Weight,
		Priority:    priority,
	}, set)
	if quote.DistanceMiles > set.MaxDeliveryDistance {
		return nil, fmt.Errorf("%w: route exceeds the %g mile limit", apperr.ErrInvalid, set.MaxDeliveryDistance)
	}

	subtotal := quote.Subtotal()
	discount := 0.0
	if in.PromoCode != "" {
		res, err := s.promos.Validate(ctx, in.PromoCode, in.SenderID, subtotal)
		if err != nil {
			return nil, err
		}
		discount = math.Min(res.Discount, subtotal)
	}

	return &Estimate{
		Quote:    quote,
		Discount: discount,
		Total:    pricing.Round2(subtotal - discount),
	}, nil
}

// Create books the delivery atomically: the row, the promo redemption, the
// payment authorization, the move to searching_courier, and both tracking
// tokens commit or roll back together. The courier search kicks off after
// commit.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	if err := validateCreate(in, s.now()); err != nil {
		return nil, err
	}

	pt, err := s.packageType(ctx, in.PackageTypeID, in.Weight)
	if err != nil {
		return nil, err
	}

	set, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	quote := pricing.Compute(pricing.QuoteInput{
		Pickup:      geo.Point{Lat: in.Pickup.Lat, Lng: in.Pickup.Lng},
		Dropoff:     geo.Point{Lat: in.Dropoff.Lat, Lng: in.Dropoff.Lng},
		PackageType: *pt,
		Weight:      in.Weight,
		Priority:    priority,
	}, set)
	if quote.DistanceMiles > set.MaxDeliveryDistance {
		return nil, fmt.Errorf("%w: route exceeds the %g mile limit", apperr.ErrInvalid, set.MaxDeliveryDistance)
	}

	var (
		d        *domain.Delivery
		pay      *domain.Payment
		senderTk domain.TrackingToken
		recipTk  domain.TrackingToken
	)
	err = s.runner.WithTx(ctx, func(tx lifecycletx.Repository) error {
		now := s.now()
		d = &domain.Delivery{
			SenderID:            in.SenderID,
			PickupAddress:       in.Pickup,
			DropoffAddress:      in.Dropoff,
			PackageTypeID:       in.PackageTypeID,
			Status:              domain.StatusPending,
			StatusSince:         now,
			ScheduledPickupAt:   in.ScheduledPickupAt,
			PackageDescription:  in.Description,
			PackageWeight:       in.Weight,
			Fragile:             in.Fragile,
			RequiresSignature:   in.RequiresSignature,
			RequiresID:          in.RequiresID,
			RequiresPhotoProof:  in.RequiresPhotoProof,
			Recipient:           in.Recipient,
			VerificationCode:    newVerificationCode(),
			SpecialInstructions: in.SpecialInstructions,
			DistanceMiles:       quote.DistanceMiles,
			EstimatedMinutes:    quote.EstimatedMinutes,
			Priority:            priority,
			PackagePhotoURL:     in.PackagePhotoURL,
		}
		if err := tx.InsertDelivery(ctx, d); err != nil {
			return err
		}
		if err := tx.InsertStatusEvent(ctx, &domain.StatusEvent{
			DeliveryID: d.ID, Status: domain.StatusPending, System: true, CreatedAt: now,
		}); err != nil {
			return err
		}

		subtotal := quote.Subtotal()
		discount := 0.0
		var promoID *int64
		if in.PromoCode != "" {
			res, err := s.promos.Apply(ctx, tx, in.PromoCode, in.SenderID, d.ID, subtotal)
			if err != nil {
				return err
			}
			discount = math.Min(res.Discount, subtotal)
			id := res.Promo.ID
			promoID = &id
		}

		pay = &domain.Payment{
			DeliveryID:      d.ID,
			Amount:          pricing.Round2(subtotal - discount),
			Breakdown:       quote.Breakdown(discount),
			PaymentMethodID: in.PaymentMethodID,
			PromoCodeID:     promoID,
		}
		if err := s.payments.Authorize(ctx, tx, pay); err != nil {
			return err
		}

		if err := tx.UpdateDeliveryStatus(ctx, d.ID, domain.StatusSearchingCourier, now); err != nil {
			return err
		}
		if err := tx.InsertStatusEvent(ctx, &domain.StatusEvent{
			DeliveryID: d.ID, Status: domain.StatusSearchingCourier, System: true, CreatedAt: now,
		}); err != nil {
			return err
		}
		d.Status = domain.StatusSearchingCourier
		d.StatusSince = now

		senderTk, recipTk = tracking.NewTokenPair(d.ID, now)
		if err := tx.InsertTrackingToken(ctx, &senderTk); err != nil {
			return err
		}
		return tx.InsertTrackingToken(ctx, &recipTk)
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(d, domain.StatusPending)
	s.log.Info("delivery created",
		logx.Int64("delivery_id", d.ID),
		logx.Int64("sender_id", d.SenderID),
		logx.Float64("amount", pay.Amount),
	)

	if _, err := s.matcher.Kickoff(ctx, d.ID); err != nil {
		s.log.Warn("courier search kickoff failed",
			logx.Int64("delivery_id", d.ID),
			logx.Any("err", err),
		)
	}

	return &CreateResult{
		Delivery:       *d,
		Payment:        *pay,
		SenderToken:    senderTk,
		RecipientToken: recipTk,
	}, nil
}

func (s *Service) packageType(ctx context.Context, id int64, weight float64) (*domain.PackageType, error) {
	pt, err := s.pkgTypes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pt == nil {
		return nil, fmt.Errorf("%w: unknown package type %d", apperr.ErrInvalid, id)
	}
	if weight <= 0 {
		return nil, fmt.Errorf("%w: package weight must be positive", apperr.ErrInvalid)
	}
	if weight > pt.MaxWeight {
		return nil, fmt.Errorf("%w: weight %g exceeds the %s limit of %g lbs",
			apperr.ErrInvalid, weight, pt.Name, pt.MaxWeight)
	}
	return pt, nil
}

func normalizePriority(p domain.PriorityLevel) (domain.PriorityLevel, error) {
	if p == "" {
		return domain.PriorityStandard, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", apperr.ErrInvalid, p)
	}
	return p, nil
}

func validateCreate(in CreateInput, now time.Time) error {
	if in.Pickup.Street == "" || in.Dropoff.Street == "" {
		return fmt.Errorf("%w: pickup and dropoff addresses are required", apperr.ErrInvalid)
	}
	if in.Recipient.Name == "" || in.Recipient.Phone == "" {
		return fmt.Errorf("%w: recipient name and phone are required", apperr.ErrInvalid)
	}
	if in.ScheduledPickupAt != nil && in.ScheduledPickupAt.Before(now) {
		return fmt.Errorf("%w: scheduled pickup time is in the past", apperr.ErrInvalid)
	}
	return nil
}

// newVerificationCode mints the 4-digit pickup code shared with the winning
// courier only.
func newVerificationCode() string {
	return fmt.Sprintf("%04d", rand.Intn(10000))
}
