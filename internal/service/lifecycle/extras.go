package lifecycle

import (
	"context"
	"fmt"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/ports/lifecycletx"
)

// AddTip adds a post-booking tip. Before capture it rides along with the
// final settlement; after a delivered capture the courier is credited
// immediately.
func (s *Service) AddTip(ctx context.Context, deliveryID, senderID int64, amount float64) (*domain.Payment, error) {
	var (
		p         *domain.Payment
		courierID *int64
	)
	err := s.runner.WithTx(ctx, func(tx lifecycletx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, deliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: delivery %d", apperr.ErrNotFound, deliveryID)
		}
		if d.SenderID != senderID {
			return fmt.Errorf("%w: not the sender of delivery %d", apperr.ErrForbidden, deliveryID)
		}

		p, err = s.payments.AddTip(ctx, tx, deliveryID, amount)
		if err != nil {
			return err
		}
		courierID = d.CourierID

		if d.Status == domain.StatusDelivered && d.CourierID != nil {
			return tx.CreditCourierBalance(ctx, domain.LedgerEntry{
				CourierID:  *d.CourierID,
				DeliveryID: d.ID,
				Amount:     amount,
				Kind:       "tip",
				CreatedAt:  s.now(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if courierID != nil {
		deliveryRef := deliveryID
		s.notifyUser(ctx, domain.Notification{
			UserID:     *courierID,
			Type:       domain.NotifyPayment,
			Title:      "You received a tip",
			Content:    fmt.Sprintf("The sender added a $%.2f tip on delivery #%d.", amount, deliveryID),
			DeliveryID: &deliveryRef,
		})
	}
	return p, nil
}

// RateInput is one review of the counterpart on a delivered delivery.
type RateInput struct {
	DeliveryID    int64
	RaterID       int64
	Overall       int
	Timeliness    *int
	Communication *int
	Handling      *int
	Comment       string
}

// Rate stores a rating. Senders rate couriers (with sub-scores), couriers rate
// senders (overall only). One rating per rater per delivery.
func (s *Service) Rate(ctx context.Context, in RateInput) (*domain.Rating, error) {
	if in.Overall < 1 || in.Overall > 5 {
		return nil, fmt.Errorf("%w: overall rating must be 1-5", apperr.ErrInvalid)
	}
	for _, sub := range []*int{in.Timeliness, in.Communication, in.Handling} {
		if sub != nil && (*sub < 1 || *sub > 5) {
			return nil, fmt.Errorf("%w: sub-scores must be 1-5", apperr.ErrInvalid)
		}
	}

	var rt *domain.Rating
	err := s.runner.WithTx(ctx, func(tx lifecycletx.Repository) error {
		d, err := tx.GetDeliveryForUpdate(ctx, in.DeliveryID)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: delivery %d", apperr.ErrNotFound, in.DeliveryID)
		}
		if d.Status != domain.StatusDelivered {
			return fmt.Errorf("%w: only delivered deliveries can be rated", apperr.ErrConflict)
		}

		var rateeID int64
		rateeIsCourier := false
		switch {
		case d.SenderID == in.RaterID:
			if d.CourierID == nil {
				return fmt.Errorf("%w: delivery %d has no courier to rate", apperr.ErrConflict, d.ID)
			}
			rateeID = *d.CourierID
			rateeIsCourier = true
		case d.CourierID != nil && *d.CourierID == in.RaterID:
			rateeID = d.SenderID
		default:
			return fmt.Errorf("%w: not a participant of delivery %d", apperr.ErrForbidden, d.ID)
		}

		rt = &domain.Rating{
			DeliveryID: in.DeliveryID,
			RaterID:    in.RaterID,
			RateeID:    rateeID,
			Overall:    in.Overall,
			Comment:    in.Comment,
		}
		if rateeIsCourier {
			rt.Timeliness = in.Timeliness
			rt.Communication = in.Communication
			rt.Handling = in.Handling
		}
		if err := tx.InsertRating(ctx, rt); err != nil {
			return err
		}
		if rateeIsCourier {
			return tx.RecalculateCourierRating(ctx, rateeID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	deliveryRef := in.DeliveryID
	s.notifyUser(ctx, domain.Notification{
		UserID:     rt.RateeID,
		Type:       domain.NotifyRating,
		Title:      "New rating",
		Content:    fmt.Sprintf("You received a %d-star rating on delivery #%d.", rt.Overall, in.DeliveryID),
		DeliveryID: &deliveryRef,
	})
	return rt, nil
}

// IssueInput is a delivery problem report.
type IssueInput struct {
	DeliveryID  int64
	ReporterID  int64
	Category    string
	Description string
}

// ReportIssue records a problem on a delivery the reporter participates in and
// alerts the other party.
func (s *Service) ReportIssue(ctx context.Context, in IssueInput) (*domain.DeliveryIssue, error) {
	if in.Category == "" || in.Description == "" {
		return nil, fmt.Errorf("%w: category and description are required", apperr.ErrInvalid)
	}

	d, err := s.deliveries.Get(ctx, in.DeliveryID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: delivery %d", apperr.ErrNotFound, in.DeliveryID)
	}
	if !participant(d, in.ReporterID) {
		return nil, fmt.Errorf("%w: not a participant of delivery %d", apperr.ErrForbidden, d.ID)
	}

	issue := &domain.DeliveryIssue{
		DeliveryID:  in.DeliveryID,
		ReporterID:  in.ReporterID,
		Category:    in.Category,
		Description: in.Description,
	}
	if err := s.issues.Insert(ctx, issue); err != nil {
		return nil, err
	}

	other := d.SenderID
	if in.ReporterID == d.SenderID {
		if d.CourierID == nil {
			return issue, nil
		}
		other = *d.CourierID
	}
	deliveryRef := d.ID
	s.notifyUser(ctx, domain.Notification{
		UserID:     other,
		Type:       domain.NotifySystem,
		Title:      "Issue reported",
		Content:    fmt.Sprintf("An issue (%s) was reported on delivery #%d.", in.Category, d.ID),
		DeliveryID: &deliveryRef,
	})
	return issue, nil
}

// Receipt is the participant-facing settlement view of a delivery.
type Receipt struct {
	Delivery domain.Delivery
	Payment  domain.Payment
}

// Receipt returns the delivery together with its payment breakdown. Only
// participants may see it, and only once the delivery is delivered.
func (s *Service) Receipt(ctx context.Context, deliveryID, userID int64) (*Receipt, error) {
	d, err := s.deliveries.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: delivery %d", apperr.ErrNotFound, deliveryID)
	}
	if !participant(d, userID) {
		return nil, fmt.Errorf("%w: not a participant of delivery %d", apperr.ErrForbidden, deliveryID)
	}
	if d.Status != domain.StatusDelivered {
		return nil, fmt.Errorf("%w: delivery %d is not delivered yet", apperr.ErrConflict, deliveryID)
	}

	p, err := s.paymentsRead.GetByDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no payment for delivery %d", apperr.ErrNotFound, deliveryID)
	}
	return &Receipt{Delivery: *d, Payment: *p}, nil
}
