package handlers

import (
	"context"
	"time"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/repository"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/lifecycle"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/service/messages"
	"courier-dispatch/internal/service/promo"
	"courier-dispatch/internal/service/tracking"
)

type deliveryUsecase interface {
	Estimate(ctx context.Context, in lifecycle.EstimateInput) (*lifecycle.Estimate, error)
	Create(ctx context.Context, in lifecycle.CreateInput) (*lifecycle.CreateResult, error)
	Claim(ctx context.Context, deliveryID, courierID int64) (*domain.Delivery, error)
	Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Delivery, error)
	AddTip(ctx context.Context, deliveryID, senderID int64, amount float64) (*domain.Payment, error)
	Rate(ctx context.Context, in lifecycle.RateInput) (*domain.Rating, error)
	ReportIssue(ctx context.Context, in lifecycle.IssueInput) (*domain.DeliveryIssue, error)
	Receipt(ctx context.Context, deliveryID, userID int64) (*lifecycle.Receipt, error)
}

// NewDeliveryUsecase wires a lifecycle Service into a deliveryUsecase.
func NewDeliveryUsecase(svc *lifecycle.Service) deliveryUsecase {
	return svc
}

type deliveryReader interface {
	Get(ctx context.Context, id int64) (*domain.Delivery, error)
	List(ctx context.Context, f repository.ListFilter) ([]domain.Delivery, error)
	StatusEvents(ctx context.Context, deliveryID int64) ([]domain.StatusEvent, error)
}

// NewDeliveryReader wires the delivery repository into a deliveryReader.
func NewDeliveryReader(repo *repository.DeliveryRepo) deliveryReader {
	return repo
}

type courierStore interface {
	Get(ctx context.Context, userID int64) (*domain.CourierProfile, error)
	SetAvailability(ctx context.Context, userID int64, available bool, lat, lng *float64) error
	Earnings(ctx context.Context, courierID int64, since time.Time) (float64, []domain.DailyEarnings, error)
	RecentCredits(ctx context.Context, courierID int64, limit int) ([]domain.LedgerEntry, error)
}

// NewCourierStore wires the courier repository into a courierStore.
func NewCourierStore(repo *repository.CourierRepo) courierStore {
	return repo
}

type offerFeed interface {
	OffersFor(ctx context.Context, courierID int64) ([]dispatch.Offer, error)
}

// NewOfferFeed wires the dispatcher into an offerFeed.
func NewOfferFeed(d *dispatch.Dispatcher) offerFeed {
	return d
}

type locationIngest interface {
	Handle(ctx context.Context, rep location.Report) error
}

// NewLocationIngest wires the ingest pipeline into a locationIngest.
func NewLocationIngest(i *location.Ingest) locationIngest {
	return i
}

// candidateIndex mirrors courier availability into the dispatch geo index.
type candidateIndex interface {
	Upsert(ctx context.Context, courierID int64, lat, lng float64) error
	Remove(ctx context.Context, courierID int64) error
}

// NewCandidateIndex wires the dispatch geo index into a candidateIndex.
func NewCandidateIndex(g *dispatch.GeoIndex) candidateIndex {
	return g
}

type messageRelay interface {
	History(ctx context.Context, deliveryID int64, caller messages.Caller) ([]domain.Message, error)
	Send(ctx context.Context, deliveryID int64, caller messages.Caller, content, attachmentURL string) (*domain.Message, error)
	MarkRead(ctx context.Context, messageID, readerID int64) error
}

// NewMessageRelay wires the chat relay into a messageRelay.
func NewMessageRelay(r *messages.Relay) messageRelay {
	return r
}

type notificationStore interface {
	ListByUser(ctx context.Context, userID int64, limit, offset *int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID int64, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
}

// NewNotificationStore wires the notification repository into a notificationStore.
func NewNotificationStore(repo *repository.NotificationRepo) notificationStore {
	return repo
}

type promoValidator interface {
	Validate(ctx context.Context, code string, userID int64, orderAmount float64) (*promo.Result, error)
}

// NewPromoValidator wires the promo validator into a promoValidator.
func NewPromoValidator(v *promo.Validator) promoValidator {
	return v
}

type tokenResolver interface {
	Resolve(ctx context.Context, token string) (*domain.TrackingToken, error)
}

// NewTokenResolver wires the tracking service into a tokenResolver.
func NewTokenResolver(s *tracking.Service) tokenResolver {
	return s
}
