// Package location ingests courier position reports: it keeps the raw trail,
// moves the live profile position, feeds the dispatch geo index, fires the
// proximity auto-transitions, and streams tracking updates to subscribers.
package location

import (
	"context"
	"fmt"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
)

// minSpeedMps floors the speed used for ETA so a courier stopped at a light
// does not push the estimate to infinity.
const minSpeedMps = 8.0

// Samples stores the append-only position trail.
type Samples interface {
	InsertSample(ctx context.Context, s *domain.LocationSample) error
}

// Couriers reads and moves the live courier position.
type Couriers interface {
	Get(ctx context.Context, userID int64) (*domain.CourierProfile, error)
	UpdatePosition(ctx context.Context, userID int64, lat, lng float64, at time.Time) (bool, error)
}

// Deliveries reads the courier's active delivery.
type Deliveries interface {
	Get(ctx context.Context, id int64) (*domain.Delivery, error)
}

// Transitioner runs status transitions; ingest only requests system moves.
type Transitioner interface {
	Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Delivery, error)
}

// GeoUpdater feeds the dispatch candidate index.
type GeoUpdater interface {
	Upsert(ctx context.Context, courierID int64, lat, lng float64) error
}

// Publisher pushes events to live subscribers.
type Publisher interface {
	Publish(ev eventbus.Event)
}

// Report is one courier position sample as received from the device.
type Report struct {
	CourierID    int64
	Lat          float64
	Lng          float64
	AccuracyM    *float64
	Heading      *float64
	SpeedMps     *float64
	BatteryLevel *int
	RecordedAt   time.Time
}

// Ingest processes courier position reports.
type Ingest struct {
	samples    Samples
	couriers   Couriers
	deliveries Deliveries
	lifecycle  Transitioner
	index      GeoUpdater
	bus        Publisher
	log        logx.Logger

	now func() time.Time
}

// NewIngest creates an Ingest.
func NewIngest(
	samples Samples,
	couriers Couriers,
	deliveries Deliveries,
	lifecycle Transitioner,
	index GeoUpdater,
	bus Publisher,
	log logx.Logger,
) *Ingest {
	return &Ingest{
		samples:    samples,
		couriers:   couriers,
		deliveries: deliveries,
		lifecycle:  lifecycle,
		index:      index,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// Handle persists the sample and runs the downstream effects. Samples older
// than the courier's stored position are kept in the trail but move nothing.
func (s *Ingest) Handle(ctx context.Context, rep Report) error {
	if rep.Lat < -90 || rep.Lat > 90 || rep.Lng < -180 || rep.Lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalid)
	}
	if rep.RecordedAt.IsZero() {
		rep.RecordedAt = s.now()
	}

	c, err := s.couriers.Get(ctx, rep.CourierID)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: courier %d", apperr.ErrNotFound, rep.CourierID)
	}

	sample := &domain.LocationSample{
		UserID:       rep.CourierID,
		DeliveryID:   c.ActiveDeliveryID,
		Lat:          rep.Lat,
		Lng:          rep.Lng,
		AccuracyM:    rep.AccuracyM,
		Heading:      rep.Heading,
		SpeedMps:     rep.SpeedMps,
		BatteryLevel: rep.BatteryLevel,
		RecordedAt:   rep.RecordedAt,
	}
	if err := s.samples.InsertSample(ctx, sample); err != nil {
		return err
	}

	fresh, err := s.couriers.UpdatePosition(ctx, rep.CourierID, rep.Lat, rep.Lng, rep.RecordedAt)
	if err != nil {
		return err
	}
	if !fresh {
		s.log.Debug("stale location sample ignored",
			logx.Int64("courier_id", rep.CourierID),
			logx.Time("recorded_at", rep.RecordedAt),
		)
		return nil
	}

	if err := s.index.Upsert(ctx, rep.CourierID, rep.Lat, rep.Lng); err != nil {
		s.log.Warn("geo index update failed",
			logx.Int64("courier_id", rep.CourierID),
			logx.Any("err", err),
		)
	}

	if c.ActiveDeliveryID == nil {
		return nil
	}
	d, err := s.deliveries.Get(ctx, *c.ActiveDeliveryID)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}

	d = s.autoTransition(ctx, d, rep)
	eta := s.eta(d, rep)

	payload := map[string]any{
		"delivery_id": d.ID,
		"courier_id":  rep.CourierID,
		"lat":         rep.Lat,
		"lng":         rep.Lng,
		"heading":     rep.Heading,
		"speed_mps":   rep.SpeedMps,
		"status":      d.Status,
		"recorded_at": rep.RecordedAt,
	}
	if eta != nil {
		payload["estimated_delivery_at"] = *eta
	}
	s.bus.Publish(eventbus.Event{
		Topic: eventbus.DeliveryTopic(d.ID),
		Type:  eventbus.EvTrackingLocation,
		Data:  payload,
	})
	return nil
}

// autoTransition fires the proximity moves. A refused transition (for example
// a concurrent courier update) is logged and the stream continues.
func (s *Ingest) autoTransition(ctx context.Context, d *domain.Delivery, rep Report) *domain.Delivery {
	pos := geo.Point{Lat: rep.Lat, Lng: rep.Lng}

	var to domain.DeliveryStatus
	switch d.Status {
	case domain.StatusEnRouteToPickup:
		pickup := geo.Point{Lat: d.PickupAddress.Lat, Lng: d.PickupAddress.Lng}
		if geo.DistanceMeters(pos, pickup) < geo.ApproachPickupMeters {
			to = domain.StatusApproachingPickup
		}
	case domain.StatusInTransit:
		dropoff := geo.Point{Lat: d.DropoffAddress.Lat, Lng: d.DropoffAddress.Lng}
		if geo.DistanceMeters(pos, dropoff) < geo.ApproachDropoffMeters {
			to = domain.StatusApproachingDropoff
		}
	}
	if to == "" {
		return d
	}

	lat, lng := rep.Lat, rep.Lng
	moved, err := s.lifecycle.Transition(ctx, domain.TransitionRequest{
		DeliveryID: d.ID,
		To:         to,
		Actor:      domain.ActorSystem,
		Lat:        &lat,
		Lng:        &lng,
	})
	if err != nil {
		s.log.Warn("proximity transition refused",
			logx.Int64("delivery_id", d.ID),
			logx.String("to", string(to)),
			logx.Any("err", err),
		)
		return d
	}
	return moved
}

// eta estimates arrival from the remaining distance at the reported speed,
// floored at minSpeedMps. Before pickup the remaining route still includes the
// full delivery leg.
func (s *Ingest) eta(d *domain.Delivery, rep Report) *time.Time {
	pos := geo.Point{Lat: rep.Lat, Lng: rep.Lng}

	var remainingM float64
	switch d.Status {
	case domain.StatusCourierAssigned, domain.StatusEnRouteToPickup,
		domain.StatusApproachingPickup, domain.StatusAtPickup:
		pickup := geo.Point{Lat: d.PickupAddress.Lat, Lng: d.PickupAddress.Lng}
		remainingM = geo.DistanceMeters(pos, pickup) + d.DistanceMiles*geo.MetersPerMile
	case domain.StatusPickedUp, domain.StatusInTransit,
		domain.StatusApproachingDropoff, domain.StatusAtDropoff:
		dropoff := geo.Point{Lat: d.DropoffAddress.Lat, Lng: d.DropoffAddress.Lng}
		remainingM = geo.DistanceMeters(pos, dropoff)
	default:
		return nil
	}

	speed := minSpeedMps
	if rep.SpeedMps != nil && *rep.SpeedMps > minSpeedMps {
		speed = *rep.SpeedMps
	}
	eta := rep.RecordedAt.Add(time.Duration(remainingM / speed * float64(time.Second)))
	return &eta
}
