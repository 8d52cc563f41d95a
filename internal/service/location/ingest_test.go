package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/logx"
)

type samplesStub struct {
	inserted []domain.LocationSample
}

func (s *samplesStub) InsertSample(_ context.Context, sample *domain.LocationSample) error {
	sample.ID = int64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, *sample)
	return nil
}

type couriersStub struct {
	profile *domain.CourierProfile
	fresh   bool
	moved   []time.Time
}

func (s *couriersStub) Get(context.Context, int64) (*domain.CourierProfile, error) {
	return s.profile, nil
}

func (s *couriersStub) UpdatePosition(_ context.Context, _ int64, _, _ float64, at time.Time) (bool, error) {
	s.moved = append(s.moved, at)
	return s.fresh, nil
}

type deliveriesStub struct {
	delivery *domain.Delivery
}

func (s *deliveriesStub) Get(context.Context, int64) (*domain.Delivery, error) {
	return s.delivery, nil
}

type transitionerStub struct {
	requests []domain.TransitionRequest
	err      error
}

func (s *transitionerStub) Transition(_ context.Context, req domain.TransitionRequest) (*domain.Delivery, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Delivery{ID: req.DeliveryID, Status: req.To}, nil
}

type indexStub struct {
	upserts int
	err     error
}

func (s *indexStub) Upsert(context.Context, int64, float64, float64) error {
	s.upserts++
	return s.err
}

type busStub struct {
	events []eventbus.Event
}

func (b *busStub) Publish(ev eventbus.Event) { b.events = append(b.events, ev) }

var ingestAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func activeDelivery(status domain.DeliveryStatus) *domain.Delivery {
	return &domain.Delivery{
		ID:             42,
		SenderID:       10,
		Status:         status,
		PickupAddress:  domain.Address{Lat: 37.7897, Lng: -122.3972},
		DropoffAddress: domain.Address{Lat: 37.7599, Lng: -122.4148},
		DistanceMiles:  2.6,
	}
}

type fixture struct {
	ingest     *Ingest
	samples    *samplesStub
	couriers   *couriersStub
	deliveries *deliveriesStub
	trans      *transitionerStub
	index      *indexStub
	bus        *busStub
}

func newFixture(d *domain.Delivery) *fixture {
	var activeID *int64
	if d != nil {
		id := d.ID
		activeID = &id
	}
	f := &fixture{
		samples: &samplesStub{},
		couriers: &couriersStub{
			profile: &domain.CourierProfile{UserID: 21, ActiveDeliveryID: activeID},
			fresh:   true,
		},
		deliveries: &deliveriesStub{delivery: d},
		trans:      &transitionerStub{},
		index:      &indexStub{},
		bus:        &busStub{},
	}
	f.ingest = NewIngest(f.samples, f.couriers, f.deliveries, f.trans, f.index, f.bus, logx.Nop())
	f.ingest.now = func() time.Time { return ingestAt }
	return f
}

func spd(v float64) *float64 { return &v }

func TestIngest_Handle_PersistsAndPublishesTracking(t *testing.T) {
	t.Parallel()

	f := newFixture(activeDelivery(domain.StatusInTransit))

	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7700,
		Lng:        -122.4100,
		SpeedMps:   spd(11),
		RecordedAt: ingestAt,
	})
	require.NoError(t, err)

	require.Len(t, f.samples.inserted, 1)
	require.NotNil(t, f.samples.inserted[0].DeliveryID)
	assert.Equal(t, int64(42), *f.samples.inserted[0].DeliveryID)
	assert.Equal(t, 1, f.index.upserts)

	require.Len(t, f.bus.events, 1)
	ev := f.bus.events[0]
	assert.Equal(t, eventbus.DeliveryTopic(42), ev.Topic)
	assert.Equal(t, eventbus.EvTrackingLocation, ev.Type)

	data := ev.Data.(map[string]any)
	assert.Equal(t, int64(21), data["courier_id"])
	eta, ok := data["estimated_delivery_at"].(time.Time)
	require.True(t, ok)
	assert.True(t, eta.After(ingestAt))
}

func TestIngest_Handle_ApproachingPickupTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(activeDelivery(domain.StatusEnRouteToPickup))

	// about 110m from the pickup point
	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7907,
		Lng:        -122.3972,
		RecordedAt: ingestAt,
	})
	require.NoError(t, err)

	require.Len(t, f.trans.requests, 1)
	req := f.trans.requests[0]
	assert.Equal(t, domain.StatusApproachingPickup, req.To)
	assert.Equal(t, domain.ActorSystem, req.Actor)
	require.NotNil(t, req.Lat)

	data := f.bus.events[0].Data.(map[string]any)
	assert.Equal(t, domain.StatusApproachingPickup, data["status"], "published status reflects the move")
}

func TestIngest_Handle_FarFromPickupNoTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(activeDelivery(domain.StatusEnRouteToPickup))

	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7700,
		Lng:        -122.4100,
		RecordedAt: ingestAt,
	})
	require.NoError(t, err)
	assert.Empty(t, f.trans.requests)
	assert.Len(t, f.bus.events, 1)
}

func TestIngest_Handle_ApproachingDropoffUsesWiderRadius(t *testing.T) {
	t.Parallel()

	f := newFixture(activeDelivery(domain.StatusInTransit))

	// about 330m from the dropoff: inside the 500m dropoff radius but
	// outside the 200m pickup one
	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7629,
		Lng:        -122.4148,
		RecordedAt: ingestAt,
	})
	require.NoError(t, err)

	require.Len(t, f.trans.requests, 1)
	assert.Equal(t, domain.StatusApproachingDropoff, f.trans.requests[0].To)
}

func TestIngest_Handle_StaleSampleKeepsTrailMovesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(activeDelivery(domain.StatusInTransit))
	f.couriers.fresh = false

	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7700,
		Lng:        -122.4100,
		RecordedAt: ingestAt.Add(-time.Minute),
	})
	require.NoError(t, err)

	assert.Len(t, f.samples.inserted, 1, "trail is append-only")
	assert.Zero(t, f.index.upserts)
	assert.Empty(t, f.trans.requests)
	assert.Empty(t, f.bus.events)
}

func TestIngest_Handle_IdleCourierOnlyFeedsIndex(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)

	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7700,
		Lng:        -122.4100,
		RecordedAt: ingestAt,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.index.upserts)
	assert.Empty(t, f.bus.events)
}

func TestIngest_Handle_RefusedTransitionKeepsStreaming(t *testing.T) {
	t.Parallel()

	f := newFixture(activeDelivery(domain.StatusEnRouteToPickup))
	f.trans.err = apperr.ErrInvalidTransition

	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7907,
		Lng:        -122.3972,
		RecordedAt: ingestAt,
	})
	require.NoError(t, err)

	require.Len(t, f.bus.events, 1)
	data := f.bus.events[0].Data.(map[string]any)
	assert.Equal(t, domain.StatusEnRouteToPickup, data["status"], "status unchanged when the move is refused")
}

func TestIngest_Handle_RejectsBadCoordinates(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	err := f.ingest.Handle(context.Background(), Report{CourierID: 21, Lat: 91, Lng: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Empty(t, f.samples.inserted)
}

func TestIngest_Handle_EtaFlooredAtMinimumSpeed(t *testing.T) {
	t.Parallel()

	f := newFixture(activeDelivery(domain.StatusInTransit))

	err := f.ingest.Handle(context.Background(), Report{
		CourierID:  21,
		Lat:        37.7700,
		Lng:        -122.4100,
		SpeedMps:   spd(0.5), // stopped in traffic
		RecordedAt: ingestAt,
	})
	require.NoError(t, err)

	data := f.bus.events[0].Data.(map[string]any)
	eta := data["estimated_delivery_at"].(time.Time)

	// remaining distance over the 8 m/s floor, not over 0.5 m/s
	maxPlausible := ingestAt.Add(30 * time.Minute)
	assert.True(t, eta.Before(maxPlausible), "floor speed keeps the ETA bounded")
}
