package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/logx"
)

type deliveriesStub struct {
	getFn       func(ctx context.Context, id int64) (*domain.Delivery, error)
	searchingFn func(ctx context.Context) ([]domain.Delivery, error)
	expiredFn   func(ctx context.Context, before time.Time) ([]domain.Delivery, error)
}

func (s *deliveriesStub) Get(ctx context.Context, id int64) (*domain.Delivery, error) {
	return s.getFn(ctx, id)
}
func (s *deliveriesStub) Searching(ctx context.Context) ([]domain.Delivery, error) {
	return s.searchingFn(ctx)
}
func (s *deliveriesStub) ExpiredSearches(ctx context.Context, before time.Time) ([]domain.Delivery, error) {
	return s.expiredFn(ctx, before)
}

type couriersStub struct {
	getFn      func(ctx context.Context, userID int64) (*domain.CourierProfile, error)
	eligibleFn func(ctx context.Context, packageWeight, minRating float64) ([]domain.CourierProfile, error)
}

func (s *couriersStub) Get(ctx context.Context, userID int64) (*domain.CourierProfile, error) {
	return s.getFn(ctx, userID)
}
func (s *couriersStub) Eligible(ctx context.Context, packageWeight, minRating float64) ([]domain.CourierProfile, error) {
	return s.eligibleFn(ctx, packageWeight, minRating)
}

type paymentsStub struct {
	getFn func(ctx context.Context, deliveryID int64) (*domain.Payment, error)
}

func (s *paymentsStub) GetByDelivery(ctx context.Context, deliveryID int64) (*domain.Payment, error) {
	return s.getFn(ctx, deliveryID)
}

type settingsStub struct {
	set domain.Settings
}

func (s *settingsStub) Load(context.Context) (domain.Settings, error) { return s.set, nil }

type indexStub struct {
	nearbyFn func(ctx context.Context, lat, lng, radiusMiles float64) ([]int64, error)
}

func (s *indexStub) Nearby(ctx context.Context, lat, lng, radiusMiles float64) ([]int64, error) {
	return s.nearbyFn(ctx, lat, lng, radiusMiles)
}

type busStub struct {
	events []eventbus.Event
}

func (b *busStub) Publish(ev eventbus.Event) { b.events = append(b.events, ev) }

type notifierStub struct {
	sent []domain.Notification
	err  error
}

func (n *notifierStub) Notify(_ context.Context, note domain.Notification) error {
	n.sent = append(n.sent, note)
	return n.err
}

type counterStub struct {
	n atomic.Int64
}

func (c *counterStub) Inc() { c.n.Add(1) }

var dispatchAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func float64Ptr(v float64) *float64 { return &v }

func searchingDelivery() *domain.Delivery {
	return &domain.Delivery{
		ID:       42,
		SenderID: 10,
		Status:   domain.StatusSearchingCourier,
		PickupAddress: domain.Address{
			City: "San Francisco", PostalCode: "94105",
			Lat: 37.7897, Lng: -122.3972,
			AccessCode: "1234",
		},
		DropoffAddress: domain.Address{City: "San Francisco", Lat: 37.7599, Lng: -122.4148},
		PackageWeight:  5,
		DistanceMiles:  2.6,
		Priority:       domain.PriorityStandard,
		StatusSince:    dispatchAt.Add(-5 * time.Minute),
	}
}

func nearCourier(id int64) domain.CourierProfile {
	return domain.CourierProfile{
		UserID:             id,
		Available:          true,
		Lat:                float64Ptr(37.78),
		Lng:                float64Ptr(-122.40),
		MaxWeightCapacity:  25,
		ServiceRadiusMiles: 10,
		BackgroundCheck:    domain.VerificationApproved,
		IDVerification:     domain.VerificationVerified,
		Rating:             4.8,
	}
}

func newTestDispatcher(
	deliveries Deliveries,
	couriers Couriers,
	payments Payments,
	index CandidateIndex,
	bus *busStub,
	notify *notifierStub,
) (*Dispatcher, *counterStub) {
	offers := &counterStub{}
	d := NewDispatcher(
		deliveries, couriers, payments,
		&settingsStub{set: domain.DefaultSettings()},
		index, bus, notify, offers, logx.Nop(),
	)
	d.now = func() time.Time { return dispatchAt }
	return d, offers
}

func TestDispatcher_Kickoff_FansOutToEligibleCouriers(t *testing.T) {
	t.Parallel()

	deliveries := &deliveriesStub{
		getFn: func(_ context.Context, id int64) (*domain.Delivery, error) {
			require.Equal(t, int64(42), id)
			return searchingDelivery(), nil
		},
	}

	far := nearCourier(22)
	far.Lat, far.Lng = float64Ptr(38.50), float64Ptr(-122.00)
	couriers := &couriersStub{
		eligibleFn: func(_ context.Context, weight, minRating float64) ([]domain.CourierProfile, error) {
			require.InDelta(t, 5.0, weight, 0.001)
			return []domain.CourierProfile{nearCourier(21), far, nearCourier(23)}, nil
		},
	}
	payments := &paymentsStub{
		getFn: func(context.Context, int64) (*domain.Payment, error) {
			return &domain.Payment{Amount: 20.00}, nil
		},
	}
	// courier 23 is absent from the index, so the prefilter drops them
	index := &indexStub{
		nearbyFn: func(context.Context, float64, float64, float64) ([]int64, error) {
			return []int64{21, 22}, nil
		},
	}
	bus := &busStub{}

	d, offers := newTestDispatcher(deliveries, couriers, payments, index, bus, &notifierStub{})

	n, err := d.Kickoff(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), offers.n.Load())

	require.Len(t, bus.events, 1)
	ev := bus.events[0]
	assert.Equal(t, eventbus.UserTopic(21), ev.Topic)
	assert.Equal(t, eventbus.EvDeliveryRequest, ev.Type)

	offer, ok := ev.Data.(Offer)
	require.True(t, ok)
	assert.Equal(t, int64(42), offer.DeliveryID)
	assert.InDelta(t, 16.00, offer.EstimatedEarnings, 0.001, "payment x commission rate")
	assert.Greater(t, offer.PickupDistanceMiles, 0.0)
	assert.True(t, offer.ExpiresAt.Equal(dispatchAt.Add(OfferTTL)))
}

func TestDispatcher_Kickoff_NoopWhenNotSearching(t *testing.T) {
	t.Parallel()

	d := searchingDelivery()
	d.Status = domain.StatusCourierAssigned
	deliveries := &deliveriesStub{
		getFn: func(context.Context, int64) (*domain.Delivery, error) { return d, nil },
	}
	bus := &busStub{}

	disp, offers := newTestDispatcher(deliveries, &couriersStub{}, &paymentsStub{}, &indexStub{}, bus, &notifierStub{})

	n, err := disp.Kickoff(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, bus.events)
	assert.Zero(t, offers.n.Load())
}

func TestDispatcher_Kickoff_GeoIndexDownFallsBackToFullScan(t *testing.T) {
	t.Parallel()

	deliveries := &deliveriesStub{
		getFn: func(context.Context, int64) (*domain.Delivery, error) {
			return searchingDelivery(), nil
		},
	}
	couriers := &couriersStub{
		eligibleFn: func(context.Context, float64, float64) ([]domain.CourierProfile, error) {
			return []domain.CourierProfile{nearCourier(21)}, nil
		},
	}
	payments := &paymentsStub{
		getFn: func(context.Context, int64) (*domain.Payment, error) { return nil, nil },
	}
	index := &indexStub{
		nearbyFn: func(context.Context, float64, float64, float64) ([]int64, error) {
			return nil, errors.New("redis down")
		},
	}
	bus := &busStub{}

	d, _ := newTestDispatcher(deliveries, couriers, payments, index, bus, &notifierStub{})

	n, err := d.Kickoff(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "offers still go out without the prefilter")
}

func TestDispatcher_Kickoff_ExpiryClampsToScheduledPickup(t *testing.T) {
	t.Parallel()

	del := searchingDelivery()
	scheduled := dispatchAt.Add(5 * time.Minute)
	del.ScheduledPickupAt = &scheduled

	deliveries := &deliveriesStub{
		getFn: func(context.Context, int64) (*domain.Delivery, error) { return del, nil },
	}
	couriers := &couriersStub{
		eligibleFn: func(context.Context, float64, float64) ([]domain.CourierProfile, error) {
			return []domain.CourierProfile{nearCourier(21)}, nil
		},
	}
	payments := &paymentsStub{
		getFn: func(context.Context, int64) (*domain.Payment, error) { return nil, nil },
	}
	index := &indexStub{
		nearbyFn: func(context.Context, float64, float64, float64) ([]int64, error) {
			return []int64{21}, nil
		},
	}
	bus := &busStub{}

	d, _ := newTestDispatcher(deliveries, couriers, payments, index, bus, &notifierStub{})

	_, err := d.Kickoff(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, bus.events, 1)

	offer := bus.events[0].Data.(Offer)
	assert.True(t, offer.ExpiresAt.Equal(scheduled))
}

func TestDispatcher_OffersFor_BuildsPricedFeed(t *testing.T) {
	t.Parallel()

	light := *searchingDelivery()
	heavy := *searchingDelivery()
	heavy.ID = 43
	heavy.PackageWeight = 40

	deliveries := &deliveriesStub{
		searchingFn: func(context.Context) ([]domain.Delivery, error) {
			return []domain.Delivery{light, heavy}, nil
		},
	}
	courier := nearCourier(21)
	couriers := &couriersStub{
		getFn: func(_ context.Context, userID int64) (*domain.CourierProfile, error) {
			require.Equal(t, int64(21), userID)
			return &courier, nil
		},
	}
	payments := &paymentsStub{
		getFn: func(context.Context, int64) (*domain.Payment, error) {
			return &domain.Payment{Amount: 12.50}, nil
		},
	}

	d, _ := newTestDispatcher(deliveries, couriers, payments, &indexStub{}, &busStub{}, &notifierStub{})

	offers, err := d.OffersFor(context.Background(), 21)
	require.NoError(t, err)
	require.Len(t, offers, 1, "overweight delivery is filtered out")
	assert.Equal(t, int64(42), offers[0].DeliveryID)
	assert.InDelta(t, 10.00, offers[0].EstimatedEarnings, 0.001)
}

func TestDispatcher_OffersFor_UnavailableCourierGetsNothing(t *testing.T) {
	t.Parallel()

	courier := nearCourier(21)
	courier.Available = false
	couriers := &couriersStub{
		getFn: func(context.Context, int64) (*domain.CourierProfile, error) { return &courier, nil },
	}

	d, _ := newTestDispatcher(&deliveriesStub{}, couriers, &paymentsStub{}, &indexStub{}, &busStub{}, &notifierStub{})

	offers, err := d.OffersFor(context.Background(), 21)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestDispatcher_ExpireSearches_PublishesAndThrottles(t *testing.T) {
	t.Parallel()

	expired := searchingDelivery()
	expired.StatusSince = dispatchAt.Add(-time.Hour)
	deliveries := &deliveriesStub{
		expiredFn: func(_ context.Context, before time.Time) ([]domain.Delivery, error) {
			wantCutoff := dispatchAt.Add(-time.Duration(domain.DefaultSettings().MaxSearchMinutes) * time.Minute)
			require.True(t, before.Equal(wantCutoff))
			return []domain.Delivery{*expired}, nil
		},
	}
	bus := &busStub{}
	notify := &notifierStub{}

	d, _ := newTestDispatcher(deliveries, &couriersStub{}, &paymentsStub{}, &indexStub{}, bus, notify)

	n, err := d.ExpireSearches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, bus.events, 2, "delivery topic and sender topic")
	assert.Equal(t, eventbus.DeliveryTopic(42), bus.events[0].Topic)
	assert.Equal(t, eventbus.EvSearchExpired, bus.events[0].Type)
	assert.Equal(t, eventbus.UserTopic(10), bus.events[1].Topic)

	require.Len(t, notify.sent, 1)
	assert.Equal(t, int64(10), notify.sent[0].UserID)

	// the same stuck delivery is not re-announced on the next sweep
	n, err = d.ExpireSearches(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, bus.events, 2)
}
