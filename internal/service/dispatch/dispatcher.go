package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/geo"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/pricing"
)

const (
	// OfferTTL caps how long a fanned-out offer stays actionable.
	OfferTTL = 15 * time.Minute

	// renotifyAfter throttles repeated search-expired notifications for a
	// delivery that keeps sitting in searching_courier between sweeps.
	renotifyAfter = time.Hour
)

// Offer is one delivery proposal shown to a specific courier. The full pickup
// address and access code are withheld until the courier wins the claim.
type Offer struct {
	DeliveryID          int64                `json:"delivery_id"`
	PickupCity          string               `json:"pickup_city"`
	PickupPostalCode    string               `json:"pickup_postal_code"`
	PickupLat           float64              `json:"pickup_lat"`
	PickupLng           float64              `json:"pickup_lng"`
	DropoffCity         string               `json:"dropoff_city"`
	DistanceMiles       float64              `json:"distance_miles"`
	PackageWeight       float64              `json:"package_weight"`
	Fragile             bool                 `json:"fragile"`
	Priority            domain.PriorityLevel `json:"priority"`
	PickupDistanceMiles float64              `json:"pickup_distance_miles"`
	EstimatedEarnings   float64              `json:"estimated_earnings"`
	ExpiresAt           time.Time            `json:"expires_at"`
}

// counter is the subset of prometheus.Counter the dispatcher needs.
type counter interface {
	Inc()
}

// Dispatcher matches searching deliveries to eligible couriers: push fan-out
// on kickoff, a pull view for the courier's offer feed, and the search
// timeout sweep.
type Dispatcher struct {
	deliveries Deliveries
	couriers   Couriers
	payments   Payments
	settings   SettingsSource
	index      CandidateIndex
	bus        Publisher
	notify     Notifier
	offers     counter
	log        logx.Logger

	now func() time.Time

	mu       sync.Mutex
	notified map[int64]time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	deliveries Deliveries,
	couriers Couriers,
	payments Payments,
	settings SettingsSource,
	index CandidateIndex,
	bus Publisher,
	notify Notifier,
	offers counter,
	log logx.Logger,
) *Dispatcher {
	return &Dispatcher{
		deliveries: deliveries,
		couriers:   couriers,
		payments:   payments,
		settings:   settings,
		index:      index,
		bus:        bus,
		notify:     notify,
		offers:     offers,
		log:        log,
		now:        time.Now,
		notified:   make(map[int64]time.Time),
	}
}

// Kickoff fans the delivery out to every eligible courier as a
// delivery_request event on their private topic. Returns the number of offers
// published. A delivery that already left searching_courier is a no-op.
func (s *Dispatcher) Kickoff(ctx context.Context, deliveryID int64) (int, error) {
	d, err := s.deliveries.Get(ctx, deliveryID)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, fmt.Errorf("delivery %d: %w", deliveryID, apperr.ErrNotFound)
	}
	if d.Status != domain.StatusSearchingCourier {
		return 0, nil
	}

	set, err := s.settings.Load(ctx)
	if err != nil {
		return 0, err
	}

	cands, err := s.candidates(ctx, d, set)
	if err != nil {
		return 0, err
	}

	amount := s.paymentAmount(ctx, d.ID)
	published := 0
	for _, c := range cands {
		offer, ok := s.offerFor(d, c, set, amount)
		if !ok {
			continue
		}
		s.bus.Publish(eventbus.Event{
			Topic: eventbus.UserTopic(c.UserID),
			Type:  eventbus.EvDeliveryRequest,
			Data:  offer,
		})
		s.offers.Inc()
		published++
	}

	s.log.Info("delivery offers fanned out",
		logx.Int64("delivery_id", d.ID),
		logx.Int("offers", published),
	)
	return published, nil
}

// OffersFor is the pull view of the offer feed: every searching delivery the
// courier is currently eligible for, priced for that courier.
func (s *Dispatcher) OffersFor(ctx context.Context, courierID int64) ([]Offer, error) {
	c, err := s.couriers.Get(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("courier %d: %w", courierID, apperr.ErrNotFound)
	}
	if !c.Dispatchable() || c.Lat == nil || c.Lng == nil {
		return nil, nil
	}

	set, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if c.Rating < set.MinCourierRating {
		return nil, nil
	}

	searching, err := s.deliveries.Searching(ctx)
	if err != nil {
		return nil, err
	}

	var out []Offer
	for i := range searching {
		d := &searching[i]
		if d.PackageWeight > c.MaxWeightCapacity {
			continue
		}
		offer, ok := s.offerFor(d, *c, set, s.paymentAmount(ctx, d.ID))
		if !ok {
			continue
		}
		out = append(out, offer)
	}
	return out, nil
}

// ExpireSearches publishes search_expired for deliveries that have been
// searching longer than the configured window. The delivery itself stays in
// searching_courier so the sender can cancel or keep waiting.
func (s *Dispatcher) ExpireSearches(ctx context.Context) (int, error) {
	set, err := s.settings.Load(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-time.Duration(set.MaxSearchMinutes) * time.Minute)
	expired, err := s.deliveries.ExpiredSearches(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	announced := 0
	for i := range expired {
		d := &expired[i]
		if !s.shouldAnnounce(d.ID) {
			continue
		}

		payload := map[string]any{
			"delivery_id":    d.ID,
			"status":         d.Status,
			"searched_since": d.StatusSince,
		}
		s.bus.Publish(eventbus.Event{
			Topic: eventbus.DeliveryTopic(d.ID),
			Type:  eventbus.EvSearchExpired,
			Data:  payload,
		})
		s.bus.Publish(eventbus.Event{
			Topic: eventbus.UserTopic(d.SenderID),
			Type:  eventbus.EvSearchExpired,
			Data:  payload,
		})

		deliveryID := d.ID
		err := s.notify.Notify(ctx, domain.Notification{
			UserID:     d.SenderID,
			Type:       domain.NotifyStatusUpdate,
			Title:      "No courier found yet",
			Content:    "We could not find a courier for your delivery. You can keep waiting or cancel for a full refund.",
			DeliveryID: &deliveryID,
		})
		if err != nil {
			s.log.Warn("search expired notification failed",
				logx.Int64("delivery_id", d.ID),
				logx.Any("error", err),
			)
		}
		announced++
	}

	if announced > 0 {
		s.log.Info("courier searches expired", logx.Int("count", announced))
	}
	return announced, nil
}

// candidates returns the eligible couriers for a delivery with the per-courier
// service-radius rule applied. The geo index prefilters by distance when it is
// reachable and warm; on error or cold start the SQL candidate set is used
// as-is.
func (s *Dispatcher) candidates(ctx context.Context, d *domain.Delivery, set domain.Settings) ([]domain.CourierProfile, error) {
	pickup := geo.Point{Lat: d.PickupAddress.Lat, Lng: d.PickupAddress.Lng}

	var idSet map[int64]struct{}
	ids, err := s.index.Nearby(ctx, pickup.Lat, pickup.Lng, set.MaxDeliveryDistance)
	switch {
	case err != nil:
		s.log.Warn("geo prefilter unavailable",
			logx.Int64("delivery_id", d.ID),
			logx.Any("error", err),
		)
	case len(ids) > 0:
		idSet = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			idSet[id] = struct{}{}
		}
	}

	profiles, err := s.couriers.Eligible(ctx, d.PackageWeight, set.MinCourierRating)
	if err != nil {
		return nil, err
	}

	out := profiles[:0]
	for _, c := range profiles {
		if idSet != nil {
			if _, ok := idSet[c.UserID]; !ok {
				continue
			}
		}
		if c.Lat == nil || c.Lng == nil {
			continue
		}
		if !geo.WithinRadiusMiles(geo.Point{Lat: *c.Lat, Lng: *c.Lng}, pickup, c.ServiceRadiusMiles) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// offerFor prices the delivery for one courier. ok is false when the courier
// is outside their own service radius or the offer window has already closed.
func (s *Dispatcher) offerFor(d *domain.Delivery, c domain.CourierProfile, set domain.Settings, paymentAmount float64) (Offer, bool) {
	if c.Lat == nil || c.Lng == nil {
		return Offer{}, false
	}
	pickup := geo.Point{Lat: d.PickupAddress.Lat, Lng: d.PickupAddress.Lng}
	pickupDistance := geo.DistanceMiles(geo.Point{Lat: *c.Lat, Lng: *c.Lng}, pickup)
	if pickupDistance > c.ServiceRadiusMiles {
		return Offer{}, false
	}

	expires := s.now().Add(OfferTTL)
	if d.ScheduledPickupAt != nil && d.ScheduledPickupAt.Before(expires) {
		expires = *d.ScheduledPickupAt
	}
	if !expires.After(s.now()) {
		return Offer{}, false
	}

	return Offer{
		DeliveryID:          d.ID,
		PickupCity:          d.PickupAddress.City,
		PickupPostalCode:    d.PickupAddress.PostalCode,
		PickupLat:           d.PickupAddress.Lat,
		PickupLng:           d.PickupAddress.Lng,
		DropoffCity:         d.DropoffAddress.City,
		DistanceMiles:       d.DistanceMiles,
		PackageWeight:       d.PackageWeight,
		Fragile:             d.Fragile,
		Priority:            d.Priority,
		PickupDistanceMiles: pricing.Round2(pickupDistance),
		EstimatedEarnings:   pricing.Round2(paymentAmount * set.CommissionRate),
		ExpiresAt:           expires,
	}, true
}

func (s *Dispatcher) paymentAmount(ctx context.Context, deliveryID int64) float64 {
	p, err := s.payments.GetByDelivery(ctx, deliveryID)
	if err != nil || p == nil {
		return 0
	}
	return p.Amount
}

func (s *Dispatcher) shouldAnnounce(deliveryID int64) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.notified[deliveryID]; ok && now.Sub(last) < renotifyAfter {
		return false
	}
	s.notified[deliveryID] = now
	for id, at := range s.notified {
		if now.Sub(at) > 24*time.Hour {
			delete(s.notified, id)
		}
	}
	return true
}
