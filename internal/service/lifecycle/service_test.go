package lifecycle

import (
	"context"
	"fmt"
	"time"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/payment"
	"courier-dispatch/internal/ports/lifecycletx"
	"courier-dispatch/internal/service/promo"
)

var lifecycleAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

// memTx is an in-memory lifecycletx.Repository. Methods no test should reach
// are inherited from the embedded nil interface and panic.
type memTx struct {
	lifecycletx.Repository

	delivery *domain.Delivery
	payment  *domain.Payment
	courier  *domain.CourierProfile

	statusEvents []domain.StatusEvent
	ledger       []domain.LedgerEntry
	tokens       []domain.TrackingToken
	ratings      []domain.Rating

	completedInc, cancelledInc int
	pickupAt, deliveryAt       *time.Time
	etaAt                      *time.Time
	cancelReason               string
	proof                      *domain.Proof
	refundAmount               float64
	refundReason               string
	recalculated               []int64
}

func (m *memTx) GetDeliveryForUpdate(_ context.Context, id int64) (*domain.Delivery, error) {
	if m.delivery == nil || m.delivery.ID != id {
		return nil, nil
	}
	cp := *m.delivery
	return &cp, nil
}

func (m *memTx) InsertDelivery(_ context.Context, d *domain.Delivery) error {
	d.ID = 42
	d.CreatedAt = lifecycleAt
	cp := *d
	m.delivery = &cp
	return nil
}

func (m *memTx) UpdateDeliveryStatus(_ context.Context, id int64, status domain.DeliveryStatus, since time.Time) error {
	m.delivery.Status = status
	m.delivery.StatusSince = since
	return nil
}

func (m *memTx) InsertStatusEvent(_ context.Context, ev *domain.StatusEvent) error {
	ev.ID = int64(len(m.statusEvents) + 1)
	m.statusEvents = append(m.statusEvents, *ev)
	return nil
}

func (m *memTx) SetActualPickupTime(_ context.Context, _ int64, at time.Time) error {
	if m.pickupAt == nil {
		m.pickupAt = &at
	}
	return nil
}

func (m *memTx) SetActualDeliveryTime(_ context.Context, _ int64, at time.Time) error {
	if m.deliveryAt == nil {
		m.deliveryAt = &at
	}
	return nil
}

func (m *memTx) SetEstimatedDeliveryTime(_ context.Context, _ int64, at time.Time) error {
	m.etaAt = &at
	return nil
}

func (m *memTx) SetCancellationReason(_ context.Context, _ int64, reason string) error {
	m.cancelReason = reason
	m.delivery.CourierID = nil
	return nil
}

func (m *memTx) SetDeliveryProof(_ context.Context, _ int64, proof domain.Proof) error {
	m.proof = &proof
	return nil
}

func (m *memTx) ClaimDelivery(_ context.Context, deliveryID, courierID int64) (bool, error) {
	if m.delivery.Status != domain.StatusSearchingCourier || m.delivery.CourierID != nil {
		return false, nil
	}
	m.delivery.CourierID = &courierID
	m.delivery.Status = domain.StatusCourierAssigned
	m.delivery.StatusSince = lifecycleAt
	return true, nil
}

func (m *memTx) SetCourierActiveDelivery(_ context.Context, courierID, deliveryID int64) (bool, error) {
	if m.courier.ActiveDeliveryID != nil {
		return false, nil
	}
	m.courier.ActiveDeliveryID = &deliveryID
	return true, nil
}

func (m *memTx) ClearCourierActiveDelivery(context.Context, int64, int64) error {
	m.courier.ActiveDeliveryID = nil
	return nil
}

func (m *memTx) GetCourierForUpdate(_ context.Context, courierID int64) (*domain.CourierProfile, error) {
	if m.courier == nil || m.courier.UserID != courierID {
		return nil, nil
	}
	cp := *m.courier
	return &cp, nil
}

func (m *memTx) IncrementCourierCounters(_ context.Context, _ int64, completed, cancelled int) error {
	m.completedInc += completed
	m.cancelledInc += cancelled
	return nil
}

func (m *memTx) CreditCourierBalance(_ context.Context, entry domain.LedgerEntry) error {
	m.ledger = append(m.ledger, entry)
	return nil
}

func (m *memTx) InsertPayment(_ context.Context, p *domain.Payment) error {
	p.ID = 7
	cp := *p
	m.payment = &cp
	return nil
}

func (m *memTx) GetPaymentForUpdate(context.Context, int64) (*domain.Payment, error) {
	if m.payment == nil {
		return nil, nil
	}
	cp := *m.payment
	return &cp, nil
}

func (m *memTx) UpdatePaymentStatus(_ context.Context, _ int64, status domain.PaymentStatus, txnID string) error {
	m.payment.Status = status
	if txnID != "" {
		m.payment.TransactionID = txnID
	}
	return nil
}

func (m *memTx) SetPaymentRefund(_ context.Context, _ int64, amount float64, reason string) error {
	m.refundAmount = amount
	m.refundReason = reason
	return nil
}

func (m *memTx) AddPaymentTip(_ context.Context, _ int64, delta float64) error {
	m.payment.Tip += delta
	return nil
}

func (m *memTx) InsertTrackingToken(_ context.Context, t *domain.TrackingToken) error {
	t.ID = int64(len(m.tokens) + 1)
	m.tokens = append(m.tokens, *t)
	return nil
}

func (m *memTx) InsertRating(_ context.Context, r *domain.Rating) error {
	for _, prev := range m.ratings {
		if prev.DeliveryID == r.DeliveryID && prev.RaterID == r.RaterID {
			return fmt.Errorf("rating already exists for delivery %d: %w", r.DeliveryID, apperr.ErrConflict)
		}
	}
	r.ID = int64(len(m.ratings) + 1)
	m.ratings = append(m.ratings, *r)
	return nil
}

func (m *memTx) RecalculateCourierRating(_ context.Context, courierID int64) error {
	m.recalculated = append(m.recalculated, courierID)
	return nil
}

type runnerStub struct {
	tx *memTx
}

func (r *runnerStub) WithTx(_ context.Context, fn func(lifecycletx.Repository) error) error {
	return fn(r.tx)
}

type deliveriesStub struct {
	tx *memTx
}

func (s *deliveriesStub) Get(ctx context.Context, id int64) (*domain.Delivery, error) {
	return s.tx.GetDeliveryForUpdate(ctx, id)
}

type pkgTypesStub struct {
	pt *domain.PackageType
}

func (s *pkgTypesStub) Get(context.Context, int64) (*domain.PackageType, error) { return s.pt, nil }

type settingsStub struct {
	set domain.Settings
}

func (s *settingsStub) Load(context.Context) (domain.Settings, error) { return s.set, nil }

type paymentsReadStub struct {
	tx *memTx
}

func (s *paymentsReadStub) GetByDelivery(ctx context.Context, deliveryID int64) (*domain.Payment, error) {
	return s.tx.GetPaymentForUpdate(ctx, deliveryID)
}

type promosStub struct {
	validateFn func(ctx context.Context, code string, userID int64, orderAmount float64) (*promo.Result, error)
	applyFn    func(ctx context.Context, tx lifecycletx.Repository, code string, userID, deliveryID int64, orderAmount float64) (*promo.Result, error)
}

func (s *promosStub) Validate(ctx context.Context, code string, userID int64, orderAmount float64) (*promo.Result, error) {
	return s.validateFn(ctx, code, userID, orderAmount)
}

func (s *promosStub) Apply(ctx context.Context, tx lifecycletx.Repository, code string, userID, deliveryID int64, orderAmount float64) (*promo.Result, error) {
	return s.applyFn(ctx, tx, code, userID, deliveryID, orderAmount)
}

type issuesStub struct {
	inserted []domain.DeliveryIssue
}

func (s *issuesStub) Insert(_ context.Context, issue *domain.DeliveryIssue) error {
	issue.ID = int64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, *issue)
	return nil
}

type matcherStub struct {
	kicked []int64
}

func (s *matcherStub) Kickoff(_ context.Context, deliveryID int64) (int, error) {
	s.kicked = append(s.kicked, deliveryID)
	return 1, nil
}

type busStub struct {
	events []eventbus.Event
}

func (b *busStub) Publish(ev eventbus.Event) { b.events = append(b.events, ev) }

func (b *busStub) ofType(t string) []eventbus.Event {
	var out []eventbus.Event
	for _, ev := range b.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type notifierStub struct {
	sent []domain.Notification
}

func (n *notifierStub) Notify(_ context.Context, note domain.Notification) error {
	n.sent = append(n.sent, note)
	return nil
}

// gatewayStub approves everything unless told otherwise.
type gatewayStub struct {
	declineReason string
	err           error
	captured      []float64
	refunded      []float64
	authorized    int
}

func (g *gatewayStub) Authorize(context.Context, payment.ChargeRequest) (*payment.ChargeResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.authorized++
	if g.declineReason != "" {
		return &payment.ChargeResult{DeclineReason: g.declineReason}, nil
	}
	return &payment.ChargeResult{TransactionID: fmt.Sprintf("txn-%d", g.authorized), Approved: true}, nil
}

func (g *gatewayStub) Capture(_ context.Context, _ string, amount float64) error {
	if g.err != nil {
		return g.err
	}
	g.captured = append(g.captured, amount)
	return nil
}

func (g *gatewayStub) Refund(_ context.Context, _ string, amount float64, _ string) error {
	if g.err != nil {
		return g.err
	}
	g.refunded = append(g.refunded, amount)
	return nil
}

// harness bundles the service with every fake it talks to.
type harness struct {
	svc     *Service
	tx      *memTx
	gw      *gatewayStub
	bus     *busStub
	notify  *notifierStub
	matcher *matcherStub
	issues  *issuesStub
	promos  *promosStub
}

func newHarness() *harness {
	tx := &memTx{}
	gw := &gatewayStub{}
	bus := &busStub{}
	notify := &notifierStub{}
	matcher := &matcherStub{}
	issues := &issuesStub{}
	promos := &promosStub{}

	pay := payment.NewService(gw, logx.Nop())
	svc := NewService(
		&runnerStub{tx: tx},
		&deliveriesStub{tx: tx},
		&pkgTypesStub{pt: &domain.PackageType{ID: 1, Name: "small", BasePrice: 9.99, MaxWeight: 10}},
		&settingsStub{set: domain.DefaultSettings()},
		pay,
		&paymentsReadStub{tx: tx},
		promos,
		issues,
		matcher,
		bus,
		notify,
		logx.Nop(),
	)
	svc.now = func() time.Time { return lifecycleAt }

	return &harness{
		svc: svc, tx: tx, gw: gw, bus: bus,
		notify: notify, matcher: matcher, issues: issues, promos: promos,
	}
}

func intPtr(v int) *int         { return &v }
func i64Ptr(v int64) *int64     { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func validCreateInput() CreateInput {
	return CreateInput{
		SenderID: 10,
		Pickup: domain.Address{
			Street: "425 Market St", City: "San Francisco", PostalCode: "94105",
			Lat: 37.7897, Lng: -122.3972, AccessCode: "1234",
		},
		Dropoff: domain.Address{
			Street: "3128 16th St", City: "San Francisco", PostalCode: "94103",
			Lat: 37.7599, Lng: -122.4148,
		},
		PackageTypeID: 1,
		Weight:        4,
		Description:   "Documents",
		Recipient:     domain.RecipientContact{Name: "R. Alvarez", Phone: "+14155550188"},
		Priority:      domain.PriorityStandard,
	}
}

// seedAssigned puts a delivery at the given status with courier 21 attached.
func (h *harness) seedAssigned(status domain.DeliveryStatus) {
	h.tx.delivery = &domain.Delivery{
		ID:               42,
		SenderID:         10,
		CourierID:        i64Ptr(21),
		Status:           status,
		StatusSince:      lifecycleAt.Add(-10 * time.Minute),
		PackageWeight:    4,
		EstimatedMinutes: 13,
	}
	h.tx.courier = &domain.CourierProfile{
		UserID:            21,
		Available:         true,
		ActiveDeliveryID:  i64Ptr(42),
		MaxWeightCapacity: 25,
		BackgroundCheck:   domain.VerificationApproved,
		IDVerification:    domain.VerificationVerified,
		Rating:            4.9,
	}
	h.tx.payment = &domain.Payment{
		ID:         7,
		DeliveryID: 42,
		Status:     domain.PaymentAuthorized,
		Amount:     20.00,
		TransactionID: "txn-1",
	}
}
