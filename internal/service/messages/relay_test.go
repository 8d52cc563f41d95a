package messages

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/logx"
)

type storeStub struct {
	messages []domain.Message
}

func (s *storeStub) Insert(_ context.Context, m *domain.Message) error {
	m.ID = int64(len(s.messages) + 1)
	m.CreatedAt = relayAt
	s.messages = append(s.messages, *m)
	return nil
}

func (s *storeStub) Get(_ context.Context, id int64) (*domain.Message, error) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			cp := s.messages[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *storeStub) ListByDelivery(_ context.Context, deliveryID int64) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range s.messages {
		if m.DeliveryID == deliveryID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *storeStub) MarkRead(_ context.Context, messageID, recipientID int64, at time.Time) (bool, error) {
	for i := range s.messages {
		m := &s.messages[i]
		if m.ID == messageID && m.RecipientID == recipientID && !m.Read {
			m.Read = true
			m.ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

type deliveriesStub struct {
	delivery *domain.Delivery
}

func (s *deliveriesStub) Get(context.Context, int64) (*domain.Delivery, error) {
	return s.delivery, nil
}

type busStub struct {
	events []eventbus.Event
}

func (b *busStub) Publish(ev eventbus.Event) { b.events = append(b.events, ev) }

type notifierStub struct {
	sent []domain.Notification
}

func (n *notifierStub) Notify(_ context.Context, note domain.Notification) error {
	n.sent = append(n.sent, note)
	return nil
}

var relayAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func i64Ptr(v int64) *int64 { return &v }

func newRelayFixture(courierID *int64) (*Relay, *storeStub, *busStub, *notifierStub) {
	store := &storeStub{}
	bus := &busStub{}
	notify := &notifierStub{}
	r := NewRelay(store, &deliveriesStub{
		delivery: &domain.Delivery{ID: 42, SenderID: 10, CourierID: courierID},
	}, bus, notify, logx.Nop())
	r.now = func() time.Time { return relayAt }
	return r, store, bus, notify
}

func TestRelay_Send_SenderToCourier(t *testing.T) {
	t.Parallel()

	r, store, bus, notify := newRelayFixture(i64Ptr(21))

	m, err := r.Send(context.Background(), 42, Caller{UserID: 10}, "Please ring the bell", "")
	require.NoError(t, err)

	assert.Equal(t, "sender", m.SenderLabel)
	require.NotNil(t, m.SenderID)
	assert.Equal(t, int64(10), *m.SenderID)
	assert.Equal(t, int64(21), m.RecipientID)
	require.Len(t, store.messages, 1)

	// fan-out on the delivery topic and the recipient's private topic
	require.Len(t, bus.events, 2)
	assert.Equal(t, eventbus.DeliveryTopic(42), bus.events[0].Topic)
	assert.Equal(t, eventbus.UserTopic(21), bus.events[1].Topic)
	assert.Equal(t, eventbus.EvNewMessage, bus.events[0].Type)

	require.Len(t, notify.sent, 1)
	assert.Equal(t, int64(21), notify.sent[0].UserID)
	assert.Equal(t, domain.NotifyMessage, notify.sent[0].Type)
}

func TestRelay_Send_CourierToSender(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRelayFixture(i64Ptr(21))

	m, err := r.Send(context.Background(), 42, Caller{UserID: 21}, "On my way", "")
	require.NoError(t, err)
	assert.Equal(t, "courier", m.SenderLabel)
	assert.Equal(t, int64(10), m.RecipientID)
}

func TestRelay_Send_RecipientPrefersCourier(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRelayFixture(i64Ptr(21))

	m, err := r.Send(context.Background(), 42, Caller{Recipient: true}, "Leave it with the doorman", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RecipientSender, m.SenderLabel)
	assert.Nil(t, m.SenderID)
	assert.Equal(t, int64(21), m.RecipientID)
}

func TestRelay_Send_RecipientFallsBackToSender(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRelayFixture(nil)

	m, err := r.Send(context.Background(), 42, Caller{Recipient: true}, "When will it ship?", "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.RecipientID)
}

func TestRelay_Send_SenderBlockedBeforeAssignment(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRelayFixture(nil)

	_, err := r.Send(context.Background(), 42, Caller{UserID: 10}, "Anyone there?", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRelay_Send_StrangerForbidden(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRelayFixture(i64Ptr(21))

	_, err := r.Send(context.Background(), 42, Caller{UserID: 99}, "hello", "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRelay_Send_ValidatesContent(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRelayFixture(i64Ptr(21))

	_, err := r.Send(context.Background(), 42, Caller{UserID: 10}, "", "")
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = r.Send(context.Background(), 42, Caller{UserID: 10}, strings.Repeat("x", maxContentLen+1), "")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestRelay_History_ParticipantsAndRecipientOnly(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRelayFixture(i64Ptr(21))
	_, err := r.Send(context.Background(), 42, Caller{UserID: 10}, "hi", "")
	require.NoError(t, err)

	got, err := r.History(context.Background(), 42, Caller{Recipient: true})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = r.History(context.Background(), 42, Caller{UserID: 99})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRelay_MarkRead_RecipientOnlyAndIdempotent(t *testing.T) {
	t.Parallel()

	r, store, bus, _ := newRelayFixture(i64Ptr(21))
	m, err := r.Send(context.Background(), 42, Caller{UserID: 10}, "hi", "")
	require.NoError(t, err)
	fanout := len(bus.events)

	// the message author cannot mark their own message read
	err = r.MarkRead(context.Background(), m.ID, 10)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, r.MarkRead(context.Background(), m.ID, 21))
	assert.True(t, store.messages[0].Read)
	require.Len(t, bus.events, fanout+1)
	assert.Equal(t, eventbus.EvMessageRead, bus.events[fanout].Type)

	// replay is a no-op, no second event
	require.NoError(t, r.MarkRead(context.Background(), m.ID, 21))
	assert.Len(t, bus.events, fanout+1)
}
