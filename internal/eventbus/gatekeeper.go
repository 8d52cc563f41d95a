package eventbus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/auth"
	"courier-dispatch/internal/domain"
)

// Session is the authenticated identity behind one socket. Exactly one of
// UserID / DeliveryID is set: bearer sessions carry a user, tracking-token
// sessions carry the delivery their token grants.
type Session struct {
	UserID      int64
	DeliveryID  int64
	IsRecipient bool
}

// Tracking reports whether the session was opened with a tracking token.
func (s Session) Tracking() bool { return s.DeliveryID != 0 }

// DeliveryAccess resolves the participants of a delivery for topic admission.
type DeliveryAccess interface {
	Participants(ctx context.Context, deliveryID int64) (senderID int64, courierID *int64, err error)
}

// TokenResolver validates a tracking token. Implemented by the tracking service.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*domain.TrackingToken, error)
}

// Gatekeeper decides who may open a socket and which topics they may join.
type Gatekeeper struct {
	secret     []byte
	deliveries DeliveryAccess
	tokens     TokenResolver
}

// NewGatekeeper creates a Gatekeeper over the JWT secret and the two resolvers.
func NewGatekeeper(secret []byte, deliveries DeliveryAccess, tokens TokenResolver) *Gatekeeper {
	return &Gatekeeper{secret: secret, deliveries: deliveries, tokens: tokens}
}

// Authenticate opens a session from the auth frame credentials. A bearer token
// wins when both are supplied.
func (g *Gatekeeper) Authenticate(ctx context.Context, bearer, trackingToken string) (Session, error) {
	if bearer != "" {
		userID, err := auth.Parse(g.secret, bearer)
		if err != nil {
			return Session{}, err
		}
		return Session{UserID: userID}, nil
	}
	if trackingToken != "" {
		t, err := g.tokens.Resolve(ctx, trackingToken)
		if err != nil {
			return Session{}, err
		}
		return Session{DeliveryID: t.DeliveryID, IsRecipient: t.IsRecipient}, nil
	}
	return Session{}, fmt.Errorf("%w: credentials required", apperr.ErrAuth)
}

// Allow checks topic admission: user topics are private to their bearer owner,
// delivery topics admit the sender, the assigned courier and tracking-token
// holders of that delivery.
func (g *Gatekeeper) Allow(ctx context.Context, sess Session, topic string) error {
	kind, rawID, ok := strings.Cut(topic, ":")
	if !ok {
		return fmt.Errorf("%w: malformed topic %q", apperr.ErrInvalid, topic)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("%w: malformed topic %q", apperr.ErrInvalid, topic)
	}

	switch kind {
	case "user":
		if sess.Tracking() || sess.UserID != id {
			return fmt.Errorf("%w: user topic is private", apperr.ErrForbidden)
		}
		return nil
	case "delivery":
		if sess.Tracking() {
			if sess.DeliveryID != id {
				return fmt.Errorf("%w: token is bound to another delivery", apperr.ErrForbidden)
			}
			return nil
		}
		senderID, courierID, err := g.deliveries.Participants(ctx, id)
		if err != nil {
			return err
		}
		if sess.UserID == senderID || (courierID != nil && sess.UserID == *courierID) {
			return nil
		}
		return fmt.Errorf("%w: not a participant of delivery %d", apperr.ErrForbidden, id)
	default:
		return fmt.Errorf("%w: unknown topic kind %q", apperr.ErrInvalid, kind)
	}
}
