package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/logx"
)

// Tokens is the store surface the resolver needs.
type Tokens interface {
	GetByToken(ctx context.Context, token string) (*domain.TrackingToken, error)
	Touch(ctx context.Context, id int64, at time.Time) error
}

// Service resolves public tracking tokens.
type Service struct {
	tokens Tokens
	log    logx.Logger
	now    func() time.Time
}

// NewService creates a tracking Service.
func NewService(tokens Tokens, log logx.Logger) *Service {
	return &Service{tokens: tokens, log: log, now: time.Now}
}

// NewTokenPair mints the sender and recipient tokens issued with a delivery.
func NewTokenPair(deliveryID int64, now time.Time) (sender, recipient domain.TrackingToken) {
	expiry := now.Add(domain.TrackingTokenTTL)
	sender = domain.TrackingToken{
		Token:      newToken(),
		DeliveryID: deliveryID,
		ExpiresAt:  expiry,
	}
	recipient = domain.TrackingToken{
		Token:       newToken(),
		DeliveryID:  deliveryID,
		IsRecipient: true,
		ExpiresAt:   expiry,
	}
	return sender, recipient
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Resolve validates a token and bumps its access counter. Unknown and expired
// tokens both come back as ErrAuth so callers cannot probe which it was.
func (s *Service) Resolve(ctx context.Context, token string) (*domain.TrackingToken, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: tracking token required", apperr.ErrAuth)
	}
	t, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: unknown tracking token", apperr.ErrAuth)
	}
	now := s.now()
	if t.Expired(now) {
		return nil, fmt.Errorf("%w: tracking token expired", apperr.ErrAuth)
	}

	// Audit only; a failed bump must not break tracking.
	if err := s.tokens.Touch(ctx, t.ID, now); err != nil {
		s.log.Warn("tracking token touch failed",
			logx.Int64("token_id", t.ID),
			logx.Any("err", err),
		)
	}
	return t, nil
}
