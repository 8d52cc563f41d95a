package promo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/apperr"
	"courier-dispatch/internal/domain"
	"courier-dispatch/internal/ports/lifecycletx"
)

type codesStub struct {
	getByCodeFn   func(ctx context.Context, code string) (*domain.PromoCode, error)
	usageExistsFn func(ctx context.Context, userID, promoID int64) (bool, error)
	deliveredFn   func(ctx context.Context, userID int64) (int, error)
}

func (s *codesStub) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return s.getByCodeFn(ctx, code)
}
func (s *codesStub) UsageExists(ctx context.Context, userID, promoID int64) (bool, error) {
	if s.usageExistsFn == nil {
		return false, nil
	}
	return s.usageExistsFn(ctx, userID, promoID)
}
func (s *codesStub) CountDeliveredBySender(ctx context.Context, userID int64) (int, error) {
	if s.deliveredFn == nil {
		return 0, nil
	}
	return s.deliveredFn(ctx, userID)
}

func fixedValidator(codes Codes, at time.Time) *Validator {
	v := NewValidator(codes)
	v.now = func() time.Time { return at }
	return v
}

func welcome20() *domain.PromoCode {
	maxDiscount := 15.0
	return &domain.PromoCode{
		ID:              1,
		Code:            "WELCOME20",
		DiscountType:    domain.DiscountPercentage,
		DiscountValue:   20,
		MaximumDiscount: &maxDiscount,
		ValidFrom:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:      time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		OneTimePerUser:  true,
		FirstTimeOnly:   true,
		Active:          true,
	}
}

var validAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func TestValidator_Validate_HappyPath(t *testing.T) {
	t.Parallel()

	codes := &codesStub{
		getByCodeFn: func(_ context.Context, code string) (*domain.PromoCode, error) {
			require.Equal(t, "WELCOME20", code)
			return welcome20(), nil
		},
	}
	v := fixedValidator(codes, validAt)

	res, err := v.Validate(context.Background(), "WELCOME20", 10, 50.00)
	require.NoError(t, err)
	assert.InDelta(t, 10.00, res.Discount, 0.001, "20% of 50 under the 15 cap")
}

func TestValidator_Validate_CapAppliesOnLargeOrders(t *testing.T) {
	t.Parallel()

	codes := &codesStub{
		getByCodeFn: func(context.Context, string) (*domain.PromoCode, error) {
			return welcome20(), nil
		},
	}
	v := fixedValidator(codes, validAt)

	res, err := v.Validate(context.Background(), "WELCOME20", 10, 200.00)
	require.NoError(t, err)
	assert.InDelta(t, 15.00, res.Discount, 0.001)
}

func TestValidator_Validate_Rejections(t *testing.T) {
	t.Parallel()

	limit := 5
	cases := []struct {
		name   string
		mutate func(p *domain.PromoCode)
		stub   func(s *codesStub)
		amount float64
	}{
		{
			name:   "inactive",
			mutate: func(p *domain.PromoCode) { p.Active = false },
			amount: 50,
		},
		{
			name:   "expired",
			mutate: func(p *domain.PromoCode) { p.ValidUntil = validAt.Add(-time.Hour) },
			amount: 50,
		},
		{
			name:   "not yet valid",
			mutate: func(p *domain.PromoCode) { p.ValidFrom = validAt.Add(time.Hour) },
			amount: 50,
		},
		{
			name: "usage limit reached",
			mutate: func(p *domain.PromoCode) {
				p.UsageLimit = &limit
				p.CurrentUsage = 5
			},
			amount: 50,
		},
		{
			name:   "below minimum order",
			mutate: func(p *domain.PromoCode) { p.MinimumOrder = 100 },
			amount: 50,
		},
		{
			name:   "already used",
			mutate: func(*domain.PromoCode) {},
			stub: func(s *codesStub) {
				s.usageExistsFn = func(context.Context, int64, int64) (bool, error) { return true, nil }
			},
			amount: 50,
		},
		{
			name:   "not a first-time user",
			mutate: func(*domain.PromoCode) {},
			stub: func(s *codesStub) {
				s.deliveredFn = func(context.Context, int64) (int, error) { return 3, nil }
			},
			amount: 50,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := welcome20()
			tc.mutate(p)
			codes := &codesStub{
				getByCodeFn: func(context.Context, string) (*domain.PromoCode, error) { return p, nil },
			}
			if tc.stub != nil {
				tc.stub(codes)
			}
			v := fixedValidator(codes, validAt)

			_, err := v.Validate(context.Background(), p.Code, 10, tc.amount)
			assert.ErrorIs(t, err, apperr.ErrInvalid)
		})
	}
}

func TestValidator_Validate_UnknownCode(t *testing.T) {
	t.Parallel()

	codes := &codesStub{
		getByCodeFn: func(context.Context, string) (*domain.PromoCode, error) { return nil, nil },
	}
	v := fixedValidator(codes, validAt)

	_, err := v.Validate(context.Background(), "NOPE", 10, 50)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// applyTxStub covers the promo slice of the tx contract.
type applyTxStub struct {
	lifecycletx.Repository

	promo          *domain.PromoCode
	used           bool
	delivered      int
	insertedUsage  *domain.PromoUsage
	incrementedFor int64
}

func (s *applyTxStub) GetPromoForUpdate(context.Context, string) (*domain.PromoCode, error) {
	return s.promo, nil
}
func (s *applyTxStub) PromoUsageExists(context.Context, int64, int64) (bool, error) {
	return s.used, nil
}
func (s *applyTxStub) CountDeliveredBySender(context.Context, int64) (int, error) {
	return s.delivered, nil
}
func (s *applyTxStub) InsertPromoUsage(_ context.Context, u *domain.PromoUsage) error {
	s.insertedUsage = u
	return nil
}
func (s *applyTxStub) IncrementPromoUsage(_ context.Context, promoID int64) error {
	s.incrementedFor = promoID
	return nil
}

func TestValidator_Apply_CommitsUsage(t *testing.T) {
	t.Parallel()

	tx := &applyTxStub{promo: welcome20()}
	v := fixedValidator(&codesStub{}, validAt)

	res, err := v.Apply(context.Background(), tx, "WELCOME20", 10, 42, 50.00)
	require.NoError(t, err)

	assert.InDelta(t, 10.00, res.Discount, 0.001)
	require.NotNil(t, tx.insertedUsage)
	assert.Equal(t, int64(10), tx.insertedUsage.UserID)
	assert.Equal(t, int64(42), tx.insertedUsage.DeliveryID)
	assert.Equal(t, int64(1), tx.incrementedFor)
}

func TestValidator_Apply_RejectsReuse(t *testing.T) {
	t.Parallel()

	tx := &applyTxStub{promo: welcome20(), used: true}
	v := fixedValidator(&codesStub{}, validAt)

	_, err := v.Apply(context.Background(), tx, "WELCOME20", 10, 43, 50.00)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Nil(t, tx.insertedUsage, "no usage row on rejection")
}
