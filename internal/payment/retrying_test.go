package payment

import (
	"context"
	"sync/atomic"
	"testing"

	testlog "courier-dispatch/internal/testutil"
)

type fakeGateway struct {
	authorizeFn func(context.Context, ChargeRequest) (*ChargeResult, error)
	captureFn   func(context.Context, string, float64) error
	refundFn    func(context.Context, string, float64, string) error
}

func (f *fakeGateway) Authorize(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return f.authorizeFn(ctx, req)
}
func (f *fakeGateway) Capture(ctx context.Context, txnID string, amount float64) error {
	return f.captureFn(ctx, txnID, amount)
}
func (f *fakeGateway) Refund(ctx context.Context, txnID string, amount float64, reason string) error {
	return f.refundFn(ctx, txnID, amount, reason)
}

type counterStub struct{ n int64 }

func (c *counterStub) Inc() { atomic.AddInt64(&c.n, 1) }
func (c *counterStub) Count() int64 {
	return atomic.LoadInt64(&c.n)
}

func TestRetryingGateway_Authorize_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	rec := testlog.New()

	var calls int32
	next := &fakeGateway{
		authorizeFn: func(context.Context, ChargeRequest) (*ChargeResult, error) {
			switch atomic.AddInt32(&calls, 1) {
			case 1, 2:
				return nil, &StatusError{Code: 503, Body: "unavailable"}
			default:
				return &ChargeResult{TransactionID: "txn-1", Approved: true}, nil
			}
		},
	}
	ctr := &counterStub{}
	cfg := RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   0,
		MaxDelay:    0,
	}
	g := NewRetryingGateway(next, rec.Logger(), ctr, cfg)
	if g == nil {
		t.Fatalf("expected non-nil gw")
	}
	got, err := g.Authorize(context.Background(), ChargeRequest{DeliveryID: 42, Amount: 12.82})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got == nil || got.TransactionID != "txn-1" {
		t.Fatalf("unexpected result: %#v", got)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if ctr.Count() != 2 {
		t.Fatalf("expected 2 retries, got %d", ctr.Count())
	}
}

func TestRetryingGateway_Authorize_NoRetryOnRejection(t *testing.T) {
	t.Parallel()

	rec := testlog.New()

	var calls int32
	next := &fakeGateway{
		authorizeFn: func(context.Context, ChargeRequest) (*ChargeResult, error) {
			atomic.AddInt32(&calls, 1)
			return nil, &StatusError{Code: 400, Body: "bad request"}
		},
	}

	ctr := &counterStub{}
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: 0, MaxDelay: 0}

	g := NewRetryingGateway(next, rec.Logger(), ctr, cfg)

	_, err := g.Authorize(context.Background(), ChargeRequest{DeliveryID: 42})
	if err == nil {
		t.Fatal("expected error")
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if ctr.Count() != 0 {
		t.Fatalf("expected 0 retries, got %d", ctr.Count())
	}
}

func TestRetryingGateway_Capture_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	rec := testlog.New()

	var calls int32
	next := &fakeGateway{
		captureFn: func(context.Context, string, float64) error {
			if atomic.AddInt32(&calls, 1) == 1 {
				return &StatusError{Code: 429, Body: "rate limit"}
			}
			return nil
		},
	}

	ctr := &counterStub{}
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 0, MaxDelay: 0}

	g := NewRetryingGateway(next, rec.Logger(), ctr, cfg)

	if err := g.Capture(context.Background(), "txn-1", 14.82); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if ctr.Count() != 1 {
		t.Fatalf("expected 1 retry, got %d", ctr.Count())
	}
}

func TestRetryingGateway_Refund_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	rec := testlog.New()

	var calls int32
	next := &fakeGateway{
		refundFn: func(context.Context, string, float64, string) error {
			atomic.AddInt32(&calls, 1)
			return &StatusError{Code: 502, Body: "bad gateway"}
		},
	}

	ctr := &counterStub{}
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 0, MaxDelay: 0}

	g := NewRetryingGateway(next, rec.Logger(), ctr, cfg)

	err := g.Refund(context.Background(), "txn-1", 5, "cancelled")
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	t.Parallel()

	if d := backoff(100, 250, 1); d != 100 {
		t.Fatalf("attempt 1: got %d", d)
	}
	if d := backoff(100, 250, 2); d != 200 {
		t.Fatalf("attempt 2: got %d", d)
	}
	if d := backoff(100, 250, 3); d != 250 {
		t.Fatalf("attempt 3: got %d", d)
	}
}
