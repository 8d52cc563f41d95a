package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/logx"
)

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func TestMiddleware_PassesWhenAllowed(t *testing.T) {
	t.Parallel()

	m := New(logx.Nop(), nil, NopLimiter{})
	called := false
	h := m.Handler()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/deliveries", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_RejectsWith429AndCounts(t *testing.T) {
	t.Parallel()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_rate_limited_total"})
	m := New(logx.Nop(), counter, denyAll{})
	h := m.Handler()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next must not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/courier/location", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.JSONEq(t, `{"success":false,"error":"rate_limited","message":"too many requests"}`, rec.Body.String())
	require.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestClientIP_StripsPort(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	require.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "no-port-here"
	require.Equal(t, "no-port-here", clientIP(req))

	req.RemoteAddr = ""
	require.Equal(t, "unknown", clientIP(req))
}
