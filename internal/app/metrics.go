package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"courier-dispatch/internal/metrics"
)

// metricsOut exposes the service counters as named container values so each
// consumer can pull exactly the one it owns.
type metricsOut struct {
	dig.Out

	RateLimitExceededTotal prometheus.Counter `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal    prometheus.Counter `name:"payment_gateway_retries_total"`
	DispatchOffersTotal    prometheus.Counter `name:"dispatch_offers_total"`
	WsConnections          prometheus.Gauge   `name:"ws_connections"`
}

func provideMetrics() (metricsOut, error) {
	rl, err := registerCollector(metrics.NewRateLimitExceededTotal(), "rate_limit_exceeded_total")
	if err != nil {
		return metricsOut{}, err
	}
	gw, err := registerCollector(metrics.NewGatewayRetriesTotal(), "payment_gateway_retries_total")
	if err != nil {
		return metricsOut{}, err
	}
	offers, err := registerCollector(metrics.NewDispatchOffersTotal(), "dispatch_offers_total")
	if err != nil {
		return metricsOut{}, err
	}
	conns, err := registerCollector(metrics.NewWsConnections(), "ws_connections")
	if err != nil {
		return metricsOut{}, err
	}
	return metricsOut{
		RateLimitExceededTotal: rl,
		GatewayRetriesTotal:    gw,
		DispatchOffersTotal:    offers,
		WsConnections:          conns,
	}, nil
}

// registerCollector registers c with the default registerer, reusing the
// existing collector when one with the same descriptor is already registered.
// Rebuilding the container in tests must not panic on duplicates.
func registerCollector[C prometheus.Collector](c C, name string) (C, error) {
	if err := prometheus.DefaultRegisterer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(C)
			if !ok {
				return c, fmt.Errorf("register %s: existing collector has unexpected type", name)
			}
			return existing, nil
		}
		return c, fmt.Errorf("register %s: %w", name, err)
	}
	return c, nil
}
