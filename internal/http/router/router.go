// Package router wires middleware and routes into the API handler.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courier-dispatch/internal/http/handlers"
	mw "courier-dispatch/internal/http/middleware"
	"courier-dispatch/internal/http/middleware/ratelimit"
	"courier-dispatch/internal/logx"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger        logx.Logger
	JWTSecret     []byte
	Base          *handlers.Handlers
	Deliveries    *handlers.DeliveryHandler
	Couriers      *handlers.CourierHandler
	Messages      *handlers.MessageHandler
	Notifications *handlers.NotificationHandler
	Promos        *handlers.PromoHandler
	WS            http.Handler
	RateLimit     *ratelimit.Middleware
}

// New constructs the chi handler with base middleware and all routes under
// /api/v1.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Observability(d.Logger))
	r.Use(chimw.Recoverer)
	if d.RateLimit != nil {
		r.Use(d.RateLimit.Handler())
	}
	r.Use(chimw.Timeout(15 * time.Second))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Handle("/metrics", promhttp.Handler())
	if d.WS != nil {
		r.Handle("/ws", d.WS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// bearer-only surface
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(d.JWTSecret))

			r.Post("/deliveries/estimate", d.Deliveries.Estimate)
			r.Post("/deliveries", d.Deliveries.Create)
			r.Get("/deliveries", d.Deliveries.List)
			r.Put("/deliveries/{id}/cancel", d.Deliveries.Cancel)
			r.Post("/deliveries/{id}/tip", d.Deliveries.Tip)
			r.Post("/deliveries/{id}/rate", d.Deliveries.Rate)
			r.Post("/deliveries/{id}/report-issue", d.Deliveries.ReportIssue)
			r.Get("/deliveries/{id}/receipt", d.Deliveries.Receipt)

			r.Post("/courier/accept-delivery/{id}", d.Couriers.Accept)
			r.Put("/courier/delivery-status/{id}", d.Couriers.Status)
			r.Put("/courier/availability", d.Couriers.Availability)
			r.Post("/courier/location", d.Couriers.Location)
			r.Get("/courier/delivery-requests", d.Couriers.DeliveryRequests)
			r.Get("/courier/active-delivery", d.Couriers.ActiveDelivery)
			r.Get("/courier/earnings", d.Couriers.Earnings)

			r.Put("/messages/{id}/read", d.Messages.MarkRead)

			r.Get("/notifications", d.Notifications.List)
			r.Put("/notifications/{id}/read", d.Notifications.MarkRead)
			r.Put("/notifications/read-all", d.Notifications.MarkAllRead)

			r.Post("/promo-codes/validate", d.Promos.Validate)
		})

		// bearer or tracking-token surface
		r.Group(func(r chi.Router) {
			r.Use(mw.AuthOptional(d.JWTSecret))

			r.Get("/deliveries/{id}", d.Deliveries.Get)
			r.Get("/messages/{id}", d.Messages.History)
			r.Post("/messages/{id}", d.Messages.Send)
		})
	})

	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	return r
}
