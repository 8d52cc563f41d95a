package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/eventbus"
	"courier-dispatch/internal/http/handlers"
	"courier-dispatch/internal/http/middleware/ratelimit"
	"courier-dispatch/internal/http/pprofserver"
	"courier-dispatch/internal/http/router"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/payment"
	"courier-dispatch/internal/repository"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/service/lifecycle"
	"courier-dispatch/internal/service/location"
	"courier-dispatch/internal/service/messages"
	"courier-dispatch/internal/service/notify"
	"courier-dispatch/internal/service/promo"
	"courier-dispatch/internal/service/tracking"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns a new dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// build registers every provider; construction is lazy, so the API binary
// never builds the kafka consumer and the worker never builds the HTTP server.
func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerService(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns a new dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

// MustBuildWorkerContainer builds the container for the worker binary.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
		provideMetrics,
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

type paymentIn struct {
	dig.In

	Cfg     *config.Config
	Retries prometheus.Counter `name:"payment_gateway_retries_total"`
	Logger  logx.Logger
}

func newPaymentService(in paymentIn) *payment.Service {
	p := in.Cfg.Payment
	gw := payment.NewHTTPGateway(p.BaseURL, p.APIKey, p.Timeout)
	retrying := payment.NewRetryingGateway(gw, in.Logger, in.Retries, payment.RetryConfig{
		MaxAttempts: p.MaxAttempts,
		BaseDelay:   p.BaseDelay,
		MaxDelay:    p.MaxDelay,
	})
	return payment.NewService(retrying, in.Logger)
}

type dispatcherIn struct {
	dig.In

	Deliveries *repository.DeliveryRepo
	Couriers   *repository.CourierRepo
	Payments   *repository.PaymentRepo
	Settings   *repository.SettingsRepo
	Index      *dispatch.GeoIndex
	Hub        *eventbus.Hub
	Sink       *notify.Sink
	Offers     prometheus.Counter `name:"dispatch_offers_total"`
	Logger     logx.Logger
}

func newDispatcher(in dispatcherIn) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(
		in.Deliveries, in.Couriers, in.Payments, in.Settings,
		in.Index, in.Hub, in.Sink, in.Offers, in.Logger,
	)
}

type wsIn struct {
	dig.In

	Hub    *eventbus.Hub
	Gate   *eventbus.Gatekeeper
	Conns  prometheus.Gauge `name:"ws_connections"`
	Logger logx.Logger
}

func newWSHandler(in wsIn) *eventbus.WSHandler {
	return eventbus.NewWSHandler(in.Hub, in.Gate, in.Logger, in.Conns)
}

func registerService(container *dig.Container) error {
	return provideAll(container,
		repository.NewDeliveryRepo,
		repository.NewCourierRepo,
		repository.NewPaymentRepo,
		repository.NewMessageRepo,
		repository.NewNotificationRepo,
		repository.NewPackageTypeRepo,
		repository.NewPromoRepo,
		repository.NewSettingsRepo,
		repository.NewTrackingRepo,
		repository.NewIssueRepo,
		repository.NewLocationRepo,

		func(cfg *config.Config) *redis.Client {
			return redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		},
		dispatch.NewGeoIndex,
		eventbus.NewHub,
		func(promos *repository.PromoRepo) *promo.Validator {
			return promo.NewValidator(promos)
		},
		func(tokens *repository.TrackingRepo, logger logx.Logger) *tracking.Service {
			return tracking.NewService(tokens, logger)
		},
		func(store *repository.NotificationRepo, hub *eventbus.Hub, logger logx.Logger) *notify.Sink {
			return notify.NewSink(store, hub, logger)
		},
		newPaymentService,
		newDispatcher,
		func(
			deliveries *repository.DeliveryRepo,
			pkgTypes *repository.PackageTypeRepo,
			settings *repository.SettingsRepo,
			payments *payment.Service,
			paymentsRead *repository.PaymentRepo,
			promos *promo.Validator,
			issues *repository.IssueRepo,
			matcher *dispatch.Dispatcher,
			hub *eventbus.Hub,
			sink *notify.Sink,
			logger logx.Logger,
		) *lifecycle.Service {
			return lifecycle.NewService(
				deliveries, deliveries, pkgTypes, settings, payments, paymentsRead,
				promos, issues, matcher, hub, sink, logger,
			)
		},
		func(
			samples *repository.LocationRepo,
			couriers *repository.CourierRepo,
			deliveries *repository.DeliveryRepo,
			svc *lifecycle.Service,
			index *dispatch.GeoIndex,
			hub *eventbus.Hub,
			logger logx.Logger,
		) *location.Ingest {
			return location.NewIngest(samples, couriers, deliveries, svc, index, hub, logger)
		},
		func(
			store *repository.MessageRepo,
			deliveries *repository.DeliveryRepo,
			hub *eventbus.Hub,
			sink *notify.Sink,
			logger logx.Logger,
		) *messages.Relay {
			return messages.NewRelay(store, deliveries, hub, sink, logger)
		},
		func(cfg *config.Config, deliveries *repository.DeliveryRepo, tokens *tracking.Service) *eventbus.Gatekeeper {
			return eventbus.NewGatekeeper([]byte(cfg.Auth.JWTSecret), deliveries, tokens)
		},
		newWSHandler,
	)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container, newLocationConsumer)
}

type pprofOut struct {
	dig.Out

	Server *http.Server `name:"pprof_server"`
}

// newPprofServer returns the debug listener, or a nil server when profiling
// is disabled.
func newPprofServer(cfg *config.Config) pprofOut {
	if !cfg.Pprof.Enabled {
		return pprofOut{}
	}
	return pprofOut{Server: &http.Server{
		Addr: cfg.Pprof.Addr,
		Handler: pprofserver.Handler(pprofserver.Config{
			User: cfg.Pprof.User,
			Pass: cfg.Pprof.Pass,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	routerProvider := func(
		cfg *config.Config,
		logger logx.Logger,
		base *handlers.Handlers,
		deliveries *handlers.DeliveryHandler,
		couriers *handlers.CourierHandler,
		msgs *handlers.MessageHandler,
		notifications *handlers.NotificationHandler,
		promos *handlers.PromoHandler,
		ws *eventbus.WSHandler,
		rl *ratelimit.Middleware,
	) http.Handler {
		return router.New(router.Deps{
			Logger:        logger,
			JWTSecret:     []byte(cfg.Auth.JWTSecret),
			Base:          base,
			Deliveries:    deliveries,
			Couriers:      couriers,
			Messages:      msgs,
			Notifications: notifications,
			Promos:        promos,
			WS:            ws,
			RateLimit:     rl,
		})
	}
	return provideAll(container,
		handlers.New,
		handlers.NewDeliveryUsecase,
		handlers.NewDeliveryReader,
		handlers.NewCourierStore,
		handlers.NewOfferFeed,
		handlers.NewLocationIngest,
		handlers.NewCandidateIndex,
		handlers.NewMessageRelay,
		handlers.NewNotificationStore,
		handlers.NewPromoValidator,
		handlers.NewTokenResolver,
		handlers.NewDeliveryHandler,
		handlers.NewCourierHandler,
		handlers.NewMessageHandler,
		handlers.NewNotificationHandler,
		handlers.NewPromoHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		routerProvider,
		serverProvider,
		newPprofServer,
	)
}
