package app

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"courier-dispatch/internal/config"
	"courier-dispatch/internal/logx"
	"courier-dispatch/internal/service/dispatch"
	"courier-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the background worker: the courier location consumer and
// the expired-search sweep.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

func workerRun(
	ctx context.Context,
	cfg *config.Config,
	pool *pgxpool.Pool,
	logger logx.Logger,
	consumer *kafka.Consumer,
	dispatcher *dispatch.Dispatcher,
) error {
	defer closeWorker(pool, logger, consumer)

	logger.Info("dispatch worker started",
		logx.Duration("sweep_interval", cfg.Dispatch.SweepInterval),
	)

	go sweepExpiredSearches(ctx, dispatcher, cfg.Dispatch.SweepInterval, logger)

	if consumer == nil {
		logger.Warn("kafka not configured, location consumer disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	return consumer.Run(ctx)
}

// sweepExpiredSearches periodically cancels deliveries whose courier search
// outlived the configured timeout.
func sweepExpiredSearches(ctx context.Context, d *dispatch.Dispatcher, every time.Duration, logger logx.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.ExpireSearches(ctx)
			if err != nil {
				logger.Error("search sweep failed", logx.Any("err", err))
				continue
			}
			if n > 0 {
				logger.Info("expired courier searches", logx.Int("count", n))
			}
		}
	}
}

func closeWorker(pool *pgxpool.Pool, logger logx.Logger, consumer *kafka.Consumer) {
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka close error", logx.Any("err", err))
		}
	}
	if pool != nil {
		pool.Close()
	}
}
