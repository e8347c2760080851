// Command analytics-worker records order events from Pub/Sub in BigQuery.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/analytics"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceKind = "analytics-worker"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	boot := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceKind}).Error(boot, "load config", err)
		return err
	}
	cfg.Service.Kind = serviceKind
	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var closers []func() error
	defer func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		if errs != nil {
			logg.Error(boot, "release analytics worker resources", errs)
		}
	}()
	fail := func(step string, err error) error {
		logg.Error(boot, step, err)
		return err
	}

	claims, err := redis.New(boot, cfg.Redis, logg)
	if err != nil {
		return fail("connect redis", err)
	}
	closers = append(closers, claims.Close)

	bus, err := pubsub.NewClient(boot, cfg.GCP, config.PubSubConfig{OrdersSubscription: cfg.PubSub.OrdersSubscription}, logg)
	if err != nil {
		return fail("connect pubsub", err)
	}
	closers = append(closers, bus.Close)

	warehouse, err := bigquery.NewClient(boot, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fail("connect bigquery", err)
	}
	closers = append(closers, warehouse.Close)

	events, err := registry.Orders(cfg.PubSub.OrdersTopic)
	if err != nil {
		return fail("build event registry", err)
	}
	facts, err := analytics.NewFactWriter(warehouse)
	if err != nil {
		return fail("build fact writer", err)
	}
	consumer, err := analytics.NewConsumer(analytics.ConsumerParams{
		Logger:   logg,
		Decoder:  events,
		Facts:    facts,
		Claims:   claims,
		ClaimTTL: cfg.Eventing.IdempotencyTTL,
		Metrics:  metrics.NewWorkerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fail("build consumer", err)
	}

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"instance":     instance.GetID(serviceKind),
		"serviceKind":  serviceKind,
		"subscription": cfg.PubSub.OrdersSubscription,
	})
	logg.Info(ctx, "analytics worker started")

	if err := consumer.Run(ctx, bus); err != nil && !errors.Is(err, context.Canceled) {
		return fail("analytics worker stopped", err)
	}
	logg.Info(ctx, "analytics worker stopped")
	return nil
}
