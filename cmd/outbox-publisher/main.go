// Command outbox-publisher relays committed outbox rows to Pub/Sub.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/relay"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

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
	fail := func(step string, err error) error {
		logg.Error(boot, step, err)
		return err
	}

	database, err := db.New(boot, cfg.DB, logg)
	if err != nil {
		return fail("connect database", err)
	}
	if err := migrate.MaybeRunDev(boot, cfg, logg, database); err != nil {
		_ = database.Close()
		return fail("dev migrations", err)
	}
	bus, err := pubsub.NewClient(boot, cfg.GCP, config.PubSubConfig{OrdersTopic: cfg.PubSub.OrdersTopic}, logg)
	if err != nil {
		_ = database.Close()
		return fail("connect pubsub", err)
	}
	defer func() {
		if err := multierr.Combine(bus.Close(), database.Close()); err != nil {
			logg.Error(boot, "release outbox publisher resources", err)
		}
	}()

	events, err := registry.Orders(cfg.PubSub.OrdersTopic)
	if err != nil {
		return fail("build event registry", err)
	}
	r, err := relay.New(relay.Params{
		Logger:      logg,
		DB:          database,
		Outbox:      outbox.NewRepository(database.DB()),
		DeadLetters: outbox.NewDLQRepository(database.DB()),
		Registry:    events,
		Sink:        bus,
		Metrics:     metrics.NewWorkerMetrics(prometheus.DefaultRegisterer),
		Options: relay.Options{
			BatchSize:    cfg.Outbox.BatchSize,
			MaxAttempts:  cfg.Outbox.MaxAttempts,
			PollInterval: time.Duration(cfg.Outbox.PollIntervalMS) * time.Millisecond,
		},
	})
	if err != nil {
		return fail("build relay", err)
	}

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(serviceKind),
		"serviceKind": serviceKind,
		"topic":       cfg.PubSub.OrdersTopic,
	})
	logg.Info(ctx, "outbox publisher started")

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fail("outbox publisher stopped", err)
	}
	logg.Info(ctx, "outbox publisher stopped")
	return nil
}
