// Command cron-worker prunes published outbox rows and old dead letters.
// With -once it works a single cycle and exits, for use from a scheduler
// such as a Kubernetes CronJob.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	once := flag.Bool("once", false, "work one cycle and exit")
	flag.Parse()
	if err := run(*once); err != nil {
		os.Exit(1)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return "storefront:" + serviceKind + ":lock:" + env
}

func run(once bool) error {
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
	cache, err := redis.New(boot, cfg.Redis, logg)
	if err != nil {
		_ = database.Close()
		return fail("connect redis", err)
	}
	defer func() {
		if err := multierr.Combine(cache.Close(), database.Close()); err != nil {
			logg.Error(boot, "release cron worker resources", err)
		}
	}()

	lock, err := cron.NewRedisLock(cache, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return fail("build cron lock", err)
	}
	outboxJob, err := cron.NewOutboxRetentionJob(logg, database, outbox.NewRepository(database.DB()), cfg.Cron.OutboxRetention)
	if err != nil {
		return fail("build outbox retention job", err)
	}
	dlqJob, err := cron.NewDLQRetentionJob(logg, database, outbox.NewDLQRepository(database.DB()), cfg.Cron.DLQRetention)
	if err != nil {
		return fail("build dlq retention job", err)
	}
	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   logg,
		Lock:     lock,
		Jobs:     []cron.Job{outboxJob, dlqJob},
		Metrics:  metrics.NewWorkerMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fail("build scheduler", err)
	}

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID(serviceKind),
		"serviceKind": serviceKind,
		"interval":    cfg.Cron.Interval.String(),
	})

	if once {
		if err := scheduler.RunOnce(ctx); err != nil {
			return fail("cron cycle", err)
		}
		return nil
	}
	logg.Info(ctx, "cron worker started")
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fail("cron worker stopped", err)
	}
	logg.Info(ctx, "cron worker stopped")
	return nil
}
