package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/mongodb"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	readiness := []controllers.Dependency{
		{Name: "database", Ping: dbClient.Ping},
		{Name: "redis", Ping: redisClient.Ping},
	}
	closers := []func(context.Context) error{
		func(context.Context) error { return dbClient.Close() },
		func(context.Context) error { return redisClient.Close() },
	}

	var productRepo catalog.Repository
	switch cfg.FeatureFlags.CatalogBackend {
	case config.CatalogBackendMongo:
		mongoClient, err := mongodb.New(ctx, cfg.Mongo, logg)
		requireResource(ctx, logg, "mongodb", err)
		readiness = append(readiness, controllers.Dependency{Name: "mongodb", Ping: mongoClient.Ping})
		closers = append(closers, mongoClient.Close)
		productRepo = catalog.NewMongoRepository(mongoClient.ProductCollection())
	case config.CatalogBackendMemory:
		productRepo = catalog.NewMemoryRepository(catalog.SeedProducts())
	default:
		productRepo = catalog.NewGormRepository(dbClient.DB())
	}

	shipping, err := decimal.NewFromString(cfg.Cart.Shipping)
	if err != nil {
		requireResource(ctx, logg, "cart shipping charge", fmt.Errorf("parse %q: %w", cfg.Cart.Shipping, err))
	}

	catalogService, err := catalog.NewService(productRepo)
	requireResource(ctx, logg, "catalog service", err)

	usersService, err := users.NewService(users.ServiceParams{
		Repository:     users.NewRepository(dbClient.DB()),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "users service", err)

	cartService, err := cart.NewService(cart.NewRedisStore(redisClient, cfg.Cart.TTL), catalogService, shipping)
	requireResource(ctx, logg, "cart service", err)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repository: orders.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Products:   catalogService,
		Cart:       cartService,
		Shipping:   shipping,
		Metrics:    metrics.NewOrderMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	requireResource(ctx, logg, "orders service", err)

	handler := routes.NewRouter(cfg, logg, redisClient, routes.Services{
		Catalog: catalogService,
		Users:   usersService,
		Cart:    cartService,
		Orders:  ordersService,
	}, routes.Observability{
		HTTPMetrics: metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer:    prometheus.DefaultGatherer,
		Readiness:   readiness,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"instance":        instance.GetID("api"),
		"catalog_backend": string(cfg.FeatureFlags.CatalogBackend),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-runCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	for i := len(closers) - 1; i >= 0; i-- {
		shutdownErr = multierr.Append(shutdownErr, closers[i](shutdownCtx))
	}
	if shutdownErr != nil {
		logg.Error(runCtx, "error during shutdown", shutdownErr)
		exitCode = 1
	}

	logg.Info(runCtx, "api server stopped")
	if exitCode != 0 {
		stop()
		cancel()
		os.Exit(exitCode)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
