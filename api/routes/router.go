package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// KeyValueStore backs request idempotency and auth rate limiting.
type KeyValueStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Catalog catalog.Service
	Users   users.Service
	Cart    cart.Service
	Orders  orders.Service
}

// Observability carries the metrics collectors and readiness checks.
type Observability struct {
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Readiness   []controllers.Dependency
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store KeyValueStore,
	svcs Services,
	obs Observability,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(obs.HTTPMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	limits := cfg.AuthRateLimit
	login := middleware.Throttle{Name: "login", Window: limits.LoginWindow, PerIP: limits.LoginIPLimit, PerEmail: limits.LoginEmailLimit}
	register := middleware.Throttle{Name: "register", Window: limits.RegisterWindow, PerIP: limits.RegisterIPLimit, PerEmail: limits.RegisterEmailLimit}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, obs.Readiness...))
	})

	if obs.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(svcs.Catalog, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(svcs.Catalog, logg))
		r.Get("/categories", controllers.CategoryList(svcs.Catalog, logg))
		r.Get("/home", controllers.HomeFeed(svcs.Catalog, logg))

		r.With(middleware.RateLimit(register, store, logg)).Post("/users/register", controllers.UserRegister(svcs.Users, logg))
		r.With(middleware.RateLimit(login, store, logg)).Post("/users/login", controllers.UserLogin(svcs.Users, logg))

		// Inline groups keep middleware after route matching so the
		// idempotency rules see the full route pattern.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(store, cfg.Eventing.RequestKeyTTL, logg))

			r.Get("/users/profile", controllers.UserProfile(svcs.Users, logg))
			r.Put("/users/profile", controllers.UserUpdateProfile(svcs.Users, logg))

			r.Get("/cart", cartcontrollers.CartFetch(svcs.Cart, logg))
			r.Delete("/cart", cartcontrollers.CartClear(svcs.Cart, logg))
			r.Post("/cart/items", cartcontrollers.CartAddItem(svcs.Cart, logg))
			r.Put("/cart/items/{productId}", cartcontrollers.CartSetQuantity(svcs.Cart, logg))
			r.Post("/cart/items/{productId}/decrement", cartcontrollers.CartDecrement(svcs.Cart, logg))
			r.Delete("/cart/items/{productId}", cartcontrollers.CartRemoveItem(svcs.Cart, logg))

			r.Get("/orders", ordercontrollers.List(svcs.Orders, logg))
			r.Post("/orders", ordercontrollers.Create(svcs.Orders, logg))
			r.Post("/orders/checkout", ordercontrollers.Checkout(svcs.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(svcs.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

			r.Post("/admin/products", controllers.AdminCreateProduct(svcs.Catalog, logg))
			r.Put("/admin/products/{productId}", controllers.AdminUpdateProduct(svcs.Catalog, logg))
			r.Delete("/admin/products/{productId}", controllers.AdminDeleteProduct(svcs.Catalog, logg))
			r.Put("/admin/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(svcs.Orders, logg))
		})
	})

	return r
}
