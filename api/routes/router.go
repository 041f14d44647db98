package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/wholesale-storefront/api/controllers"
	"github.com/angelmondragon/wholesale-storefront/api/middleware"
	"github.com/angelmondragon/wholesale-storefront/internal/cart"
	"github.com/angelmondragon/wholesale-storefront/internal/checkout"
	"github.com/angelmondragon/wholesale-storefront/internal/orders"
	product "github.com/angelmondragon/wholesale-storefront/internal/products"
	"github.com/angelmondragon/wholesale-storefront/internal/wholesale"
	"github.com/angelmondragon/wholesale-storefront/pkg/config"
	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
	"github.com/angelmondragon/wholesale-storefront/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs for idempotency and rate limiting.
type RedisStore interface {
	redis.IdempotencyStore
	redis.Pinger
	middleware.RateLimitStore
}

type httpObserver interface {
	Observe(route, method string, status int, elapsed time.Duration)
}

// Dependencies groups everything the router wires into handlers.
type Dependencies struct {
	DB          db.Pinger
	Redis       RedisStore
	Users       middleware.UserProvisioner
	Products    product.Service
	Cart        cart.Service
	Checkout    checkout.Service
	Orders      orders.Service
	Wholesale   wholesale.Service
	Gatherer    prometheus.Gatherer
	HTTPMetrics httpObserver
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessDeps(deps), logg))
	})

	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	var idempotencyStore redis.IdempotencyStore
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
	}
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.Checkout.RateLimitWindow, cfg.Checkout.RateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Users, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.With(middleware.UserRateLimit(checkoutPolicy, rateLimiter(deps), logg)).
			Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(deps.Orders, logg))
		})

		r.Route("/wholesale/applications", func(r chi.Router) {
			r.Post("/", controllers.WholesaleApply(deps.Wholesale, logg))
			r.Get("/me", controllers.WholesaleMyApplication(deps.Wholesale, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Users, logg))
		r.Use(middleware.RequireAdmin(cfg.Admin, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/orders", controllers.AdminListOrders(deps.Orders, logg))
		r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
		r.Post("/wholesale/applications/{applicationId}/review", controllers.AdminReviewApplication(deps.Wholesale, logg))
	})

	return r
}

func readinessDeps(deps Dependencies) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["db"] = deps.DB
	}
	if deps.Redis != nil {
		out["redis"] = deps.Redis
	}
	return out
}

func rateLimiter(deps Dependencies) middleware.RateLimitStore {
	if deps.Redis == nil {
		return nil
	}
	return deps.Redis
}
