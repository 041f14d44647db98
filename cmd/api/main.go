package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/wholesale-storefront/api/routes"
	"github.com/angelmondragon/wholesale-storefront/internal/cart"
	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/checkout"
	"github.com/angelmondragon/wholesale-storefront/internal/orders"
	"github.com/angelmondragon/wholesale-storefront/internal/pricing"
	product "github.com/angelmondragon/wholesale-storefront/internal/products"
	"github.com/angelmondragon/wholesale-storefront/internal/users"
	"github.com/angelmondragon/wholesale-storefront/internal/wholesale"
	"github.com/angelmondragon/wholesale-storefront/pkg/config"
	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
	"github.com/angelmondragon/wholesale-storefront/pkg/metrics"
	"github.com/angelmondragon/wholesale-storefront/pkg/migrate"
	"github.com/angelmondragon/wholesale-storefront/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDependencies(cfg, logg, dbClient, registry)
	if err != nil {
		return err
	}
	deps.Redis = redisClient

	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logCtx := logg.WithField(ctx, "addr", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, registry *prometheus.Registry) (routes.Dependencies, error) {
	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	wholesaleRepo := wholesale.NewRepository(conn)
	engine := pricing.NewEngine(cfg.Checkout.TaxRate)

	var checkoutMetrics *metrics.CheckoutMetrics
	var httpMetrics *metrics.HTTPMetrics
	if cfg.Metrics.Enabled {
		checkoutMetrics = metrics.NewCheckoutMetrics(registry)
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	wholesaleSvc, err := wholesale.NewService(dbClient, wholesaleRepo, usersRepo, cfg.Wholesale, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	productSvc, err := product.NewService(catalogRepo, wholesaleSvc, engine)
	if err != nil {
		return routes.Dependencies{}, err
	}
	cartSvc, err := cart.NewService(cartRepo, catalogRepo, wholesaleSvc, engine, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		UnitOfWork: dbClient,
		Cart:       cartRepo,
		Catalog:    catalogRepo,
		Orders:     ordersRepo,
		Wholesale:  wholesaleRepo,
		Pricing:    wholesaleSvc,
		Engine:     engine,
		Currency:   cfg.Checkout.Currency,
		Metrics:    checkoutMetrics,
		Logger:     logg,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}
	ordersSvc, err := orders.NewService(ordersRepo, logg)
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:          dbClient,
		Users:       usersRepo,
		Products:    productSvc,
		Cart:        cartSvc,
		Checkout:    checkoutSvc,
		Orders:      ordersSvc,
		Wholesale:   wholesaleSvc,
		Gatherer:    registry,
		HTTPMetrics: httpMetrics,
	}, nil
}
