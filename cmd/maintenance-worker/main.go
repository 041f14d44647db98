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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/wholesale-storefront/internal/cart"
	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/internal/cron"
	"github.com/angelmondragon/wholesale-storefront/pkg/config"
	"github.com/angelmondragon/wholesale-storefront/pkg/db"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
	"github.com/angelmondragon/wholesale-storefront/pkg/metrics"
	"github.com/angelmondragon/wholesale-storefront/pkg/migrate"
	"github.com/angelmondragon/wholesale-storefront/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "maintenance worker stopped unexpectedly", err)
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
	var jobMetrics *metrics.JobMetrics
	var inventory *metrics.InventoryMetrics
	if cfg.Metrics.Enabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		jobMetrics = metrics.NewJobMetrics(registry)
		inventory = metrics.NewInventoryMetrics(registry)
	}

	jobs, err := buildJobs(cfg, logg, dbClient, inventory)
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("maintenance", lockEnv(cfg.App.Env)), cfg.Maintenance.LockTTL)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"interval": cfg.Maintenance.Interval.String(),
		"jobs":     len(jobs),
	})

	if cfg.Metrics.Enabled {
		server := &http.Server{
			Addr:              cfg.Metrics.WorkerAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics server failed", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = multierr.Append(err, server.Shutdown(shutdownCtx))
		}()
	}

	logg.Info(ctx, "starting maintenance worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "maintenance worker shutting down gracefully")
	return nil
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, inventory *metrics.InventoryMetrics) ([]cron.Job, error) {
	conn := dbClient.DB()
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:    logg,
		Catalog:   catalog.NewRepository(conn),
		Gauge:     inventory,
		Threshold: cfg.Maintenance.LowStockThreshold,
	})
	if err != nil {
		return nil, err
	}
	jobs := []cron.Job{lowStock}

	if cfg.Maintenance.CartRetentionDays > 0 {
		retention, err := cron.NewCartRetentionJob(cron.CartRetentionJobParams{
			Logger:        logg,
			Carts:         cart.NewRepository(conn),
			RetentionDays: cfg.Maintenance.CartRetentionDays,
		})
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, retention)
	}
	return jobs, nil
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
