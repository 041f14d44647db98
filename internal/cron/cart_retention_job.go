package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

type staleCartDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type CartRetentionJobParams struct {
	Logger        *logger.Logger
	Carts         staleCartDeleter
	RetentionDays int
}

// NewCartRetentionJob builds a job that drops cart lines untouched for RetentionDays.
func NewCartRetentionJob(params CartRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.RetentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive")
	}
	return &cartRetentionJob{
		logg:      params.Logger,
		carts:     params.Carts,
		retention: params.RetentionDays,
		now:       time.Now,
	}, nil
}

type cartRetentionJob struct {
	logg      *logger.Logger
	carts     staleCartDeleter
	retention int
	now       func() time.Time
}

func (j *cartRetentionJob) Name() string { return "cart-retention" }

func (j *cartRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.carts.DeleteStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cart retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "cart retention complete")
	return nil
}
