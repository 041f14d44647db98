package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/wholesale-storefront/internal/catalog"
	"github.com/angelmondragon/wholesale-storefront/pkg/logger"
)

const maxReportedLowStockItems = 20

type lowStockLister interface {
	ListLowStock(ctx context.Context, threshold int) ([]catalog.LowStockItem, error)
}

type lowStockGauge interface {
	SetLowStock(count int)
}

type LowStockJobParams struct {
	Logger    *logger.Logger
	Catalog   lowStockLister
	Gauge     lowStockGauge
	Threshold int
}

// NewLowStockJob builds a read-only job that reports sellable stock at or below the
// threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative")
	}
	return &lowStockJob{
		logg:      params.Logger,
		catalog:   params.Catalog,
		gauge:     params.Gauge,
		threshold: params.Threshold,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	catalog   lowStockLister
	gauge     lowStockGauge
	threshold int
}

func (j *lowStockJob) Name() string { return "low-stock-report" }

func (j *lowStockJob) Run(ctx context.Context) error {
	items, err := j.catalog.ListLowStock(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("low stock report: %w", err)
	}
	if j.gauge != nil {
		j.gauge.SetLowStock(len(items))
	}
	if len(items) == 0 {
		return nil
	}

	reported := items
	if len(reported) > maxReportedLowStockItems {
		reported = reported[:maxReportedLowStockItems]
	}
	skus := make([]string, 0, len(reported))
	for _, item := range reported {
		skus = append(skus, fmt.Sprintf("%s=%d", item.SKU, item.Stock))
	}
	j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
		"threshold": j.threshold,
		"count":     len(items),
		"skus":      skus,
	}), "inventory below threshold")
	return nil
}
