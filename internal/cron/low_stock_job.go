package cron

import (
	"context"
	"fmt"

	"github.com/smartkitchen/smartkitchen-backend/internal/alerts"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type alertPublisher interface {
	PublishAlerts(ctx context.Context) (*alerts.LowStockReport, error)
}

// LowStockJobParams configure the scheduled low-stock scan.
type LowStockJobParams struct {
	Logger *logger.Logger
	Alerts alertPublisher
}

// NewLowStockJob builds the job that scans stock levels and queues
// low_stock events for every ingredient at or below its threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Alerts == nil {
		return nil, fmt.Errorf("alerts service required")
	}
	return &lowStockJob{logg: params.Logger, alerts: params.Alerts}, nil
}

type lowStockJob struct {
	logg   *logger.Logger
	alerts alertPublisher
}

func (j *lowStockJob) Name() string { return "low-stock-scan" }

func (j *lowStockJob) Run(ctx context.Context) error {
	report, err := j.alerts.PublishAlerts(ctx)
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"out_of_stock":  len(report.OutOfStock),
		"below_minimum": len(report.BelowMinimum),
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return nil
}
