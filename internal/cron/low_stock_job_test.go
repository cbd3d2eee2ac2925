package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/smartkitchen/smartkitchen-backend/internal/alerts"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type fakeAlertPublisher struct {
	report *alerts.LowStockReport
	err    error
	calls  int
}

func (f *fakeAlertPublisher) PublishAlerts(context.Context) (*alerts.LowStockReport, error) {
	f.calls++
	return f.report, f.err
}

func TestLowStockJobRuns(t *testing.T) {
	publisher := &fakeAlertPublisher{report: &alerts.LowStockReport{
		OutOfStock:   []alerts.LowStockItem{{Name: "Flour"}},
		BelowMinimum: []alerts.LowStockItem{},
	}}
	job, err := NewLowStockJob(LowStockJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Alerts: publisher,
	})
	if err != nil {
		t.Fatalf("NewLowStockJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if publisher.calls != 1 {
		t.Fatalf("expected one publish call, got %d", publisher.calls)
	}
}

func TestLowStockJobPropagatesError(t *testing.T) {
	publisher := &fakeAlertPublisher{err: errors.New("boom")}
	job, err := NewLowStockJob(LowStockJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Alerts: publisher,
	})
	if err != nil {
		t.Fatalf("NewLowStockJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
