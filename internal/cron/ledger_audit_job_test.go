package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type fakeAuditor struct {
	mismatches []inventory.LedgerMismatch
	err        error
	calls      int
}

func (f *fakeAuditor) Audit(context.Context) ([]inventory.LedgerMismatch, error) {
	f.calls++
	return f.mismatches, f.err
}

func TestLedgerAuditJobCleanRun(t *testing.T) {
	auditor := &fakeAuditor{}
	job, err := NewLedgerAuditJob(LedgerAuditJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Auditor: auditor,
	})
	if err != nil {
		t.Fatalf("NewLedgerAuditJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if auditor.calls != 1 {
		t.Fatalf("expected one audit call, got %d", auditor.calls)
	}
}

func TestLedgerAuditJobReportsMismatch(t *testing.T) {
	auditor := &fakeAuditor{mismatches: []inventory.LedgerMismatch{{
		IngredientID: uuid.New(),
		Stored:       decimal.RequireFromString("5"),
		Replayed:     decimal.RequireFromString("3"),
	}}}
	job, err := NewLedgerAuditJob(LedgerAuditJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Auditor: auditor,
	})
	if err != nil {
		t.Fatalf("NewLedgerAuditJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestLedgerAuditJobPropagatesError(t *testing.T) {
	auditor := &fakeAuditor{err: errors.New("boom")}
	job, err := NewLedgerAuditJob(LedgerAuditJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Auditor: auditor,
	})
	if err != nil {
		t.Fatalf("NewLedgerAuditJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
