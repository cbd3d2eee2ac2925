package cron

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerAuditor interface {
	Audit(ctx context.Context) ([]inventory.LedgerMismatch, error)
}

// LedgerAuditJobParams configure the scheduled ledger audit.
type LedgerAuditJobParams struct {
	Logger  *logger.Logger
	Auditor ledgerAuditor
}

// NewLedgerAuditJob builds the job that replays the transaction log against
// stored stock levels. A mismatch is reported, not repaired: the ledger is
// the source of truth and a divergence means something wrote stock outside
// the engine.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Auditor == nil {
		return nil, fmt.Errorf("auditor required")
	}
	return &ledgerAuditJob{logg: params.Logger, auditor: params.Auditor}, nil
}

type ledgerAuditJob struct {
	logg    *logger.Logger
	auditor ledgerAuditor
}

func (j *ledgerAuditJob) Name() string { return "ledger-audit" }

func (j *ledgerAuditJob) Run(ctx context.Context) error {
	mismatches, err := j.auditor.Audit(ctx)
	if err != nil {
		return fmt.Errorf("ledger audit: %w", err)
	}
	if len(mismatches) == 0 {
		j.logg.Info(ctx, "ledger audit clean")
		return nil
	}
	for _, mismatch := range mismatches {
		logCtx := j.logg.WithIngredientID(ctx, mismatch.IngredientID.String())
		logCtx = j.logg.WithFields(logCtx, map[string]any{
			"stored":   mismatch.Stored.String(),
			"replayed": mismatch.Replayed.String(),
		})
		j.logg.Error(logCtx, "stock level diverges from ledger", nil)
	}
	return fmt.Errorf("ledger audit: %d mismatched ingredients", len(mismatches))
}
