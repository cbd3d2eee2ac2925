package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
)

// LedgerMismatch is one ingredient whose stored level disagrees with the
// replayed transaction log.
type LedgerMismatch struct {
	IngredientID uuid.UUID
	Stored       decimal.Decimal
	Replayed     decimal.Decimal
}

func (m LedgerMismatch) Error() string {
	return fmt.Sprintf("ledger mismatch for ingredient %s: stored %s, replayed %s",
		m.IngredientID, m.Stored, m.Replayed)
}

// Auditor replays the transaction log against stored stock levels.
type Auditor struct {
	repo Repository
}

// NewAuditor builds a ledger auditor over the stock repository.
func NewAuditor(repo Repository) *Auditor {
	return &Auditor{repo: repo}
}

// Audit replays every ingredient's transaction history and compares the final
// sum with the stored stock level. Mismatches are aggregated so one bad
// ingredient does not hide the rest.
func (a *Auditor) Audit(ctx context.Context) ([]LedgerMismatch, error) {
	levels, err := a.repo.ListAllLevels(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list stock levels")
	}

	var mismatches []LedgerMismatch
	var errs error
	for _, level := range levels {
		replayed, rerr := a.replay(ctx, level.IngredientID)
		if rerr != nil {
			errs = multierr.Append(errs, rerr)
			continue
		}
		if !replayed.Equal(level.Quantity) {
			mismatches = append(mismatches, LedgerMismatch{
				IngredientID: level.IngredientID,
				Stored:       level.Quantity,
				Replayed:     replayed,
			})
		}
	}
	return mismatches, errs
}

func (a *Auditor) replay(ctx context.Context, ingredientID uuid.UUID) (decimal.Decimal, error) {
	rows, err := a.repo.ListTransactions(ctx, ListTransactionsFilter{IngredientID: &ingredientID})
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replay transactions")
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Quantity)
	}
	// Running balances must agree with the deltas row by row.
	if len(rows) > 0 {
		running := decimal.Zero
		for _, row := range rows {
			running = running.Add(row.Quantity)
			if !running.Equal(row.BalanceAfter) {
				return decimal.Zero, fmt.Errorf(
					"transaction %s for ingredient %s records balance %s, replay says %s",
					row.ID, ingredientID, row.BalanceAfter, running)
			}
		}
	}
	return total, nil
}
