package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
	"github.com/smartkitchen/smartkitchen-backend/pkg/metrics"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox/payloads"
	"github.com/smartkitchen/smartkitchen-backend/pkg/pagination"
)

// Service exposes manual stock movement and ledger queries.
type Service interface {
	AdjustStock(ctx context.Context, input AdjustStockInput) (*models.StockTransaction, error)
	GetLevel(ctx context.Context, ingredientID uuid.UUID) (*models.StockLevel, error)
	ListLevels(ctx context.Context) ([]models.StockLevel, error)
	History(ctx context.Context, filter ListTransactionsFilter) ([]models.StockTransaction, error)
	HistoryPage(ctx context.Context, filter ListTransactionsFilter, page pagination.Params) (*HistoryPage, error)
}

// HistoryPage is one cursor-paginated slice of the transaction log.
type HistoryPage struct {
	Entries    []models.StockTransaction `json:"entries"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}

// AdjustStockInput is one manual stock movement request. Quantity carries the
// magnitude; the kind determines the direction, except ADJUSTMENT which is
// applied as signed.
type AdjustStockInput struct {
	IngredientID uuid.UUID
	Kind         enums.TransactionKind
	Quantity     decimal.Decimal
	Note         *string
	ActorID      uuid.UUID
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	client  txRunner
	events  *outbox.Service
	logg    *logger.Logger
	metrics *metrics.InventoryMetrics
}

// NewService wires the inventory service with its collaborators.
func NewService(repo Repository, client txRunner, events *outbox.Service, logg *logger.Logger, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, errors.New("inventory repository required")
	}
	if client == nil {
		return nil, errors.New("db client required")
	}
	if events == nil {
		return nil, errors.New("outbox service required")
	}
	return &service{repo: repo, client: client, events: events, logg: logg, metrics: m}, nil
}

// AdjustStock applies one manual stock movement atomically: lock the level
// row, apply the guarded delta, append the ledger entry, queue the event.
// USAGE is reserved for order confirmation and rejected here.
func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) (*models.StockTransaction, error) {
	delta, err := normalizeDelta(input.Kind, input.Quantity)
	if err != nil {
		return nil, err
	}
	if input.IngredientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	var entry *models.StockTransaction
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		levels, err := repo.LockLevels(ctx, []uuid.UUID{input.IngredientID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock stock level")
		}
		if len(levels) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "stock level not found")
		}
		current := levels[0].Quantity

		balanceAfter := current.Add(delta)
		if balanceAfter.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"ingredient_id": input.IngredientID.String(),
					"available":     current.String(),
					"requested":     delta.Neg().String(),
				})
		}

		applied, err := repo.ApplyDelta(ctx, input.IngredientID, delta)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply stock delta")
		}
		if !applied {
			// The row was locked above, so a rejected guard means the
			// balance check and the update disagree.
			return pkgerrors.New(pkgerrors.CodeInvariantViolation, "stock delta rejected by guard")
		}

		if input.Kind == enums.TransactionKindRestock {
			if err := repo.TouchRestocked(ctx, input.IngredientID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: touch last_restocked")
			}
		}

		entry = &models.StockTransaction{
			IngredientID: input.IngredientID,
			Kind:         input.Kind,
			Quantity:     delta,
			BalanceAfter: balanceAfter,
			Note:         input.Note,
			ActorID:      input.ActorID,
		}
		if err := repo.AppendTransaction(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append transaction")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateIngredient,
			AggregateID:   input.IngredientID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Version:       1,
			Data: payloads.StockAdjustedEvent{
				IngredientID: input.IngredientID,
				Kind:         input.Kind,
				Quantity:     delta,
				BalanceAfter: balanceAfter,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAdjustment(input.Kind.String())
	if s.logg != nil {
		logCtx := s.logg.WithIngredientID(ctx, input.IngredientID.String())
		logCtx = s.logg.WithField(logCtx, "kind", input.Kind.String())
		s.logg.Info(logCtx, "stock adjusted")
	}
	return entry, nil
}

func (s *service) GetLevel(ctx context.Context, ingredientID uuid.UUID) (*models.StockLevel, error) {
	if ingredientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}
	level, err := s.repo.GetLevel(ctx, ingredientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock level not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock level")
	}
	return level, nil
}

func (s *service) ListLevels(ctx context.Context) ([]models.StockLevel, error) {
	levels, err := s.repo.ListAllLevels(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list stock levels")
	}
	return levels, nil
}

func (s *service) History(ctx context.Context, filter ListTransactionsFilter) ([]models.StockTransaction, error) {
	rows, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list transactions")
	}
	return rows, nil
}

// HistoryPage walks the log forward from an opaque cursor. The cursor encodes
// (created_at, id) of the last row returned, so pages stay stable while new
// entries are appended.
func (s *service) HistoryPage(ctx context.Context, filter ListTransactionsFilter, page pagination.Params) (*HistoryPage, error) {
	cursor, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(page.Limit)
	rows, err := s.repo.ListTransactionsAfter(ctx, filter, cursor, pagination.LimitWithBuffer(page.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: page transactions")
	}

	result := &HistoryPage{Entries: rows}
	if len(rows) > limit {
		result.Entries = rows[:limit]
		last := result.Entries[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

// normalizeDelta maps a movement kind and magnitude to a signed delta.
func normalizeDelta(kind enums.TransactionKind, quantity decimal.Decimal) (decimal.Decimal, error) {
	switch kind {
	case enums.TransactionKindRestock, enums.TransactionKindReturn:
		if !quantity.IsPositive() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		return quantity, nil
	case enums.TransactionKindWaste:
		if !quantity.IsPositive() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		return quantity.Neg(), nil
	case enums.TransactionKindAdjustment:
		if quantity.IsZero() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be zero")
		}
		return quantity, nil
	case enums.TransactionKindUsage:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "usage entries are recorded by order confirmation")
	default:
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction kind")
	}
}
