package orders

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
	"github.com/smartkitchen/smartkitchen-backend/pkg/metrics"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox"
	"github.com/smartkitchen/smartkitchen-backend/pkg/outbox/payloads"
)

// maxConfirmAttempts bounds retries when Postgres reports a serialization
// or deadlock failure during confirmation.
const maxConfirmAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service coordinates order confirmation against stock. Confirmation is the
// only path allowed to write USAGE ledger entries.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ConfirmAndDeduct(ctx context.Context, input ConfirmInput) (*DeductionReceipt, error)
	ReleaseConfirmed(ctx context.Context, input ReleaseInput) (*ReleaseReceipt, error)
}

// CreateOrderInput seeds an order snapshot from the ordering system.
type CreateOrderInput struct {
	Items []OrderItemInput
	Note  *string
}

// OrderItemInput is one dish line on an incoming order.
type OrderItemInput struct {
	DishID   uuid.UUID
	Quantity int
}

// ConfirmInput identifies the order to confirm and who asked for it.
type ConfirmInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
}

// ReleaseInput identifies a confirmed order whose stock should be returned.
type ReleaseInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Reason  string
}

// DeductionReceipt summarizes what a confirmation deducted. Replayed is true
// when the order was already confirmed and the stored ledger was returned
// instead of deducting again.
type DeductionReceipt struct {
	OrderID     uuid.UUID                    `json:"order_id"`
	Lines       []payloads.StockMovementLine `json:"lines"`
	ConfirmedAt time.Time                    `json:"confirmed_at"`
	Replayed    bool                         `json:"replayed"`
}

// ReleaseReceipt summarizes the compensating returns for a released order.
type ReleaseReceipt struct {
	OrderID    uuid.UUID                    `json:"order_id"`
	Lines      []payloads.StockMovementLine `json:"lines"`
	ReleasedAt time.Time                    `json:"released_at"`
	Replayed   bool                         `json:"replayed"`
}

type service struct {
	repo    Repository
	stock   inventory.Repository
	recipes recipes.Repository
	client  txRunner
	events  *outbox.Service
	logg    *logger.Logger
	metrics *metrics.InventoryMetrics
}

// NewService wires the deduction coordinator with its collaborators.
func NewService(repo Repository, stock inventory.Repository, recipeRepo recipes.Repository, client txRunner, events *outbox.Service, logg *logger.Logger, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if stock == nil {
		return nil, errors.New("inventory repository required")
	}
	if recipeRepo == nil {
		return nil, errors.New("recipes repository required")
	}
	if client == nil {
		return nil, errors.New("db client required")
	}
	if events == nil {
		return nil, errors.New("outbox service required")
	}
	return &service{
		repo:    repo,
		stock:   stock,
		recipes: recipeRepo,
		client:  client,
		events:  events,
		logg:    logg,
		metrics: m,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	order := &models.Order{Status: enums.OrderStatusPending, Note: input.Note}
	for _, item := range input.Items {
		if item.DishID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "dish id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		order.Items = append(order.Items, models.OrderItem{DishID: item.DishID, Quantity: item.Quantity})
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		recipeRepo := s.recipes.WithTx(tx)
		for _, item := range order.Items {
			if _, err := recipeRepo.GetDish(ctx, item.DishID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown dish on order").
						WithDetails(map[string]any{"dish_id": item.DishID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load dish")
			}
		}
		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.GetWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

// ConfirmAndDeduct deducts every ingredient an order requires in one
// transaction, or deducts nothing. Re-confirming an already confirmed order
// replays the stored receipt without touching stock. Serialization failures
// are retried a bounded number of times before surfacing as a conflict.
func (s *service) ConfirmAndDeduct(ctx context.Context, input ConfirmInput) (*DeductionReceipt, error) {
	started := time.Now()
	receipt, err := s.confirmWithRetry(ctx, input)
	s.metrics.ObserveConfirmation(confirmOutcome(receipt, err), time.Since(started))
	return receipt, err
}

func (s *service) confirmWithRetry(ctx context.Context, input ConfirmInput) (*DeductionReceipt, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	var lastErr error
	for attempt := 1; attempt <= maxConfirmAttempts; attempt++ {
		receipt, err := s.confirmOnce(ctx, input)
		if err == nil {
			return receipt, nil
		}
		if !pkgerrors.IsSerializationFailure(err) {
			return nil, err
		}
		lastErr = err
		s.metrics.IncLockRetry()
		logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
		logCtx = s.logg.WithField(logCtx, "attempt", attempt)
		s.logg.Warn(logCtx, "order confirmation retrying after serialization failure")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "order confirmation contention not resolved")
}

func (s *service) confirmOnce(ctx context.Context, input ConfirmInput) (*DeductionReceipt, error) {
	var receipt *DeductionReceipt
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		stockRepo := s.stock.WithTx(tx)

		order, err := orderRepo.LockForConfirmation(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock order")
		}

		switch order.Status {
		case enums.OrderStatusPending:
			// fall through to deduction
		case enums.OrderStatusConfirmed:
			replayed, err := s.replayReceipt(ctx, stockRepo, order.ID)
			if err != nil {
				return err
			}
			receipt = replayed
			return nil
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		required, err := s.aggregateRequirements(ctx, tx, order)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		lines, err := s.deduct(ctx, stockRepo, order.ID, input.ActorID, required)
		if err != nil {
			return err
		}

		if err := orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusConfirmed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: confirm order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStockDeducted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID, Role: "coordinator"},
			Data: payloads.StockDeductedEvent{
				OrderID:     order.ID,
				Lines:       lines,
				ConfirmedAt: now,
			},
			OccurredAt: now,
		}
		if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}

		receipt = &DeductionReceipt{OrderID: order.ID, Lines: lines, ConfirmedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, receipt.OrderID.String())
	if receipt.Replayed {
		s.logg.Info(logCtx, "order confirmation replayed")
	} else {
		logCtx = s.logg.WithField(logCtx, "lines", len(receipt.Lines))
		s.logg.Info(logCtx, "order confirmed and stock deducted")
	}
	return receipt, nil
}

// aggregateRequirements folds every order item's recipe into one requirement
// per ingredient, so a dish appearing on two lines locks its rows once.
func (s *service) aggregateRequirements(ctx context.Context, tx *gorm.DB, order *models.Order) (map[uuid.UUID]decimal.Decimal, error) {
	recipeRepo := s.recipes.WithTx(tx)
	required := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range order.Items {
		recipe, err := recipeRepo.RecipeItemsFor(ctx, item.DishID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load recipe")
		}
		servings := decimal.NewFromInt(int64(item.Quantity))
		for _, line := range recipe {
			if line.Ingredient != nil && !line.Ingredient.IsActive {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "recipe uses an inactive ingredient").
					WithDetails(map[string]any{
						"dish_id":       item.DishID.String(),
						"ingredient_id": line.IngredientID.String(),
					})
			}
			required[line.IngredientID] = required[line.IngredientID].Add(line.Quantity.Mul(servings))
		}
	}
	return required, nil
}

// deduct locks the affected stock rows, verifies every requirement against
// the locked snapshot, and only then applies the deltas and ledger entries.
func (s *service) deduct(ctx context.Context, stockRepo inventory.Repository, orderID, actorID uuid.UUID, required map[uuid.UUID]decimal.Decimal) ([]payloads.StockMovementLine, error) {
	if len(required) == 0 {
		return []payloads.StockMovementLine{}, nil
	}

	ids := make([]uuid.UUID, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	levels, err := stockRepo.LockLevels(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock stock levels")
	}
	if len(levels) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "stock level missing for recipe ingredient")
	}

	available := make(map[uuid.UUID]decimal.Decimal, len(levels))
	catalog := make(map[uuid.UUID]*models.Ingredient, len(levels))
	for _, level := range levels {
		available[level.IngredientID] = level.Quantity
		catalog[level.IngredientID] = level.Ingredient
	}

	var shortfalls []map[string]any
	for _, id := range ids {
		if available[id].LessThan(required[id]) {
			entry := map[string]any{
				"ingredient_id": id.String(),
				"available":     available[id].String(),
				"required":      required[id].String(),
			}
			if ing := catalog[id]; ing != nil {
				entry["name"] = ing.Name
				entry["unit"] = ing.Unit.String()
			}
			shortfalls = append(shortfalls, entry)
		}
	}
	if len(shortfalls) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for order").
			WithDetails(map[string]any{"shortfalls": shortfalls})
	}

	lines := make([]payloads.StockMovementLine, 0, len(ids))
	for _, id := range ids {
		delta := required[id].Neg()
		applied, err := stockRepo.ApplyDelta(ctx, id, delta)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply usage delta")
		}
		if !applied {
			// Rows were locked above; the guard disagreeing with our
			// snapshot means the accounting is broken.
			return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "usage delta rejected by guard").
				WithDetails(map[string]any{"ingredient_id": id.String()})
		}

		balanceAfter := available[id].Add(delta)
		entry := &models.StockTransaction{
			IngredientID: id,
			Kind:         enums.TransactionKindUsage,
			Quantity:     delta,
			BalanceAfter: balanceAfter,
			ActorID:      actorID,
			OrderID:      &orderID,
		}
		if err := stockRepo.AppendTransaction(ctx, entry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append usage entry")
		}
		lines = append(lines, payloads.StockMovementLine{
			IngredientID: id,
			Quantity:     delta,
			BalanceAfter: balanceAfter,
		})
	}
	return lines, nil
}

// replayReceipt rebuilds a confirmation receipt from the usage entries that
// an earlier confirmation committed.
func (s *service) replayReceipt(ctx context.Context, stockRepo inventory.Repository, orderID uuid.UUID) (*DeductionReceipt, error) {
	entries, err := stockRepo.UsageEntriesForOrder(ctx, orderID, enums.TransactionKindUsage)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load usage entries")
	}
	receipt := &DeductionReceipt{OrderID: orderID, Lines: []payloads.StockMovementLine{}, Replayed: true}
	for _, entry := range entries {
		receipt.Lines = append(receipt.Lines, payloads.StockMovementLine{
			IngredientID: entry.IngredientID,
			Quantity:     entry.Quantity,
			BalanceAfter: entry.BalanceAfter,
		})
		if entry.CreatedAt.After(receipt.ConfirmedAt) {
			receipt.ConfirmedAt = entry.CreatedAt
		}
	}
	return receipt, nil
}

// ReleaseConfirmed returns the stock a confirmed order consumed by writing
// compensating RETURN entries, then cancels the order. Releasing an already
// cancelled order replays the stored receipt.
func (s *service) ReleaseConfirmed(ctx context.Context, input ReleaseInput) (*ReleaseReceipt, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	var receipt *ReleaseReceipt
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		stockRepo := s.stock.WithTx(tx)

		order, err := orderRepo.LockForConfirmation(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock order")
		}

		switch order.Status {
		case enums.OrderStatusConfirmed:
			// fall through to release
		case enums.OrderStatusCancelled:
			returns, err := stockRepo.UsageEntriesForOrder(ctx, order.ID, enums.TransactionKindReturn)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load return entries")
			}
			receipt = replayRelease(order.ID, returns)
			return nil
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not confirmed").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		usage, err := stockRepo.UsageEntriesForOrder(ctx, order.ID, enums.TransactionKindUsage)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load usage entries")
		}

		now := time.Now().UTC()
		lines := make([]payloads.StockMovementLine, 0, len(usage))
		if len(usage) > 0 {
			ids := make([]uuid.UUID, 0, len(usage))
			for _, entry := range usage {
				ids = append(ids, entry.IngredientID)
			}
			levels, err := stockRepo.LockLevels(ctx, ids)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock stock levels")
			}
			available := make(map[uuid.UUID]decimal.Decimal, len(levels))
			for _, level := range levels {
				available[level.IngredientID] = level.Quantity
			}

			for _, entry := range usage {
				returned := entry.Quantity.Neg()
				applied, err := stockRepo.ApplyDelta(ctx, entry.IngredientID, returned)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply return delta")
				}
				if !applied {
					return pkgerrors.New(pkgerrors.CodeInvariantViolation, "return delta rejected by guard").
						WithDetails(map[string]any{"ingredient_id": entry.IngredientID.String()})
				}
				balanceAfter := available[entry.IngredientID].Add(returned)
				available[entry.IngredientID] = balanceAfter

				row := &models.StockTransaction{
					IngredientID: entry.IngredientID,
					Kind:         enums.TransactionKindReturn,
					Quantity:     returned,
					BalanceAfter: balanceAfter,
					ActorID:      input.ActorID,
					OrderID:      &order.ID,
				}
				if input.Reason != "" {
					reason := input.Reason
					row.Note = &reason
				}
				if err := stockRepo.AppendTransaction(ctx, row); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: append return entry")
				}
				lines = append(lines, payloads.StockMovementLine{
					IngredientID: entry.IngredientID,
					Quantity:     returned,
					BalanceAfter: balanceAfter,
				})
			}
		}

		if err := orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventStockReleased,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID, Role: "coordinator"},
			Data: payloads.StockReleasedEvent{
				OrderID:    order.ID,
				Lines:      lines,
				ReleasedAt: now,
				Reason:     input.Reason,
			},
			OccurredAt: now,
		}
		if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
			return err
		}

		receipt = &ReleaseReceipt{OrderID: order.ID, Lines: lines, ReleasedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, receipt.OrderID.String())
	logCtx = s.logg.WithField(logCtx, "lines", len(receipt.Lines))
	s.logg.Info(logCtx, "order released and stock returned")
	return receipt, nil
}

func replayRelease(orderID uuid.UUID, returns []models.StockTransaction) *ReleaseReceipt {
	receipt := &ReleaseReceipt{OrderID: orderID, Lines: []payloads.StockMovementLine{}, Replayed: true}
	for _, entry := range returns {
		receipt.Lines = append(receipt.Lines, payloads.StockMovementLine{
			IngredientID: entry.IngredientID,
			Quantity:     entry.Quantity,
			BalanceAfter: entry.BalanceAfter,
		})
		if entry.CreatedAt.After(receipt.ReleasedAt) {
			receipt.ReleasedAt = entry.CreatedAt
		}
	}
	return receipt
}

func confirmOutcome(receipt *DeductionReceipt, err error) string {
	switch {
	case err == nil && receipt != nil && receipt.Replayed:
		return metrics.OutcomeReplayed
	case err == nil:
		return metrics.OutcomeConfirmed
	case pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock):
		return metrics.OutcomeInsufficient
	case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
