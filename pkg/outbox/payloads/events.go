package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

// StockMovementLine is one ingredient-level delta within a deduction or release.
type StockMovementLine struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// StockDeductedEvent is emitted once per confirmed order after all usage
// entries have committed.
type StockDeductedEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	Lines       []StockMovementLine `json:"lines"`
	ConfirmedAt time.Time           `json:"confirmed_at"`
}

// StockReleasedEvent mirrors StockDeductedEvent for compensating returns.
type StockReleasedEvent struct {
	OrderID    uuid.UUID           `json:"order_id"`
	Lines      []StockMovementLine `json:"lines"`
	ReleasedAt time.Time           `json:"released_at"`
	Reason     string              `json:"reason,omitempty"`
}

// StockAdjustedEvent reports a manual stock movement outside order flow.
type StockAdjustedEvent struct {
	IngredientID uuid.UUID             `json:"ingredient_id"`
	Kind         enums.TransactionKind `json:"kind"`
	Quantity     decimal.Decimal       `json:"quantity"`
	BalanceAfter decimal.Decimal       `json:"balance_after"`
}

// LowStockEvent is emitted when an ingredient crosses its minimum threshold.
type LowStockEvent struct {
	IngredientID     uuid.UUID       `json:"ingredient_id"`
	Name             string          `json:"name"`
	Quantity         decimal.Decimal `json:"quantity"`
	MinimumStock     decimal.Decimal `json:"minimum_stock"`
	OutOfStock       bool            `json:"out_of_stock"`
	SuggestedRestock decimal.Decimal `json:"suggested_restock"`
}
