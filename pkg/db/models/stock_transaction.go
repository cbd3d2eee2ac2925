package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

// StockTransaction is one append-only ledger row. Quantity carries the signed
// delta applied to the stock level and BalanceAfter the resulting balance, so
// the current level of any ingredient can be reconstructed by replaying its
// rows in order. Rows are never updated or deleted.
type StockTransaction struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey;default:(gen_random_uuid())"`
	IngredientID uuid.UUID             `gorm:"column:ingredient_id;type:uuid;not null;index:ix_inventory_transactions_ingredient"`
	Kind         enums.TransactionKind `gorm:"column:kind;type:transaction_kind_enum;not null"`
	Quantity     decimal.Decimal       `gorm:"column:quantity;type:numeric(12,3);not null"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,3);not null"`
	Note         *string               `gorm:"column:note;type:text"`
	ActorID      uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	OrderID      *uuid.UUID            `gorm:"column:order_id;type:uuid;index:ix_inventory_transactions_order"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
}

func (StockTransaction) TableName() string { return "inventory_transactions" }

func (t *StockTransaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
