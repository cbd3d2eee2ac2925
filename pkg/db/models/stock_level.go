package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLevel is the single mutable balance per ingredient. Every change to
// Quantity is paired with exactly one StockTransaction in the same database
// transaction; the row never goes negative (also enforced by a CHECK
// constraint).
type StockLevel struct {
	IngredientID   uuid.UUID       `gorm:"column:ingredient_id;type:uuid;primaryKey"`
	Quantity       decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null;default:0"`
	LastRestocked  *time.Time      `gorm:"column:last_restocked"`
	ExpirationDate *time.Time      `gorm:"column:expiration_date"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
}

func (StockLevel) TableName() string { return "inventory_stock" }
