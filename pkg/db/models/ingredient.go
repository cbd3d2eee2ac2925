package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

// Ingredient is the catalog entry for one stockable item. Referenced ingredients
// are deactivated instead of deleted so recipes and the transaction log stay
// resolvable.
type Ingredient struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:(gen_random_uuid());primaryKey"`
	Name         string                   `gorm:"column:name;not null;uniqueIndex"`
	Category     enums.IngredientCategory `gorm:"column:category;type:ingredient_category_enum;not null;default:'OTHER'"`
	Unit         enums.Unit               `gorm:"column:unit;type:unit_enum;not null;default:'KG'"`
	CostPerUnit  decimal.Decimal          `gorm:"column:cost_per_unit;type:numeric(12,3);not null;default:0"`
	Supplier     *string                  `gorm:"column:supplier"`
	MinimumStock decimal.Decimal          `gorm:"column:minimum_stock;type:numeric(12,3);not null;default:0"`
	Description  *string                  `gorm:"column:description"`
	IsActive     bool                     `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Ingredient) TableName() string { return "ingredients" }

// BeforeCreate assigns the id client-side so SQLite-backed tests work without
// the gen_random_uuid() default.
func (i *Ingredient) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
