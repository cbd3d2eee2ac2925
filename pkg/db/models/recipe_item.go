package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecipeItem links one ingredient requirement to a dish, quantity per serving.
type RecipeItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:(gen_random_uuid());primaryKey"`
	DishID       uuid.UUID       `gorm:"column:dish_id;type:uuid;not null;uniqueIndex:ux_recipe_items_dish_ingredient"`
	IngredientID uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null;uniqueIndex:ux_recipe_items_dish_ingredient"`
	Quantity     decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	Notes        *string         `gorm:"column:notes"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
}

func (RecipeItem) TableName() string { return "recipe_items" }

func (r *RecipeItem) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
