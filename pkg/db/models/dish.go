package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

// Dish is the menu snapshot the engine reads. Menu CRUD belongs to the catalog
// collaborator; the engine resolves names and recipe links only.
type Dish struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:(gen_random_uuid());primaryKey"`
	Name        string             `gorm:"column:name;not null;uniqueIndex"`
	Category    enums.DishCategory `gorm:"column:category;type:dish_category_enum;not null;default:'MAIN_COURSE'"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Description *string            `gorm:"column:description"`
	IsAvailable bool               `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	RecipeItems []RecipeItem `gorm:"foreignKey:DishID"`
}

func (Dish) TableName() string { return "dishes" }

func (d *Dish) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
