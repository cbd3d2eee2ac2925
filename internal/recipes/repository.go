package recipes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
)

// ListDishesFilter narrows dish listings.
type ListDishesFilter struct {
	Category      *enums.DishCategory
	AvailableOnly bool
	Limit         int
	Offset        int
}

// Repository manages persistence for dishes and their recipes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDish(ctx context.Context, dish *models.Dish) error
	UpdateDish(ctx context.Context, dish *models.Dish) error
	GetDish(ctx context.Context, id uuid.UUID) (*models.Dish, error)
	ListDishes(ctx context.Context, filter ListDishesFilter) ([]models.Dish, error)
	RecipeItemsFor(ctx context.Context, dishID uuid.UUID) ([]models.RecipeItem, error)
	ReplaceRecipe(ctx context.Context, dishID uuid.UUID, items []models.RecipeItem) error
	DishesUsing(ctx context.Context, ingredientID uuid.UUID) ([]models.Dish, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a recipe repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDish(ctx context.Context, dish *models.Dish) error {
	return r.db.WithContext(ctx).Create(dish).Error
}

func (r *repository) UpdateDish(ctx context.Context, dish *models.Dish) error {
	return r.db.WithContext(ctx).Save(dish).Error
}

func (r *repository) GetDish(ctx context.Context, id uuid.UUID) (*models.Dish, error) {
	var dish models.Dish
	if err := r.db.WithContext(ctx).First(&dish, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dish, nil
}

func (r *repository) ListDishes(ctx context.Context, filter ListDishesFilter) ([]models.Dish, error) {
	query := r.db.WithContext(ctx).Model(&models.Dish{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var dishes []models.Dish
	if err := query.Order("name ASC").Find(&dishes).Error; err != nil {
		return nil, err
	}
	return dishes, nil
}

func (r *repository) RecipeItemsFor(ctx context.Context, dishID uuid.UUID) ([]models.RecipeItem, error) {
	var items []models.RecipeItem
	if err := r.db.WithContext(ctx).
		Preload("Ingredient").
		Where("dish_id = ?", dishID).
		Order("ingredient_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceRecipe swaps the dish recipe atomically. Callers run it inside a
// transaction via WithTx.
func (r *repository) ReplaceRecipe(ctx context.Context, dishID uuid.UUID, items []models.RecipeItem) error {
	if err := r.db.WithContext(ctx).
		Where("dish_id = ?", dishID).
		Delete(&models.RecipeItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].DishID = dishID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) DishesUsing(ctx context.Context, ingredientID uuid.UUID) ([]models.Dish, error) {
	var dishes []models.Dish
	if err := r.db.WithContext(ctx).
		Joins("JOIN recipe_items ON recipe_items.dish_id = dishes.id").
		Where("recipe_items.ingredient_id = ?", ingredientID).
		Order("dishes.name ASC").
		Find(&dishes).Error; err != nil {
		return nil, err
	}
	return dishes, nil
}
