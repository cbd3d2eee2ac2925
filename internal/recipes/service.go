package recipes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/smartkitchen/smartkitchen-backend/pkg/db"
	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
)

// Service exposes dish and recipe management.
type Service interface {
	CreateDish(ctx context.Context, input CreateDishInput) (*models.Dish, error)
	UpdateDish(ctx context.Context, id uuid.UUID, input UpdateDishInput) (*models.Dish, error)
	GetDish(ctx context.Context, id uuid.UUID) (*models.Dish, error)
	ListDishes(ctx context.Context, filter ListDishesFilter) ([]models.Dish, error)
	SetRecipe(ctx context.Context, dishID uuid.UUID, items []RecipeItemInput) ([]models.RecipeItem, error)
	GetRecipe(ctx context.Context, dishID uuid.UUID) ([]models.RecipeItem, error)
	DishCost(ctx context.Context, dishID uuid.UUID) (decimal.Decimal, error)
	DishesUsing(ctx context.Context, ingredientID uuid.UUID) ([]models.Dish, error)
}

// CreateDishInput holds the validated payload to create a dish.
type CreateDishInput struct {
	Name        string
	Category    enums.DishCategory
	Price       decimal.Decimal
	Description *string
	Recipe      []RecipeItemInput
}

// UpdateDishInput holds optional mutation values for a dish.
type UpdateDishInput struct {
	Name        *string
	Category    *enums.DishCategory
	Price       *decimal.Decimal
	Description *string
	IsAvailable *bool
}

// RecipeItemInput is one ingredient line of a dish recipe.
type RecipeItemInput struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
	Notes        *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ingredientLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
}

type service struct {
	repo        Repository
	ingredients ingredientLoader
	client      txRunner
}

// NewService wires the recipe service with its collaborators.
func NewService(repo Repository, ingredients ingredientLoader, client txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("recipe repository required")
	}
	if ingredients == nil {
		return nil, errors.New("ingredient loader required")
	}
	if client == nil {
		return nil, errors.New("db client required")
	}
	return &service{repo: repo, ingredients: ingredients, client: client}, nil
}

func (s *service) CreateDish(ctx context.Context, input CreateDishInput) (*models.Dish, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	recipe, err := s.buildRecipeRows(ctx, input.Recipe)
	if err != nil {
		return nil, err
	}

	dish := &models.Dish{
		Name:        name,
		Category:    input.Category,
		Price:       input.Price,
		Description: input.Description,
		IsAvailable: true,
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateDish(ctx, dish); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_dishes_name") {
				return pkgerrors.New(pkgerrors.CodeConflict, "dish name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert dish")
		}
		if len(recipe) == 0 {
			return nil
		}
		if err := repo.ReplaceRecipe(ctx, dish.ID, recipe); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert recipe")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dish, nil
}

func (s *service) UpdateDish(ctx context.Context, id uuid.UUID, input UpdateDishInput) (*models.Dish, error) {
	dish, err := s.loadDish(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		dish.Name = name
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		dish.Category = *input.Category
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		dish.Price = *input.Price
	}
	if input.Description != nil {
		dish.Description = input.Description
	}
	if input.IsAvailable != nil {
		dish.IsAvailable = *input.IsAvailable
	}

	if err := s.repo.UpdateDish(ctx, dish); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_dishes_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "dish name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update dish")
	}
	return dish, nil
}

func (s *service) GetDish(ctx context.Context, id uuid.UUID) (*models.Dish, error) {
	return s.loadDish(ctx, id)
}

func (s *service) ListDishes(ctx context.Context, filter ListDishesFilter) ([]models.Dish, error) {
	dishes, err := s.repo.ListDishes(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list dishes")
	}
	return dishes, nil
}

// SetRecipe replaces the full recipe for a dish. Quantities are validated
// against the recipe invariant: strictly positive, one row per ingredient.
func (s *service) SetRecipe(ctx context.Context, dishID uuid.UUID, items []RecipeItemInput) ([]models.RecipeItem, error) {
	if _, err := s.loadDish(ctx, dishID); err != nil {
		return nil, err
	}
	rows, err := s.buildRecipeRows(ctx, items)
	if err != nil {
		return nil, err
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ReplaceRecipe(ctx, dishID, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace recipe")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, dishID)
}

func (s *service) GetRecipe(ctx context.Context, dishID uuid.UUID) ([]models.RecipeItem, error) {
	if dishID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dish id is required")
	}
	items, err := s.repo.RecipeItemsFor(ctx, dishID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load recipe")
	}
	return items, nil
}

// DishCost sums quantity * cost_per_unit over the recipe.
func (s *service) DishCost(ctx context.Context, dishID uuid.UUID) (decimal.Decimal, error) {
	items, err := s.GetRecipe(ctx, dishID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		if item.Ingredient == nil {
			continue
		}
		total = total.Add(item.Quantity.Mul(item.Ingredient.CostPerUnit))
	}
	return total, nil
}

func (s *service) DishesUsing(ctx context.Context, ingredientID uuid.UUID) ([]models.Dish, error) {
	if ingredientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}
	dishes, err := s.repo.DishesUsing(ctx, ingredientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: dishes using ingredient")
	}
	return dishes, nil
}

func (s *service) buildRecipeRows(ctx context.Context, items []RecipeItemInput) ([]models.RecipeItem, error) {
	seen := make(map[uuid.UUID]bool, len(items))
	rows := make([]models.RecipeItem, 0, len(items))
	for _, item := range items {
		if item.IngredientID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
		}
		if seen[item.IngredientID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate ingredient in recipe")
		}
		seen[item.IngredientID] = true
		if !item.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe quantity must be positive")
		}
		if _, err := s.ingredients.GetByID(ctx, item.IngredientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown ingredient in recipe")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load recipe ingredient")
		}
		rows = append(rows, models.RecipeItem{
			IngredientID: item.IngredientID,
			Quantity:     item.Quantity,
			Notes:        item.Notes,
		})
	}
	return rows, nil
}

func (s *service) loadDish(ctx context.Context, id uuid.UUID) (*models.Dish, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dish id is required")
	}
	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dish not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load dish")
	}
	return dish, nil
}
