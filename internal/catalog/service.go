package catalog

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

// Service exposes ingredient catalog management.
type Service interface {
	CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error)
	UpdateIngredient(ctx context.Context, id uuid.UUID, input UpdateIngredientInput) (*models.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	ListIngredients(ctx context.Context, filter ListIngredientsFilter) ([]models.Ingredient, error)
	DeactivateIngredient(ctx context.Context, id uuid.UUID) error
}

// CreateIngredientInput holds the validated payload to create an ingredient.
type CreateIngredientInput struct {
	Name         string
	Category     enums.IngredientCategory
	Unit         enums.Unit
	CostPerUnit  decimal.Decimal
	MinimumStock decimal.Decimal
	Supplier     *string
	Description  *string
}

// UpdateIngredientInput holds optional mutation values for an ingredient.
type UpdateIngredientInput struct {
	Name         *string
	Category     *enums.IngredientCategory
	Unit         *enums.Unit
	CostPerUnit  *decimal.Decimal
	MinimumStock *decimal.Decimal
	Supplier     *string
	Description  *string
	IsActive     *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	client txRunner
}

// NewService wires the catalog service with its repository and tx runner.
func NewService(repo Repository, client txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	if client == nil {
		return nil, errors.New("db client required")
	}
	return &service{repo: repo, client: client}, nil
}

// CreateIngredient inserts the ingredient together with its zero stock row so
// every ingredient always has a stock level to lock against.
func (s *service) CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
	}
	if input.CostPerUnit.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost_per_unit cannot be negative")
	}
	if input.MinimumStock.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum_stock cannot be negative")
	}

	ingredient := &models.Ingredient{
		Name:         name,
		Category:     input.Category,
		Unit:         input.Unit,
		CostPerUnit:  input.CostPerUnit,
		MinimumStock: input.MinimumStock,
		Supplier:     input.Supplier,
		Description:  input.Description,
		IsActive:     true,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, ingredient); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_ingredients_name") {
				return pkgerrors.New(pkgerrors.CodeConflict, "ingredient name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert ingredient")
		}
		level := models.StockLevel{
			IngredientID: ingredient.ID,
			Quantity:     decimal.Zero,
		}
		if err := tx.Create(&level).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seed stock level")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ingredient, nil
}

func (s *service) UpdateIngredient(ctx context.Context, id uuid.UUID, input UpdateIngredientInput) (*models.Ingredient, error) {
	ingredient, err := s.loadIngredient(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		ingredient.Name = name
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		ingredient.Category = *input.Category
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
		}
		ingredient.Unit = *input.Unit
	}
	if input.CostPerUnit != nil {
		if input.CostPerUnit.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost_per_unit cannot be negative")
		}
		ingredient.CostPerUnit = *input.CostPerUnit
	}
	if input.MinimumStock != nil {
		if input.MinimumStock.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum_stock cannot be negative")
		}
		ingredient.MinimumStock = *input.MinimumStock
	}
	if input.Supplier != nil {
		ingredient.Supplier = input.Supplier
	}
	if input.Description != nil {
		ingredient.Description = input.Description
	}
	if input.IsActive != nil {
		ingredient.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, ingredient); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_ingredients_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "ingredient name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update ingredient")
	}
	return ingredient, nil
}

func (s *service) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	return s.loadIngredient(ctx, id)
}

func (s *service) ListIngredients(ctx context.Context, filter ListIngredientsFilter) ([]models.Ingredient, error) {
	ingredients, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list ingredients")
	}
	return ingredients, nil
}

// DeactivateIngredient soft-disables the ingredient. Recipes referencing it
// keep their rows; availability treats the dish as not preparable.
func (s *service) DeactivateIngredient(ctx context.Context, id uuid.UUID) error {
	ingredient, err := s.loadIngredient(ctx, id)
	if err != nil {
		return err
	}
	if !ingredient.IsActive {
		return nil
	}
	ingredient.IsActive = false
	if err := s.repo.Update(ctx, ingredient); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deactivate ingredient")
	}
	return nil
}

func (s *service) loadIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id is required")
	}
	ingredient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load ingredient")
	}
	return ingredient, nil
}
