package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartkitchen/smartkitchen-backend/pkg/db/models"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
)

// ServingsUnbounded is returned by MaxServings for dishes with no recipe:
// nothing constrains them, so any number of servings is preparable.
const ServingsUnbounded = -1

// Shortfall is one ingredient preventing a dish from being prepared. Required
// and Available are expressed in the ingredient's own unit.
type Shortfall struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	Unit         enums.Unit      `json:"unit"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
	Inactive     bool            `json:"inactive"`
}

// DishAvailability is the full availability verdict for one dish.
type DishAvailability struct {
	DishID      uuid.UUID   `json:"dish_id"`
	Servings    int         `json:"servings"`
	InStock     bool        `json:"in_stock"`
	MaxServings int         `json:"max_servings"`
	Missing     []Shortfall `json:"missing,omitempty"`
}

// Service answers read-only stock availability questions. It never locks
// rows: answers are advisory and only confirmation is authoritative.
type Service interface {
	Check(ctx context.Context, dishID uuid.UUID, servings int) (*DishAvailability, error)
	IsInStock(ctx context.Context, dishID uuid.UUID, servings int) (bool, error)
	MaxServings(ctx context.Context, dishID uuid.UUID) (int, error)
	MissingIngredients(ctx context.Context, dishID uuid.UUID, servings int) ([]Shortfall, error)
}

type recipeSource interface {
	RecipeItemsFor(ctx context.Context, dishID uuid.UUID) ([]models.RecipeItem, error)
	GetDish(ctx context.Context, id uuid.UUID) (*models.Dish, error)
}

type levelSource interface {
	ListLevels(ctx context.Context, ingredientIDs []uuid.UUID) ([]models.StockLevel, error)
}

type service struct {
	recipes recipeSource
	levels  levelSource
}

// NewService wires the availability calculator.
func NewService(recipes recipeSource, levels levelSource) (Service, error) {
	if recipes == nil {
		return nil, errors.New("recipe source required")
	}
	if levels == nil {
		return nil, errors.New("level source required")
	}
	return &service{recipes: recipes, levels: levels}, nil
}

func (s *service) Check(ctx context.Context, dishID uuid.UUID, servings int) (*DishAvailability, error) {
	if dishID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dish id is required")
	}
	if servings < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "servings must be at least 1")
	}
	if _, err := s.recipes.GetDish(ctx, dishID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dish not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load dish")
	}

	items, err := s.recipes.RecipeItemsFor(ctx, dishID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load recipe")
	}

	result := &DishAvailability{
		DishID:      dishID,
		Servings:    servings,
		InStock:     true,
		MaxServings: ServingsUnbounded,
	}
	if len(items) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.IngredientID)
	}
	levels, err := s.levels.ListLevels(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load stock levels")
	}
	available := make(map[uuid.UUID]decimal.Decimal, len(levels))
	for _, level := range levels {
		available[level.IngredientID] = level.Quantity
	}

	servingsDec := decimal.NewFromInt(int64(servings))
	maxServings := ServingsUnbounded
	for _, item := range items {
		have := available[item.IngredientID]
		required := item.Quantity.Mul(servingsDec)

		inactive := item.Ingredient != nil && !item.Ingredient.IsActive
		if inactive {
			result.InStock = false
			result.Missing = append(result.Missing, Shortfall{
				IngredientID: item.IngredientID,
				Name:         ingredientName(item),
				Unit:         ingredientUnit(item),
				Required:     required,
				Available:    have,
				Inactive:     true,
			})
			maxServings = 0
			continue
		}

		// Floor of have/perServing bounds the servings this ingredient allows.
		allowed := int(have.Div(item.Quantity).IntPart())
		if maxServings == ServingsUnbounded || allowed < maxServings {
			maxServings = allowed
		}

		if have.LessThan(required) {
			result.InStock = false
			result.Missing = append(result.Missing, Shortfall{
				IngredientID: item.IngredientID,
				Name:         ingredientName(item),
				Unit:         ingredientUnit(item),
				Required:     required,
				Available:    have,
			})
		}
	}

	result.MaxServings = maxServings
	return result, nil
}

func (s *service) IsInStock(ctx context.Context, dishID uuid.UUID, servings int) (bool, error) {
	verdict, err := s.Check(ctx, dishID, servings)
	if err != nil {
		return false, err
	}
	return verdict.InStock, nil
}

func (s *service) MaxServings(ctx context.Context, dishID uuid.UUID) (int, error) {
	verdict, err := s.Check(ctx, dishID, 1)
	if err != nil {
		return 0, err
	}
	return verdict.MaxServings, nil
}

func (s *service) MissingIngredients(ctx context.Context, dishID uuid.UUID, servings int) ([]Shortfall, error) {
	verdict, err := s.Check(ctx, dishID, servings)
	if err != nil {
		return nil, err
	}
	return verdict.Missing, nil
}

func ingredientName(item models.RecipeItem) string {
	if item.Ingredient != nil {
		return item.Ingredient.Name
	}
	return ""
}

func ingredientUnit(item models.RecipeItem) enums.Unit {
	if item.Ingredient != nil {
		return item.Ingredient.Unit
	}
	return ""
}
