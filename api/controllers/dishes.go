package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartkitchen/smartkitchen-backend/api/responses"
	"github.com/smartkitchen/smartkitchen-backend/api/validators"
	"github.com/smartkitchen/smartkitchen-backend/internal/recipes"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type recipeItemRequest struct {
	IngredientID string  `json:"ingredient_id" validate:"required,uuid4"`
	Quantity     string  `json:"quantity" validate:"required"`
	Notes        *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type createDishRequest struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Category    string              `json:"category" validate:"required"`
	Price       string              `json:"price,omitempty"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Recipe      []recipeItemRequest `json:"recipe,omitempty" validate:"omitempty,dive"`
}

type updateDishRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Category    *string `json:"category,omitempty"`
	Price       *string `json:"price,omitempty"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

type setRecipeRequest struct {
	Items []recipeItemRequest `json:"items" validate:"dive"`
}

func toRecipeInputs(items []recipeItemRequest) ([]recipes.RecipeItemInput, error) {
	inputs := make([]recipes.RecipeItemInput, 0, len(items))
	for _, item := range items {
		ingredientID, err := uuid.Parse(item.IngredientID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient_id must be a UUID")
		}
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a decimal").
				WithDetails(map[string]any{"ingredient_id": item.IngredientID})
		}
		inputs = append(inputs, recipes.RecipeItemInput{
			IngredientID: ingredientID,
			Quantity:     quantity,
			Notes:        item.Notes,
		})
	}
	return inputs, nil
}

// CreateDish handles POST /api/v1/dishes.
func CreateDish(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createDishRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseDecimalField(payload.Price, "price")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipe, err := toRecipeInputs(payload.Recipe)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dish, err := svc.CreateDish(r.Context(), recipes.CreateDishInput{
			Name:        validators.SanitizeString(payload.Name, 200),
			Category:    enums.DishCategory(payload.Category),
			Price:       price,
			Description: payload.Description,
			Recipe:      recipe,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dish)
	}
}

// UpdateDish handles PATCH /api/v1/dishes/{dishID}.
func UpdateDish(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "dishID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDishRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := recipes.UpdateDishInput{
			Name:        payload.Name,
			Description: payload.Description,
			IsAvailable: payload.IsAvailable,
		}
		if payload.Category != nil {
			category := enums.DishCategory(*payload.Category)
			input.Category = &category
		}
		if payload.Price != nil {
			price, err := parseDecimalField(*payload.Price, "price")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Price = &price
		}

		dish, err := svc.UpdateDish(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dish)
	}
}

// GetDish handles GET /api/v1/dishes/{dishID}.
func GetDish(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "dishID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dish, err := svc.GetDish(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dish)
	}
}

// ListDishes handles GET /api/v1/dishes.
func ListDishes(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := recipes.ListDishesFilter{
			AvailableOnly: r.URL.Query().Get("available") == "true",
			Limit:         limit,
			Offset:        offset,
		}
		if raw := r.URL.Query().Get("category"); raw != "" {
			category, err := enums.ParseDishCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category"))
				return
			}
			filter.Category = &category
		}

		dishes, err := svc.ListDishes(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dishes)
	}
}

// SetRecipe handles PUT /api/v1/dishes/{dishID}/recipe.
func SetRecipe(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "dishID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setRecipeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := toRecipeInputs(payload.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipe, err := svc.SetRecipe(r.Context(), id, items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recipe)
	}
}

// GetRecipe handles GET /api/v1/dishes/{dishID}/recipe.
func GetRecipe(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "dishID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipe, err := svc.GetRecipe(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recipe)
	}
}

// GetDishCost handles GET /api/v1/dishes/{dishID}/cost.
func GetDishCost(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "dishID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cost, err := svc.DishCost(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"dish_id": id.String(), "cost": cost.String()})
	}
}
