package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/smartkitchen/smartkitchen-backend/api/responses"
	"github.com/smartkitchen/smartkitchen-backend/api/validators"
	"github.com/smartkitchen/smartkitchen-backend/internal/catalog"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type createIngredientRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Category     string  `json:"category" validate:"required"`
	Unit         string  `json:"unit" validate:"required"`
	CostPerUnit  string  `json:"cost_per_unit,omitempty"`
	MinimumStock string  `json:"minimum_stock,omitempty"`
	Supplier     *string `json:"supplier,omitempty" validate:"omitempty,max=200"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type updateIngredientRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Category     *string `json:"category,omitempty"`
	Unit         *string `json:"unit,omitempty"`
	CostPerUnit  *string `json:"cost_per_unit,omitempty"`
	MinimumStock *string `json:"minimum_stock,omitempty"`
	Supplier     *string `json:"supplier,omitempty" validate:"omitempty,max=200"`
	Description  *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func parseDecimalField(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "field must be a decimal").
			WithDetails(map[string]any{"field": field})
	}
	return value, nil
}

// CreateIngredient handles POST /api/v1/ingredients.
func CreateIngredient(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createIngredientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cost, err := parseDecimalField(payload.CostPerUnit, "cost_per_unit")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		minimum, err := parseDecimalField(payload.MinimumStock, "minimum_stock")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ingredient, err := svc.CreateIngredient(r.Context(), catalog.CreateIngredientInput{
			Name:         validators.SanitizeString(payload.Name, 200),
			Category:     enums.IngredientCategory(payload.Category),
			Unit:         enums.Unit(payload.Unit),
			CostPerUnit:  cost,
			MinimumStock: minimum,
			Supplier:     payload.Supplier,
			Description:  payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ingredient)
	}
}

// UpdateIngredient handles PATCH /api/v1/ingredients/{ingredientID}.
func UpdateIngredient(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "ingredientID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateIngredientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateIngredientInput{
			Name:        payload.Name,
			Supplier:    payload.Supplier,
			Description: payload.Description,
			IsActive:    payload.IsActive,
		}
		if payload.Category != nil {
			category := enums.IngredientCategory(*payload.Category)
			input.Category = &category
		}
		if payload.Unit != nil {
			unit := enums.Unit(*payload.Unit)
			input.Unit = &unit
		}
		if payload.CostPerUnit != nil {
			cost, err := parseDecimalField(*payload.CostPerUnit, "cost_per_unit")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CostPerUnit = &cost
		}
		if payload.MinimumStock != nil {
			minimum, err := parseDecimalField(*payload.MinimumStock, "minimum_stock")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.MinimumStock = &minimum
		}

		ingredient, err := svc.UpdateIngredient(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ingredient)
	}
}

// GetIngredient handles GET /api/v1/ingredients/{ingredientID}.
func GetIngredient(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "ingredientID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ingredient, err := svc.GetIngredient(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ingredient)
	}
}

// ListIngredients handles GET /api/v1/ingredients.
func ListIngredients(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
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

		filter := catalog.ListIngredientsFilter{
			ActiveOnly: r.URL.Query().Get("active") == "true",
			Search:     validators.SanitizeString(r.URL.Query().Get("search"), 200),
			Limit:      limit,
			Offset:     offset,
		}
		if raw := r.URL.Query().Get("category"); raw != "" {
			category, err := enums.ParseIngredientCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category"))
				return
			}
			filter.Category = &category
		}

		ingredients, err := svc.ListIngredients(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ingredients)
	}
}

// DeactivateIngredient handles DELETE /api/v1/ingredients/{ingredientID}.
func DeactivateIngredient(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "ingredientID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateIngredient(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
