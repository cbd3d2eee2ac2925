package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/smartkitchen/smartkitchen-backend/api/middleware"
	"github.com/smartkitchen/smartkitchen-backend/api/responses"
	"github.com/smartkitchen/smartkitchen-backend/api/validators"
	"github.com/smartkitchen/smartkitchen-backend/internal/alerts"
	"github.com/smartkitchen/smartkitchen-backend/internal/inventory"
	"github.com/smartkitchen/smartkitchen-backend/pkg/enums"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
	"github.com/smartkitchen/smartkitchen-backend/pkg/pagination"
)

type adjustStockRequest struct {
	IngredientID string  `json:"ingredient_id" validate:"required,uuid4"`
	Kind         string  `json:"kind" validate:"required"`
	Quantity     string  `json:"quantity" validate:"required"`
	Note         *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// actorID reads the caller identity set by the actor middleware. Mutating
// inventory endpoints require it for the ledger's audit trail.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ActorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id must be a UUID")
	}
	return id, nil
}

// AdjustStock handles POST /api/v1/inventory/adjustments.
func AdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ingredientID, err := uuid.Parse(payload.IngredientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ingredient_id must be a UUID"))
			return
		}
		kind, err := enums.ParseTransactionKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement kind"))
			return
		}
		quantity, err := parseDecimalField(payload.Quantity, "quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.AdjustStock(r.Context(), inventory.AdjustStockInput{
			IngredientID: ingredientID,
			Kind:         kind,
			Quantity:     quantity,
			Note:         payload.Note,
			ActorID:      actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// GetStockLevel handles GET /api/v1/inventory/levels/{ingredientID}.
func GetStockLevel(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "ingredientID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		level, err := svc.GetLevel(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, level)
	}
}

// ListStockLevels handles GET /api/v1/inventory/levels.
func ListStockLevels(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		levels, err := svc.ListLevels(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, levels)
	}
}

// ListStockTransactions handles GET /api/v1/inventory/transactions. The log
// is cursor-paginated: pass the returned next_cursor to continue walking.
func ListStockTransactions(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ingredientID, err := validators.ParseQueryUUID(r, "ingredient_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := inventory.ListTransactionsFilter{
			IngredientID: ingredientID,
			OrderID:      orderID,
		}
		if raw := r.URL.Query().Get("kind"); raw != "" {
			kind, err := enums.ParseTransactionKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement kind"))
				return
			}
			filter.Kind = &kind
		}

		page, err := svc.HistoryPage(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// LowStockReport handles GET /api/v1/inventory/low-stock.
func LowStockReport(svc alerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Scan(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
