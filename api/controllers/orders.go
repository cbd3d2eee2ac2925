package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/smartkitchen/smartkitchen-backend/api/responses"
	"github.com/smartkitchen/smartkitchen-backend/api/validators"
	"github.com/smartkitchen/smartkitchen-backend/internal/orders"
	pkgerrors "github.com/smartkitchen/smartkitchen-backend/pkg/errors"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

type orderItemRequest struct {
	DishID   string `json:"dish_id" validate:"required,uuid4"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=100"`
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Note  *string            `json:"note,omitempty" validate:"omitempty,max=500"`
}

type releaseOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CreateOrder handles POST /api/v1/orders.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orders.OrderItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			dishID, err := uuid.Parse(item.DishID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "dish_id must be a UUID"))
				return
			}
			items = append(items, orders.OrderItemInput{DishID: dishID, Quantity: item.Quantity})
		}

		order, err := svc.CreateOrder(r.Context(), orders.CreateOrderInput{
			Items: items,
			Note:  payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder handles GET /api/v1/orders/{orderID}.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ConfirmOrder handles POST /api/v1/orders/{orderID}/confirm. Confirmation
// deducts stock atomically; replays of an already-confirmed order return the
// stored receipt.
func ConfirmOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.ConfirmAndDeduct(r.Context(), orders.ConfirmInput{
			OrderID: id,
			ActorID: actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}

// ReleaseOrder handles POST /api/v1/orders/{orderID}/release.
func ReleaseOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload releaseOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.ReleaseConfirmed(r.Context(), orders.ReleaseInput{
			OrderID: id,
			ActorID: actor,
			Reason:  validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}
