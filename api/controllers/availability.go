package controllers

import (
	"net/http"

	"github.com/smartkitchen/smartkitchen-backend/api/responses"
	"github.com/smartkitchen/smartkitchen-backend/api/validators"
	"github.com/smartkitchen/smartkitchen-backend/internal/availability"
	"github.com/smartkitchen/smartkitchen-backend/pkg/logger"
)

// CheckAvailability handles GET /api/v1/dishes/{dishID}/availability.
// The optional servings query parameter defaults to 1.
func CheckAvailability(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "dishID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		servings, err := validators.ParseQueryInt(r, "servings", 1, 1, 10_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		verdict, err := svc.Check(r.Context(), id, servings)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, verdict)
	}
}
