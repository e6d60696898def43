package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/api/responses"
	"github.com/rmatassie/motormarche-backend/api/validators"
	checkoutsvc "github.com/rmatassie/motormarche-backend/internal/checkout"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
)

type createCheckoutRequest struct {
	CarID string `json:"car_id" validate:"required,uuid4"`
}

// CreateCheckoutSession opens a Stripe Checkout Session for the car.
func CreateCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		carID, err := uuid.Parse(payload.CarID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid car id"))
			return
		}

		session, err := svc.CreateSession(r.Context(), buyerID, checkoutsvc.CreateSessionInput{CarID: carID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}
