package controllers

import (
	"net/http"

	"github.com/rmatassie/motormarche-backend/api/responses"
	purchasesvc "github.com/rmatassie/motormarche-backend/internal/purchases"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
)

// ListOwnPurchases returns the authenticated buyer's purchase history.
func ListOwnPurchases(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "purchase service unavailable"))
			return
		}

		buyerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		purchases, err := svc.ListOwn(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, purchases)
	}
}
