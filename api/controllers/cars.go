package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/api/middleware"
	"github.com/rmatassie/motormarche-backend/api/responses"
	"github.com/rmatassie/motormarche-backend/api/validators"
	carsvc "github.com/rmatassie/motormarche-backend/internal/cars"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/pagination"
)

type createCarRequest struct {
	Title        string  `json:"title" validate:"required"`
	PriceCents   int64   `json:"price_cents" validate:"required,min=1"`
	Brand        string  `json:"brand" validate:"required"`
	Model        string  `json:"model" validate:"required"`
	Year         int     `json:"year" validate:"required"`
	Mileage      int     `json:"mileage" validate:"min=0"`
	Fuel         string  `json:"fuel" validate:"required"`
	Transmission string  `json:"transmission" validate:"required"`
	Description  *string `json:"description,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
	ImageURL2    *string `json:"image_url2,omitempty"`
	ImageURL3    *string `json:"image_url3,omitempty"`
	Published    *bool   `json:"published,omitempty"`
}

func (r createCarRequest) toCreateInput() (carsvc.CreateCarInput, error) {
	fuel, err := enums.ParseFuelType(strings.TrimSpace(strings.ToLower(r.Fuel)))
	if err != nil {
		return carsvc.CreateCarInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fuel type")
	}
	transmission, err := enums.ParseTransmission(strings.TrimSpace(strings.ToLower(r.Transmission)))
	if err != nil {
		return carsvc.CreateCarInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transmission")
	}
	return carsvc.CreateCarInput{
		Title:        validators.SanitizeString(r.Title, 200),
		PriceCents:   r.PriceCents,
		Brand:        validators.SanitizeString(r.Brand, 100),
		Model:        validators.SanitizeString(r.Model, 100),
		Year:         r.Year,
		Mileage:      r.Mileage,
		Fuel:         fuel,
		Transmission: transmission,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		ImageURL2:    r.ImageURL2,
		ImageURL3:    r.ImageURL3,
		Published:    r.Published,
	}, nil
}

type setPublishedRequest struct {
	Published *bool `json:"published" validate:"required"`
}

func ownerFromContext(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return uid, nil
}

func carIDFromURL(r *http.Request) (uuid.UUID, error) {
	carID, err := uuid.Parse(chi.URLParam(r, "carId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid car id")
	}
	return carID, nil
}

// CreateCar handles listing creation for the authenticated seller.
func CreateCar(svc carsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createCarRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		car, err := svc.CreateCar(r.Context(), ownerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, car)
	}
}

// ListOwnCars returns the authenticated seller's listings, filtered by the
// optional type query parameter (active, archived, all).
func ListOwnCars(svc carsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cars, err := svc.ListOwn(r.Context(), ownerID, r.URL.Query().Get("type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cars)
	}
}

// DeleteCar removes one of the seller's own listings.
func DeleteCar(svc carsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		carID, err := carIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCar(r.Context(), ownerID, carID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// SetCarPublished toggles the publish flag on the seller's own listing.
func SetCarPublished(svc carsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		carID, err := carIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setPublishedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetPublished(r.Context(), ownerID, carID, *payload.Published); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"published": *payload.Published})
	}
}

// PublicListCars serves the published catalog with cursor pagination.
func PublicListCars(svc carsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPublic(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// PublicGetCar serves a single published listing with seller contact.
func PublicGetCar(svc carsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "car service unavailable"))
			return
		}

		carID, err := carIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		car, err := svc.GetPublic(r.Context(), carID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, car)
	}
}
