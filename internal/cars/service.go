package cars

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/pagination"
)

// Listing filters accepted by the owner listing endpoint.
const (
	FilterActive   = "active"
	FilterArchived = "archived"
	FilterAll      = "all"
)

// Service exposes seller listing management and the public storefront reads.
type Service interface {
	CreateCar(ctx context.Context, ownerID uuid.UUID, input CreateCarInput) (*CarDTO, error)
	ListOwn(ctx context.Context, ownerID uuid.UUID, filter string) ([]CarDTO, error)
	DeleteCar(ctx context.Context, ownerID, carID uuid.UUID) error
	SetPublished(ctx context.Context, ownerID, carID uuid.UUID, published bool) error
	ListPublic(ctx context.Context, params pagination.Params) (*PublicListResult, error)
	GetPublic(ctx context.Context, carID uuid.UUID) (*PublicCarDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a car listing service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("car repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateCar(ctx context.Context, ownerID uuid.UUID, input CreateCarInput) (*CarDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	if !input.Fuel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fuel type")
	}
	if !input.Transmission.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transmission")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	currentYear := time.Now().UTC().Year()
	if input.Year < 1900 || input.Year > currentYear+1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid year")
	}

	published := true
	if input.Published != nil {
		published = *input.Published
	}

	car := &models.Car{
		ID:           uuid.New(),
		UserID:       ownerID,
		Title:        strings.TrimSpace(input.Title),
		PriceCents:   input.PriceCents,
		Brand:        strings.TrimSpace(input.Brand),
		Model:        strings.TrimSpace(input.Model),
		Year:         input.Year,
		Mileage:      input.Mileage,
		Fuel:         input.Fuel,
		Transmission: input.Transmission,
		Description:  input.Description,
		ImageURL:     input.ImageURL,
		ImageURL2:    input.ImageURL2,
		ImageURL3:    input.ImageURL3,
		Published:    published,
	}

	created, err := s.repo.Create(ctx, car)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create car")
	}
	return FromModel(created), nil
}

func (s *service) ListOwn(ctx context.Context, ownerID uuid.UUID, filter string) ([]CarDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	var published *bool
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", FilterActive:
		v := true
		published = &v
	case FilterArchived:
		v := false
		published = &v
	case FilterAll:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing filter")
	}

	rows, err := s.repo.ListByOwner(ctx, ownerID, published)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cars")
	}

	dtos := make([]CarDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return dtos, nil
}

func (s *service) DeleteCar(ctx context.Context, ownerID, carID uuid.UUID) error {
	affected, err := s.repo.DeleteOwned(ctx, ownerID, carID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete car")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "car not found")
	}
	return nil
}

func (s *service) SetPublished(ctx context.Context, ownerID, carID uuid.UUID, published bool) error {
	affected, err := s.repo.SetPublishedOwned(ctx, ownerID, carID, published)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update publish flag")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "car not found")
	}
	return nil
}

func (s *service) ListPublic(ctx context.Context, params pagination.Params) (*PublicListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListPublished(ctx, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list published cars")
	}

	result := &PublicListResult{Cars: make([]PublicCarDTO, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for i := range rows {
		result.Cars = append(result.Cars, publicFromModel(&rows[i]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		result.NextCursor = &next
	}
	return result, nil
}

func (s *service) GetPublic(ctx context.Context, carID uuid.UUID) (*PublicCarDTO, error) {
	car, err := s.repo.FindPublishedByID(ctx, carID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "car not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load car")
	}
	dto := publicFromModel(car)
	return &dto, nil
}
