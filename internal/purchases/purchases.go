package purchases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
)

// CarFacts is the snapshot of the vehicle shown in the purchase archive.
type CarFacts struct {
	ID       uuid.UUID      `json:"id"`
	Title    string         `json:"title"`
	Brand    string         `json:"brand"`
	Model    string         `json:"model"`
	Year     int            `json:"year"`
	Mileage  int            `json:"mileage"`
	Fuel     enums.FuelType `json:"fuel"`
	ImageURL *string        `json:"image_url,omitempty"`
}

// SellerContact identifies who to reach about a completed purchase.
type SellerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PurchaseDTO is one row of the buyer's archive.
type PurchaseDTO struct {
	ID          uuid.UUID            `json:"id"`
	AmountCents int64                `json:"amount_cents"`
	Status      enums.PurchaseStatus `json:"status"`
	PurchasedAt time.Time            `json:"purchased_at"`
	Car         *CarFacts            `json:"car,omitempty"`
	Seller      *SellerContact       `json:"seller,omitempty"`
}

// Repository exposes purchase persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the archive row for a settled payment.
func (r *Repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

// ListByBuyer returns the buyer's purchases, newest first, with the car and
// its seller preloaded.
func (r *Repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Purchase, error) {
	var rows []models.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Car").
		Preload("Car.Seller").
		Where("buyer_id = ?", buyerID).
		Order("purchased_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Service exposes the buyer-facing purchase archive.
type Service interface {
	ListOwn(ctx context.Context, buyerID uuid.UUID) ([]PurchaseDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a purchase archive service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListOwn(ctx context.Context, buyerID uuid.UUID) ([]PurchaseDTO, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}

	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}

	dtos := make([]PurchaseDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, fromModel(&rows[i]))
	}
	return dtos, nil
}

func fromModel(p *models.Purchase) PurchaseDTO {
	dto := PurchaseDTO{
		ID:          p.ID,
		AmountCents: p.AmountCents,
		Status:      p.Status,
		PurchasedAt: p.PurchasedAt,
	}
	if p.Car != nil {
		dto.Car = &CarFacts{
			ID:       p.Car.ID,
			Title:    p.Car.Title,
			Brand:    p.Car.Brand,
			Model:    p.Car.Model,
			Year:     p.Car.Year,
			Mileage:  p.Car.Mileage,
			Fuel:     p.Car.Fuel,
			ImageURL: p.Car.ImageURL,
		}
		if p.Car.Seller != nil {
			dto.Seller = &SellerContact{Name: p.Car.Seller.Name, Email: p.Car.Seller.Email}
		}
	}
	return dto
}
