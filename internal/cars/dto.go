package cars

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
)

// CarDTO is the transport shape for a listing as its owner sees it.
type CarDTO struct {
	ID           uuid.UUID          `json:"id"`
	Title        string             `json:"title"`
	PriceCents   int64              `json:"price_cents"`
	Brand        string             `json:"brand"`
	Model        string             `json:"model"`
	Year         int                `json:"year"`
	Mileage      int                `json:"mileage"`
	Fuel         enums.FuelType     `json:"fuel"`
	Transmission enums.Transmission `json:"transmission"`
	Description  *string            `json:"description,omitempty"`
	ImageURL     *string            `json:"image_url,omitempty"`
	ImageURL2    *string            `json:"image_url2,omitempty"`
	ImageURL3    *string            `json:"image_url3,omitempty"`
	Published    bool               `json:"published"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// SellerContact is the public slice of the seller shown next to a listing.
type SellerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PublicCarDTO is the storefront shape, listing plus seller contact.
type PublicCarDTO struct {
	CarDTO
	Seller SellerContact `json:"seller"`
}

// PublicListResult carries one storefront page and the cursor to the next.
type PublicListResult struct {
	Cars       []PublicCarDTO `json:"cars"`
	NextCursor *string        `json:"next_cursor"`
}

// CreateCarInput holds the validated payload to create a listing.
type CreateCarInput struct {
	Title        string
	PriceCents   int64
	Brand        string
	Model        string
	Year         int
	Mileage      int
	Fuel         enums.FuelType
	Transmission enums.Transmission
	Description  *string
	ImageURL     *string
	ImageURL2    *string
	ImageURL3    *string
	Published    *bool
}

func FromModel(c *models.Car) *CarDTO {
	if c == nil {
		return nil
	}
	return &CarDTO{
		ID:           c.ID,
		Title:        c.Title,
		PriceCents:   c.PriceCents,
		Brand:        c.Brand,
		Model:        c.Model,
		Year:         c.Year,
		Mileage:      c.Mileage,
		Fuel:         c.Fuel,
		Transmission: c.Transmission,
		Description:  c.Description,
		ImageURL:     c.ImageURL,
		ImageURL2:    c.ImageURL2,
		ImageURL3:    c.ImageURL3,
		Published:    c.Published,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func publicFromModel(c *models.Car) PublicCarDTO {
	dto := PublicCarDTO{CarDTO: *FromModel(c)}
	if c.Seller != nil {
		dto.Seller = SellerContact{Name: c.Seller.Name, Email: c.Seller.Email}
	}
	return dto
}
