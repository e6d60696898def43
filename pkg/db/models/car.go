package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/pkg/enums"
)

// Car represents a vehicle listing owned by a seller.
type Car struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Title        string             `gorm:"column:title;not null"`
	PriceCents   int64              `gorm:"column:price_cents;not null"`
	Brand        string             `gorm:"column:brand;not null"`
	Model        string             `gorm:"column:model;not null"`
	Year         int                `gorm:"column:year;not null"`
	Mileage      int                `gorm:"column:mileage;not null"`
	Fuel         enums.FuelType     `gorm:"column:fuel;type:text;not null"`
	Transmission enums.Transmission `gorm:"column:transmission;type:text;not null"`
	Description  *string            `gorm:"column:description"`
	ImageURL     *string            `gorm:"column:image_url"`
	ImageURL2    *string            `gorm:"column:image_url2"`
	ImageURL3    *string            `gorm:"column:image_url3"`
	Published    bool               `gorm:"column:published;not null;default:false"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`

	Seller *User `gorm:"foreignKey:UserID"`
}
