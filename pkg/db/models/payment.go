package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/pkg/enums"
)

// Payment tracks a Stripe checkout session from creation through settlement.
// StripeID holds the checkout session identifier and is the key the webhook
// handler resolves incoming events by.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StripeID    string              `gorm:"column:stripe_id;type:text;not null;uniqueIndex"`
	AmountCents int64               `gorm:"column:amount_cents;not null"`
	FeeCents    int64               `gorm:"column:fee_cents;not null;default:0"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CarID       uuid.UUID           `gorm:"column:car_id;type:uuid;not null;index"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Buyer *User `gorm:"foreignKey:UserID"`
	Car   *Car  `gorm:"foreignKey:CarID"`
}
