package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/pkg/enums"
)

// Purchase is the archived record of a settled sale. The unique index on
// payment_id guarantees at most one purchase per payment regardless of how
// many times Stripe redelivers the settlement event.
type Purchase struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	CarID       uuid.UUID            `gorm:"column:car_id;type:uuid;not null;index"`
	PaymentID   uuid.UUID            `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:ux_purchases_payment_id"`
	AmountCents int64                `gorm:"column:amount_cents;not null"`
	Status      enums.PurchaseStatus `gorm:"column:status;type:text;not null;default:'completed'"`
	PurchasedAt time.Time            `gorm:"column:purchased_at;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`

	Buyer   *User    `gorm:"foreignKey:BuyerID"`
	Car     *Car     `gorm:"foreignKey:CarID"`
	Payment *Payment `gorm:"foreignKey:PaymentID"`
}
