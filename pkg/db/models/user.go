package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity.
type User struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string     `gorm:"type:text;not null;uniqueIndex"`
	Name             string     `gorm:"column:name;not null"`
	PasswordHash     *string    `gorm:"column:password_hash"`
	IsActive         bool       `gorm:"column:is_active;not null;default:false"`
	ActivationToken  *string    `gorm:"column:activation_token"`
	ResetToken       *string    `gorm:"column:reset_token"`
	ResetTokenExpiry *time.Time `gorm:"column:reset_token_expiry"`
	EmailVerifiedAt  *time.Time `gorm:"column:email_verified_at"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
