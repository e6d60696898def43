package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
)

// Repository exposes payment persistence operations.
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

// Create inserts a new payment row.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// FindByStripeID resolves a payment by its checkout session identifier with
// the buyer, the car, and the car's seller preloaded.
func (r *Repository) FindByStripeID(ctx context.Context, stripeID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Preload("Buyer").
		Preload("Car").
		Preload("Car.Seller").
		First(&payment, "stripe_id = ?", stripeID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByID loads a payment without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateStatus writes the new status without transition checks. Callers go
// through Transition unless they already validated the move.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// Transition applies a forward-only status change. Moves that would demote a
// settled payment are rejected with a state conflict.
func (r *Repository) Transition(ctx context.Context, payment *models.Payment, to enums.PaymentStatus) error {
	if !payment.Status.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid payment status transition")
	}
	if err := r.UpdateStatus(ctx, payment.ID, to); err != nil {
		return err
	}
	payment.Status = to
	return nil
}
