package cars

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/pagination"
)

// Repository exposes car listing persistence operations.
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

// Create inserts a new car row.
func (r *Repository) Create(ctx context.Context, car *models.Car) (*models.Car, error) {
	if err := r.db.WithContext(ctx).Create(car).Error; err != nil {
		return nil, err
	}
	return car, nil
}

// FindByID loads the car without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	var car models.Car
	if err := r.db.WithContext(ctx).First(&car, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

// FindPublishedByID loads a published car with its seller preloaded.
func (r *Repository) FindPublishedByID(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	var car models.Car
	if err := r.db.WithContext(ctx).
		Preload("Seller").
		First(&car, "id = ? AND published = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

// ListByOwner returns the owner's cars, optionally filtered by publish state.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, published *bool) ([]models.Car, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if published != nil {
		q = q.Where("published = ?", *published)
	}

	var rows []models.Car
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPublished returns one keyset page of published cars, newest first.
func (r *Repository) ListPublished(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Car, error) {
	q := r.db.WithContext(ctx).
		Preload("Seller").
		Where("published = ?", true)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Car
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteOwned removes the car when it belongs to the owner. Returns the number
// of rows removed so callers can map zero to not-found.
func (r *Repository) DeleteOwned(ctx context.Context, ownerID, carID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", carID, ownerID).
		Delete(&models.Car{})
	return res.RowsAffected, res.Error
}

// SetPublishedOwned flips the publish flag when the car belongs to the owner.
func (r *Repository) SetPublishedOwned(ctx context.Context, ownerID, carID uuid.UUID, published bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Car{}).
		Where("id = ? AND user_id = ?", carID, ownerID).
		UpdateColumn("published", published)
	return res.RowsAffected, res.Error
}

// Unpublish clears the publish flag inside a fulfillment transaction.
func (r *Repository) Unpublish(ctx context.Context, carID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Car{}).
		Where("id = ?", carID).
		UpdateColumn("published", false).Error
}
