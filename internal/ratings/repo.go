package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
)

// Repository exposes rating persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts the user's rating or replaces score and comment in place.
func (r *Repository) Upsert(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
		}).
		Create(rating).Error
}

// FindByUser loads the user's rating if one exists.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rating).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}

// ListAll returns every rating with the rater preloaded, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Rating, error) {
	var rows []models.Rating
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByUser removes the user's rating and reports how many rows matched.
func (r *Repository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Rating{})
	return res.RowsAffected, res.Error
}
