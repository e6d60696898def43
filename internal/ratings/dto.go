package ratings

import (
	"time"

	"github.com/google/uuid"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
)

// RatingDTO is the transport shape of a single site review.
type RatingDTO struct {
	ID        uuid.UUID `json:"id"`
	Score     int       `json:"score"`
	Comment   *string   `json:"comment,omitempty"`
	RaterName string    `json:"rater_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats aggregates the public rating summary.
type Stats struct {
	Total        int         `json:"total"`
	Average      float64     `json:"average"`
	Distribution map[int]int `json:"distribution"`
}

// PublicListResult combines the review list with its aggregate stats.
type PublicListResult struct {
	Ratings []RatingDTO `json:"ratings"`
	Stats   Stats       `json:"stats"`
}

// UpsertInput holds the validated payload for creating or replacing a rating.
type UpsertInput struct {
	Score   int
	Comment *string
}

func fromModel(r *models.Rating) *RatingDTO {
	if r == nil {
		return nil
	}
	dto := &RatingDTO{
		ID:        r.ID,
		Score:     r.Score,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.User != nil {
		dto.RaterName = r.User.Name
	}
	return dto
}
