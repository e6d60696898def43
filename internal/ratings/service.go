package ratings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
)

// Service exposes site rating operations.
type Service interface {
	Upsert(ctx context.Context, userID uuid.UUID, input UpsertInput) (*RatingDTO, error)
	GetOwn(ctx context.Context, userID uuid.UUID) (*RatingDTO, error)
	DeleteOwn(ctx context.Context, userID uuid.UUID) error
	ListPublic(ctx context.Context) (*PublicListResult, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a rating service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rating repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Upsert(ctx context.Context, userID uuid.UUID, input UpsertInput) (*RatingDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user")
	}
	if input.Score < 1 || input.Score > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "score must be between 1 and 5")
	}

	rating := &models.Rating{
		ID:      uuid.New(),
		UserID:  userID,
		Score:   input.Score,
		Comment: input.Comment,
	}
	if err := s.repo.Upsert(ctx, rating); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upsert rating")
	}

	saved, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload rating")
	}
	return fromModel(saved), nil
}

func (s *service) GetOwn(ctx context.Context, userID uuid.UUID) (*RatingDTO, error) {
	rating, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load rating")
	}
	return fromModel(rating), nil
}

func (s *service) DeleteOwn(ctx context.Context, userID uuid.UUID) error {
	affected, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete rating")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "rating not found")
	}
	return nil
}

func (s *service) ListPublic(ctx context.Context) (*PublicListResult, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ratings")
	}

	result := &PublicListResult{
		Ratings: make([]RatingDTO, 0, len(rows)),
		Stats:   Stats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}},
	}

	sum := 0
	for i := range rows {
		result.Ratings = append(result.Ratings, *fromModel(&rows[i]))
		if rows[i].Score >= 1 && rows[i].Score <= 5 {
			result.Stats.Distribution[rows[i].Score]++
		}
		sum += rows[i].Score
	}
	result.Stats.Total = len(rows)
	if len(rows) > 0 {
		result.Stats.Average = math.Round(float64(sum)/float64(len(rows))*10) / 10
	}
	return result, nil
}
