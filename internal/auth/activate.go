package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/users"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
)

// ActivateService redeems activation tokens from the welcome email.
type ActivateService interface {
	Activate(ctx context.Context, token string) (*users.UserDTO, error)
}

type activateService struct {
	users *users.Repository
}

// NewActivateService builds an activation service over the users repo.
func NewActivateService(repo *users.Repository) (ActivateService, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &activateService{users: repo}, nil
}

func (s *activateService) Activate(ctx context.Context, token string) (*users.UserDTO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid activation token")
	}

	user, err := s.users.FindByActivationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid activation token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup activation token")
	}
	if user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account already activated")
	}

	now := time.Now().UTC()
	if err := s.users.Activate(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate user")
	}

	user.IsActive = true
	user.ActivationToken = nil
	user.EmailVerifiedAt = &now
	return users.FromModel(user), nil
}
