package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/users"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/mail"
	"github.com/rmatassie/motormarche-backend/pkg/security"
)

const (
	resetTokenBytes = 32
	resetTokenTTL   = time.Hour
)

// PasswordResetService covers the forgot/reset password pair.
type PasswordResetService interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// PasswordResetServiceParams packages the reset flow dependencies.
type PasswordResetServiceParams struct {
	UserRepo       *users.Repository
	PasswordConfig config.PasswordConfig
	Mailer         mailSender
	BaseURL        string
	Logger         *logger.Logger
}

type passwordResetService struct {
	users       *users.Repository
	passwordCfg config.PasswordConfig
	mailer      mailSender
	baseURL     string
	logg        *logger.Logger
}

// NewPasswordResetService builds the forgot/reset password service.
func NewPasswordResetService(params PasswordResetServiceParams) (PasswordResetService, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mail sender required")
	}
	return &passwordResetService{
		users:       params.UserRepo,
		passwordCfg: params.PasswordConfig,
		mailer:      params.Mailer,
		baseURL:     strings.TrimRight(params.BaseURL, "/"),
		logg:        params.Logger,
	}, nil
}

// ForgotPassword stores a reset token and mails the link. Unknown addresses
// return nil so the endpoint never reveals whether an account exists.
func (s *passwordResetService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	token, err := security.GenerateToken(resetTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}

	expiry := time.Now().UTC().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	if err := s.mailer.Send(ctx, resetMessage(user.Name, user.Email, link)); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "auth.password_reset.email_failed", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "send reset email")
	}
	return nil
}

// ResetPassword redeems a reset token for a new password hash.
func (s *passwordResetService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}

	user, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
	}
	if user.ResetTokenExpiry == nil || time.Now().UTC().After(*user.ResetTokenExpiry) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}

	passwordHash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

func resetMessage(name, email, link string) mail.Message {
	return mail.Message{
		ToName:  name,
		ToEmail: email,
		Subject: "Reset your MotorMarche password",
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>We received a request to reset your password. The link below is valid for one hour:</p><p><a href="%s">Choose a new password</a></p><p>If you did not ask for this, ignore this email and your password stays unchanged.</p>`,
			name, link,
		),
		PlainText: fmt.Sprintf("Hello %s,\n\nReset your MotorMarche password (valid one hour): %s\n", name, link),
	}
}
