package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/users"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/db"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/mail"
	"github.com/rmatassie/motormarche-backend/pkg/security"
)

const activationTokenBytes = 32

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) error
}

type mailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
	Mailer         mailSender
	BaseURL        string
}

type registerService struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
	mailer      mailSender
	baseURL     string
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mail sender required")
	}
	return &registerService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
		mailer:      params.Mailer,
		baseURL:     strings.TrimRight(params.BaseURL, "/"),
	}, nil
}

// Register creates an inactive account and mails the activation link. The user
// row and the email send share one transaction so a delivery failure leaves no
// orphaned account behind.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	activationToken, err := security.GenerateToken(activationTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate activation token")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		if _, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:           email,
			Name:            name,
			PasswordHash:    passwordHash,
			ActivationToken: activationToken,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if err := s.mailer.Send(ctx, activationMessage(name, email, s.activationLink(activationToken))); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "send activation email")
		}

		return nil
	})
}

func (s *registerService) activationLink(token string) string {
	return fmt.Sprintf("%s/activate?token=%s", s.baseURL, token)
}

func activationMessage(name, email, link string) mail.Message {
	return mail.Message{
		ToName:  name,
		ToEmail: email,
		Subject: "Activate your MotorMarche account",
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>Welcome to MotorMarche. Confirm your email address to activate your account:</p><p><a href="%s">Activate my account</a></p><p>If you did not create this account you can ignore this email.</p>`,
			name, link,
		),
		PlainText: fmt.Sprintf("Hello %s,\n\nActivate your MotorMarche account: %s\n", name, link),
	}
}
