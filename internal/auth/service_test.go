package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/users"
	pkgAuth "github.com/rmatassie/motormarche-backend/pkg/auth"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/security"
)

type stubSessionManager struct {
	generated []string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-token", nil
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "motormarche", ExpirationMinutes: 30}
}

func seedUser(t *testing.T, conn *gorm.DB, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, passwordTestConfig())
	require.NoError(t, err)

	user := &models.User{Email: email, Name: "Test Driver", PasswordHash: &hash, IsActive: active}
	require.NoError(t, conn.Create(user).Error)
	require.NoError(t, conn.Where("email = ?", email).First(user).Error)
	return user
}

func TestLoginIssuesTokens(t *testing.T) {
	conn := setupAuthTestDB(t)
	user := seedUser(t, conn, "driver@example.com", "correct-horse", true)

	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      jwtTestConfig(),
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Driver@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, "refresh-token", resp.RefreshToken)
	require.Equal(t, user.Email, resp.User.Email)

	claims, err := pkgAuth.ParseAccessToken(jwtTestConfig(), resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Len(t, sessions.generated, 1)
	require.Equal(t, claims.ID, sessions.generated[0])

	var reloaded models.User
	require.NoError(t, conn.Where("email = ?", user.Email).First(&reloaded).Error)
	require.NotNil(t, reloaded.LastLoginAt)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	conn := setupAuthTestDB(t)
	seedUser(t, conn, "pending@example.com", "correct-horse", false)

	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: &stubSessionManager{},
		JWTConfig:      jwtTestConfig(),
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "pending@example.com", Password: "correct-horse"})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
}

func TestLoginRejectsBadPassword(t *testing.T) {
	conn := setupAuthTestDB(t)
	seedUser(t, conn, "driver@example.com", "correct-horse", true)

	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: &stubSessionManager{},
		JWTConfig:      jwtTestConfig(),
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "driver@example.com", Password: "wrong"})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
	require.Equal(t, invalidCredentialsMessage, coded.Message())
}

func newResetService(t *testing.T, conn *gorm.DB, mailer *captureMailer) PasswordResetService {
	t.Helper()
	svc, err := NewPasswordResetService(PasswordResetServiceParams{
		UserRepo:       users.NewRepository(conn),
		PasswordConfig: passwordTestConfig(),
		Mailer:         mailer,
		BaseURL:        "https://motormarche.fr",
	})
	require.NoError(t, err)
	return svc
}

func TestForgotPasswordStoresTokenAndMailsLink(t *testing.T) {
	conn := setupAuthTestDB(t)
	seedUser(t, conn, "driver@example.com", "correct-horse", true)

	mailer := &captureMailer{}
	svc := newResetService(t, conn, mailer)

	require.NoError(t, svc.ForgotPassword(context.Background(), "driver@example.com"))

	var user models.User
	require.NoError(t, conn.Where("email = ?", "driver@example.com").First(&user).Error)
	require.NotNil(t, user.ResetToken)
	require.NotNil(t, user.ResetTokenExpiry)

	require.Len(t, mailer.sent, 1)
	require.Contains(t, mailer.sent[0].HTML, *user.ResetToken)
}

func TestForgotPasswordSilentOnUnknownEmail(t *testing.T) {
	conn := setupAuthTestDB(t)
	mailer := &captureMailer{}
	svc := newResetService(t, conn, mailer)

	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@example.com"))
	require.Empty(t, mailer.sent)
}

func TestResetPasswordRedeemsToken(t *testing.T) {
	conn := setupAuthTestDB(t)
	user := seedUser(t, conn, "driver@example.com", "old-password", true)

	repo := users.NewRepository(conn)
	expiry := time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.SetResetToken(context.Background(), user.ID, "reset-token-123", expiry))

	mailer := &captureMailer{}
	svc := newResetService(t, conn, mailer)
	require.NoError(t, svc.ResetPassword(context.Background(), "reset-token-123", "new-password-1"))

	var reloaded models.User
	require.NoError(t, conn.Where("email = ?", "driver@example.com").First(&reloaded).Error)
	require.Nil(t, reloaded.ResetToken)
	require.NotNil(t, reloaded.PasswordHash)

	valid, err := security.VerifyPassword("new-password-1", *reloaded.PasswordHash)
	require.NoError(t, err)
	require.True(t, valid)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	conn := setupAuthTestDB(t)
	user := seedUser(t, conn, "driver@example.com", "old-password", true)

	repo := users.NewRepository(conn)
	expiry := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.SetResetToken(context.Background(), user.ID, "stale-token", expiry))

	svc := newResetService(t, conn, &captureMailer{})
	err := svc.ResetPassword(context.Background(), "stale-token", "new-password-1")
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeValidation, coded.Code())
}
