package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/users"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/db"
	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/mail"
	"github.com/rmatassie/motormarche-backend/pkg/security"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-' || substr('89ab', abs(random()) % 4 + 1, 1) || substr(lower(hex(randomblob(2))),2) || '-' || lower(hex(randomblob(6)))),
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT,
  is_active INTEGER NOT NULL DEFAULT 0,
  activation_token TEXT,
  reset_token TEXT,
  reset_token_expiry DATETIME,
  email_verified_at DATETIME,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(`DROP TABLE IF EXISTS users`).Error)
	require.NoError(t, conn.Exec(schema).Error)
	return conn
}

type captureMailer struct {
	sent []mail.Message
	err  error
}

func (c *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func passwordTestConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newRegisterService(t *testing.T, conn *gorm.DB, mailer *captureMailer) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		DB:             db.NewFromConn(conn),
		PasswordConfig: passwordTestConfig(),
		Mailer:         mailer,
		BaseURL:        "https://motormarche.fr",
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterCreatesInactiveUserAndSendsActivation(t *testing.T) {
	conn := setupAuthTestDB(t)
	mailer := &captureMailer{}
	svc := newRegisterService(t, conn, mailer)

	err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Jean Dupont",
		Email:    "Jean.Dupont@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, conn.Where("email = ?", "jean.dupont@example.com").First(&user).Error)
	require.False(t, user.IsActive)
	require.NotNil(t, user.ActivationToken)
	require.NotNil(t, user.PasswordHash)

	valid, err := security.VerifyPassword("correct-horse", *user.PasswordHash)
	require.NoError(t, err)
	require.True(t, valid)

	require.Len(t, mailer.sent, 1)
	require.Equal(t, "jean.dupont@example.com", mailer.sent[0].ToEmail)
	require.True(t, strings.Contains(mailer.sent[0].HTML, *user.ActivationToken))
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	conn := setupAuthTestDB(t)
	mailer := &captureMailer{}
	svc := newRegisterService(t, conn, mailer)

	req := RegisterRequest{Name: "Jean", Email: "dup@example.com", Password: "correct-horse"}
	require.NoError(t, svc.Register(context.Background(), req))

	err := svc.Register(context.Background(), req)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeConflict, coded.Code())
	require.Len(t, mailer.sent, 1)
}

func TestRegisterRollsBackWhenEmailFails(t *testing.T) {
	conn := setupAuthTestDB(t)
	mailer := &captureMailer{err: errors.New("sendgrid down")}
	svc := newRegisterService(t, conn, mailer)

	err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Jean",
		Email:    "rollback@example.com",
		Password: "correct-horse",
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeInternal, coded.Code())

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestActivateFlipsAccountOnce(t *testing.T) {
	conn := setupAuthTestDB(t)
	mailer := &captureMailer{}
	regSvc := newRegisterService(t, conn, mailer)
	require.NoError(t, regSvc.Register(context.Background(), RegisterRequest{
		Name:     "Jean",
		Email:    "activate@example.com",
		Password: "correct-horse",
	}))

	var user models.User
	require.NoError(t, conn.Where("email = ?", "activate@example.com").First(&user).Error)
	require.NotNil(t, user.ActivationToken)
	token := *user.ActivationToken

	svc, err := NewActivateService(users.NewRepository(conn))
	require.NoError(t, err)

	dto, err := svc.Activate(context.Background(), token)
	require.NoError(t, err)
	require.True(t, dto.IsActive)
	require.NotNil(t, dto.EmailVerifiedAt)

	require.NoError(t, conn.Where("email = ?", "activate@example.com").First(&user).Error)
	require.True(t, user.IsActive)
	require.Nil(t, user.ActivationToken)

	_, err = svc.Activate(context.Background(), token)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestActivateRejectsUnknownToken(t *testing.T) {
	conn := setupAuthTestDB(t)
	svc, err := NewActivateService(users.NewRepository(conn))
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), "nope")
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeValidation, coded.Code())
}
