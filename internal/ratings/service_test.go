package ratings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
)

func setupRatingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS ratings`,
		`DROP TABLE IF EXISTS users`,
		`CREATE TABLE users (
  id TEXT PRIMARY KEY,
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
)`,
		`CREATE TABLE ratings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  score INTEGER NOT NULL,
  comment TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_ratings_user_id UNIQUE (user_id)
)`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedRater(t *testing.T, conn *gorm.DB, name string) uuid.UUID {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: name + "@example.com", Name: name, IsActive: true}
	require.NoError(t, conn.Create(user).Error)
	return user.ID
}

func newRatingService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestUpsertReplacesOwnRating(t *testing.T) {
	conn := setupRatingsTestDB(t)
	user := seedRater(t, conn, "marie")
	svc := newRatingService(t, conn)

	first, err := svc.Upsert(context.Background(), user, UpsertInput{Score: 3})
	require.NoError(t, err)
	require.Equal(t, 3, first.Score)

	comment := "Great marketplace"
	second, err := svc.Upsert(context.Background(), user, UpsertInput{Score: 5, Comment: &comment})
	require.NoError(t, err)
	require.Equal(t, 5, second.Score)
	require.NotNil(t, second.Comment)

	var count int64
	require.NoError(t, conn.Model(&models.Rating{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpsertValidatesScore(t *testing.T) {
	conn := setupRatingsTestDB(t)
	user := seedRater(t, conn, "marie")
	svc := newRatingService(t, conn)

	for _, score := range []int{0, 6, -1} {
		_, err := svc.Upsert(context.Background(), user, UpsertInput{Score: score})
		coded := pkgerrors.As(err)
		require.NotNil(t, coded)
		require.Equal(t, pkgerrors.CodeValidation, coded.Code())
	}
}

func TestGetOwnReturnsNilWhenMissing(t *testing.T) {
	conn := setupRatingsTestDB(t)
	user := seedRater(t, conn, "marie")
	svc := newRatingService(t, conn)

	dto, err := svc.GetOwn(context.Background(), user)
	require.NoError(t, err)
	require.Nil(t, dto)
}

func TestDeleteOwn(t *testing.T) {
	conn := setupRatingsTestDB(t)
	user := seedRater(t, conn, "marie")
	svc := newRatingService(t, conn)

	err := svc.DeleteOwn(context.Background(), user)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeNotFound, coded.Code())

	_, err = svc.Upsert(context.Background(), user, UpsertInput{Score: 4})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteOwn(context.Background(), user))
}

func TestListPublicComputesStats(t *testing.T) {
	conn := setupRatingsTestDB(t)
	svc := newRatingService(t, conn)

	scores := []int{5, 5, 4, 2}
	for i, score := range scores {
		user := seedRater(t, conn, []string{"a", "b", "c", "d"}[i])
		_, err := svc.Upsert(context.Background(), user, UpsertInput{Score: score})
		require.NoError(t, err)
	}

	result, err := svc.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Ratings, 4)
	require.Equal(t, 4, result.Stats.Total)
	require.InDelta(t, 4.0, result.Stats.Average, 0.001)
	require.Equal(t, 2, result.Stats.Distribution[5])
	require.Equal(t, 1, result.Stats.Distribution[4])
	require.Equal(t, 1, result.Stats.Distribution[2])
	require.Equal(t, 0, result.Stats.Distribution[3])
	require.NotEmpty(t, result.Ratings[0].RaterName)
}
