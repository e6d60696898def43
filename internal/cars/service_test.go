package cars

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/pagination"
)

func setupCarsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS cars`,
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
		`CREATE TABLE cars (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-' || substr('89ab', abs(random()) % 4 + 1, 1) || substr(lower(hex(randomblob(2))),2) || '-' || lower(hex(randomblob(6)))),
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  brand TEXT NOT NULL,
  model TEXT NOT NULL,
  year INTEGER NOT NULL,
  mileage INTEGER NOT NULL,
  fuel TEXT NOT NULL,
  transmission TEXT NOT NULL,
  description TEXT,
  image_url TEXT,
  image_url2 TEXT,
  image_url3 TEXT,
  published INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedSeller(t *testing.T, conn *gorm.DB, name, email string) uuid.UUID {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: email, Name: name, IsActive: true}
	require.NoError(t, conn.Create(user).Error)
	return user.ID
}

func newCarService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func carInput() CreateCarInput {
	return CreateCarInput{
		Title:        "Peugeot 208 GT Line",
		PriceCents:   1250000,
		Brand:        "Peugeot",
		Model:        "208",
		Year:         2021,
		Mileage:      42000,
		Fuel:         enums.FuelGasoline,
		Transmission: enums.TransmissionManual,
	}
}

func TestCreateCarDefaultsPublished(t *testing.T) {
	conn := setupCarsTestDB(t)
	owner := seedSeller(t, conn, "Marie", "marie@example.com")
	svc := newCarService(t, conn)

	dto, err := svc.CreateCar(context.Background(), owner, carInput())
	require.NoError(t, err)
	require.True(t, dto.Published)
	require.Equal(t, "Peugeot 208 GT Line", dto.Title)

	unpublished := carInput()
	flag := false
	unpublished.Published = &flag
	dto, err = svc.CreateCar(context.Background(), owner, unpublished)
	require.NoError(t, err)
	require.False(t, dto.Published)
}

func TestCreateCarValidatesEnums(t *testing.T) {
	conn := setupCarsTestDB(t)
	owner := seedSeller(t, conn, "Marie", "marie@example.com")
	svc := newCarService(t, conn)

	input := carInput()
	input.Fuel = enums.FuelType("kerosene")
	_, err := svc.CreateCar(context.Background(), owner, input)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestListOwnFilters(t *testing.T) {
	conn := setupCarsTestDB(t)
	owner := seedSeller(t, conn, "Marie", "marie@example.com")
	other := seedSeller(t, conn, "Paul", "paul@example.com")
	svc := newCarService(t, conn)

	_, err := svc.CreateCar(context.Background(), owner, carInput())
	require.NoError(t, err)

	archived := carInput()
	flag := false
	archived.Published = &flag
	_, err = svc.CreateCar(context.Background(), owner, archived)
	require.NoError(t, err)

	_, err = svc.CreateCar(context.Background(), other, carInput())
	require.NoError(t, err)

	active, err := svc.ListOwn(context.Background(), owner, FilterActive)
	require.NoError(t, err)
	require.Len(t, active, 1)

	archivedRows, err := svc.ListOwn(context.Background(), owner, FilterArchived)
	require.NoError(t, err)
	require.Len(t, archivedRows, 1)

	all, err := svc.ListOwn(context.Background(), owner, FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = svc.ListOwn(context.Background(), owner, "bogus")
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestDeleteCarOwnerOnly(t *testing.T) {
	conn := setupCarsTestDB(t)
	owner := seedSeller(t, conn, "Marie", "marie@example.com")
	other := seedSeller(t, conn, "Paul", "paul@example.com")
	svc := newCarService(t, conn)

	dto, err := svc.CreateCar(context.Background(), owner, carInput())
	require.NoError(t, err)

	err = svc.DeleteCar(context.Background(), other, dto.ID)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeNotFound, coded.Code())

	require.NoError(t, svc.DeleteCar(context.Background(), owner, dto.ID))

	var count int64
	require.NoError(t, conn.Model(&models.Car{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestSetPublishedOwnerOnly(t *testing.T) {
	conn := setupCarsTestDB(t)
	owner := seedSeller(t, conn, "Marie", "marie@example.com")
	other := seedSeller(t, conn, "Paul", "paul@example.com")
	svc := newCarService(t, conn)

	dto, err := svc.CreateCar(context.Background(), owner, carInput())
	require.NoError(t, err)

	err = svc.SetPublished(context.Background(), other, dto.ID, false)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeNotFound, coded.Code())

	require.NoError(t, svc.SetPublished(context.Background(), owner, dto.ID, false))

	var car models.Car
	require.NoError(t, conn.First(&car, "id = ?", dto.ID).Error)
	require.False(t, car.Published)
}

func TestListPublicPaginatesNewestFirst(t *testing.T) {
	conn := setupCarsTestDB(t)
	owner := seedSeller(t, conn, "Marie", "marie@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		car := &models.Car{
			ID:           uuid.New(),
			UserID:       owner,
			Title:        fmt.Sprintf("Car %d", i),
			PriceCents:   1000000 + int64(i),
			Brand:        "Renault",
			Model:        "Clio",
			Year:         2020,
			Mileage:      30000,
			Fuel:         enums.FuelDiesel,
			Transmission: enums.TransmissionAutomatic,
			Published:    true,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, conn.Create(car).Error)
	}

	svc := newCarService(t, conn)

	first, err := svc.ListPublic(context.Background(), pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Cars, 3)
	require.Equal(t, "Car 4", first.Cars[0].Title)
	require.NotNil(t, first.NextCursor)
	require.Equal(t, "Marie", first.Cars[0].Seller.Name)

	second, err := svc.ListPublic(context.Background(), pagination.Params{Limit: 3, Cursor: *first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Cars, 2)
	require.Equal(t, "Car 1", second.Cars[0].Title)
	require.Nil(t, second.NextCursor)
}

func TestGetPublicHidesUnpublished(t *testing.T) {
	conn := setupCarsTestDB(t)
	owner := seedSeller(t, conn, "Marie", "marie@example.com")
	svc := newCarService(t, conn)

	input := carInput()
	flag := false
	input.Published = &flag
	dto, err := svc.CreateCar(context.Background(), owner, input)
	require.NoError(t, err)

	_, err = svc.GetPublic(context.Background(), dto.ID)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeNotFound, coded.Code())

	require.NoError(t, svc.SetPublished(context.Background(), owner, dto.ID, true))
	public, err := svc.GetPublic(context.Background(), dto.ID)
	require.NoError(t, err)
	require.Equal(t, "marie@example.com", public.Seller.Email)
}
