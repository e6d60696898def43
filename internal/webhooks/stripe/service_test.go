package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rmatassie/motormarche-backend/internal/cars"
	"github.com/rmatassie/motormarche-backend/internal/payments"
	"github.com/rmatassie/motormarche-backend/internal/purchases"
	"github.com/rmatassie/motormarche-backend/pkg/db"
	"github.com/rmatassie/motormarche-backend/pkg/db/models"
	"github.com/rmatassie/motormarche-backend/pkg/enums"
	pkgerrors "github.com/rmatassie/motormarche-backend/pkg/errors"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/outbox"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS outbox_events`,
		`DROP TABLE IF EXISTS purchases`,
		`DROP TABLE IF EXISTS payments`,
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
  id TEXT PRIMARY KEY,
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
		`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  stripe_id TEXT NOT NULL UNIQUE,
  amount_cents INTEGER NOT NULL,
  fee_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  user_id TEXT NOT NULL,
  car_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
		`CREATE TABLE purchases (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  car_id TEXT NOT NULL,
  payment_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'completed',
  purchased_at DATETIME NOT NULL,
  created_at DATETIME,
  CONSTRAINT ux_purchases_payment_id UNIQUE (payment_id)
)`,
		`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-' || substr('89ab', abs(random()) % 4 + 1, 1) || substr(lower(hex(randomblob(2))),2) || '-' || lower(hex(randomblob(6)))),
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  terminal INTEGER NOT NULL DEFAULT 0,
  CONSTRAINT ux_outbox_identity UNIQUE (event_type, aggregate_type, aggregate_id)
)`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newWebhookTestService(t *testing.T, conn *gorm.DB) *Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		PaymentRepo:       payments.NewRepository(conn),
		CarRepo:           cars.NewRepository(conn),
		PurchaseRepo:      purchases.NewRepository(conn),
		Outbox:            outbox.NewService(outbox.NewRepository(conn), logg),
		TransactionRunner: db.NewFromConn(conn),
		Logger:            logg,
	})
	require.NoError(t, err)
	return svc
}

type fulfillmentSeed struct {
	buyer   models.User
	seller  models.User
	car     models.Car
	payment models.Payment
}

func seedFulfillment(t *testing.T, conn *gorm.DB, sessionID string) fulfillmentSeed {
	t.Helper()

	seed := fulfillmentSeed{
		buyer:  models.User{ID: uuid.New(), Email: "buyer@example.com", Name: "Claire Buyer", IsActive: true},
		seller: models.User{ID: uuid.New(), Email: "seller@example.com", Name: "Marc Seller", IsActive: true},
	}
	require.NoError(t, conn.Create(&seed.buyer).Error)
	require.NoError(t, conn.Create(&seed.seller).Error)

	seed.car = models.Car{
		ID:           uuid.New(),
		UserID:       seed.seller.ID,
		Title:        "Peugeot 208 Allure",
		PriceCents:   1000000,
		Brand:        "Peugeot",
		Model:        "208",
		Year:         2021,
		Mileage:      42000,
		Fuel:         enums.FuelGasoline,
		Transmission: enums.TransmissionManual,
		Published:    true,
	}
	require.NoError(t, conn.Create(&seed.car).Error)

	seed.payment = models.Payment{
		ID:          uuid.New(),
		StripeID:    sessionID,
		AmountCents: 1000000,
		FeeCents:    50000,
		Status:      enums.PaymentStatusPending,
		UserID:      seed.buyer.ID,
		CarID:       seed.car.ID,
	}
	require.NoError(t, conn.Create(&seed.payment).Error)
	return seed
}

func checkoutSessionEvent(eventType stripe.EventType, sessionID string) *stripe.Event {
	raw := fmt.Sprintf(`{"id":%q,"object":"checkout.session"}`, sessionID)
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: eventType,
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func countOutboxEvents(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error)
	return count
}

func TestFulfillSettlesPayment(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)
	seed := seedFulfillment(t, conn, "cs_test_settle")

	err := svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionCompleted, "cs_test_settle"))
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, conn.First(&payment, "id = ?", seed.payment.ID).Error)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)

	var purchase models.Purchase
	require.NoError(t, conn.First(&purchase, "payment_id = ?", seed.payment.ID).Error)
	require.Equal(t, seed.buyer.ID, purchase.BuyerID)
	require.Equal(t, seed.car.ID, purchase.CarID)
	require.Equal(t, int64(1000000), purchase.AmountCents)

	var car models.Car
	require.NoError(t, conn.First(&car, "id = ?", seed.car.ID).Error)
	require.False(t, car.Published)

	require.Equal(t, int64(1), countOutboxEvents(t, conn, enums.EventInvoiceEmailRequested))
	require.Equal(t, int64(1), countOutboxEvents(t, conn, enums.EventPurchaseEmailRequested))
	require.Equal(t, int64(1), countOutboxEvents(t, conn, enums.EventSaleNoticeEmailRequested))
}

func TestFulfillRedeliveryIsIdempotent(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)
	seed := seedFulfillment(t, conn, "cs_test_redeliver")

	event := checkoutSessionEvent(stripe.EventTypeCheckoutSessionCompleted, "cs_test_redeliver")
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.NoError(t, svc.HandleEvent(context.Background(), event))

	var purchaseCount int64
	require.NoError(t, conn.Model(&models.Purchase{}).
		Where("payment_id = ?", seed.payment.ID).
		Count(&purchaseCount).Error)
	require.Equal(t, int64(1), purchaseCount)

	require.Equal(t, int64(1), countOutboxEvents(t, conn, enums.EventInvoiceEmailRequested))
	require.Equal(t, int64(1), countOutboxEvents(t, conn, enums.EventSaleNoticeEmailRequested))
}

func TestFulfillSkipsMailWithoutBuyerName(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)
	seed := seedFulfillment(t, conn, "cs_test_nameless")
	require.NoError(t, conn.Model(&models.User{}).
		Where("id = ?", seed.buyer.ID).
		UpdateColumn("name", "").Error)

	err := svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionCompleted, "cs_test_nameless"))
	require.NoError(t, err)

	var purchase models.Purchase
	require.NoError(t, conn.First(&purchase, "payment_id = ?", seed.payment.ID).Error)

	var car models.Car
	require.NoError(t, conn.First(&car, "id = ?", seed.car.ID).Error)
	require.False(t, car.Published)

	require.Equal(t, int64(0), countOutboxEvents(t, conn, enums.EventInvoiceEmailRequested))
	require.Equal(t, int64(0), countOutboxEvents(t, conn, enums.EventPurchaseEmailRequested))
	require.Equal(t, int64(0), countOutboxEvents(t, conn, enums.EventSaleNoticeEmailRequested))
}

func TestFulfillSkipsWhenSellerMissing(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)
	seed := seedFulfillment(t, conn, "cs_test_orphan_car")
	require.NoError(t, conn.Model(&models.Car{}).
		Where("id = ?", seed.car.ID).
		UpdateColumn("user_id", uuid.New()).Error)

	err := svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionCompleted, "cs_test_orphan_car"))
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, conn.First(&payment, "id = ?", seed.payment.ID).Error)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)

	var purchases int64
	require.NoError(t, conn.Model(&models.Purchase{}).Count(&purchases).Error)
	require.Zero(t, purchases)

	var car models.Car
	require.NoError(t, conn.First(&car, "id = ?", seed.car.ID).Error)
	require.True(t, car.Published)

	var intents int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&intents).Error)
	require.Zero(t, intents)
}

func TestFulfillUnknownSessionFails(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)

	err := svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionCompleted, "cs_test_unknown"))
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	require.Equal(t, pkgerrors.CodeDependency, coded.Code())
}

func TestExpireMarksPaymentFailed(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)
	seed := seedFulfillment(t, conn, "cs_test_expire")

	err := svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionExpired, "cs_test_expire"))
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, conn.First(&payment, "id = ?", seed.payment.ID).Error)
	require.Equal(t, enums.PaymentStatusFailed, payment.Status)

	var purchases int64
	require.NoError(t, conn.Model(&models.Purchase{}).Count(&purchases).Error)
	require.Zero(t, purchases)

	var intents int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&intents).Error)
	require.Zero(t, intents)
}

func TestExpireNeverDemotesSettledPayment(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)
	seed := seedFulfillment(t, conn, "cs_test_settled_expire")

	require.NoError(t, svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionCompleted, "cs_test_settled_expire")))
	require.NoError(t, svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionExpired, "cs_test_settled_expire")))

	var payment models.Payment
	require.NoError(t, conn.First(&payment, "id = ?", seed.payment.ID).Error)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
}

func TestExpireIgnoresUnknownSession(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)

	err := svc.HandleEvent(context.Background(), checkoutSessionEvent(stripe.EventTypeCheckoutSessionExpired, "cs_test_ghost"))
	require.NoError(t, err)
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newWebhookTestService(t, conn)

	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
}
