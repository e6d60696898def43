package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmatassie/motormarche-backend/api/routes"
	"github.com/rmatassie/motormarche-backend/internal/auth"
	"github.com/rmatassie/motormarche-backend/internal/cars"
	"github.com/rmatassie/motormarche-backend/internal/checkout"
	"github.com/rmatassie/motormarche-backend/internal/payments"
	"github.com/rmatassie/motormarche-backend/internal/purchases"
	"github.com/rmatassie/motormarche-backend/internal/ratings"
	"github.com/rmatassie/motormarche-backend/internal/users"
	stripewebhook "github.com/rmatassie/motormarche-backend/internal/webhooks/stripe"
	"github.com/rmatassie/motormarche-backend/pkg/auth/session"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/db"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/mail"
	"github.com/rmatassie/motormarche-backend/pkg/metrics"
	"github.com/rmatassie/motormarche-backend/pkg/migrate"
	"github.com/rmatassie/motormarche-backend/pkg/outbox"
	"github.com/rmatassie/motormarche-backend/pkg/redis"
	"github.com/rmatassie/motormarche-backend/pkg/stripe"
)

const webhookIdempotencyScope = "stripe-webhook"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	mailClient, err := mail.NewClient(ctx, cfg.Sendgrid, logg)
	requireResource(ctx, logg, "mail client", err)

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	requireResource(ctx, logg, "stripe client", err)

	userRepo := users.NewRepository(dbClient.DB())
	carRepo := cars.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())
	purchaseRepo := purchases.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireResource(ctx, logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
		Mailer:         mailClient,
		BaseURL:        cfg.Checkout.BaseURL,
	})
	requireResource(ctx, logg, "register service", err)

	activateService, err := auth.NewActivateService(userRepo)
	requireResource(ctx, logg, "activate service", err)

	passwordResetService, err := auth.NewPasswordResetService(auth.PasswordResetServiceParams{
		UserRepo:       userRepo,
		PasswordConfig: cfg.Password,
		Mailer:         mailClient,
		BaseURL:        cfg.Checkout.BaseURL,
		Logger:         logg,
	})
	requireResource(ctx, logg, "password reset service", err)

	carService, err := cars.NewService(carRepo)
	requireResource(ctx, logg, "car service", err)

	ratingService, err := ratings.NewService(ratings.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "rating service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		CarRepo:     carRepo,
		PaymentRepo: paymentRepo,
		Stripe:      checkout.NewStripeClient(stripeClient),
		Checkout:    cfg.Checkout,
		Logger:      logg,
	})
	requireResource(ctx, logg, "checkout service", err)

	purchaseService, err := purchases.NewService(purchaseRepo)
	requireResource(ctx, logg, "purchase service", err)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		PaymentRepo:       paymentRepo,
		CarRepo:           carRepo,
		PurchaseRepo:      purchaseRepo,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "stripe webhook service", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, webhookIdempotencyScope)
	requireResource(ctx, logg, "stripe webhook guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:               cfg,
			Logger:               logg,
			DB:                   dbClient,
			Redis:                redisClient,
			SessionManager:       sessionManager,
			AuthService:          authService,
			RegisterService:      registerService,
			ActivateService:      activateService,
			PasswordResetService: passwordResetService,
			CarService:           carService,
			RatingService:        ratingService,
			CheckoutService:      checkoutService,
			PurchaseService:      purchaseService,
			StripeClient:         stripeClient,
			StripeWebhookService: webhookService,
			StripeWebhookGuard:   webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
