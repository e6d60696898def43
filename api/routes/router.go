package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmatassie/motormarche-backend/api/controllers"
	webhookcontrollers "github.com/rmatassie/motormarche-backend/api/controllers/webhooks"
	"github.com/rmatassie/motormarche-backend/api/middleware"
	"github.com/rmatassie/motormarche-backend/internal/auth"
	carsvc "github.com/rmatassie/motormarche-backend/internal/cars"
	checkoutsvc "github.com/rmatassie/motormarche-backend/internal/checkout"
	purchasesvc "github.com/rmatassie/motormarche-backend/internal/purchases"
	ratingsvc "github.com/rmatassie/motormarche-backend/internal/ratings"
	stripewebhook "github.com/rmatassie/motormarche-backend/internal/webhooks/stripe"
	"github.com/rmatassie/motormarche-backend/pkg/auth/session"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/redis"
	"github.com/rmatassie/motormarche-backend/pkg/stripe"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries every dependency the HTTP surface needs.
type RouterParams struct {
	Config               *config.Config
	Logger               *logger.Logger
	DB                   pinger
	Redis                *redis.Client
	SessionManager       sessionManager
	AuthService          auth.Service
	RegisterService      auth.RegisterService
	ActivateService      auth.ActivateService
	PasswordResetService auth.PasswordResetService
	CarService           carsvc.Service
	RatingService        ratingsvc.Service
	CheckoutService      checkoutsvc.Service
	PurchaseService      purchasesvc.Service
	StripeClient         *stripe.Client
	StripeWebhookService *stripewebhook.Service
	StripeWebhookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/cars", controllers.PublicListCars(p.CarService, logg))
		r.Get("/cars/{carId}", controllers.PublicGetCar(p.CarService, logg))
		r.Get("/ratings", controllers.PublicListRatings(p.RatingService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhookService, p.StripeClient, p.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
		r.Get("/activate", controllers.AuthActivate(p.ActivateService, logg))
		r.Post("/activate", controllers.AuthActivate(p.ActivateService, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(p.PasswordResetService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(p.PasswordResetService, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))

		r.Route("/cars", func(r chi.Router) {
			r.Post("/", controllers.CreateCar(p.CarService, logg))
			r.Get("/", controllers.ListOwnCars(p.CarService, logg))
			r.Delete("/{carId}", controllers.DeleteCar(p.CarService, logg))
			r.Patch("/{carId}/publish", controllers.SetCarPublished(p.CarService, logg))
		})

		r.Post("/checkout", controllers.CreateCheckoutSession(p.CheckoutService, logg))
		r.Get("/purchases", controllers.ListOwnPurchases(p.PurchaseService, logg))

		r.Route("/ratings", func(r chi.Router) {
			r.Post("/", controllers.UpsertRating(p.RatingService, logg))
			r.Get("/me", controllers.GetOwnRating(p.RatingService, logg))
			r.Delete("/me", controllers.DeleteOwnRating(p.RatingService, logg))
		})
	})

	return r
}
