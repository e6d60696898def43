package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmatassie/motormarche-backend/internal/mailer"
	"github.com/rmatassie/motormarche-backend/pkg/config"
	"github.com/rmatassie/motormarche-backend/pkg/logger"
	"github.com/rmatassie/motormarche-backend/pkg/mail"
	"github.com/rmatassie/motormarche-backend/pkg/metrics"
	"github.com/rmatassie/motormarche-backend/pkg/outbox/idempotency"
	"github.com/rmatassie/motormarche-backend/pkg/pubsub"
	"github.com/rmatassie/motormarche-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "mailer-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "mailer-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	subscription := pubsubClient.MailSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "mail subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Outbox.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	mailClient, err := mail.NewClient(ctx, cfg.Sendgrid, logg)
	requireResource(ctx, logg, "mail client", err)

	workerMetrics := metrics.NewWorkerMetrics(prometheus.DefaultRegisterer)

	consumer, err := mailer.NewConsumer(mailClient, subscription, manager, workerMetrics, logg)
	requireResource(ctx, logg, "mail consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "mailer-worker",
	})
	logg.Info(runCtx, "mailer worker ready")

	go serveMetrics(runCtx, logg, cfg.App.Port)

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "mailer worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "mailer worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, fallbackPort string) {
	port := os.Getenv("PORT")
	if port == "" {
		port = fallbackPort
	}
	if port == "" || port == "0" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if err := http.ListenAndServe(":"+port, mux); err != nil && err != http.ErrServerClosed {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "metrics endpoint stopped")
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
