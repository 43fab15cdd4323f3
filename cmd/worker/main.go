package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/armory-backend/internal/alerts"
	"github.com/angelmondragon/armory-backend/internal/inventory"
	"github.com/angelmondragon/armory-backend/internal/notify"
	"github.com/angelmondragon/armory-backend/internal/persons"
	"github.com/angelmondragon/armory-backend/internal/thresholds"
	"github.com/angelmondragon/armory-backend/pkg/config"
	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/instance"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/metrics"
	"github.com/angelmondragon/armory-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/armory-backend/pkg/pubsub"
	"github.com/angelmondragon/armory-backend/pkg/redis"
	"github.com/angelmondragon/armory-backend/pkg/twilio"
)

const twilioTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shutting down gracefully")
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pubsubClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	personsRepo := persons.NewRepository(conn, cfg.Tables.Persons)

	var sender notify.MessageSender
	if cfg.Twilio.HasCredentials() {
		twilioClient, twErr := twilio.NewClient(cfg.Twilio, &http.Client{Timeout: twilioTimeout})
		if twErr != nil {
			return twErr
		}
		sender = twilioClient
	} else {
		logg.Warn(ctx, "twilio credentials missing; sms and whatsapp sends will fail")
	}

	dispatcher, err := notify.NewDispatcher(cfg.Twilio, sender, personsRepo, metrics.NewDeliveryMetrics(registry), logg)
	if err != nil {
		return err
	}

	var (
		alertDispatcher alerts.AsyncDispatcher
		inline          *notify.InlineDispatcher
	)
	if cfg.Notify.IsInline() {
		inline, err = notify.NewInlineDispatcher(dispatcher, 0, logg)
		if err != nil {
			return err
		}
		alertDispatcher = inline
	} else {
		publisher := pubsubClient.Publisher(cfg.Notify.TargetTopic(cfg.PubSub))
		if publisher == nil {
			return errors.New("notification publisher not configured")
		}
		defer publisher.Stop()
		topic, topicErr := notify.NewTopicDispatcher(publisher, logg)
		if topicErr != nil {
			return topicErr
		}
		alertDispatcher = topic
	}

	evaluator, err := alerts.NewEvaluator(
		alerts.Config{PageSize: cfg.Notify.PageSize},
		inventory.NewRepository(conn, cfg.Tables.Ammo),
		thresholds.NewRepository(conn, cfg.Tables.Thresholds),
		personsRepo,
		alertDispatcher,
		metrics.NewAlertMetrics(registry),
		logg,
	)
	if err != nil {
		return err
	}

	alertConsumer, err := alerts.NewConsumer(evaluator, pubsubClient.AmmoChangesSubscription(), logg)
	if err != nil {
		return err
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		return err
	}
	notificationConsumer, err := notify.NewConsumer(dispatcher, pubsubClient.NotificationSubscription(), guard, logg)
	if err != nil {
		return err
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	params := ServiceParams{
		Config:               cfg,
		Logger:               logg,
		DB:                   dbClient,
		Redis:                redisClient,
		PubSub:               pubsubClient,
		AlertConsumer:        alertConsumer,
		NotificationConsumer: notificationConsumer,
		Metrics:              mux,
	}
	if inline != nil {
		params.Inline = inline
	}
	service, err := NewService(params)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.GetID("worker-0"),
		"notify_mode": cfg.Notify.Mode,
	})
	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}
