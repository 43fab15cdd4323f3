package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/armory-backend/api/controllers"
	"github.com/angelmondragon/armory-backend/api/routes"
	"github.com/angelmondragon/armory-backend/internal/inventory"
	"github.com/angelmondragon/armory-backend/internal/notify"
	"github.com/angelmondragon/armory-backend/internal/persons"
	"github.com/angelmondragon/armory-backend/internal/thresholds"
	"github.com/angelmondragon/armory-backend/pkg/config"
	"github.com/angelmondragon/armory-backend/pkg/db"
	"github.com/angelmondragon/armory-backend/pkg/instance"
	"github.com/angelmondragon/armory-backend/pkg/logger"
	"github.com/angelmondragon/armory-backend/pkg/metrics"
	"github.com/angelmondragon/armory-backend/pkg/migrate"
	"github.com/angelmondragon/armory-backend/pkg/outbox"
	"github.com/angelmondragon/armory-backend/pkg/redis"
	"github.com/angelmondragon/armory-backend/pkg/twilio"
)

const (
	shutdownTimeout = 15 * time.Second
	twilioTimeout   = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	personsRepo := persons.NewRepository(conn, cfg.Tables.Persons)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	inventoryService, err := inventory.NewService(dbClient, inventory.NewRepository(conn, cfg.Tables.Ammo), emitter, logg)
	if err != nil {
		return err
	}
	personService, err := persons.NewService(personsRepo)
	if err != nil {
		return err
	}
	thresholdService, err := thresholds.NewService(thresholds.NewRepository(conn, cfg.Tables.Thresholds), personsRepo)
	if err != nil {
		return err
	}

	var sender notify.MessageSender
	if cfg.Twilio.HasCredentials() {
		twilioClient, twErr := twilio.NewClient(cfg.Twilio, &http.Client{Timeout: twilioTimeout})
		if twErr != nil {
			return twErr
		}
		sender = twilioClient
	}
	dispatcher, err := notify.NewDispatcher(cfg.Twilio, sender, personsRepo, metrics.NewDeliveryMetrics(registry), logg)
	if err != nil {
		return err
	}
	enqueuer, err := notify.NewEnqueuer(dbClient, emitter)
	if err != nil {
		return err
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID("local"),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			readiness,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			inventoryService,
			thresholdService,
			personService,
			dispatcher,
			enqueuer,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
