package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/armory-backend/pkg/config"
	"github.com/angelmondragon/armory-backend/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type drainer interface {
	Wait()
}

type ServiceParams struct {
	Config               *config.Config
	Logger               *logger.Logger
	DB                   pinger
	Redis                pinger
	PubSub               pinger
	AlertConsumer        runner
	NotificationConsumer runner
	// Inline is set when alerts are sent from this process; shutdown waits
	// for its in-flight sends.
	Inline drainer
	// Metrics serves /metrics and /health/live; optional.
	Metrics http.Handler
}

type Service struct {
	cfg       *config.Config
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]runner
	inline    drainer
	metrics   http.Handler
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.AlertConsumer == nil {
		return nil, errors.New("alert consumer is required")
	}
	if params.NotificationConsumer == nil {
		return nil, errors.New("notification consumer is required")
	}

	return &Service{
		cfg:  params.Config,
		logg: params.Logger,
		deps: map[string]pinger{
			"database": params.DB,
			"redis":    params.Redis,
			"pubsub":   params.PubSub,
		},
		consumers: map[string]runner{
			"threshold-evaluator": params.AlertConsumer,
			"notification-sender": params.NotificationConsumer,
		},
		inline:  params.Inline,
		metrics: params.Metrics,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, name := range []string{"database", "redis", "pubsub"} {
		if err := pingDependency(ctx, s.logg, name, s.deps[name].Ping); err != nil {
			return err
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run starts both consumers and returns when the context ends or either
// consumer stops. Both consumers are stopped, then in-flight inline sends
// are drained, before returning.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.metrics != nil {
		server := &http.Server{Addr: ":" + s.cfg.App.Port, Handler: s.metrics}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logg.Error(runCtx, "metrics server stopped", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer done()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	errCh := make(chan error, len(s.consumers))
	for name, consumer := range s.consumers {
		go func() {
			consumerCtx := s.logg.WithField(runCtx, "consumer", name)
			s.logg.Info(consumerCtx, "consumer started")
			errCh <- consumer.Run(consumerCtx)
		}()
	}

	var err error
	pending := len(s.consumers)
	select {
	case <-ctx.Done():
		s.logg.Info(ctx, "worker context canceled")
		err = ctx.Err()
	case err = <-errCh:
		pending--
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		}
	}

	// Receive keeps running in-flight callbacks after cancel; those may still
	// dispatch inline sends, so every consumer must return before draining.
	cancel()
	for ; pending > 0; pending-- {
		<-errCh
	}
	if s.inline != nil {
		s.inline.Wait()
	}
	return err
}
