package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultwire/consult-server/internal/auth"
	"github.com/consultwire/consult-server/internal/config"
	"github.com/consultwire/consult-server/internal/core"
	"github.com/consultwire/consult-server/internal/notify"
	"github.com/consultwire/consult-server/internal/payments"
	"github.com/consultwire/consult-server/internal/store"
	"github.com/consultwire/consult-server/internal/store/badgerq"
	"github.com/consultwire/consult-server/internal/store/sqlite"
	transporthttp "github.com/consultwire/consult-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	queue           store.OfflineStore
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	queue, err := badgerq.New(cfg.OfflineQueuePath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init offline queue: %w", err)
	}
	logger.Info().Str("queue_path", cfg.OfflineQueuePath).Msg("offline queue initialized")

	validator := auth.NewValidator(&auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	notifier := notify.NewHTTPDispatcher(cfg.Push.Endpoint, cfg.Push.APIKey, cfg.Push.Timeout, logger)
	checkout := payments.NewClient(cfg.Payments.CheckoutURL, cfg.Payments.APIKey, cfg.Payments.Timeout, logger)

	hub := core.NewHub(core.Deps{
		Store:    st,
		Queue:    queue,
		Notifier: notifier,
		Checkout: checkout,
		TokenChecker: core.TokenCheckerFunc(func(token string) error {
			_, err := validator.Validate(token)
			if errors.Is(err, auth.ErrTokenExpired) {
				return fmt.Errorf("%w: %w", store.ErrIdentityExpired, err)
			}
			return err
		}),
		Logger:       logger,
		StoreTimeout: cfg.StoreTimeout,
	})

	server := transporthttp.NewServer(hub, st, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		queue:           queue,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the database and the offline queue.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		}
	}
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close offline queue")
		}
	}
}
