package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/energy-forecast/internal/infra/config"
	"github.com/yanqian/energy-forecast/internal/infra/janitor"
	"github.com/yanqian/energy-forecast/internal/infra/recorder"
)

// App encapsulates the HTTP server lifecycle and its background workers.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	sweeper  *janitor.Sweeper
	recorder *recorder.Recorder
}

// NewApp is used by Wire to build the runnable app. sweeper may be nil.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, sweeper *janitor.Sweeper, rec *recorder.Recorder) *App {
	return &App{
		cfg:      cfg,
		logger:   logger.With("component", "bootstrap"),
		server:   server,
		sweeper:  sweeper,
		recorder: rec,
	}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	if a.sweeper != nil {
		if err := a.sweeper.Start(); err != nil {
			return err
		}
		defer a.sweeper.Stop()
	}
	if a.recorder != nil {
		defer func() {
			if err := a.recorder.Close(); err != nil {
				a.logger.Warn("recorder close failed", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
