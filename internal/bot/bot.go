// Package bot orchestrates the lifecycle of the taskbridge components: the
// HTTP ingress, the Telegram bridge and the maintenance scheduler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/taskbridge/internal/config"
)

// HTTPServer is the part of *server.Server the orchestrator drives.
type HTTPServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Bridge is the part of *telegram.Starter the orchestrator drives.
type Bridge interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Bot represents the main application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	server    HTTPServer
	bridge    Bridge
	scheduler *Scheduler
}

// NewBot creates the orchestrator. bridge and scheduler may be nil.
func NewBot(logger *slog.Logger, cfg *config.Config, server HTTPServer, bridge Bridge, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		server:    server,
		bridge:    bridge,
		scheduler: scheduler,
	}
}

func (b *Bot) shutdownTimeout() time.Duration {
	if b.cfg != nil && b.cfg.Server.ShutdownTimeout > 0 {
		return b.cfg.Server.ShutdownTimeout
	}
	return config.DefaultServerShutdownTimeout
}

// Run starts every component and blocks until ctx is cancelled or the HTTP
// server fails. A bridge that fails to start does not stop the service; the
// scheduler retries it.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.server.Start(); err != nil {
			b.logger.Error("HTTP server stopped with error", "error", err)
			return err
		}
		if gCtx.Err() == nil {
			return fmt.Errorf("http server stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), b.shutdownTimeout())
		defer cancel()
		if err := b.server.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Error shutting down HTTP server", "error", err)
		}
		return nil
	})

	if b.bridge != nil {
		g.Go(func() error {
			if err := b.bridge.Start(gCtx); err != nil {
				b.logger.Warn("Telegram bridge did not start; it will be retried", "error", err)
			}

			<-gCtx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), b.shutdownTimeout())
			defer cancel()
			if err := b.bridge.Stop(stopCtx); err != nil {
				b.logger.Error("Error stopping telegram bridge", "error", err)
			}
			return nil
		})
	}

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(gCtx); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
