package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/logger"
)

// Transport modes reported by Starter.Mode.
const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

const signalStopTimeout = 5 * time.Second

// StarterConfig selects the transport mode and its parameters.
type StarterConfig struct {
	Token         string
	Production    bool
	PublicBaseURL string
	WebhookPath   string
	WebhookSecret string
}

// Starter brings the registry's instance into a running state. It is safe
// to call Start from any number of goroutines and entry points.
type Starter struct {
	registry *Registry
	cfg      StarterConfig
	logger   *slog.Logger

	// baseCtx outlives any request that triggers a start; the polling loop
	// is bound to it.
	baseCtx context.Context

	mu         sync.Mutex
	pollCancel context.CancelFunc
	pollDone   chan struct{}

	signalOnce    sync.Once
	notifySignals func(chan<- os.Signal)
}

// NewStarter creates a Starter. baseCtx is the process-lifetime context.
func NewStarter(baseCtx context.Context, registry *Registry, cfg StarterConfig, log *slog.Logger) *Starter {
	if log == nil {
		log = logger.Discard()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Starter{
		registry: registry,
		cfg:      cfg,
		logger:   log.With("component", "telegram_starter"),
		baseCtx:  baseCtx,
		notifySignals: func(c chan<- os.Signal) {
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		},
	}
}

// Instance returns the registry's instance for the configured token.
func (s *Starter) Instance() *Instance {
	return s.registry.GetOrCreate(s.cfg.Token)
}

// Mode reports which transport Start uses.
func (s *Starter) Mode() string {
	if s.cfg.Production {
		return ModeWebhook
	}
	return ModePolling
}

// Start registers the webhook (production) or launches the polling loop
// (development). It returns nil without doing anything when the instance is
// unconfigured, already started, or being started by another caller.
func (s *Starter) Start(ctx context.Context) error {
	inst := s.Instance()
	if !inst.Configured() || inst.started.Load() {
		return nil
	}
	if !inst.starting.CompareAndSwap(false, true) {
		return nil
	}
	defer inst.starting.Store(false)

	if inst.started.Load() {
		return nil
	}

	var err error
	if s.cfg.Production {
		err = s.startWebhook(ctx, inst)
	} else {
		err = s.startPolling(ctx, inst)
	}
	if err != nil {
		s.logStartError(ctx, err)
		return err
	}

	s.signalOnce.Do(s.watchSignals)
	return nil
}

func (s *Starter) startWebhook(ctx context.Context, inst *Instance) error {
	if err := s.validateWebhookConfig(); err != nil {
		return err
	}

	if err := inst.client.DeleteWebhook(ctx, true); err != nil {
		s.logger.DebugContext(ctx, "Ignoring webhook deletion error", "error", err)
	}

	webhookURL := WebhookURL(s.cfg.PublicBaseURL, s.cfg.WebhookPath, s.cfg.WebhookSecret)
	if err := inst.client.SetWebhook(ctx, webhookURL); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	inst.started.Store(true)
	s.logger.InfoContext(ctx, "Telegram webhook configured",
		"url", WebhookURL(s.cfg.PublicBaseURL, s.cfg.WebhookPath, "<secret>"))
	return nil
}

func (s *Starter) validateWebhookConfig() error {
	base := strings.TrimSpace(s.cfg.PublicBaseURL)
	switch {
	case base == "":
		return fmt.Errorf("%w: public base URL is required in production (set APP_URL or PUBLIC_URL)", ErrInvalidWebhookConfig)
	case !IsPublicHTTPSURL(base):
		return fmt.Errorf("%w: public base URL %q must be https and must not point to localhost", ErrInvalidWebhookConfig, base)
	case strings.TrimSpace(s.cfg.WebhookSecret) == "":
		return fmt.Errorf("%w: webhook secret is required in production (set TG_WEBHOOK_SECRET)", ErrInvalidWebhookConfig)
	}
	return nil
}

func (s *Starter) startPolling(ctx context.Context, inst *Instance) error {
	if err := inst.client.DeleteWebhook(ctx, true); err != nil {
		return fmt.Errorf("failed to clear webhook before polling: %w", err)
	}
	s.logger.InfoContext(ctx, "Webhook cleared; starting polling")

	pollCtx, cancel := context.WithCancel(s.baseCtx)
	done := make(chan struct{})

	s.mu.Lock()
	s.pollCancel = cancel
	s.pollDone = done
	s.mu.Unlock()

	inst.started.Store(true)

	go func() {
		defer close(done)
		defer cancel()

		err := inst.client.Poll(pollCtx)
		inst.started.Store(false)

		s.mu.Lock()
		if s.pollDone == done {
			s.pollCancel = nil
			s.pollDone = nil
		}
		s.mu.Unlock()

		if err != nil {
			s.logStartError(s.baseCtx, err)
			return
		}
		s.logger.Info("Telegram polling stopped")
	}()

	s.logger.InfoContext(ctx, "Telegram bot started with polling")
	return nil
}

func (s *Starter) logStartError(ctx context.Context, err error) {
	if errors.Is(err, ErrConflict) {
		s.logger.ErrorContext(ctx, "Telegram 409: another process is polling this token",
			"hint", "stop the other process or revoke the token and use the new one",
			"error", err)
		return
	}
	s.logger.ErrorContext(ctx, "Failed to start Telegram bot", "error", err)
}

func (s *Starter) watchSignals() {
	ch := make(chan os.Signal, 1)
	s.notifySignals(ch)

	go func() {
		select {
		case sig := <-ch:
			ctx, cancel := context.WithTimeout(context.Background(), signalStopTimeout)
			defer cancel()
			if err := s.Stop(ctx); err != nil {
				s.logger.Debug("Ignoring error while stopping telegram bot", "signal", sig.String(), "error", err)
			}
		case <-s.baseCtx.Done():
		}
	}()
}

// Stop cancels the polling loop, if any, and waits for it to exit or for ctx
// to expire. A registered webhook is left in place.
func (s *Starter) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.pollCancel, s.pollDone
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleUpdate forwards an update received by the webhook to the client.
func (s *Starter) HandleUpdate(ctx context.Context, update *models.Update) error {
	inst := s.Instance()
	if !inst.Configured() {
		return ErrNotConfigured
	}
	if update == nil {
		return fmt.Errorf("nil update")
	}
	inst.client.HandleUpdate(ctx, update)
	return nil
}

// WebhookURL joins the public base URL, the ingress path and the secret.
func WebhookURL(base, path, secret string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" +
		strings.Trim(path, "/") + "/" + url.PathEscape(secret)
}

// IsPublicHTTPSURL reports whether raw is an https URL whose host is neither
// localhost nor a loopback address. Telegram refuses other URLs in inline
// buttons and webhooks.
func IsPublicHTTPSURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return false
	}
	return true
}
