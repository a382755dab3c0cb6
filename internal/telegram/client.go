// Package telegram owns the single Telegram Bot API connection of the process:
// the client wrapper, the process registry and the webhook/polling starter.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/bot/handlers"
	"github.com/edgard/taskbridge/internal/logger"
)

// Client is the transport used by the bridge. Errors returned by its methods
// are *APIError when the Bot API rejected the call.
type Client interface {
	DeleteWebhook(ctx context.Context, dropPending bool) error
	SetWebhook(ctx context.Context, url string) error
	// Poll long-polls for updates until ctx is cancelled or the platform
	// reports a conflict, in which case the 409 *APIError is returned.
	Poll(ctx context.Context) error
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	HandleUpdate(ctx context.Context, update *models.Update)
}

// ClientFactory builds a Client for a bot token.
type ClientFactory func(token string) (Client, error)

// ClientOptions configures clients built by NewClient.
type ClientOptions struct {
	RequestTimeout time.Duration
	PollTimeout    time.Duration
	ServerURL      string

	Handlers       map[string]handlers.RegisteredHandler
	DefaultHandler bot.HandlerFunc
	Middlewares    []bot.Middleware
}

type botClient struct {
	b       *bot.Bot
	timeout time.Duration
	log     *slog.Logger

	mu         sync.Mutex
	cancelPoll context.CancelCauseFunc
}

// NewClientFactory returns a ClientFactory backed by NewClient.
func NewClientFactory(opts ClientOptions, log *slog.Logger) ClientFactory {
	return func(token string) (Client, error) {
		return NewClient(token, opts, log)
	}
}

// NewClient creates a go-telegram/bot backed Client with the given handlers
// registered. It does not contact the Bot API.
func NewClient(token string, opts ClientOptions, log *slog.Logger) (Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if log == nil {
		log = logger.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}

	c := &botClient{
		timeout: opts.RequestTimeout,
		log:     log.With("component", "telegram_client"),
	}

	botOpts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithErrorsHandler(c.onError),
		bot.WithHTTPClient(opts.PollTimeout, &http.Client{Timeout: opts.PollTimeout + opts.RequestTimeout}),
	}
	if opts.ServerURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(opts.ServerURL))
	}
	if opts.DefaultHandler != nil {
		botOpts = append(botOpts, bot.WithDefaultHandler(opts.DefaultHandler))
	}
	if len(opts.Middlewares) > 0 {
		botOpts = append(botOpts, bot.WithMiddlewares(opts.Middlewares...))
	}

	b, err := bot.New(token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	c.b = b

	registerHandlers(b, c.log, opts.Handlers)

	c.log.Info("Telegram client created", "handlers", len(opts.Handlers))
	return c, nil
}

// applyMiddleware wraps a handler function with a slice of middleware.
// Middleware are applied in reverse order so the first one in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

func registerHandlers(b *bot.Bot, log *slog.Logger, registered map[string]handlers.RegisteredHandler) {
	for name, rh := range registered {
		if rh.Handler == nil {
			log.Warn("Skipping registration for nil handler", "name", name)
			continue
		}

		h := applyMiddleware(rh.Handler, rh.Middleware)
		if rh.Match != nil {
			b.RegisterHandlerMatchFunc(rh.Match, h)
		} else {
			b.RegisterHandler(rh.HandlerType, rh.Pattern, rh.MatchType, h)
		}
		log.Debug("Registered handler", "name", name, "pattern", rh.Pattern, "middleware_count", len(rh.Middleware))
	}
}

// onError receives errors from the polling loop. A conflict stops the
// running Poll call with the decoded error as its cause.
func (c *botClient) onError(err error) {
	decoded := decodeError(err)
	if errors.Is(decoded, ErrConflict) {
		c.mu.Lock()
		cancel := c.cancelPoll
		c.mu.Unlock()
		if cancel != nil {
			cancel(decoded)
			return
		}
	}
	c.log.Warn("Telegram polling error", "error", decoded)
}

func (c *botClient) DeleteWebhook(ctx context.Context, dropPending bool) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: dropPending})
	return decodeError(err)
}

func (c *botClient) SetWebhook(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.b.SetWebhook(ctx, &bot.SetWebhookParams{URL: url})
	return decodeError(err)
}

func (c *botClient) Poll(ctx context.Context) error {
	pollCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c.mu.Lock()
	if c.cancelPoll != nil {
		c.mu.Unlock()
		return fmt.Errorf("telegram client is already polling")
	}
	c.cancelPoll = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.cancelPoll = nil
		c.mu.Unlock()
	}()

	c.b.Start(pollCtx)

	if cause := context.Cause(pollCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

func (c *botClient) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.b.SendMessage(ctx, params)
	if err != nil {
		return nil, decodeError(err)
	}
	return msg, nil
}

func (c *botClient) HandleUpdate(ctx context.Context, update *models.Update) {
	c.b.ProcessUpdate(ctx, update)
}
