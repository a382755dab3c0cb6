package telegram

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/edgard/taskbridge/internal/logger"
)

// Instance is the process's Telegram connection and its lifecycle flags.
// An Instance without a client is the unconfigured sentinel.
type Instance struct {
	client Client

	started  atomic.Bool
	starting atomic.Bool
}

// Configured reports whether the instance has a usable client.
func (i *Instance) Configured() bool {
	return i != nil && i.client != nil
}

// Started reports whether polling is running or the webhook is registered.
func (i *Instance) Started() bool {
	return i != nil && i.started.Load()
}

// Client returns the underlying client, or nil when unconfigured.
func (i *Instance) Client() Client {
	if i == nil {
		return nil
	}
	return i.client
}

// Registry holds at most one configured Instance per process.
type Registry struct {
	newClient ClientFactory
	logger    *slog.Logger

	mu       sync.Mutex
	instance *Instance
}

// NewRegistry creates an empty registry that builds clients with newClient.
func NewRegistry(newClient ClientFactory, log *slog.Logger) *Registry {
	if log == nil {
		log = logger.Discard()
	}
	return &Registry{
		newClient: newClient,
		logger:    log.With("component", "telegram_registry"),
	}
}

// GetOrCreate returns the process instance, creating it from token on the
// first successful call. Later tokens are ignored. An empty token or a client
// construction failure yields an unconfigured instance that is not stored.
func (r *Registry) GetOrCreate(token string) *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.instance != nil {
		return r.instance
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return &Instance{}
	}

	client, err := r.newClient(token)
	if err != nil {
		r.logger.Error("Failed to create telegram client; bridge disabled", "error", err)
		return &Instance{}
	}

	r.instance = &Instance{client: client}
	r.logger.Info("Telegram instance created")
	return r.instance
}
