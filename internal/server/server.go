// Package server exposes the HTTP ingress: the Telegram webhook, the
// notification trigger used by the task backend, and health reporting.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/config"
	"github.com/edgard/taskbridge/internal/database"
	"github.com/edgard/taskbridge/internal/logger"
	"github.com/edgard/taskbridge/internal/notify"
	"github.com/edgard/taskbridge/internal/telegram"
)

// Bridge is the part of *telegram.Starter used by the ingress.
type Bridge interface {
	Instance() *telegram.Instance
	Mode() string
	HandleUpdate(ctx context.Context, update *models.Update) error
}

// Notifier sends task notifications.
type Notifier interface {
	SendTaskAssigned(ctx context.Context, recipient notify.Recipient, payload notify.Payload, adminContact, assistantURL string) notify.DeliveryResult
}

// Deps are the collaborators the HTTP handlers call into.
type Deps struct {
	Bridge   Bridge
	Notifier Notifier
	Store    database.Store
}

// Server wraps the gin engine and its http.Server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	deps       Deps
	cfg        *config.Config
	logger     *slog.Logger
}

// SetGinMode applies the configured gin mode. gin keeps it in a package
// global, so it is set once at startup.
func SetGinMode(mode string) {
	switch mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(mode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}

// NewServer builds the router and registers all routes.
func NewServer(cfg *config.Config, deps Deps, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		router: gin.New(),
		deps:   deps,
		cfg:    cfg,
		logger: log.With("component", "http_server"),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(logger.GinMiddleware(s.logger))
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        s.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

func (s *Server) setupRoutes() {
	webhookPath := "/" + strings.Trim(s.cfg.Telegram.WebhookPath, "/") + "/:secret"
	s.router.POST(webhookPath, s.handleWebhook)

	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)

	tg := api.Group("/telegram")
	if s.cfg.Server.JWTSecret != "" {
		tg.Use(JWTAuth(s.cfg.Server.JWTSecret))
	} else {
		s.logger.Warn("server.jwt_secret is empty; /api/telegram routes are unauthenticated")
	}
	tg.POST("/send-message", s.handleSendMessage)
	tg.GET("/deliveries/:profileId", s.handleListDeliveries)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
