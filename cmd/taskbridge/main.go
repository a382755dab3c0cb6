// Package main contains the entrypoint for the taskbridge service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgard/taskbridge/internal/bot"
	"github.com/edgard/taskbridge/internal/bot/handlers"
	"github.com/edgard/taskbridge/internal/bot/tasks"
	"github.com/edgard/taskbridge/internal/config"
	"github.com/edgard/taskbridge/internal/database"
	"github.com/edgard/taskbridge/internal/logger"
	"github.com/edgard/taskbridge/internal/notify"
	"github.com/edgard/taskbridge/internal/server"
	"github.com/edgard/taskbridge/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, logger, database, the Telegram bridge, the notification
// sender, the HTTP server and the scheduler, then blocks until shutdown.
// It returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON, "environment", cfg.Environment)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
	}
	factory := telegram.NewClientFactory(telegram.ClientOptions{
		RequestTimeout: cfg.Telegram.RequestTimeout,
		PollTimeout:    cfg.Telegram.PollTimeout,
		Handlers:       handlers.RegisterAllCommands(hDeps),
		DefaultHandler: handlers.NewFallbackHandler(hDeps),
		Middlewares:    handlers.UpdateMiddlewares(log),
	}, log)

	starter := telegram.NewStarter(ctx, telegram.NewRegistry(factory, log), telegram.StarterConfig{
		Token:         cfg.Telegram.Token,
		Production:    cfg.IsProduction(),
		PublicBaseURL: cfg.Telegram.PublicBaseURL,
		WebhookPath:   cfg.Telegram.WebhookPath,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	}, log)
	if !starter.Instance().Configured() {
		log.Warn("Telegram token not set; notifications will report bot_not_configured")
	}

	sender := notify.NewSender(starter, store, cfg.Notifications.SendTimeout, log)

	server.SetGinMode(cfg.Server.GinMode)
	srv := server.NewServer(cfg, server.Deps{
		Bridge:   starter,
		Notifier: sender,
		Store:    store,
	}, log)

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Starter: starter,
		Config:  cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, srv, starter, sched)

	log.Info("Starting taskbridge...", "mode", starter.Mode(), "addr", cfg.Server.Addr)
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("taskbridge stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("taskbridge stopped gracefully.")
	return 0
}
