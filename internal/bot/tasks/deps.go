// Package tasks implements the scheduled maintenance jobs of the bridge.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/taskbridge/internal/config"
)

// Maintainer is the part of database.Store the tasks touch.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
	PruneDeliveryLogs(ctx context.Context, before time.Time) (int64, error)
}

// BridgeStarter starts the Telegram bridge. *telegram.Starter satisfies it.
type BridgeStarter interface {
	Start(ctx context.Context) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   Maintainer
	Starter BridgeStarter
	Config  *config.Config
	Now     func() time.Time
}
