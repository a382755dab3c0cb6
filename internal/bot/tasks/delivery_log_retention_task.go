package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/taskbridge/internal/config"
)

// newDeliveryLogRetentionTask deletes delivery logs older than the
// configured retention window.
func newDeliveryLogRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", TaskDeliveryLogRetention)

	retention := config.DefaultLogRetention
	if deps.Config != nil && deps.Config.Notifications.LogRetention > 0 {
		retention = deps.Config.Notifications.LogRetention
	}

	return func(ctx context.Context) error {
		cutoff := deps.Now().Add(-retention)

		removed, err := deps.Store.PruneDeliveryLogs(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Delivery log retention failed", "error", err, "cutoff", cutoff)
			return fmt.Errorf("prune delivery logs: %w", err)
		}

		log.InfoContext(ctx, "Pruned delivery logs", "removed", removed, "cutoff", cutoff)
		return nil
	}
}
