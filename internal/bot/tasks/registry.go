package tasks

import (
	"context"
	"time"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names, matching the keys of the scheduler.tasks config section.
const (
	TaskSQLMaintenance       = "sql_maintenance"
	TaskDeliveryLogRetention = "delivery_log_retention"
	TaskBridgeStartRetry     = "bridge_start_retry"
)

// RegisterAllTasks returns every task keyed by its config name. The bridge
// retry task is only registered when a starter is provided.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tasks := map[string]ScheduledTaskFunc{
		TaskSQLMaintenance:       newSQLMaintenanceTask(deps),
		TaskDeliveryLogRetention: newDeliveryLogRetentionTask(deps),
	}
	if deps.Starter != nil {
		tasks[TaskBridgeStartRetry] = newBridgeStartRetryTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
