package tasks

import (
	"context"
	"fmt"
	"time"
)

const bridgeStartTimeout = 30 * time.Second

// newBridgeStartRetryTask retries the Telegram bridge start. Start is a
// no-op once the bridge runs, so this only does work after a failed start
// or after a polling conflict stopped the loop.
func newBridgeStartRetryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", TaskBridgeStartRetry)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, bridgeStartTimeout)
		defer cancel()

		if err := deps.Starter.Start(ctx); err != nil {
			return fmt.Errorf("start telegram bridge: %w", err)
		}
		log.DebugContext(ctx, "Telegram bridge start check complete")
		return nil
	}
}
