package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gi8lino/jiramirror/internal/handlers"
)

// RunScheduler runs a scheduled sync right away and then every interval
// until ctx is canceled. Runs never overlap; a failed run is logged and the
// next tick tries again.
func RunScheduler(ctx context.Context, interval time.Duration, runner handlers.SyncRunner, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	logger.Info("scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := runner.RunScheduledSync(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduled sync failed", "error", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
