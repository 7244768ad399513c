package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/service"
)

// StartSweepWorker runs the deadline sweep on a fixed interval until the
// context is cancelled. An immediate first sweep runs on startup so a
// restarted process does not wait a full interval before catching up on
// overdue tickets.
func StartSweepWorker(ctx context.Context, interval time.Duration, sweep *service.SweepService, logger *zap.Logger) {
	if sweep == nil {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	runSweep(ctx, sweep, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			runSweep(ctx, sweep, logger)
		}
	}
}

func runSweep(ctx context.Context, sweep *service.SweepService, logger *zap.Logger) {
	report, err := sweep.RunSweepOnce(ctx)
	if err != nil {
		logger.Error("sweep run failed", zap.Error(err))
		return
	}
	if report.Delayed > 0 || report.AutoReceived > 0 || report.Failed > 0 {
		logger.Info("sweep completed",
			zap.Int("scanned", report.Scanned),
			zap.Int("delayed", report.Delayed),
			zap.Int("auto_received", report.AutoReceived),
			zap.Int("failed", report.Failed),
		)
	}
}
