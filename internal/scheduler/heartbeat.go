package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vigil/internal/logging"
	"vigil/internal/queue"
)

// HeartbeatMonitor keeps claimed jobs visibly alive and rescues the ones
// whose worker died mid-run.
type HeartbeatMonitor struct {
	store    queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{
		store:    store,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Reclaim returns processing jobs with stale heartbeats to pending.
func (h *HeartbeatMonitor) Reclaim(ctx context.Context, logger *slog.Logger) error {
	if h.timeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.timeout)
	reclaimed, err := h.store.ReclaimStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
	}
	return nil
}

// Run updates one job's heartbeat until context cancellation.
func (h *HeartbeatMonitor) Run(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "scheduler-heartbeat")))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("shutting down, heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
