package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/logging"
)

func (s *Scheduler) runWorker(ctx context.Context, id int) {
	logger := s.logger.With(logging.Int("worker", id))
	// Worker 0 doubles as the janitor that rescues jobs whose heartbeat
	// went stale.
	janitor := id == 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if janitor {
			if err := s.heartbeat.Reclaim(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reclaim stale processing failed; stuck jobs may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
		}

		job, err := s.store.Claim(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			s.waitForWork(ctx)
			continue
		}

		if err := s.processJob(ctx, logger, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (s *Scheduler) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	s.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(s.pollInterval):
	}
}

func (s *Scheduler) waitForWork(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(s.pollInterval):
	}
}
