package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/analysis"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/queue"
)

// Outcome is one terminal job handed to the alert dispatcher. Result is nil
// when the job failed; Err is nil when it completed.
type Outcome struct {
	Job    *queue.Job
	Result *analysis.Result
	Err    error
}

// Failed reports whether the outcome records a terminal failure.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Results exposes the outcome channel consumed by the alert dispatcher. The
// channel is never closed; consumers select on their own context.
func (s *Scheduler) Results() <-chan Outcome {
	return s.results
}

// publish never blocks a worker. When the consumer lags, the oldest unread
// outcomes are lost and logged.
func (s *Scheduler) publish(logger *slog.Logger, outcome Outcome) {
	select {
	case s.results <- outcome:
	default:
		logger.Warn("results channel full, dropping outcome",
			logging.Int64(logging.FieldJobID, outcome.Job.ID),
			logging.String(logging.FieldEventType, "outcome_dropped"),
			logging.String(logging.FieldErrorHint, "alert dispatcher is not keeping up"),
		)
	}
}

func (s *Scheduler) trackStart() {
	s.mu.Lock()
	s.inFlight++
	if !s.queueActive {
		s.queueActive = true
		s.queueStart = time.Now()
	}
	s.mu.Unlock()
}

func (s *Scheduler) trackDone() {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.mu.Unlock()
}

// checkQueueDrained sends one notification when the backlog empties after a
// burst of work.
func (s *Scheduler) checkQueueDrained(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("shutting down, could not check queue drain")
		} else {
			s.logger.Warn("queue stats unavailable for drain notification",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		return
	}
	if stats.Pending+stats.Processing > 0 {
		return
	}

	s.mu.Lock()
	if !s.queueActive {
		s.mu.Unlock()
		return
	}
	start := s.queueStart
	s.queueActive = false
	s.queueStart = time.Time{}
	s.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	if err := s.notifier.Publish(ctx, notifications.EventQueueDrained, notifications.Payload{
		"processed": stats.Completed,
		"failed":    stats.Failed,
		"duration":  duration,
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("queue drained notification failed", logging.Error(err))
	}
}
