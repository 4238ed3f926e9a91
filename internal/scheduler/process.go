package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vigil/internal/analysis"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/queue"
	"vigil/internal/services"
	"vigil/internal/stage"
)

func (s *Scheduler) processJob(ctx context.Context, workerLogger *slog.Logger, job *queue.Job) error {
	requestID := uuid.NewString()
	jobCtx := services.WithRequestID(services.WithJobID(ctx, job.ID), requestID)
	jobCtx = services.WithHandler(jobCtx, string(job.Kind))
	logger := logging.WithContext(jobCtx, workerLogger).With(
		logging.String(logging.FieldStreamID, job.StreamID),
		logging.String(logging.FieldScenario, job.Scenario),
		logging.String(logging.FieldKind, string(job.Kind)),
	)
	if s.cfg != nil {
		if override := handlerOverrideLevel(s.cfg.Logging.HandlerOverrides, string(job.Kind)); override != "" {
			logger = logging.WithLevelOverride(logger, parseHandlerLevel(override))
		}
	}

	s.trackStart()
	defer s.trackDone()

	handler, ok := s.handlers[job.Kind]
	if !ok {
		err := services.Wrap(services.ErrConfiguration, "scheduler", "dispatch",
			fmt.Sprintf("no handler registered for %s jobs", job.Kind), nil)
		s.finishFailure(jobCtx, logger, job, err)
		s.setLastError(err)
		return err
	}

	// The claim does not touch the attempt counter; the scheduler owns it
	// so releases and reclaims never burn retry budget.
	job.Attempts++
	if err := s.store.Update(jobCtx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		wrapped := fmt.Errorf("persist attempt count: %w", err)
		logger.Error("failed to persist attempt count", logging.Error(wrapped))
		s.setLastError(wrapped)
		return wrapped
	}

	start := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int("attempt", job.Attempts),
		logging.Int("max_attempts", job.MaxAttempts),
		logging.String("priority", job.Priority.String()),
	)

	if err := handler.Prepare(jobCtx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.finishFailure(jobCtx, logger, job, err)
		s.setLastError(err)
		return err
	}

	result, execErr := s.executeWithHeartbeat(jobCtx, handler, job)
	if execErr == nil && result == nil {
		execErr = services.Wrap(services.ErrTransient, "scheduler", "analyze", "handler returned no result", nil)
	}
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			logger.Debug("job interrupted by shutdown")
			return execErr
		}
		s.finishFailure(jobCtx, logger, job, execErr)
		s.setLastError(execErr)
		return execErr
	}

	resultJSON, err := result.Encode()
	if err != nil {
		wrapped := services.Wrap(services.ErrValidation, "scheduler", "encode result", "could not serialize analysis result", err)
		s.finishFailure(jobCtx, logger, job, wrapped)
		s.setLastError(wrapped)
		return wrapped
	}

	job.SetCompleted(resultJSON)
	if err := s.store.Update(jobCtx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		wrapped := fmt.Errorf("persist job result: %w", err)
		logger.Error("failed to persist job result", logging.Error(wrapped))
		s.setLastError(wrapped)
		return wrapped
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("concern", result.Concern.String()),
		logging.String("path", string(result.Path)),
		logging.Duration("job_duration", time.Since(start)),
	)
	s.setLastJob(job)
	s.publish(logger, Outcome{Job: job.Clone(), Result: result})
	s.checkQueueDrained(jobCtx)
	return nil
}

func (s *Scheduler) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) (*analysis.Result, error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go s.heartbeat.Run(hbCtx, &hbWG, job.ID)

	result, err := handler.Analyze(ctx, job)
	hbCancel()
	hbWG.Wait()
	return result, err
}

// finishFailure decides between a requeue and a terminal failure. Only
// terminal failures produce an outcome and a push notification.
func (s *Scheduler) finishFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, cause error) {
	message := failureMessage(cause)
	retryable := services.IsRetryable(cause)

	if retryable && job.CanRetry() {
		job.SetRequeued(message)
		if err := s.store.Update(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("failed to persist job requeue", logging.Error(err))
		}
		logger.Warn("job requeued after failure",
			logging.Error(cause),
			logging.String(logging.FieldEventType, "job_requeued"),
			logging.Int("attempt", job.Attempts),
			logging.Int("max_attempts", job.MaxAttempts),
		)
		s.setLastJob(job)
		return
	}

	job.SetFailed(message)
	if err := s.store.Update(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	logger.Error("job failed permanently",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.Alert("job_failure"),
		logging.Int("attempt", job.Attempts),
		logging.Bool("retryable", retryable),
	)
	s.setLastJob(job)
	s.publish(logger, Outcome{Job: job.Clone(), Err: cause})
	s.notifyJobFailed(ctx, job, cause)
	s.checkQueueDrained(ctx)
}

func handlerOverrideLevel(overrides map[string]string, kind string) string {
	if len(overrides) == 0 {
		return ""
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == kind {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseHandlerLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func failureMessage(cause error) string {
	if cause == nil {
		return "job failed without error detail"
	}
	message := strings.TrimSpace(cause.Error())
	if message == "" {
		return "job failed without error detail"
	}
	return message
}

func (s *Scheduler) notifyJobFailed(ctx context.Context, job *queue.Job, cause error) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, notifications.EventJobFailed, notifications.Payload{
		"jobID": job.ID,
		"kind":  string(job.Kind),
		"error": cause,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("shutting down, could not send failure notification")
		} else {
			s.logger.Debug("failure notification failed", logging.Error(err))
		}
	}
}
