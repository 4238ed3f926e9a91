package scheduler

import (
	"context"
	"fmt"

	"vigil/internal/logging"
	"vigil/internal/queue"
	"vigil/internal/stage"
)

// Stats combines queue counts with scheduler liveness.
type Stats struct {
	Queue    queue.Stats
	InFlight int
	Running  bool
}

// StatusSummary represents lightweight scheduler diagnostics.
type StatusSummary struct {
	Running       bool
	InFlight      int
	LastError     string
	LastJob       *queue.Job
	Queue         queue.Stats
	HandlerHealth map[string]stage.Health
}

// Stats returns queue counts plus the number of jobs this process is
// analyzing right now.
func (s *Scheduler) Stats(ctx context.Context) (Stats, error) {
	queueStats, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("read queue stats: %w", err)
	}
	s.mu.RLock()
	running := s.running
	inFlight := s.inFlight
	s.mu.RUnlock()
	return Stats{Queue: queueStats, InFlight: inFlight, Running: running}, nil
}

// Status returns the latest scheduler information for the CLI and API.
func (s *Scheduler) Status(ctx context.Context) StatusSummary {
	s.mu.RLock()
	running := s.running
	inFlight := s.inFlight
	lastErr := s.lastErr
	lastJob := s.lastJob
	s.mu.RUnlock()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(s.handlers))
	for kind, handler := range s.handlers {
		health[string(kind)] = handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, InFlight: inFlight, Queue: stats, HandlerHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		summary.LastJob = lastJob.Clone()
	}
	return summary
}

func (s *Scheduler) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Scheduler) setLastJob(job *queue.Job) {
	s.mu.Lock()
	s.lastJob = job.Clone()
	s.mu.Unlock()
}
