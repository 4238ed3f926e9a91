package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/queue"
	"vigil/internal/stage"
)

// stopReleaseTimeout bounds the release of in-flight jobs during Stop so a
// wedged store cannot hang shutdown.
const stopReleaseTimeout = 5 * time.Second

// Scheduler drains the queue with a bounded worker pool, dispatching each
// claimed job to the handler registered for its kind.
type Scheduler struct {
	cfg      *config.Config
	store    queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	handlers map[queue.Kind]stage.Handler

	workers      int
	pollInterval time.Duration
	heartbeat    *HeartbeatMonitor
	results      chan Outcome

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	group       *errgroup.Group
	lastErr     error
	lastJob     *queue.Job
	inFlight    int
	queueActive bool
	queueStart  time.Time
}

// Option configures optional Scheduler behavior, mostly for tests.
type Option func(*Scheduler)

// WithPollInterval overrides how long idle workers sleep between claims.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithHeartbeat overrides the heartbeat cadence and the staleness cutoff.
func WithHeartbeat(interval, timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.heartbeat = NewHeartbeatMonitor(s.store, s.logger, interval, timeout)
	}
}

// New constructs a scheduler over the given store and handler registry.
func New(cfg *config.Config, store queue.Store, logger *slog.Logger, notifier notifications.Service, handlers map[queue.Kind]stage.Handler, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	registry := make(map[queue.Kind]stage.Handler, len(handlers))
	for kind, handler := range handlers {
		if handler == nil {
			continue
		}
		registry[kind] = handler
	}

	workers := cfg.Scheduler.Workers
	if workers < 1 {
		workers = 1
	}
	pollInterval := time.Duration(cfg.Scheduler.PollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	buffer := cfg.Scheduler.ResultBuffer
	if buffer < 1 {
		buffer = 1
	}

	s := &Scheduler{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "scheduler"),
		notifier:     notifier,
		handlers:     registry,
		workers:      workers,
		pollInterval: pollInterval,
		results:      make(chan Outcome, buffer),
	}
	s.heartbeat = NewHeartbeatMonitor(
		store,
		s.logger,
		time.Duration(cfg.Scheduler.HeartbeatInterval)*time.Second,
		time.Duration(cfg.Scheduler.HeartbeatTimeout)*time.Second,
	)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins background processing. Orphaned processing jobs from a prior
// run are released back to pending before the first claim.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	if len(s.handlers) == 0 {
		s.mu.Unlock()
		return errors.New("no analysis handlers registered")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group
	s.running = true
	workers := s.workers
	s.mu.Unlock()

	released, err := s.store.ReleaseProcessing(runCtx)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.group = nil
		s.mu.Unlock()
		return fmt.Errorf("release orphaned jobs: %w", err)
	}
	if released > 0 {
		s.logger.Info("released orphaned processing jobs", logging.Int64("count", released))
	}

	for i := 0; i < workers; i++ {
		id := i
		group.Go(func() error {
			s.runWorker(groupCtx, id)
			return nil
		})
	}
	s.logger.Info("scheduler started", logging.Int("workers", workers))
	return nil
}

// Stop terminates background processing, waits for workers to finish, and
// releases mid-flight jobs back to pending so a restart resumes them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	group := s.group
	s.running = false
	s.cancel = nil
	s.group = nil
	s.mu.Unlock()

	cancel()
	_ = group.Wait()

	ctx, release := context.WithTimeout(context.Background(), stopReleaseTimeout)
	defer release()
	if released, err := s.store.ReleaseProcessing(ctx); err != nil {
		s.logger.Warn("failed to release in-flight jobs on stop", logging.Error(err))
	} else if released > 0 {
		s.logger.Info("released in-flight jobs for restart", logging.Int64("count", released))
	}
	s.logger.Info("scheduler stopped")
}

// Running reports whether the worker pool is active.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
