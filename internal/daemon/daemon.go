package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"vigil/internal/alerts"
	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/preflight"
	"vigil/internal/queue"
	"vigil/internal/scenario"
	"vigil/internal/scheduler"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      queue.Store
	sched      *scheduler.Scheduler
	dispatcher *alerts.Dispatcher
	alertStore *alerts.Store
	notifier   notifications.Service
	profiles   *scenario.Set
	cameras    *cameraMonitor
	api        *apiServer
	logPath    string

	lockPath string
	lock     *flock.Flock

	checksMu sync.Mutex
	checks   []preflight.Result

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool
	PID              int
	Scheduler        scheduler.StatusSummary
	Checks           []preflight.Result
	CameraMonitoring bool
	QueueDBPath      string
	LockFilePath     string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store queue.Store, logger *slog.Logger, sched *scheduler.Scheduler, dispatcher *alerts.Dispatcher, alertStore *alerts.Store, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || sched == nil || dispatcher == nil || alertStore == nil {
		return nil, errors.New("daemon requires config, store, logger, scheduler, dispatcher, and alert store")
	}

	profiles, err := scenario.NewSet(cfg)
	if err != nil {
		return nil, fmt.Errorf("load scenario profiles: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "vigild.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		sched:      sched,
		dispatcher: dispatcher,
		alertStore: alertStore,
		notifier:   notifier,
		profiles:   profiles,
		logPath:    filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.cameras = newCameraMonitor(cfg, logger, d.handleCameraEvent)
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, fmt.Errorf("build api server: %w", err)
	}
	d.api = srv
	return d, nil
}

// Start launches the scheduler, the alert dispatcher, and the monitors, and
// acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vigil daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.runPreflight(d.ctx)

	if err := d.sched.Start(d.ctx); err != nil {
		d.rollbackStart()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.dispatcher.Start(d.ctx, d.sched.Results()); err != nil {
		d.sched.Stop()
		d.rollbackStart()
		return fmt.Errorf("start alert dispatcher: %w", err)
	}
	if err := d.cameras.Start(d.ctx); err != nil {
		d.logger.Warn("camera monitor start failed", logging.Error(err))
	}
	if err := d.api.start(d.ctx); err != nil {
		d.cameras.Stop()
		d.dispatcher.Stop()
		d.sched.Stop()
		d.rollbackStart()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("vigil daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) rollbackStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.cameras.Stop()
	d.api.stop()
	d.sched.Stop()
	d.dispatcher.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vigil daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// runPreflight records startup check outcomes. Failures are logged, not
// fatal: the scheduler retries its way through transient backend outages.
func (d *Daemon) runPreflight(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg)
	d.checksMu.Lock()
	d.checks = results
	d.checksMu.Unlock()

	for _, result := range results {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_check_failed"),
			logging.String(logging.FieldImpact, "analysis may fail until this is resolved"),
		)
	}
}

// SubmitJob validates a submission and enqueues it. Malformed submissions
// are rejected here and never become failed job records.
func (d *Daemon) SubmitJob(ctx context.Context, req api.SubmitRequest) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	job, err := api.BuildJob(req, d.profiles)
	if err != nil {
		return nil, err
	}
	stored, err := d.store.Enqueue(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	d.logger.Info("job submitted",
		logging.Int64(logging.FieldJobID, stored.ID),
		logging.String(logging.FieldStreamID, stored.StreamID),
		logging.String(logging.FieldScenario, stored.Scenario),
		logging.String("kind", string(stored.Kind)),
		logging.String("priority", stored.Priority.String()),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	return stored, nil
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetJob fetches one job by id.
func (d *Daemon) GetJob(ctx context.Context, id int64) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes jobs, optionally restricted to the given statuses.
func (d *Daemon) ClearQueue(ctx context.Context, statuses []queue.Status) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.Clear(ctx, statuses...)
}

// RetryFailed resets failed jobs (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// Stats returns queue counts plus scheduler liveness.
func (d *Daemon) Stats(ctx context.Context) (scheduler.Stats, error) {
	if d.sched == nil {
		return scheduler.Stats{}, errors.New("scheduler unavailable")
	}
	return d.sched.Stats(ctx)
}

// DatabaseHealth returns detailed queue database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("queue store unavailable")
	}
	return d.store.Health(ctx)
}

// RecentAlerts returns the newest recorded alerts, newest first.
func (d *Daemon) RecentAlerts(limit int) []alerts.Alert {
	if d.alertStore == nil {
		return nil
	}
	return d.alertStore.Recent(limit)
}

// Acknowledge marks one alert as acknowledged.
func (d *Daemon) Acknowledge(id string) bool {
	if d.alertStore == nil {
		return false
	}
	return d.alertStore.Acknowledge(id)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := d.notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// handleCameraEvent records a system alert for a camera appearing or
// disappearing and pushes the matching notification.
func (d *Daemon) handleCameraEvent(ctx context.Context, device string, attached bool) {
	severity := alerts.SeverityInfo
	event := string(notifications.EventCameraAttached)
	message := fmt.Sprintf("camera attached: %s", device)
	if !attached {
		severity = alerts.SeverityWarning
		event = string(notifications.EventCameraRemoved)
		message = fmt.Sprintf("camera detached: %s", device)
	}

	alert := alerts.NewSystemAlert(severity, event, message)
	if d.alertStore != nil {
		d.alertStore.Add(alert)
	}
	logFn := d.logger.Info
	if !attached {
		logFn = d.logger.Warn
	}
	logFn("camera hotplug recorded",
		logging.String("device", device),
		logging.String("severity", string(severity)),
		logging.String(logging.FieldEventType, event),
	)

	if d.notifier == nil {
		return
	}
	notifyEvent := notifications.EventCameraAttached
	if !attached {
		notifyEvent = notifications.EventCameraRemoved
	}
	if err := d.notifier.Publish(ctx, notifyEvent, notifications.Payload{"device": device}); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Debug("camera notification failed", logging.Error(err))
	}
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.checksMu.Lock()
	checks := make([]preflight.Result, len(d.checks))
	copy(checks, d.checks)
	d.checksMu.Unlock()

	return Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		Scheduler:        d.sched.Status(ctx),
		Checks:           checks,
		CameraMonitoring: d.cameras.Running(),
		QueueDBPath:      filepath.Join(d.cfg.Paths.DataDir, "vigil.db"),
		LockFilePath:     d.lockPath,
	}
}
