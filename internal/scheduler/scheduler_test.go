package scheduler_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"vigil/internal/analysis"
	"vigil/internal/concern"
	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/queue"
	"vigil/internal/scheduler"
	"vigil/internal/services"
	"vigil/internal/stage"
)

type stubHandler struct {
	name       string
	prepareErr error
	health     stage.Health

	mu      sync.Mutex
	calls   int
	order   []string
	analyze func(ctx context.Context, job *queue.Job) (*analysis.Result, error)
}

func newStubHandler(name string) *stubHandler {
	return &stubHandler{name: name, health: stage.Healthy(name)}
}

func (s *stubHandler) Prepare(context.Context, *queue.Job) error {
	return s.prepareErr
}

func (s *stubHandler) Analyze(ctx context.Context, job *queue.Job) (*analysis.Result, error) {
	s.mu.Lock()
	s.calls++
	s.order = append(s.order, job.StreamID)
	analyze := s.analyze
	s.mu.Unlock()
	if analyze != nil {
		return analyze(ctx, job)
	}
	return &analysis.Result{Concern: concern.LevelLow, Description: "stub result", Path: analysis.PathTriage}, nil
}

func (s *stubHandler) HealthCheck(context.Context) stage.Health {
	return s.health
}

func (s *stubHandler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubHandler) streamOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, seen := range r.events {
		if seen == event {
			total++
		}
	}
	return total
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Scheduler.Workers = 1
	return &cfg
}

func newScheduler(cfg *config.Config, store queue.Store, notifier notifications.Service, handlers map[queue.Kind]stage.Handler) *scheduler.Scheduler {
	return scheduler.New(cfg, store, logging.NewNop(), notifier, handlers,
		scheduler.WithPollInterval(5*time.Millisecond),
		scheduler.WithHeartbeat(10*time.Millisecond, 250*time.Millisecond),
	)
}

func enqueueFrame(t *testing.T, store queue.Store, streamID string, priority queue.Priority) *queue.Job {
	t.Helper()
	job, err := store.Enqueue(context.Background(), &queue.Job{
		StreamID:  streamID,
		Scenario:  "baby",
		Kind:      queue.KindFrame,
		Trigger:   queue.TriggerMotion,
		Priority:  priority,
		FramePath: "/tmp/frame.jpg",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return job
}

func enqueueAudio(t *testing.T, store queue.Store, streamID string) *queue.Job {
	t.Helper()
	payload, err := queue.AudioPayload{Samples: []float64{0, 0, 0, 0}, SampleRate: 16000}.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	job, err := store.Enqueue(context.Background(), &queue.Job{
		StreamID:  streamID,
		Scenario:  "baby",
		Kind:      queue.KindAudio,
		Trigger:   queue.TriggerAudio,
		Priority:  queue.PriorityNormal,
		AudioJSON: payload,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return job
}

func waitForStatus(t *testing.T, store queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %d to reach %s", id, want)
		default:
		}
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitUntil(t *testing.T, message string, cond func() bool) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(message)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestSchedulerProcessesJobsInPriorityOrder(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	notifier := &recordingNotifier{}
	sched := newScheduler(cfg, store, notifier, map[queue.Kind]stage.Handler{queue.KindFrame: handler})

	low := enqueueFrame(t, store, "cam-low", queue.PriorityLow)
	urgent := enqueueFrame(t, store, "cam-urgent", queue.PriorityUrgent)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(sched.Stop)

	waitForStatus(t, store, urgent.ID, queue.StatusCompleted)
	completed := waitForStatus(t, store, low.ID, queue.StatusCompleted)

	order := handler.streamOrder()
	if len(order) != 2 || order[0] != "cam-urgent" || order[1] != "cam-low" {
		t.Fatalf("expected urgent job first, got order %v", order)
	}

	result, err := analysis.Decode(completed.ResultJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result == nil || result.Concern != concern.LevelLow {
		t.Fatalf("expected stored low-concern result, got %+v", result)
	}
	if completed.Attempts != 1 {
		t.Fatalf("expected one attempt, got %d", completed.Attempts)
	}

	waitUntil(t, "expected queue drained notification", func() bool {
		return notifier.count(notifications.EventQueueDrained) >= 1
	})
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.Workers = 2
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	var mu sync.Mutex
	active, peak := 0, 0
	gate := make(chan struct{})

	handler := newStubHandler("frame")
	handler.analyze = func(ctx context.Context, _ *queue.Job) (*analysis.Result, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		select {
		case <-gate:
		case <-ctx.Done():
		}
		mu.Lock()
		active--
		mu.Unlock()
		return &analysis.Result{Concern: concern.LevelNone, Description: "quiet", Path: analysis.PathTriage}, nil
	}

	sched := newScheduler(cfg, store, nil, map[queue.Kind]stage.Handler{queue.KindFrame: handler})
	jobs := make([]*queue.Job, 0, 4)
	for _, stream := range []string{"cam-a", "cam-b", "cam-c", "cam-d"} {
		jobs = append(jobs, enqueueFrame(t, store, stream, queue.PriorityNormal))
	}

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(sched.Stop)

	waitUntil(t, "expected both workers to engage", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return peak == 2
	})
	close(gate)

	for _, job := range jobs {
		waitForStatus(t, store, job.ID, queue.StatusCompleted)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak != 2 {
		t.Fatalf("expected concurrency to peak at worker count 2, got %d", peak)
	}
}

func TestSchedulerRetriesTransientFailures(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	handler.analyze = func(_ context.Context, _ *queue.Job) (*analysis.Result, error) {
		if handler.callCount() < 3 {
			return nil, services.Wrap(services.ErrTransient, "frame", "analyze", "backend flapped", nil)
		}
		return &analysis.Result{Concern: concern.LevelMedium, Description: "recovered", Path: analysis.PathDetailed}, nil
	}

	notifier := &recordingNotifier{}
	sched := newScheduler(cfg, store, notifier, map[queue.Kind]stage.Handler{queue.KindFrame: handler})
	job := enqueueFrame(t, store, "cam-flaky", queue.PriorityNormal)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(sched.Stop)

	completed := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if completed.Attempts != 3 {
		t.Fatalf("expected success on the third attempt, got %d", completed.Attempts)
	}
	if completed.ErrorMessage != "" {
		t.Fatalf("expected error message cleared on success, got %q", completed.ErrorMessage)
	}
	if handler.callCount() != 3 {
		t.Fatalf("expected three analyze calls, got %d", handler.callCount())
	}
	if notifier.count(notifications.EventJobFailed) != 0 {
		t.Fatal("expected no failure notification for a recovered job")
	}
}

func TestSchedulerFailsJobAfterAttemptBudget(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	handler.analyze = func(_ context.Context, _ *queue.Job) (*analysis.Result, error) {
		return nil, services.Wrap(services.ErrBackend, "frame", "analyze", "backend down", nil)
	}

	notifier := &recordingNotifier{}
	sched := newScheduler(cfg, store, notifier, map[queue.Kind]stage.Handler{queue.KindFrame: handler})
	job := enqueueFrame(t, store, "cam-dead", queue.PriorityNormal)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(sched.Stop)

	failed := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if failed.Attempts != queue.DefaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", queue.DefaultMaxAttempts, failed.Attempts)
	}
	if !strings.Contains(failed.ErrorMessage, "backend down") {
		t.Fatalf("expected error message to carry the cause, got %q", failed.ErrorMessage)
	}
	if handler.callCount() != queue.DefaultMaxAttempts {
		t.Fatalf("expected %d analyze calls, got %d", queue.DefaultMaxAttempts, handler.callCount())
	}

	select {
	case outcome := <-sched.Results():
		if !outcome.Failed() {
			t.Fatalf("expected a failure outcome, got %+v", outcome)
		}
		if outcome.Job.ID != job.ID {
			t.Fatalf("expected outcome for job %d, got %d", job.ID, outcome.Job.ID)
		}
		if outcome.Result != nil {
			t.Fatalf("expected nil result on failure, got %+v", outcome.Result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected failure outcome on results channel")
	}

	waitUntil(t, "expected job failed notification", func() bool {
		return notifier.count(notifications.EventJobFailed) == 1
	})
}

func TestSchedulerDoesNotRetryValidationFailures(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	handler.prepareErr = services.Wrap(services.ErrValidation, "frame", "prepare", "payload missing", nil)

	notifier := &recordingNotifier{}
	sched := newScheduler(cfg, store, notifier, map[queue.Kind]stage.Handler{queue.KindFrame: handler})
	job := enqueueFrame(t, store, "cam-bad", queue.PriorityNormal)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(sched.Stop)

	failed := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if failed.Attempts != 1 {
		t.Fatalf("expected a single attempt for a validation failure, got %d", failed.Attempts)
	}
	if handler.callCount() != 0 {
		t.Fatalf("expected analyze to be skipped when prepare fails, got %d calls", handler.callCount())
	}
	waitUntil(t, "expected job failed notification", func() bool {
		return notifier.count(notifications.EventJobFailed) == 1
	})
}

func TestSchedulerPublishesSuccessOutcomes(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	handler.analyze = func(_ context.Context, _ *queue.Job) (*analysis.Result, error) {
		return &analysis.Result{Concern: concern.LevelHigh, Description: "infant near crib rail", Path: analysis.PathDetailed}, nil
	}

	sched := newScheduler(cfg, store, nil, map[queue.Kind]stage.Handler{queue.KindFrame: handler})
	job := enqueueFrame(t, store, "cam-nursery", queue.PriorityHigh)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(sched.Stop)

	select {
	case outcome := <-sched.Results():
		if outcome.Failed() {
			t.Fatalf("expected success outcome, got error %v", outcome.Err)
		}
		if outcome.Job.ID != job.ID || outcome.Job.Status != queue.StatusCompleted {
			t.Fatalf("expected completed job snapshot, got %+v", outcome.Job)
		}
		if outcome.Result == nil || outcome.Result.Concern != concern.LevelHigh {
			t.Fatalf("expected high-concern result, got %+v", outcome.Result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("expected outcome on results channel")
	}
}

func TestSchedulerStopReleasesInFlightJobs(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	handler.analyze = func(ctx context.Context, _ *queue.Job) (*analysis.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	sched := newScheduler(cfg, store, nil, map[queue.Kind]stage.Handler{queue.KindFrame: handler})
	job := enqueueFrame(t, store, "cam-slow", queue.PriorityNormal)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForStatus(t, store, job.ID, queue.StatusProcessing)
	sched.Stop()

	released, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if released.Status != queue.StatusPending {
		t.Fatalf("expected interrupted job back in pending, got %s", released.Status)
	}
	if released.Attempts != 1 {
		t.Fatalf("expected attempt count preserved across release, got %d", released.Attempts)
	}

	resumed := newStubHandler("frame")
	second := newScheduler(cfg, store, nil, map[queue.Kind]stage.Handler{queue.KindFrame: resumed})
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	t.Cleanup(second.Stop)

	completed := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if completed.Attempts != 2 {
		t.Fatalf("expected two attempts after resume, got %d", completed.Attempts)
	}
}

func TestSchedulerStartStopLifecycle(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	sched := newScheduler(cfg, store, nil, map[queue.Kind]stage.Handler{queue.KindFrame: handler})

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sched.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail while running")
	}
	if !sched.Running() {
		t.Fatal("expected scheduler to report running")
	}

	sched.Stop()
	sched.Stop()
	if sched.Running() {
		t.Fatal("expected scheduler to report stopped")
	}

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	job := enqueueFrame(t, store, "cam-restart", queue.PriorityNormal)
	waitForStatus(t, store, job.ID, queue.StatusCompleted)
	sched.Stop()
}

func TestSchedulerFailsJobsWithoutHandler(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	notifier := &recordingNotifier{}
	sched := newScheduler(cfg, store, notifier, map[queue.Kind]stage.Handler{queue.KindFrame: handler})
	job := enqueueAudio(t, store, "mic-kitchen")

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(sched.Stop)

	failed := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if !strings.Contains(failed.ErrorMessage, "no handler registered") {
		t.Fatalf("expected dispatch error message, got %q", failed.ErrorMessage)
	}
	waitUntil(t, "expected job failed notification", func() bool {
		return notifier.count(notifications.EventJobFailed) == 1
	})
}

func TestSchedulerStartRequiresHandlers(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	sched := scheduler.New(cfg, store, logging.NewNop(), nil, nil)
	if err := sched.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail without handlers")
	}
}

func TestSchedulerStatusIncludesHandlerHealth(t *testing.T) {
	cfg := testConfig(t)
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	handler := newStubHandler("frame")
	handler.health = stage.Unhealthy("frame", "ollama unreachable")
	sched := newScheduler(cfg, store, nil, map[queue.Kind]stage.Handler{queue.KindFrame: handler})

	enqueueFrame(t, store, "cam-idle", queue.PriorityNormal)

	status := sched.Status(context.Background())
	if status.Running {
		t.Fatal("expected stopped scheduler in status")
	}
	health, ok := status.HandlerHealth[string(queue.KindFrame)]
	if !ok {
		t.Fatal("expected handler health entry for frame")
	}
	if health.Ready || health.Detail != "ollama unreachable" {
		t.Fatalf("expected unready health with detail, got %+v", health)
	}
	if status.Queue.Pending != 1 {
		t.Fatalf("expected one pending job in status, got %d", status.Queue.Pending)
	}

	stats, err := sched.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Running || stats.InFlight != 0 || stats.Queue.Pending != 1 {
		t.Fatalf("unexpected stats snapshot: %+v", stats)
	}
}

func TestHeartbeatMonitorReclaimsStaleJobs(t *testing.T) {
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	enqueueFrame(t, store, "cam-stale", queue.PriorityNormal)
	claimed, err := store.Claim(ctx)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	stale := time.Now().UTC().Add(-time.Hour)
	claimed.LastHeartbeat = &stale
	if err := store.Update(ctx, claimed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	monitor := scheduler.NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Minute)
	if err := monitor.Reclaim(ctx, logging.NewNop()); err != nil {
		t.Fatalf("Reclaim failed: %v", err)
	}

	updated, err := store.GetByID(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected stale job reclaimed to pending, got %s", updated.Status)
	}
}

func TestHeartbeatMonitorRunKeepsJobAlive(t *testing.T) {
	store := queue.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	enqueueFrame(t, store, "cam-alive", queue.PriorityNormal)
	claimed, err := store.Claim(ctx)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	before := *claimed.LastHeartbeat

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	monitor := scheduler.NewHeartbeatMonitor(store, logging.NewNop(), 5*time.Millisecond, time.Minute)
	go monitor.Run(runCtx, &wg, claimed.ID)

	waitUntil(t, "expected heartbeat to advance", func() bool {
		current, err := store.GetByID(ctx, claimed.ID)
		if err != nil || current == nil || current.LastHeartbeat == nil {
			return false
		}
		return current.LastHeartbeat.After(before)
	})
	cancel()
	wg.Wait()
}
