package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"vigil/internal/analysis"
	"vigil/internal/concern"
	"vigil/internal/logging"
	"vigil/internal/notifications"
	"vigil/internal/scheduler"
)

// Dispatcher turns scheduler outcomes into alerts: recorded in the bounded
// store and pushed through the notifier. It applies no dedup or suppression;
// every qualifying outcome surfaces.
type Dispatcher struct {
	store    *Store
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDispatcher constructs a dispatcher over the given alert store.
func NewDispatcher(store *Store, notifier notifications.Service, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "alerts"),
	}
}

// Start consumes outcomes in the background until Stop or context
// cancellation.
func (d *Dispatcher) Start(ctx context.Context, outcomes <-chan scheduler.Outcome) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("alert dispatcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running = true
	done := d.done
	d.mu.Unlock()

	go d.run(runCtx, outcomes, done)
	return nil
}

// Stop terminates the consumer loop and waits for it to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	done := d.done
	d.running = false
	d.cancel = nil
	d.done = nil
	d.mu.Unlock()

	cancel()
	<-done
}

func (d *Dispatcher) run(ctx context.Context, outcomes <-chan scheduler.Outcome, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case outcome := <-outcomes:
			d.handle(ctx, outcome)
		}
	}
}

// handle fans one outcome into zero or more alerts. Vision results produce
// one alert above the none concern; audio results produce one per qualifying
// finding; terminal failures produce a system-health alert at warning.
func (d *Dispatcher) handle(ctx context.Context, outcome scheduler.Outcome) {
	job := outcome.Job
	if job == nil {
		return
	}

	if outcome.Failed() {
		alert := newAlert(SourceSystem, SeverityWarning)
		alert.JobID = job.ID
		alert.StreamID = job.StreamID
		alert.Scenario = job.Scenario
		alert.Concern = concern.LevelNone
		alert.Message = failureAlertMessage(outcome)
		d.record(ctx, alert)
		return
	}

	result := outcome.Result
	if result == nil {
		return
	}

	if result.Path == analysis.PathAudio {
		for _, finding := range result.Findings {
			severity, ok := FromConcern(finding.Concern)
			if !ok {
				continue
			}
			alert := newAlert(SourceAudio, severity)
			alert.JobID = job.ID
			alert.StreamID = job.StreamID
			alert.Scenario = job.Scenario
			alert.Concern = finding.Concern
			alert.Event = finding.Event
			alert.Message = finding.Description
			d.record(ctx, alert)
		}
		return
	}

	severity, ok := FromConcern(result.Concern)
	if !ok {
		return
	}
	alert := newAlert(SourceVision, severity)
	alert.JobID = job.ID
	alert.StreamID = job.StreamID
	alert.Scenario = job.Scenario
	alert.Concern = result.Concern
	alert.Message = result.Description
	d.record(ctx, alert)
}

func failureAlertMessage(outcome scheduler.Outcome) string {
	job := outcome.Job
	detail := strings.TrimSpace(job.ErrorMessage)
	if detail == "" && outcome.Err != nil {
		detail = strings.TrimSpace(outcome.Err.Error())
	}
	if detail == "" {
		detail = "no error detail"
	}
	return fmt.Sprintf("%s analysis failed after %d attempts: %s", job.Kind, job.Attempts, detail)
}

func (d *Dispatcher) record(ctx context.Context, alert Alert) {
	d.store.Add(alert)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "alert_recorded"),
		logging.Int64(logging.FieldJobID, alert.JobID),
		logging.String(logging.FieldStreamID, alert.StreamID),
		logging.String(logging.FieldScenario, alert.Scenario),
		logging.String("source", string(alert.Source)),
		logging.String("severity", string(alert.Severity)),
		logging.String("message", alert.Message),
	}
	if alert.Event != "" {
		attrs = append(attrs, logging.String("event", alert.Event))
	}
	d.logger.Warn("alert recorded", logging.Args(attrs...)...)

	d.push(ctx, alert)
}

func (d *Dispatcher) push(ctx context.Context, alert Alert) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Publish(ctx, notifications.EventAlert, notifications.Payload{
		"severity": string(alert.Severity),
		"stream":   alert.StreamID,
		"message":  alert.Message,
	}); err != nil {
		if errors.Is(err, context.Canceled) {
			d.logger.Debug("shutting down, could not push alert")
		} else {
			d.logger.Debug("alert push failed", logging.Error(err))
		}
	}
}
