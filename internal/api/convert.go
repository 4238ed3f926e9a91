package api

import (
	"encoding/json"
	"slices"
	"time"

	"vigil/internal/alerts"
	"vigil/internal/preflight"
	"vigil/internal/queue"
	"vigil/internal/scheduler"
	"vigil/internal/stage"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:           job.ID,
		StreamID:     job.StreamID,
		Scenario:     job.Scenario,
		Kind:         string(job.Kind),
		Trigger:      string(job.Trigger),
		Priority:     job.Priority.String(),
		Magnitude:    job.Magnitude,
		Status:       string(job.Status),
		Attempts:     job.Attempts,
		MaxAttempts:  job.MaxAttempts,
		ErrorMessage: job.ErrorMessage,
		FramePath:    job.FramePath,
		CreatedAt:    FormatTime(job.CreatedAt),
		UpdatedAt:    FormatTime(job.UpdatedAt),
	}
	if payload, err := queue.DecodeAudioPayload(job.AudioJSON); err == nil {
		dto.Audio = &AudioSummary{
			Samples:    len(payload.Samples),
			SampleRate: payload.SampleRate,
			RMS:        payload.RMS,
		}
	}
	if raw := job.ResultJSON; raw != "" {
		dto.Result = json.RawMessage(raw)
	}
	if job.StartedAt != nil {
		dto.StartedAt = FormatTime(*job.StartedAt)
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*job.CompletedAt)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromAlert converts a recorded alert to its API representation.
func FromAlert(alert alerts.Alert) Alert {
	return Alert{
		ID:           alert.ID,
		JobID:        alert.JobID,
		StreamID:     alert.StreamID,
		Scenario:     alert.Scenario,
		Severity:     string(alert.Severity),
		Concern:      string(alert.Concern),
		Event:        alert.Event,
		Message:      alert.Message,
		Source:       string(alert.Source),
		CreatedAt:    FormatTime(alert.CreatedAt),
		Acknowledged: alert.Acknowledged,
	}
}

// FromAlerts converts a slice of alerts into API DTOs.
func FromAlerts(list []alerts.Alert) []Alert {
	if len(list) == 0 {
		return nil
	}
	out := make([]Alert, 0, len(list))
	for _, alert := range list {
		out = append(out, FromAlert(alert))
	}
	return out
}

// FromStatusSummary converts a scheduler status summary to API payload.
func FromStatusSummary(summary scheduler.StatusSummary) SchedulerStatus {
	status := SchedulerStatus{
		Running:           summary.Running,
		InFlight:          summary.InFlight,
		QueueStats:        QueueCounts(summary.Queue),
		PendingByPriority: PriorityCounts(summary.Queue.PendingByPriority),
		HandlerHealth:     HandlerHealthSlice(summary.HandlerHealth),
	}
	if summary.LastError != "" {
		status.LastError = summary.LastError
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		status.LastJob = &last
	}
	return status
}

// FromStats converts combined scheduler stats to a stats payload.
func FromStats(stats scheduler.Stats) StatsResponse {
	return StatsResponse{
		Counts:            QueueCounts(stats.Queue),
		PendingByPriority: PriorityCounts(stats.Queue.PendingByPriority),
		Total:             stats.Queue.Total,
		InFlight:          stats.InFlight,
		Running:           stats.Running,
	}
}

// HandlerHealthSlice flattens the handler health map into a deterministic
// slice ordered by handler name.
func HandlerHealthSlice(health map[string]stage.Health) []HandlerHealth {
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]HandlerHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, HandlerHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// QueueCounts normalizes queue stats into a map keyed by status string.
func QueueCounts(stats queue.Stats) map[string]int {
	return map[string]int{
		string(queue.StatusPending):    stats.Pending,
		string(queue.StatusProcessing): stats.Processing,
		string(queue.StatusCompleted):  stats.Completed,
		string(queue.StatusFailed):     stats.Failed,
	}
}

// PriorityCounts normalizes the pending backlog into a map keyed by tier name.
func PriorityCounts(pending map[queue.Priority]int) map[string]int {
	if len(pending) == 0 {
		return nil
	}
	out := make(map[string]int, len(pending))
	for priority, count := range pending {
		out[priority.String()] = count
	}
	return out
}

// FromCheckResults converts preflight outcomes into API DTOs.
func FromCheckResults(results []preflight.Result) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckResult, 0, len(results))
	for _, result := range results {
		out = append(out, CheckResult{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
	}
	return out
}

// FormatTime renders a timestamp in the shared API format. Zero times render
// as the empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
