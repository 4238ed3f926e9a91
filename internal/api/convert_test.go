package api

import (
	"strings"
	"testing"
	"time"

	"vigil/internal/alerts"
	"vigil/internal/concern"
	"vigil/internal/queue"
	"vigil/internal/scheduler"
	"vigil/internal/stage"
)

func TestFromJob_FrameFields(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	started := created.Add(2 * time.Second)
	completed := created.Add(9 * time.Second)
	job := &queue.Job{
		ID:          42,
		StreamID:    "cam-nursery",
		Scenario:    "baby",
		Kind:        queue.KindFrame,
		Trigger:     queue.TriggerMotion,
		Priority:    queue.PriorityUrgent,
		Magnitude:   0.82,
		FramePath:   "/frames/cam-nursery/0042.jpg",
		Status:      queue.StatusCompleted,
		Attempts:    1,
		MaxAttempts: 3,
		ResultJSON:  `{"concern":"high","description":"infant near crib rail"}`,
		CreatedAt:   created,
		UpdatedAt:   completed,
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	dto := FromJob(job)
	if dto.ID != 42 || dto.StreamID != "cam-nursery" {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
	if dto.Kind != "frame" || dto.Trigger != "motion" || dto.Priority != "urgent" {
		t.Fatalf("unexpected enum rendering: kind=%q trigger=%q priority=%q", dto.Kind, dto.Trigger, dto.Priority)
	}
	if dto.Audio != nil {
		t.Fatalf("frame job should not carry an audio summary: %+v", dto.Audio)
	}
	if string(dto.Result) != job.ResultJSON {
		t.Fatalf("result should pass through verbatim, got %s", dto.Result)
	}
	if dto.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected createdAt: %q", dto.CreatedAt)
	}
	if dto.StartedAt == "" || dto.CompletedAt == "" {
		t.Fatalf("expected started/completed timestamps, got %q / %q", dto.StartedAt, dto.CompletedAt)
	}
}

func TestFromJob_SummarizesAudioPayload(t *testing.T) {
	encoded, err := queue.AudioPayload{
		Samples:    []float64{0.1, -0.2, 0.3, -0.4},
		SampleRate: 16000,
		RMS:        0.27,
	}.Encode()
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	job := &queue.Job{
		ID:        7,
		StreamID:  "mic-hall",
		Scenario:  "elderly",
		Kind:      queue.KindAudio,
		Trigger:   queue.TriggerAudio,
		Priority:  queue.PriorityHigh,
		AudioJSON: encoded,
		Status:    queue.StatusPending,
	}

	dto := FromJob(job)
	if dto.Audio == nil {
		t.Fatal("expected audio summary")
	}
	if dto.Audio.Samples != 4 || dto.Audio.SampleRate != 16000 {
		t.Fatalf("unexpected audio summary: %+v", dto.Audio)
	}
	if dto.Audio.RMS != 0.27 {
		t.Fatalf("unexpected rms: %v", dto.Audio.RMS)
	}
	if dto.StartedAt != "" || dto.CompletedAt != "" {
		t.Fatalf("pending job should have empty start/complete times")
	}
}

func TestFromJob_Nil(t *testing.T) {
	dto := FromJob(nil)
	if dto.ID != 0 || dto.StreamID != "" || dto.Result != nil {
		t.Fatalf("expected zero DTO for nil job, got %+v", dto)
	}
}

func TestFromStatusSummary_OrdersHandlerHealth(t *testing.T) {
	summary := scheduler.StatusSummary{
		Running:  true,
		InFlight: 2,
		Queue: queue.Stats{
			Total:   5,
			Pending: 3,
			Failed:  1,
			PendingByPriority: map[queue.Priority]int{
				queue.PriorityUrgent: 1,
				queue.PriorityNormal: 2,
			},
		},
		LastError: "frame missing",
		LastJob:   &queue.Job{ID: 11, StreamID: "cam-yard", Kind: queue.KindFrame},
		HandlerHealth: map[string]stage.Health{
			"frame": stage.Unhealthy("frame", "ollama unreachable"),
			"audio": stage.Healthy("audio"),
		},
	}

	status := FromStatusSummary(summary)
	if !status.Running || status.InFlight != 2 {
		t.Fatalf("unexpected liveness: %+v", status)
	}
	if status.QueueStats["pending"] != 3 || status.QueueStats["failed"] != 1 {
		t.Fatalf("unexpected queue stats: %+v", status.QueueStats)
	}
	if status.PendingByPriority["urgent"] != 1 || status.PendingByPriority["normal"] != 2 {
		t.Fatalf("unexpected priority counts: %+v", status.PendingByPriority)
	}
	if len(status.HandlerHealth) != 2 {
		t.Fatalf("expected 2 health entries, got %d", len(status.HandlerHealth))
	}
	if status.HandlerHealth[0].Name != "audio" || status.HandlerHealth[1].Name != "frame" {
		t.Fatalf("expected health sorted by name, got %+v", status.HandlerHealth)
	}
	if status.HandlerHealth[1].Detail != "ollama unreachable" {
		t.Fatalf("unexpected health detail: %+v", status.HandlerHealth[1])
	}
	if status.LastJob == nil || status.LastJob.ID != 11 {
		t.Fatalf("expected last job to carry through, got %+v", status.LastJob)
	}
	if status.LastError != "frame missing" {
		t.Fatalf("unexpected last error: %q", status.LastError)
	}
}

func TestFromStats(t *testing.T) {
	resp := FromStats(scheduler.Stats{
		Queue: queue.Stats{
			Total:      4,
			Pending:    1,
			Processing: 1,
			Completed:  1,
			Failed:     1,
			PendingByPriority: map[queue.Priority]int{
				queue.PriorityLow: 1,
			},
		},
		InFlight: 1,
		Running:  true,
	})
	if resp.Total != 4 || !resp.Running || resp.InFlight != 1 {
		t.Fatalf("unexpected stats response: %+v", resp)
	}
	if resp.Counts["processing"] != 1 {
		t.Fatalf("unexpected counts: %+v", resp.Counts)
	}
	if resp.PendingByPriority["low"] != 1 {
		t.Fatalf("unexpected priority counts: %+v", resp.PendingByPriority)
	}
}

func TestFromAlert(t *testing.T) {
	createdAt := time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC)
	dto := FromAlert(alerts.Alert{
		ID:        "a-1",
		JobID:     9,
		StreamID:  "mic-nursery",
		Scenario:  "baby",
		Severity:  alerts.SeverityWarning,
		Concern:   concern.LevelMedium,
		Event:     "cry",
		Message:   "sustained crying detected",
		Source:    alerts.SourceAudio,
		CreatedAt: createdAt,
	})
	if dto.Severity != "warning" || dto.Concern != "medium" || dto.Source != "audio" {
		t.Fatalf("unexpected enum rendering: %+v", dto)
	}
	if dto.Event != "cry" {
		t.Fatalf("unexpected event: %q", dto.Event)
	}
	if !strings.HasPrefix(dto.CreatedAt, "2026-05-02T18:30:00") {
		t.Fatalf("unexpected createdAt: %q", dto.CreatedAt)
	}
}

func TestFormatTime_Zero(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
}
