package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigil/internal/config"
)

const userAgent = "Vigil/0.1.0"

// Event names a notification trigger.
type Event string

const (
	EventAlert          Event = "alert"
	EventJobFailed      Event = "job_failed"
	EventCameraAttached Event = "camera_attached"
	EventCameraRemoved  Event = "camera_removed"
	EventQueueDrained   Event = "queue_drained"
	EventTest           Event = "test"
)

// Payload carries event-specific fields consumed by the formatter.
type Payload map[string]any

// Service is the push surface used by the scheduler, the alert dispatcher,
// and the daemon.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// Without a topic a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	settings := cfg.Notifications
	topic := strings.TrimSpace(settings.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(settings.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		settings: settings,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	settings config.Notifications
	client   *http.Client
}

// Publish formats and sends one event. Events disabled in configuration are
// silently dropped.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	data, err := formatEvent(event, payload)
	if err != nil {
		return err
	}
	return n.send(ctx, data)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventAlert:
		return n.settings.Alerts
	case EventJobFailed:
		return n.settings.Errors
	case EventCameraAttached, EventCameraRemoved:
		return n.settings.Devices
	case EventQueueDrained:
		return n.settings.Queue
	default:
		return true
	}
}

func formatEvent(event Event, payload Payload) (message, error) {
	switch event {
	case EventAlert:
		severity := stringField(payload, "severity")
		body := stringField(payload, "message")
		if stream := stringField(payload, "stream"); stream != "" {
			body = fmt.Sprintf("%s: %s", stream, body)
		}
		tags := []string{"vigil", "alert"}
		if severity != "" {
			tags = append(tags, severity)
		}
		return message{
			title:    "Vigil - Alert",
			body:     "🚨 " + body,
			tags:     tags,
			priority: severityPriority(severity),
		}, nil

	case EventJobFailed:
		body := fmt.Sprintf("❌ Job #%d", int64Field(payload, "jobID"))
		if kind := stringField(payload, "kind"); kind != "" {
			body = fmt.Sprintf("%s (%s)", body, kind)
		}
		body = fmt.Sprintf("%s failed: %s", body, errorText(payload["error"]))
		return message{
			title:    "Vigil - Job Failed",
			body:     body,
			tags:     []string{"vigil", "job", "failed"},
			priority: "high",
		}, nil

	case EventCameraAttached:
		return message{
			title: "Vigil - Camera Attached",
			body:  fmt.Sprintf("📷 Camera attached: %s", stringField(payload, "device")),
			tags:  []string{"vigil", "camera", "attached"},
		}, nil

	case EventCameraRemoved:
		return message{
			title:    "Vigil - Camera Removed",
			body:     fmt.Sprintf("📷 Camera removed: %s", stringField(payload, "device")),
			tags:     []string{"vigil", "camera", "removed"},
			priority: "high",
		}, nil

	case EventQueueDrained:
		processed := intField(payload, "processed")
		failed := intField(payload, "failed")
		duration := durationField(payload, "duration").Round(time.Second)
		if duration < 0 {
			duration = 0
		}
		var body string
		if failed == 0 {
			body = fmt.Sprintf("Queue drained: %d jobs analyzed in %s", processed, duration)
		} else {
			body = fmt.Sprintf("Queue drained: %d analyzed, %d failed in %s", processed, failed, duration)
		}
		return message{
			title: "Vigil - Queue Drained",
			body:  body,
			tags:  []string{"vigil", "queue", "drained"},
		}, nil

	case EventTest:
		return message{
			title:    "Vigil - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"vigil", "test"},
			priority: "low",
		}, nil
	}
	return message{}, fmt.Errorf("unknown notification event %q", event)
}

// severityPriority maps alert severity onto ntfy priority labels. The
// default label is omitted from the request entirely.
func severityPriority(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "critical":
		return "urgent"
	case "urgent":
		return "high"
	case "info":
		return "low"
	}
	return "default"
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringField(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func intField(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	}
	return 0
}

func int64Field(payload Payload, key string) int64 {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	}
	return 0
}

func durationField(payload Payload, key string) time.Duration {
	if payload == nil {
		return 0
	}
	if value, ok := payload[key].(time.Duration); ok {
		return value
	}
	return 0
}

func errorText(value any) string {
	switch v := value.(type) {
	case error:
		if v != nil {
			return strings.TrimSpace(v.Error())
		}
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return "unknown"
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
