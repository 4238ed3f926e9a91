package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vigil/internal/config"
	"vigil/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "critical alert",
			event: notifications.EventAlert,
			payload: notifications.Payload{
				"severity": "critical",
				"stream":   "cam-nursery",
				"message":  "infant climbing over the crib rail",
			},
			expectTitle:    "Vigil - Alert",
			expectMessage:  "🚨 cam-nursery: infant climbing over the crib rail",
			expectTags:     "vigil,alert,critical",
			expectPriority: "urgent",
		},
		{
			name:  "urgent alert",
			event: notifications.EventAlert,
			payload: notifications.Payload{
				"severity": "urgent",
				"stream":   "cam-livingroom",
				"message":  "dog chewing a power cable",
			},
			expectTitle:    "Vigil - Alert",
			expectMessage:  "🚨 cam-livingroom: dog chewing a power cable",
			expectTags:     "vigil,alert,urgent",
			expectPriority: "high",
		},
		{
			name:  "info alert without stream",
			event: notifications.EventAlert,
			payload: notifications.Payload{
				"severity": "info",
				"message":  "pet resting quietly",
			},
			expectTitle:    "Vigil - Alert",
			expectMessage:  "🚨 pet resting quietly",
			expectTags:     "vigil,alert,info",
			expectPriority: "low",
		},
		{
			name:  "job failed",
			event: notifications.EventJobFailed,
			payload: notifications.Payload{
				"jobID": int64(12),
				"kind":  "frame",
				"error": "vision backend unreachable",
			},
			expectTitle:    "Vigil - Job Failed",
			expectMessage:  "❌ Job #12 (frame) failed: vision backend unreachable",
			expectTags:     "vigil,job,failed",
			expectPriority: "high",
		},
		{
			name:  "camera attached",
			event: notifications.EventCameraAttached,
			payload: notifications.Payload{
				"device": "/dev/video0",
			},
			expectTitle:   "Vigil - Camera Attached",
			expectMessage: "📷 Camera attached: /dev/video0",
			expectTags:    "vigil,camera,attached",
		},
		{
			name:  "camera removed",
			event: notifications.EventCameraRemoved,
			payload: notifications.Payload{
				"device": "/dev/video0",
			},
			expectTitle:    "Vigil - Camera Removed",
			expectMessage:  "📷 Camera removed: /dev/video0",
			expectTags:     "vigil,camera,removed",
			expectPriority: "high",
		},
		{
			name:  "queue drained",
			event: notifications.EventQueueDrained,
			payload: notifications.Payload{
				"processed": 4,
				"failed":    0,
				"duration":  32 * time.Second,
			},
			expectTitle:   "Vigil - Queue Drained",
			expectMessage: "Queue drained: 4 jobs analyzed in 32s",
			expectTags:    "vigil,queue,drained",
		},
		{
			name:  "queue drained with failures",
			event: notifications.EventQueueDrained,
			payload: notifications.Payload{
				"processed": 3,
				"failed":    1,
				"duration":  90 * time.Second,
			},
			expectTitle:   "Vigil - Queue Drained",
			expectMessage: "Queue drained: 3 analyzed, 1 failed in 1m30s",
			expectTags:    "vigil,queue,drained",
		},
		{
			name:           "test notification",
			event:          notifications.EventTest,
			payload:        nil,
			expectTitle:    "Vigil - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "vigil,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Alerts = false
	cfg.Notifications.Errors = false
	cfg.Notifications.Queue = false
	cfg.Notifications.Devices = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventAlert,
		notifications.EventJobFailed,
		notifications.EventCameraAttached,
		notifications.EventCameraRemoved,
		notifications.EventQueueDrained,
	}

	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"message": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}
