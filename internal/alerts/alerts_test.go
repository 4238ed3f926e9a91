package alerts_test

import (
	"testing"

	"vigil/internal/alerts"
	"vigil/internal/concern"
)

func TestFromConcernMapsLevels(t *testing.T) {
	tests := []struct {
		level    concern.Level
		severity alerts.Severity
		ok       bool
	}{
		{concern.LevelNone, "", false},
		{concern.LevelLow, alerts.SeverityInfo, true},
		{concern.LevelMedium, alerts.SeverityWarning, true},
		{concern.LevelHigh, alerts.SeverityUrgent, true},
		{concern.LevelCritical, alerts.SeverityCritical, true},
		{concern.Level("bogus"), "", false},
	}

	for _, tc := range tests {
		severity, ok := alerts.FromConcern(tc.level)
		if ok != tc.ok {
			t.Fatalf("FromConcern(%q) ok = %v, want %v", tc.level, ok, tc.ok)
		}
		if severity != tc.severity {
			t.Fatalf("FromConcern(%q) = %q, want %q", tc.level, severity, tc.severity)
		}
	}
}

func TestSeverityRankOrdersLevels(t *testing.T) {
	ordered := []alerts.Severity{
		alerts.SeverityInfo,
		alerts.SeverityWarning,
		alerts.SeverityUrgent,
		alerts.SeverityCritical,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Fatalf("expected %s to rank below %s", ordered[i-1], ordered[i])
		}
	}
	if rank := alerts.Severity("mystery").Rank(); rank != -1 {
		t.Fatalf("unknown severity rank = %d, want -1", rank)
	}
}

func TestNewSystemAlert(t *testing.T) {
	alert := alerts.NewSystemAlert(alerts.SeverityWarning, "camera_removed", "camera detached: /dev/video0")
	if alert.Source != alerts.SourceSystem {
		t.Fatalf("unexpected source: %q", alert.Source)
	}
	if alert.Severity != alerts.SeverityWarning {
		t.Fatalf("unexpected severity: %q", alert.Severity)
	}
	if alert.Concern != concern.LevelNone {
		t.Fatalf("system alert should carry a none concern, got %q", alert.Concern)
	}
	if alert.Event != "camera_removed" {
		t.Fatalf("unexpected event: %q", alert.Event)
	}
	if alert.ID == "" || alert.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp, got %q / %v", alert.ID, alert.CreatedAt)
	}
}
