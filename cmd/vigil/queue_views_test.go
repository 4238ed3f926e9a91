package main

import (
	"testing"

	"vigil/internal/api"
)

func TestBuildQueueListRowsNewestFirst(t *testing.T) {
	jobs := []api.Job{
		{ID: 1, StreamID: "cam-1", Scenario: "baby", Kind: "audio", Priority: "normal", Status: "pending", CreatedAt: "2026-08-01T10:00:00Z"},
		{ID: 3, StreamID: "cam-3", Scenario: "pet", Kind: "frame", Priority: "urgent", Status: "pending", CreatedAt: "2026-08-01T12:00:00Z"},
		{ID: 2, StreamID: "cam-2", Scenario: "security", Kind: "frame", Priority: "high", Status: "running", CreatedAt: "2026-08-01T11:00:00Z"},
	}

	rows := buildQueueListRows(jobs)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	wantOrder := []string{"3", "2", "1"}
	for i, want := range wantOrder {
		if rows[i][0] != want {
			t.Fatalf("row %d: expected job %s first, got %s", i, want, rows[i][0])
		}
	}
	if rows[0][2] != "Pet" || rows[0][4] != "Urgent" {
		t.Fatalf("unexpected formatting in first row: %v", rows[0])
	}
	if rows[0][6] != "2026-08-01 12:00" {
		t.Fatalf("unexpected timestamp rendering: %q", rows[0][6])
	}
}

func TestBuildQueueListRowsTieBreaksOnID(t *testing.T) {
	jobs := []api.Job{
		{ID: 5, CreatedAt: "2026-08-01T10:00:00Z"},
		{ID: 9, CreatedAt: "2026-08-01T10:00:00Z"},
	}
	rows := buildQueueListRows(jobs)
	if rows[0][0] != "9" || rows[1][0] != "5" {
		t.Fatalf("expected higher id first on equal timestamps, got %v then %v", rows[0][0], rows[1][0])
	}
}

func TestBuildPriorityRowsOrder(t *testing.T) {
	rows := buildPriorityRows(map[string]int{
		"low":    4,
		"urgent": 1,
		"normal": 7,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	wantLabels := []string{"Urgent", "Normal", "Low"}
	for i, want := range wantLabels {
		if rows[i][0] != want {
			t.Fatalf("row %d: expected %q, got %q", i, want, rows[i][0])
		}
	}
}

func TestBuildQueueStatusRowsSorted(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"pending":   2,
		"completed": 5,
		"failed":    1,
	})
	wantLabels := []string{"Completed", "Failed", "Pending"}
	for i, want := range wantLabels {
		if rows[i][0] != want {
			t.Fatalf("row %d: expected %q, got %q", i, want, rows[i][0])
		}
	}
}

func TestFormatLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pending", "Pending"},
		{"in_flight", "In Flight"},
		{"  urgent  ", "Urgent"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := formatLabel(tc.in); got != tc.want {
			t.Errorf("formatLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestShortAlertID(t *testing.T) {
	if got := shortAlertID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("expected truncated id, got %q", got)
	}
	if got := shortAlertID("abc"); got != "abc" {
		t.Fatalf("short ids pass through, got %q", got)
	}
}

func TestFormatDisplayTimeFallback(t *testing.T) {
	if got := formatDisplayTime("not-a-time"); got != "not-a-time" {
		t.Fatalf("unparseable values pass through, got %q", got)
	}
	if got := formatDisplayTime(""); got != "" {
		t.Fatalf("empty value should stay empty, got %q", got)
	}
}
