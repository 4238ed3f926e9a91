package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vigil/internal/api"
)

var labelCaser = cases.Title(language.English)

func buildQueueStatusRows(counts map[string]int) [][]string {
	if len(counts) == 0 {
		return nil
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatLabel(key), fmt.Sprintf("%d", counts[key])})
	}
	return rows
}

// buildPriorityRows orders the pending backlog urgent-first, matching the
// order the scheduler drains it.
func buildPriorityRows(byPriority map[string]int) [][]string {
	if len(byPriority) == 0 {
		return nil
	}
	order := []string{"urgent", "high", "normal", "low"}
	rows := make([][]string, 0, len(order))
	for _, tier := range order {
		count, ok := byPriority[tier]
		if !ok {
			continue
		}
		rows = append(rows, []string{formatLabel(tier), fmt.Sprintf("%d", count)})
	}
	return rows
}

func buildQueueListRows(jobs []api.Job) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := make([]api.Job, len(jobs))
	copy(sorted, jobs)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			job.StreamID,
			formatLabel(job.Scenario),
			formatLabel(job.Kind),
			formatLabel(job.Priority),
			formatLabel(job.Status),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

func buildAlertRows(alerts []api.Alert) [][]string {
	if len(alerts) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(alerts))
	for _, alert := range alerts {
		rows = append(rows, []string{
			shortAlertID(alert.ID),
			formatLabel(alert.Severity),
			formatLabel(alert.Concern),
			formatLabel(alert.Source),
			alert.Message,
			formatDisplayTime(alert.CreatedAt),
			yesNo(alert.Acknowledged),
		})
	}
	return rows
}

func formatLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return labelCaser.String(strings.ReplaceAll(value, "_", " "))
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func shortAlertID(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 8 {
		return value[:8]
	}
	return value
}
