package logging

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"severity",
	"concern",
	"event",
	"confidence",
	FieldScenario,
	"trigger",
	"priority",
	"status",
	"model",
	"path",
	"used_fallback",
	"message",
	"error_message",
	FieldErrorCode,
	FieldErrorHint,
	"attempts",
	"max_attempts",
	"pending",
	"processing",
	"completed",
	"failed",
	"workers",
	"elapsed",
	"latency",
	"reclaimed",
	"released",
	"device",
	"reason",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	formatted := make([]string, len(attrs))
	formattedSet := make([]bool, len(attrs))
	ensureValue := func(idx int) string {
		if !formattedSet[idx] {
			formatted[idx] = formatValueForKey(attrs[idx].key, attrs[idx].value)
			formattedSet[idx] = true
		}
		return formatted[idx]
	}
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	for _, key := range infoHighlightKeys {
		if limit > 0 && len(result) >= limit {
			break
		}
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			used[idx] = true
			if skipInfoKey(attr.key) {
				break
			}
			if !includeDebug && isDebugOnlyKey(attr.key) {
				hidden++
				break
			}
			val := ensureValue(idx)
			if !includeDebug && shouldHideInfoValue(attr.key, val) {
				hidden++
				break
			}
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
			break
		}
	}

	for idx, attr := range attrs {
		if used[idx] {
			continue
		}
		used[idx] = true
		if skipInfoKey(attr.key) {
			continue
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			continue
		}
		val := ensureValue(idx)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			continue
		}
		if limit <= 0 || len(result) < limit {
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
		} else if limit > 0 {
			hidden++
		}
	}

	return result, hidden
}

// formatValueForKey applies smart formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()

	if isByteSizeKey(key) && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		var bytes int64
		if v.Kind() == slog.KindInt64 {
			bytes = v.Int64()
		} else {
			bytes = int64(v.Uint64())
		}
		return formatBytes(bytes)
	}

	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}

	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return formatPercent(v.Float64())
	}

	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

// isByteSizeKey returns true if the key represents a byte size.
func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

// isDurationKey returns true if the key represents a duration.
func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "latency" ||
		key == "backoff" ||
		key == "uptime"
}

// isPercentKey returns true if the key represents a percentage.
func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent")
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldJobID, FieldStreamID, FieldKind, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldRequestID,
		FieldHandler,
		"sample_rate",
		"samples",
		"spectrum_bins",
		"bin_width_hz",
		"magnitude_floor",
		"poll_interval",
		"heartbeat_interval":
		return true
	}
	if strings.Contains(key, "request_id") {
		return true
	}
	if strings.HasSuffix(key, "_id") && key != FieldJobID && key != FieldStreamID {
		return true
	}
	if strings.Contains(key, "_path") || strings.Contains(key, "_dir") || strings.Contains(key, "_url") {
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "message", "reason":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorCode:
		return "Error Code"
	case FieldErrorHint:
		return "Hint"
	case FieldJobID:
		return "Job"
	case FieldStreamID:
		return "Stream"
	case FieldScenario:
		return "Scenario"
	case "used_fallback":
		return "Fallback Used"
	case "rms":
		return "RMS"
	case "matched_hz":
		return "Matched Hz"
	case "tolerance_hz":
		return "Tolerance Hz"
	case "max_attempts":
		return "Retry Budget"
	case "ntfy_topic":
		return "Topic"
	case "reason":
		return "Reason"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

func infoSummaryKey(component, jobID, streamID string) string {
	jobID = strings.TrimSpace(jobID)
	if jobID != "" {
		return "job:" + jobID
	}
	streamID = strings.TrimSpace(streamID)
	if streamID != "" {
		return "stream:" + streamID
	}
	return component
}

func formatBytes(value int64) string {
	const (
		kiB = 1024
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.2f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.2f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.2f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}

func formatDurationHuman(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.String()
	}
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
