package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, stream_id, scenario, kind, cause, priority, magnitude, frame_path, audio_json, status, attempts, max_attempts, error_message, result_json, created_at, updated_at, started_at, completed_at, last_heartbeat"

// timeFormat keeps a fixed-width fraction so lexicographic order on the TEXT
// column matches chronological order; RFC3339Nano trims trailing zeros and
// breaks that for ORDER BY created_at.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		streamID     string
		scenario     string
		kindStr      string
		causeStr     string
		priority     int64
		magnitude    float64
		framePath    sql.NullString
		audioJSON    sql.NullString
		statusStr    string
		attempts     int64
		maxAttempts  int64
		errorMsg     sql.NullString
		resultJSON   sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		heartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&streamID,
		&scenario,
		&kindStr,
		&causeStr,
		&priority,
		&magnitude,
		&framePath,
		&audioJSON,
		&statusStr,
		&attempts,
		&maxAttempts,
		&errorMsg,
		&resultJSON,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		StreamID:     streamID,
		Scenario:     scenario,
		Kind:         Kind(kindStr),
		Trigger:      Trigger(causeStr),
		Priority:     Priority(priority),
		Magnitude:    magnitude,
		FramePath:    framePath.String,
		AudioJSON:    audioJSON.String,
		Status:       Status(statusStr),
		Attempts:     int(attempts),
		MaxAttempts:  int(maxAttempts),
		ErrorMessage: errorMsg.String,
		ResultJSON:   resultJSON.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(timeFormat)
	return v
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
