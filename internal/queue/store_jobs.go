package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Enqueue inserts a new pending job and returns it with its assigned id.
func (s *SQLiteStore) Enqueue(ctx context.Context, job *Job) (*Job, error) {
	if err := validateNew(job); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}

	now := time.Now().UTC()
	timestamp := now.Format(timeFormat)
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO analysis_jobs (
            stream_id, scenario, kind, cause, priority, magnitude,
            frame_path, audio_json, status, attempts, max_attempts,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.StreamID,
		job.Scenario,
		job.Kind,
		job.Trigger,
		int(job.Priority),
		job.Magnitude,
		nullableString(job.FramePath),
		nullableString(job.AudioJSON),
		StatusPending,
		0,
		maxAttempts,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM analysis_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *SQLiteStore) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE analysis_jobs
         SET stream_id = ?, scenario = ?, kind = ?, cause = ?, priority = ?,
             magnitude = ?, frame_path = ?, audio_json = ?, status = ?,
             attempts = ?, max_attempts = ?, error_message = ?, result_json = ?,
             updated_at = ?, started_at = ?, completed_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		job.StreamID,
		job.Scenario,
		job.Kind,
		job.Trigger,
		int(job.Priority),
		job.Magnitude,
		nullableString(job.FramePath),
		nullableString(job.AudioJSON),
		job.Status,
		job.Attempts,
		job.MaxAttempts,
		nullableString(job.ErrorMessage),
		nullableString(job.ResultJSON),
		job.UpdatedAt.Format(timeFormat),
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		nullableTime(job.LastHeartbeat),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided) ordered by claim precedence.
func (s *SQLiteStore) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM analysis_jobs`
	orderClause := ` ORDER BY priority DESC, created_at ASC, id ASC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Remove deletes a job by identifier.
func (s *SQLiteStore) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM analysis_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes jobs matching the status set, or every job when no status is
// provided.
func (s *SQLiteStore) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	if len(statuses) == 0 {
		res, err := s.execWithRetry(ctx, `DELETE FROM analysis_jobs`)
		if err != nil {
			return 0, fmt.Errorf("clear queue: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM analysis_jobs WHERE status IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("clear by status: %w", err)
	}
	return res.RowsAffected()
}
