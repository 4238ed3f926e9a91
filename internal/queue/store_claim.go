package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Claim atomically moves the highest-precedence pending job to processing and
// returns it, or (nil, nil) when the queue is idle.
//
// The transition is a compare-and-set on status, so two concurrent claimers
// can never take the same job; the loser of a race retries against the next
// candidate.
func (s *SQLiteStore) Claim(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := s.db.QueryRowContext(
			ctx,
			`SELECT `+jobColumns+` FROM analysis_jobs
             WHERE status = ?
             ORDER BY priority DESC, created_at ASC, id ASC
             LIMIT 1`,
			StatusPending,
		)
		candidate, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select claim candidate: %w", err)
		}

		now := time.Now().UTC()
		stamp := now.Format(timeFormat)
		res, err := s.execWithRetry(
			ctx,
			`UPDATE analysis_jobs
             SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusProcessing,
			stamp,
			stamp,
			stamp,
			candidate.ID,
			StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race; another claimer took this one.
			continue
		}

		return s.GetByID(ctx, candidate.ID)
	}
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (s *SQLiteStore) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE analysis_jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(timeFormat),
		now.Format(timeFormat),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReleaseProcessing returns every processing job to pending without touching
// attempts. Run at scheduler stop and daemon startup: the single-instance
// lock makes any leftover processing row an orphan from a previous run.
func (s *SQLiteStore) ReleaseProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE analysis_jobs
         SET status = ?, started_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(timeFormat),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("release processing jobs: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStale returns processing jobs whose heartbeat is older than cutoff
// back to pending so another worker can claim them.
func (s *SQLiteStore) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE analysis_jobs
         SET status = ?, started_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		time.Now().UTC().Format(timeFormat),
		StatusProcessing,
		cutoff.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed jobs back to pending with a fresh retry budget.
// With no ids every failed job is retried.
func (s *SQLiteStore) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(timeFormat)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE analysis_jobs
            SET status = ?, attempts = 0, error_message = NULL,
                started_at = NULL, completed_at = NULL, last_heartbeat = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE analysis_jobs
        SET status = ?, attempts = 0, error_message = NULL,
            started_at = NULL, completed_at = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}
