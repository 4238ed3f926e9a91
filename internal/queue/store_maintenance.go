package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns job counts grouped by status plus the pending backlog per
// priority tier.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{PendingByPriority: make(map[Priority]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM analysis_jobs GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		stats.Total += count
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	tierRows, err := s.db.QueryContext(
		ctx,
		`SELECT priority, COUNT(1) FROM analysis_jobs WHERE status = ? GROUP BY priority`,
		StatusPending,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("pending by priority: %w", err)
	}
	defer tierRows.Close()

	for tierRows.Next() {
		var priority int64
		var count int
		if err := tierRows.Scan(&priority, &count); err != nil {
			return Stats{}, err
		}
		stats.PendingByPriority[Priority(priority)] = count
	}
	return stats, tierRows.Err()
}

// Health returns diagnostic information about the queue database.
func (s *SQLiteStore) Health(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		Backend:       "sqlite",
		DBPath:        s.path,
		SchemaVersion: "current",
	}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'analysis_jobs'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(analysis_jobs)")
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("table info: %w", err)
		}
		defer colsRows.Close()

		var columns []string
		for colsRows.Next() {
			var (
				cid     int
				name    string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan table info: %w", err)
			}
			columns = append(columns, name)
		}
		if err := colsRows.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate table info: %w", err)
		}
		health.ColumnsPresent = append(health.ColumnsPresent, columns...)

		expected := strings.Split(jobColumns, ", ")
		missingMap := make(map[string]struct{}, len(expected))
		for _, col := range expected {
			missingMap[col] = struct{}{}
		}
		for _, col := range columns {
			delete(missingMap, col)
		}
		for col := range missingMap {
			health.MissingColumns = append(health.MissingColumns, col)
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM analysis_jobs")
		if err := row.Scan(&health.TotalJobs); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
