package queue

import (
	"context"
	"time"
)

// Store is the queue contract shared by the SQLite and in-memory backends.
//
// Claim is the precedence boundary: it must atomically hand one pending job
// to exactly one caller, picking by priority DESC, then created_at ASC, then
// id ASC. ReleaseProcessing and ReclaimStale return orphaned processing jobs
// to pending without consuming retry budget.
type Store interface {
	Enqueue(ctx context.Context, job *Job) (*Job, error)
	Claim(ctx context.Context) (*Job, error)
	GetByID(ctx context.Context, id int64) (*Job, error)
	Update(ctx context.Context, job *Job) error
	List(ctx context.Context, statuses ...Status) ([]*Job, error)
	Stats(ctx context.Context) (Stats, error)
	UpdateHeartbeat(ctx context.Context, id int64) error
	ReleaseProcessing(ctx context.Context) (int64, error)
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	Clear(ctx context.Context, statuses ...Status) (int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
	Health(ctx context.Context) (DatabaseHealth, error)
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
