package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process memory with the same ordering and
// transition rules as the SQLite backend. It backs tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[int64]*Job
	nextID int64
	closed bool
}

// NewMemoryStore returns an empty in-memory queue.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[int64]*Job)}
}

// claimBefore reports whether a precedes b in claim order: priority DESC,
// then created_at ASC, then id ASC.
func claimBefore(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (m *MemoryStore) checkOpen() error {
	if m.closed {
		return errors.New("memory store is closed")
	}
	return nil
}

// Enqueue inserts a new pending job and returns it with its assigned id.
func (m *MemoryStore) Enqueue(ctx context.Context, job *Job) (*Job, error) {
	if err := validateNew(job); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	m.nextID++
	now := time.Now().UTC()
	stored := job.Clone()
	stored.ID = m.nextID
	stored.Status = StatusPending
	stored.Attempts = 0
	if stored.MaxAttempts <= 0 {
		stored.MaxAttempts = DefaultMaxAttempts
	}
	stored.ErrorMessage = ""
	stored.ResultJSON = ""
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.StartedAt = nil
	stored.CompletedAt = nil
	stored.LastHeartbeat = nil

	m.jobs[stored.ID] = stored
	return stored.Clone(), nil
}

// Claim moves the highest-precedence pending job to processing and returns
// it, or (nil, nil) when nothing is pending.
func (m *MemoryStore) Claim(ctx context.Context) (*Job, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var best *Job
	for _, job := range m.jobs {
		if job.Status != StatusPending {
			continue
		}
		if best == nil || claimBefore(job, best) {
			best = job
		}
	}
	if best == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	best.Status = StatusProcessing
	best.StartedAt = &now
	best.LastHeartbeat = &now
	best.UpdatedAt = now
	return best.Clone(), nil
}

// GetByID fetches a job by identifier.
func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return job.Clone(), nil
}

// Update persists changes to an existing job.
func (m *MemoryStore) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}
	if _, ok := m.jobs[job.ID]; !ok {
		return fmt.Errorf("job %d not found", job.ID)
	}
	job.UpdatedAt = time.Now().UTC()
	m.jobs[job.ID] = job.Clone()
	return nil
}

// List returns jobs filtered by status set in claim order.
func (m *MemoryStore) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var filter map[Status]struct{}
	if len(statuses) > 0 {
		filter = make(map[Status]struct{}, len(statuses))
		for _, status := range statuses {
			filter[status] = struct{}{}
		}
	}

	var jobs []*Job
	for _, job := range m.jobs {
		if filter != nil {
			if _, ok := filter[job.Status]; !ok {
				continue
			}
		}
		jobs = append(jobs, job.Clone())
	}
	sort.Slice(jobs, func(i, j int) bool { return claimBefore(jobs[i], jobs[j]) })
	return jobs, nil
}

// Stats returns job counts by status plus the pending backlog per tier.
func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return Stats{}, err
	}

	stats := Stats{PendingByPriority: make(map[Priority]int)}
	for _, job := range m.jobs {
		stats.Total++
		switch job.Status {
		case StatusPending:
			stats.Pending++
			stats.PendingByPriority[job.Priority]++
		case StatusProcessing:
			stats.Processing++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (m *MemoryStore) UpdateHeartbeat(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}
	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not found", id)
	}
	now := time.Now().UTC()
	job.LastHeartbeat = &now
	job.UpdatedAt = now
	return nil
}

// ReleaseProcessing returns every processing job to pending without touching
// attempts.
func (m *MemoryStore) ReleaseProcessing(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	var released int64
	now := time.Now().UTC()
	for _, job := range m.jobs {
		if job.Status != StatusProcessing {
			continue
		}
		job.Status = StatusPending
		job.StartedAt = nil
		job.LastHeartbeat = nil
		job.UpdatedAt = now
		released++
	}
	return released, nil
}

// ReclaimStale returns processing jobs with heartbeats older than cutoff back
// to pending.
func (m *MemoryStore) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	var reclaimed int64
	now := time.Now().UTC()
	for _, job := range m.jobs {
		if job.Status != StatusProcessing || job.LastHeartbeat == nil {
			continue
		}
		if !job.LastHeartbeat.Before(cutoff) {
			continue
		}
		job.Status = StatusPending
		job.StartedAt = nil
		job.LastHeartbeat = nil
		job.UpdatedAt = now
		reclaimed++
	}
	return reclaimed, nil
}

// RetryFailed moves failed jobs back to pending with a fresh retry budget.
func (m *MemoryStore) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	var target map[int64]struct{}
	if len(ids) > 0 {
		target = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			target[id] = struct{}{}
		}
	}

	var retried int64
	now := time.Now().UTC()
	for _, job := range m.jobs {
		if job.Status != StatusFailed {
			continue
		}
		if target != nil {
			if _, ok := target[job.ID]; !ok {
				continue
			}
		}
		job.Status = StatusPending
		job.Attempts = 0
		job.ErrorMessage = ""
		job.StartedAt = nil
		job.CompletedAt = nil
		job.LastHeartbeat = nil
		job.UpdatedAt = now
		retried++
	}
	return retried, nil
}

// Clear removes jobs matching the status set, or every job when no status is
// provided.
func (m *MemoryStore) Clear(ctx context.Context, statuses ...Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	if len(statuses) == 0 {
		removed := int64(len(m.jobs))
		m.jobs = make(map[int64]*Job)
		return removed, nil
	}

	filter := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		filter[status] = struct{}{}
	}
	var removed int64
	for id, job := range m.jobs {
		if _, ok := filter[job.Status]; ok {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed, nil
}

// Remove deletes a job by identifier.
func (m *MemoryStore) Remove(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return false, err
	}
	if _, ok := m.jobs[id]; !ok {
		return false, nil
	}
	delete(m.jobs, id)
	return true, nil
}

// Health reports a trivially healthy backend plus the live job count.
func (m *MemoryStore) Health(ctx context.Context) (DatabaseHealth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return DatabaseHealth{Backend: "memory", Error: err.Error()}, err
	}
	return DatabaseHealth{
		Backend:          "memory",
		DatabaseExists:   true,
		DatabaseReadable: true,
		SchemaVersion:    "current",
		TableExists:      true,
		IntegrityCheck:   true,
		TotalJobs:        len(m.jobs),
	}, nil
}

// Close marks the store closed; later calls fail.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
