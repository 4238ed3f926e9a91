package main

import (
	"context"
	"strings"

	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/ipc"
	"vigil/internal/queue"
)

// queueAPI is the queue surface shared by the IPC and direct-store paths so
// every queue command behaves the same whether or not the daemon is running.
type queueAPI interface {
	Stats(ctx context.Context) (counts, byPriority map[string]int, err error)
	List(ctx context.Context, statuses []string) ([]api.Job, error)
	Describe(ctx context.Context, id int64) (*api.Job, error)
	Clear(ctx context.Context, statuses []string) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) (queue.DatabaseHealth, error)
}

func openQueueStore(cfg *config.Config) (queue.Store, error) {
	return queue.Open(cfg)
}

// --- IPC adapter ---

type queueIPCAdapter struct {
	client *ipc.Client
}

func (a *queueIPCAdapter) Stats(_ context.Context) (map[string]int, map[string]int, error) {
	resp, err := a.client.Stats()
	if err != nil {
		return nil, nil, err
	}
	return resp.Counts, resp.PendingByPriority, nil
}

func (a *queueIPCAdapter) List(_ context.Context, statuses []string) ([]api.Job, error) {
	resp, err := a.client.QueueList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (a *queueIPCAdapter) Describe(_ context.Context, id int64) (*api.Job, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &resp.Job, nil
}

func (a *queueIPCAdapter) Clear(_ context.Context, statuses []string) (int64, error) {
	resp, err := a.client.QueueClear(statuses)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueIPCAdapter) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *queueIPCAdapter) Health(_ context.Context) (queue.DatabaseHealth, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return queue.DatabaseHealth{}, err
	}
	return queue.DatabaseHealth{
		Backend:          resp.Backend,
		DBPath:           resp.DBPath,
		DatabaseExists:   resp.DatabaseExists,
		DatabaseReadable: resp.DatabaseReadable,
		SchemaVersion:    resp.SchemaVersion,
		TableExists:      resp.TableExists,
		ColumnsPresent:   resp.ColumnsPresent,
		MissingColumns:   resp.MissingColumns,
		IntegrityCheck:   resp.IntegrityCheck,
		TotalJobs:        resp.TotalJobs,
		Error:            resp.Error,
	}, nil
}

// --- Store adapter ---

type queueStoreAdapter struct {
	store queue.Store
}

func parseStatusFilters(statuses []string) []queue.Status {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return filters
}

func (a *queueStoreAdapter) Stats(ctx context.Context) (map[string]int, map[string]int, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, nil, err
	}
	return api.QueueCounts(stats), api.PriorityCounts(stats.PendingByPriority), nil
}

func (a *queueStoreAdapter) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	jobs, err := a.store.List(ctx, parseStatusFilters(statuses)...)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(jobs), nil
}

func (a *queueStoreAdapter) Describe(ctx context.Context, id int64) (*api.Job, error) {
	job, err := a.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	view := api.FromJob(job)
	return &view, nil
}

func (a *queueStoreAdapter) Clear(ctx context.Context, statuses []string) (int64, error) {
	return a.store.Clear(ctx, parseStatusFilters(statuses)...)
}

func (a *queueStoreAdapter) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *queueStoreAdapter) Health(ctx context.Context) (queue.DatabaseHealth, error) {
	return a.store.Health(ctx)
}
