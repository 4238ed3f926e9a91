package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"vigil/internal/queue"
)

type mockQueueReader struct {
	jobs     []*queue.Job
	stats    queue.Stats
	jobErr   error
	statsErr error
}

func (m *mockQueueReader) List(context.Context, ...queue.Status) ([]*queue.Job, error) {
	return m.jobs, m.jobErr
}

func (m *mockQueueReader) Stats(context.Context) (queue.Stats, error) {
	return m.stats, m.statsErr
}

func (m *mockQueueReader) GetByID(context.Context, int64) (*queue.Job, error) {
	if len(m.jobs) == 0 {
		return nil, m.jobErr
	}
	return m.jobs[0], m.jobErr
}

func TestQueueService_List(t *testing.T) {
	now := time.Now().UTC()
	reader := &mockQueueReader{
		jobs: []*queue.Job{{
			ID:        1,
			StreamID:  "cam-nursery",
			Scenario:  "baby",
			Kind:      queue.KindFrame,
			Trigger:   queue.TriggerMotion,
			Priority:  queue.PriorityHigh,
			Status:    queue.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}
	svc := NewQueueService(reader)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected job count: %d", len(got))
	}
	if got[0].StreamID != "cam-nursery" {
		t.Fatalf("unexpected stream id: %q", got[0].StreamID)
	}
	if got[0].Status != string(queue.StatusPending) {
		t.Fatalf("unexpected status: %q", got[0].Status)
	}
	if got[0].CreatedAt == "" || got[0].UpdatedAt == "" {
		t.Fatalf("expected timestamps to be formatted")
	}
}

func TestQueueService_ListError(t *testing.T) {
	errSentinel := errors.New("boom")
	svc := NewQueueService(&mockQueueReader{jobErr: errSentinel})
	_, err := svc.List(context.Background())
	if !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestQueueService_Stats(t *testing.T) {
	svc := NewQueueService(&mockQueueReader{stats: queue.Stats{Pending: 2, Failed: 1}})
	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if got[string(queue.StatusPending)] != 2 {
		t.Fatalf("expected pending count 2, got %d", got[string(queue.StatusPending)])
	}
	if got[string(queue.StatusFailed)] != 1 {
		t.Fatalf("expected failed count 1, got %d", got[string(queue.StatusFailed)])
	}
}

func TestQueueService_Describe(t *testing.T) {
	svc := NewQueueService(&mockQueueReader{jobs: []*queue.Job{{ID: 7, StreamID: "cam-yard"}}})
	job, err := svc.Describe(context.Background(), 7)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if job == nil {
		t.Fatal("Describe returned nil job")
		return
	}
	if job.ID != 7 {
		t.Fatalf("unexpected id: %d", job.ID)
	}
}

func TestQueueService_NilStore(t *testing.T) {
	if svc := NewQueueService(nil); svc != nil {
		t.Fatal("expected nil service for nil reader")
	}
	var svc *QueueService
	if jobs, err := svc.List(context.Background()); err != nil || jobs != nil {
		t.Fatalf("nil service List should be a no-op, got %v / %v", jobs, err)
	}
}
