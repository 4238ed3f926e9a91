package queue_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vigil/internal/queue"
	"vigil/internal/testsupport"
)

func forEachStore(t *testing.T, fn func(t *testing.T, store queue.Store)) {
	t.Helper()

	backends := []struct {
		name string
		open func(t *testing.T) queue.Store
	}{
		{
			name: "sqlite",
			open: func(t *testing.T) queue.Store {
				return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
			},
		},
		{
			name: "memory",
			open: func(t *testing.T) queue.Store {
				store := queue.NewMemoryStore()
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		},
	}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			fn(t, backend.open(t))
		})
	}
}

func TestEnqueueAssignsDefaults(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		job, err := store.Enqueue(ctx, testsupport.FrameJob("cam-1", "baby", queue.PriorityHigh))
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if job.ID == 0 {
			t.Fatal("expected assigned id")
		}
		if job.Status != queue.StatusPending {
			t.Fatalf("unexpected status: %s", job.Status)
		}
		if job.Attempts != 0 {
			t.Fatalf("unexpected attempts: %d", job.Attempts)
		}
		if job.MaxAttempts != queue.DefaultMaxAttempts {
			t.Fatalf("unexpected max attempts: %d", job.MaxAttempts)
		}
		if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
			t.Fatal("expected timestamps to be set")
		}
	})
}

func TestEnqueueRejectsInvalidJobs(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		cases := []struct {
			name string
			job  *queue.Job
		}{
			{name: "nil job", job: nil},
			{name: "missing stream", job: &queue.Job{Scenario: "pet", Kind: queue.KindFrame, Trigger: queue.TriggerMotion, Priority: queue.PriorityNormal, FramePath: "/tmp/f.jpg"}},
			{name: "missing scenario", job: &queue.Job{StreamID: "cam-1", Kind: queue.KindFrame, Trigger: queue.TriggerMotion, Priority: queue.PriorityNormal, FramePath: "/tmp/f.jpg"}},
			{name: "unknown kind", job: &queue.Job{StreamID: "cam-1", Scenario: "pet", Kind: "video", Trigger: queue.TriggerMotion, Priority: queue.PriorityNormal}},
			{name: "unknown trigger", job: &queue.Job{StreamID: "cam-1", Scenario: "pet", Kind: queue.KindFrame, Trigger: "doorbell", Priority: queue.PriorityNormal, FramePath: "/tmp/f.jpg"}},
			{name: "priority out of range", job: &queue.Job{StreamID: "cam-1", Scenario: "pet", Kind: queue.KindFrame, Trigger: queue.TriggerMotion, Priority: queue.Priority(9), FramePath: "/tmp/f.jpg"}},
			{name: "frame without path", job: &queue.Job{StreamID: "cam-1", Scenario: "pet", Kind: queue.KindFrame, Trigger: queue.TriggerMotion, Priority: queue.PriorityNormal}},
			{name: "audio without payload", job: &queue.Job{StreamID: "cam-1", Scenario: "pet", Kind: queue.KindAudio, Trigger: queue.TriggerAudio, Priority: queue.PriorityNormal}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := store.Enqueue(ctx, tc.job); err == nil {
					t.Fatal("expected enqueue to fail")
				}
			})
		}
	})
}

func TestClaimOrdersByPriorityThenAge(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()

		first := testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-a", "pet", queue.PriorityNormal))
		low := testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-b", "pet", queue.PriorityLow))
		urgent := testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-c", "baby", queue.PriorityUrgent))
		second := testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-d", "pet", queue.PriorityNormal))

		wantOrder := []int64{urgent.ID, first.ID, second.ID, low.ID}
		for i, want := range wantOrder {
			claimed, err := store.Claim(ctx)
			if err != nil {
				t.Fatalf("Claim %d failed: %v", i, err)
			}
			if claimed == nil {
				t.Fatalf("Claim %d returned nil", i)
			}
			if claimed.ID != want {
				t.Fatalf("claim %d: got job %d, want %d", i, claimed.ID, want)
			}
		}

		extra, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim on empty queue failed: %v", err)
		}
		if extra != nil {
			t.Fatalf("expected nil claim on drained queue, got job %d", extra.ID)
		}
	})
}

func TestClaimMarksProcessing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityNormal))

		claimed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		if claimed.Status != queue.StatusProcessing {
			t.Fatalf("unexpected status after claim: %s", claimed.Status)
		}
		if claimed.StartedAt == nil {
			t.Fatal("expected started_at after claim")
		}
		if claimed.LastHeartbeat == nil {
			t.Fatal("expected heartbeat after claim")
		}

		stored, err := store.GetByID(ctx, claimed.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if stored.Status != queue.StatusProcessing {
			t.Fatalf("claim not persisted: %s", stored.Status)
		}
	})
}

func TestConcurrentClaimsNeverShareJob(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		const jobs = 8
		for i := 0; i < jobs; i++ {
			testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityNormal))
		}

		claimedIDs := make(chan int64, jobs)
		var wg sync.WaitGroup
		for worker := 0; worker < 4; worker++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					job, err := store.Claim(ctx)
					if err != nil {
						t.Errorf("Claim failed: %v", err)
						return
					}
					if job == nil {
						return
					}
					claimedIDs <- job.ID
				}
			}()
		}
		wg.Wait()
		close(claimedIDs)

		seen := make(map[int64]struct{}, jobs)
		for id := range claimedIDs {
			if _, dup := seen[id]; dup {
				t.Fatalf("job %d claimed twice", id)
			}
			seen[id] = struct{}{}
		}
		if len(seen) != jobs {
			t.Fatalf("claimed %d jobs, want %d", len(seen), jobs)
		}
	})
}

func TestUpdatePersistsTerminalStates(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityNormal))
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-2", "pet", queue.PriorityNormal))

		completed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		completed.SetCompleted(`{"concern":"none"}`)
		if err := store.Update(ctx, completed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		failed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		failed.Attempts = failed.MaxAttempts
		failed.SetFailed("backend unreachable")
		if err := store.Update(ctx, failed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		gotCompleted, err := store.GetByID(ctx, completed.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if gotCompleted.Status != queue.StatusCompleted {
			t.Fatalf("unexpected status: %s", gotCompleted.Status)
		}
		if gotCompleted.ResultJSON == "" {
			t.Fatal("expected result JSON to persist")
		}
		if gotCompleted.CompletedAt == nil {
			t.Fatal("expected completed_at")
		}

		gotFailed, err := store.GetByID(ctx, failed.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if gotFailed.Status != queue.StatusFailed {
			t.Fatalf("unexpected status: %s", gotFailed.Status)
		}
		if gotFailed.ErrorMessage != "backend unreachable" {
			t.Fatalf("unexpected error message: %q", gotFailed.ErrorMessage)
		}
		if gotFailed.Attempts != gotFailed.MaxAttempts {
			t.Fatalf("attempts %d, want %d", gotFailed.Attempts, gotFailed.MaxAttempts)
		}
	})
}

func TestReleaseProcessingKeepsAttempts(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityHigh))
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-2", "pet", queue.PriorityNormal))

		claimed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		claimed.Attempts = 1
		if err := store.Update(ctx, claimed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		released, err := store.ReleaseProcessing(ctx)
		if err != nil {
			t.Fatalf("ReleaseProcessing failed: %v", err)
		}
		if released != 1 {
			t.Fatalf("released %d jobs, want 1", released)
		}

		job, err := store.GetByID(ctx, claimed.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusPending {
			t.Fatalf("unexpected status after release: %s", job.Status)
		}
		if job.Attempts != 1 {
			t.Fatalf("release touched attempts: %d", job.Attempts)
		}
		if job.StartedAt != nil || job.LastHeartbeat != nil {
			t.Fatal("expected release to clear started_at and heartbeat")
		}

		// Released job keeps its original priority, so it is claimed first.
		next, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		if next.ID != claimed.ID {
			t.Fatalf("expected released job %d first, got %d", claimed.ID, next.ID)
		}
	})
}

func TestReclaimStaleOnlyPastCutoff(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityNormal))

		claimed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}

		reclaimed, err := store.ReclaimStale(ctx, time.Now().UTC().Add(-time.Hour))
		if err != nil {
			t.Fatalf("ReclaimStale failed: %v", err)
		}
		if reclaimed != 0 {
			t.Fatalf("reclaimed %d jobs with fresh heartbeat, want 0", reclaimed)
		}

		reclaimed, err = store.ReclaimStale(ctx, time.Now().UTC().Add(time.Hour))
		if err != nil {
			t.Fatalf("ReclaimStale failed: %v", err)
		}
		if reclaimed != 1 {
			t.Fatalf("reclaimed %d jobs past cutoff, want 1", reclaimed)
		}

		job, err := store.GetByID(ctx, claimed.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusPending {
			t.Fatalf("unexpected status after reclaim: %s", job.Status)
		}
	})
}

func TestRetryFailedResetsBudget(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityNormal))

		claimed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		claimed.Attempts = claimed.MaxAttempts
		claimed.SetFailed("model unavailable")
		if err := store.Update(ctx, claimed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		retried, err := store.RetryFailed(ctx)
		if err != nil {
			t.Fatalf("RetryFailed failed: %v", err)
		}
		if retried != 1 {
			t.Fatalf("retried %d jobs, want 1", retried)
		}

		job, err := store.GetByID(ctx, claimed.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusPending {
			t.Fatalf("unexpected status after retry: %s", job.Status)
		}
		if job.Attempts != 0 {
			t.Fatalf("attempts not reset: %d", job.Attempts)
		}
		if job.ErrorMessage != "" {
			t.Fatalf("error message not cleared: %q", job.ErrorMessage)
		}
	})
}

func TestStatsCountsByStatusAndTier(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityUrgent))
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-2", "pet", queue.PriorityNormal))
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-3", "pet", queue.PriorityNormal))

		claimed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		claimed.SetCompleted(`{"concern":"none"}`)
		if err := store.Update(ctx, claimed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Total != 3 {
			t.Fatalf("total %d, want 3", stats.Total)
		}
		if stats.Pending != 2 || stats.Completed != 1 {
			t.Fatalf("unexpected counts: pending=%d completed=%d", stats.Pending, stats.Completed)
		}
		if stats.PendingByPriority[queue.PriorityNormal] != 2 {
			t.Fatalf("unexpected normal backlog: %d", stats.PendingByPriority[queue.PriorityNormal])
		}
	})
}

func TestClearAndRemove(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		kept := testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityNormal))
		testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-2", "pet", queue.PriorityNormal))

		claimed, err := store.Claim(ctx)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		claimed.SetFailed("gone")
		if err := store.Update(ctx, claimed); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		removedCount, err := store.Clear(ctx, queue.StatusFailed)
		if err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if removedCount != 1 {
			t.Fatalf("cleared %d jobs, want 1", removedCount)
		}

		removed, err := store.Remove(ctx, kept.ID)
		if err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if !removed {
			t.Fatal("expected Remove to delete the job")
		}
		if removed, _ = store.Remove(ctx, kept.ID); removed {
			t.Fatal("expected second Remove to be a no-op")
		}
	})
}

func TestListFiltersAndOrders(t *testing.T) {
	forEachStore(t, func(t *testing.T, store queue.Store) {
		ctx := context.Background()
		low := testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "pet", queue.PriorityLow))
		high := testsupport.MustEnqueue(t, store, testsupport.AudioJob(t, "cam-2", "baby", queue.PriorityHigh))

		jobs, err := store.List(ctx, queue.StatusPending)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(jobs) != 2 {
			t.Fatalf("listed %d jobs, want 2", len(jobs))
		}
		if jobs[0].ID != high.ID || jobs[1].ID != low.ID {
			t.Fatalf("unexpected order: %d, %d", jobs[0].ID, jobs[1].ID)
		}

		none, err := store.List(ctx, queue.StatusFailed)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(none) != 0 {
			t.Fatalf("expected no failed jobs, got %d", len(none))
		}
	})
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "vigil.db")

	store, err := queue.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	ctx := context.Background()
	job := testsupport.MustEnqueue(t, store, testsupport.FrameJob("cam-1", "baby", queue.PriorityHigh))
	if _, err := store.Claim(ctx); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := queue.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	// Startup recovery: the daemon releases orphaned processing rows before
	// the scheduler starts claiming.
	released, err := reopened.ReleaseProcessing(ctx)
	if err != nil {
		t.Fatalf("ReleaseProcessing failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("released %d jobs after reopen, want 1", released)
	}

	claimed, err := reopened.Claim(ctx)
	if err != nil {
		t.Fatalf("Claim after reopen failed: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("expected job %d after reopen, got %+v", job.ID, claimed)
	}
}

func TestAudioPayloadRejectsEmpty(t *testing.T) {
	if _, err := queue.DecodeAudioPayload(""); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if _, err := queue.DecodeAudioPayload("   "); err == nil {
		t.Fatal("expected error for blank payload")
	}
}
