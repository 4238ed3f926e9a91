package testsupport

import (
	"context"
	"testing"

	"vigil/internal/config"
	"vigil/internal/queue"
)

// MustOpenStore opens a SQLite-backed queue store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.SQLiteStore {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnqueue inserts a job for tests using the provided store.
func MustEnqueue(t testing.TB, store queue.Store, job *queue.Job) *queue.Job {
	t.Helper()

	stored, err := store.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return stored
}

// FrameJob builds a minimal valid frame job for tests.
func FrameJob(streamID, scenario string, priority queue.Priority) *queue.Job {
	return &queue.Job{
		StreamID:  streamID,
		Scenario:  scenario,
		Kind:      queue.KindFrame,
		Trigger:   queue.TriggerMotion,
		Priority:  priority,
		Magnitude: 0.5,
		FramePath: "/tmp/" + streamID + ".jpg",
	}
}

// AudioJob builds a minimal valid audio job for tests. The payload carries a
// short flat window so handlers have something decodable.
func AudioJob(t testing.TB, streamID, scenario string, priority queue.Priority) *queue.Job {
	t.Helper()

	payload := queue.AudioPayload{
		Samples:    make([]float64, 256),
		SampleRate: 16000,
		RMS:        0.2,
	}
	encoded, err := payload.Encode()
	if err != nil {
		t.Fatalf("encode audio payload: %v", err)
	}
	return &queue.Job{
		StreamID:  streamID,
		Scenario:  scenario,
		Kind:      queue.KindAudio,
		Trigger:   queue.TriggerAudio,
		Priority:  priority,
		Magnitude: 0.2,
		AudioJSON: encoded,
	}
}
