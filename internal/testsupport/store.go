package testsupport

import (
	"context"
	"testing"
	"time"

	"shortcast/internal/config"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/uploadqueue"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewQueue creates an upload queue store backed by the test config's data dir.
func NewQueue(t testing.TB, cfg *config.Config) *uploadqueue.Store {
	t.Helper()
	return uploadqueue.NewStore(cfg.QueueFilePath(), logging.NewNop())
}

// NewJob creates a queued job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, ownerKey, content string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), jobs.Params{
		OwnerKey:  ownerKey,
		Content:   content,
		Voice:     "alloy",
		Speed:     1.0,
		Kind:      jobs.KindShort,
		PublishAt: time.Now().Add(4 * time.Hour).UTC(),
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
