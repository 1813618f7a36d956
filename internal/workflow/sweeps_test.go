package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"shortcast/internal/generation"
	"shortcast/internal/logging"
	"shortcast/internal/notify"
	"shortcast/internal/publish"
	"shortcast/internal/testsupport"
	"shortcast/internal/uploadqueue"
)

type sweepGenerator struct{}

func (sweepGenerator) Generate(context.Context, generation.Request, generation.ProgressFunc) ([]generation.Artifact, error) {
	return nil, nil
}

type sweepPublisher struct {
	mu        sync.Mutex
	uploads   int
	schedules map[string]time.Time
	public    []string
	publicErr error
	nextID    int
}

func newSweepPublisher() *sweepPublisher {
	return &sweepPublisher{schedules: make(map[string]time.Time)}
}

func (p *sweepPublisher) Upload(context.Context, publish.UploadRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads++
	p.nextID++
	return fmt.Sprintf("vid-%03d", p.nextID), nil
}

func (p *sweepPublisher) Schedule(_ context.Context, remoteID string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schedules[remoteID] = at
	return nil
}

func (p *sweepPublisher) MakePublic(_ context.Context, remoteID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publicErr != nil {
		return p.publicErr
	}
	p.public = append(p.public, remoteID)
	return nil
}

func (p *sweepPublisher) WatchURL(remoteID string) string {
	return "https://videos.test/watch/" + remoteID
}

func newSweepManager(t *testing.T) (*Manager, *uploadqueue.Store, *sweepPublisher) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.NewQueue(t, cfg)
	pub := newSweepPublisher()
	mgr := NewManager(cfg, store, queue, sweepGenerator{}, pub, notify.NewService(cfg, logging.NewNop()), logging.NewNop())
	return mgr, queue, pub
}

func seedItem(t *testing.T, queue *uploadqueue.Store, item uploadqueue.Item) {
	t.Helper()
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	if err := queue.Append(item); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func itemByPath(t *testing.T, queue *uploadqueue.Store, path string) uploadqueue.Item {
	t.Helper()
	for _, item := range queue.Snapshot() {
		if item.ArtifactPath == path {
			return item
		}
	}
	t.Fatalf("no queue item with path %s", path)
	return uploadqueue.Item{}
}

func TestPublishSweepFlipsDueItems(t *testing.T) {
	mgr, queue, pub := newSweepManager(t)
	now := time.Now().UTC()

	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/due.mp4",
		Title:        "due",
		Status:       uploadqueue.StatusScheduled,
		RemoteID:     "vid-due",
		ScheduledAt:  now.Add(-time.Minute),
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/future.mp4",
		Title:        "future",
		Status:       uploadqueue.StatusScheduled,
		RemoteID:     "vid-future",
		ScheduledAt:  now.Add(2 * time.Hour),
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/pending.mp4",
		Title:        "pending",
		Status:       uploadqueue.StatusPending,
		ScheduledAt:  now.Add(-time.Minute),
	})

	mgr.publishSweep(context.Background())

	due := itemByPath(t, queue, "/stage/due.mp4")
	if due.Status != uploadqueue.StatusPublished {
		t.Fatalf("expected due item published, got %s", due.Status)
	}
	if due.PublishedAt == nil {
		t.Fatal("expected published_at to be stamped")
	}
	if future := itemByPath(t, queue, "/stage/future.mp4"); future.Status != uploadqueue.StatusScheduled {
		t.Fatalf("expected future item untouched, got %s", future.Status)
	}
	if pending := itemByPath(t, queue, "/stage/pending.mp4"); pending.Status != uploadqueue.StatusPending {
		t.Fatalf("expected pending item untouched, got %s", pending.Status)
	}
	if len(pub.public) != 1 || pub.public[0] != "vid-due" {
		t.Fatalf("expected one MakePublic call for vid-due, got %v", pub.public)
	}
}

func TestPublishSweepKeepsItemScheduledOnFailure(t *testing.T) {
	mgr, queue, pub := newSweepManager(t)
	pub.publicErr = errors.New("platform unavailable")

	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/due.mp4",
		Title:        "due",
		Status:       uploadqueue.StatusScheduled,
		RemoteID:     "vid-due",
		ScheduledAt:  time.Now().UTC().Add(-time.Minute),
	})

	mgr.publishSweep(context.Background())

	item := itemByPath(t, queue, "/stage/due.mp4")
	if item.Status != uploadqueue.StatusScheduled {
		t.Fatalf("expected item to stay scheduled, got %s", item.Status)
	}
	if item.PublishedAt != nil {
		t.Fatal("expected no published_at on failed flip")
	}
}

func TestRetrySweepRepends(t *testing.T) {
	mgr, queue, _ := newSweepManager(t)
	now := time.Now().UTC()
	elapsed := now.Add(-40 * time.Minute)
	recent := now.Add(-time.Minute)

	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/eligible.mp4",
		Status:         uploadqueue.StatusFailed,
		UploadAttempts: 1,
		LastAttemptAt:  &elapsed,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/too-soon.mp4",
		Status:         uploadqueue.StatusFailed,
		UploadAttempts: 1,
		LastAttemptAt:  &recent,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/exhausted.mp4",
		Status:         uploadqueue.StatusFailed,
		UploadAttempts: 5,
		LastAttemptAt:  &elapsed,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/reschedule.mp4",
		Status:         uploadqueue.StatusScheduleFailed,
		RemoteID:       "vid-kept",
		UploadAttempts: 2,
		LastAttemptAt:  &elapsed,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/reschedule-exhausted.mp4",
		Status:         uploadqueue.StatusScheduleFailed,
		RemoteID:       "vid-spent",
		UploadAttempts: 5,
		LastAttemptAt:  &elapsed,
	})

	mgr.retrySweep(context.Background())

	if item := itemByPath(t, queue, "/stage/eligible.mp4"); item.Status != uploadqueue.StatusPending {
		t.Fatalf("expected eligible item re-pended, got %s", item.Status)
	}
	if item := itemByPath(t, queue, "/stage/too-soon.mp4"); item.Status != uploadqueue.StatusFailed {
		t.Fatalf("expected too-soon item to stay failed, got %s", item.Status)
	}
	if item := itemByPath(t, queue, "/stage/exhausted.mp4"); item.Status != uploadqueue.StatusFailed {
		t.Fatalf("expected exhausted item to stay failed, got %s", item.Status)
	}
	if item := itemByPath(t, queue, "/stage/reschedule.mp4"); item.Status != uploadqueue.StatusPending {
		t.Fatalf("expected schedule-failed item re-pended, got %s", item.Status)
	}
	if item := itemByPath(t, queue, "/stage/eligible.mp4"); item.LastAttemptAt == nil || !item.LastAttemptAt.After(elapsed) {
		t.Fatal("expected re-pend to refresh last attempt time")
	}
	if item := itemByPath(t, queue, "/stage/reschedule-exhausted.mp4"); item.Status != uploadqueue.StatusFailed {
		t.Fatalf("expected exhausted schedule-failed item parked as failed, got %s", item.Status)
	}
}

func TestRetentionSweepDropsExpiredItems(t *testing.T) {
	mgr, queue, _ := newSweepManager(t)
	now := time.Now().UTC()
	old := now.Add(-8 * 24 * time.Hour)
	recent := now.Add(-24 * time.Hour)

	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/old-published.mp4",
		Status:       uploadqueue.StatusPublished,
		PublishedAt:  &old,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/recent-published.mp4",
		Status:       uploadqueue.StatusPublished,
		PublishedAt:  &recent,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/old-exhausted.mp4",
		Status:         uploadqueue.StatusFailed,
		UploadAttempts: 5,
		LastAttemptAt:  &old,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/old-retryable.mp4",
		Status:         uploadqueue.StatusFailed,
		UploadAttempts: 1,
		LastAttemptAt:  &old,
	})
	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/scheduled.mp4",
		Status:       uploadqueue.StatusScheduled,
		RemoteID:     "vid-live",
		ScheduledAt:  now.Add(time.Hour),
	})

	mgr.retentionSweep(context.Background())

	remaining := make(map[string]bool)
	for _, item := range queue.Snapshot() {
		remaining[item.ArtifactPath] = true
	}
	if remaining["/stage/old-published.mp4"] {
		t.Fatal("expected old published item to be dropped")
	}
	if remaining["/stage/old-exhausted.mp4"] {
		t.Fatal("expected old exhausted item to be dropped")
	}
	for _, kept := range []string{"/stage/recent-published.mp4", "/stage/old-retryable.mp4", "/stage/scheduled.mp4"} {
		if !remaining[kept] {
			t.Fatalf("expected %s to survive retention", kept)
		}
	}
}

func TestUploadPassPublishesPastSlotImmediately(t *testing.T) {
	mgr, queue, pub := newSweepManager(t)

	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath: "/stage/late.mp4",
		Title:        "late",
		Status:       uploadqueue.StatusPending,
		ScheduledAt:  time.Now().UTC().Add(-time.Hour),
	})

	if err := mgr.uploadPass(context.Background(), "", nil); err != nil {
		t.Fatalf("uploadPass failed: %v", err)
	}

	item := itemByPath(t, queue, "/stage/late.mp4")
	if item.Status != uploadqueue.StatusPublished {
		t.Fatalf("expected immediate publish, got %s", item.Status)
	}
	if item.PublishedAt == nil {
		t.Fatal("expected published_at to be stamped")
	}
	if len(pub.public) != 1 {
		t.Fatalf("expected one MakePublic call, got %d", len(pub.public))
	}
	if len(pub.schedules) != 0 {
		t.Fatalf("expected no Schedule calls, got %d", len(pub.schedules))
	}
}

func TestUploadPassSkipsUploadForRepended(t *testing.T) {
	mgr, queue, pub := newSweepManager(t)
	slot := time.Now().UTC().Add(3 * time.Hour)

	seedItem(t, queue, uploadqueue.Item{
		ArtifactPath:   "/stage/repended.mp4",
		Title:          "repended",
		Status:         uploadqueue.StatusPending,
		RemoteID:       "vid-kept",
		UploadAttempts: 1,
		ScheduledAt:    slot,
	})

	if err := mgr.uploadPass(context.Background(), "", nil); err != nil {
		t.Fatalf("uploadPass failed: %v", err)
	}

	item := itemByPath(t, queue, "/stage/repended.mp4")
	if item.Status != uploadqueue.StatusScheduled {
		t.Fatalf("expected item scheduled, got %s", item.Status)
	}
	if pub.uploads != 0 {
		t.Fatalf("expected no uploads for already-uploaded item, got %d", pub.uploads)
	}
	at, ok := pub.schedules["vid-kept"]
	if !ok {
		t.Fatal("expected Schedule call for retained remote id")
	}
	if !at.Equal(slot) {
		t.Fatalf("expected schedule at %s, got %s", slot, at)
	}
}
