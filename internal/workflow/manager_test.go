package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shortcast/internal/generation"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/notify"
	"shortcast/internal/publish"
	"shortcast/internal/testsupport"
	"shortcast/internal/uploadqueue"
	"shortcast/internal/workflow"
)

type fakeGenerator struct {
	mu       sync.Mutex
	segments int
	dir      string
	err      error
	calls    int
	started  chan struct{} // signalled when a render begins
	release  chan struct{} // when set, renders block until closed
}

func (g *fakeGenerator) setErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *fakeGenerator) Generate(_ context.Context, req generation.Request, progress generation.ProgressFunc) ([]generation.Artifact, error) {
	g.mu.Lock()
	g.calls++
	err := g.err
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if g.started != nil {
		select {
		case g.started <- struct{}{}:
		default:
		}
	}
	if g.release != nil {
		<-g.release
	}
	if progress != nil {
		progress(100, "render complete")
	}
	artifacts := make([]generation.Artifact, 0, g.segments)
	for i := 0; i < g.segments; i++ {
		name := fmt.Sprintf("%s_part_%02d.mp4", req.JobID, i+1)
		artifacts = append(artifacts, generation.Artifact{
			Index: i,
			Name:  name,
			Path:  filepath.Join(g.dir, name),
		})
	}
	return artifacts, nil
}

type fakePublisher struct {
	mu         sync.Mutex
	uploads    []publish.UploadRequest
	schedules  map[string]time.Time
	public     []string
	uploadErr  error
	failFirstN int // reject this many uploads before accepting
	nextID     int
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{schedules: make(map[string]time.Time)}
}

func (p *fakePublisher) Upload(_ context.Context, req publish.UploadRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.uploadErr != nil {
		return "", p.uploadErr
	}
	if p.failFirstN > 0 {
		p.failFirstN--
		return "", errors.New("storage rejected upload")
	}
	p.nextID++
	id := fmt.Sprintf("vid-%03d", p.nextID)
	p.uploads = append(p.uploads, req)
	return id, nil
}

func (p *fakePublisher) Schedule(_ context.Context, remoteID string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schedules[remoteID] = at
	return nil
}

func (p *fakePublisher) MakePublic(_ context.Context, remoteID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.public = append(p.public, remoteID)
	return nil
}

func (p *fakePublisher) WatchURL(remoteID string) string {
	return "https://videos.test/watch/" + remoteID
}

func (p *fakePublisher) uploadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.uploads)
}

func (p *fakePublisher) scheduledAt(remoteID string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, ok := p.schedules[remoteID]
	return at, ok
}

type recordingNotifier struct {
	mu     sync.Mutex
	resets int
	events []notify.Event
}

func (n *recordingNotifier) ResetSequence() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets++
}

func (n *recordingNotifier) Publish(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) published() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

func newTestManager(t *testing.T, gen generation.Service, pub publish.Service, not notify.Service) (*workflow.Manager, *jobs.Store, *uploadqueue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Workflow.JobPollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0

	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.NewQueue(t, cfg)
	mgr := workflow.NewManager(cfg, store, queue, gen, pub, not, logging.NewNop())
	return mgr, store, queue
}

func waitForStatus(t *testing.T, store *jobs.Store, id string, want jobs.Status) *jobs.Job {
	t.Helper()

	ctx := context.Background()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %s to reach %s", id, want)
		default:
		}
		job, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if job.Status == want {
			return job
		}
		if job.Status == jobs.StatusFailed && want != jobs.StatusFailed {
			t.Fatalf("job %s failed: %s", id, job.ErrorMessage)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func closeTo(got, want time.Time, tolerance time.Duration) bool {
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func TestManagerProcessesJob(t *testing.T) {
	gen := &fakeGenerator{segments: 2, dir: t.TempDir()}
	pub := newFakePublisher()
	notifier := &recordingNotifier{}
	mgr, store, queue := newTestManager(t, gen, pub, notifier)

	start := time.Now().UTC()
	job := testsupport.NewJob(t, store, "test-owner-key", "first segment — pause — second segment")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	done := waitForStatus(t, store, job.ID, jobs.StatusCompleted)
	if done.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", done.Progress)
	}
	if done.VideosGenerated != 2 || done.VideosPublished != 2 {
		t.Fatalf("expected 2 generated and 2 published, got %d/%d", done.VideosGenerated, done.VideosPublished)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completed_at to be stamped")
	}

	items := queue.Snapshot()
	if len(items) != 2 {
		t.Fatalf("expected 2 queue items, got %d", len(items))
	}
	interval := 150 * time.Minute
	for i, item := range items {
		if item.Status != uploadqueue.StatusScheduled {
			t.Fatalf("item %d: expected scheduled, got %s", i, item.Status)
		}
		if item.RemoteID == "" {
			t.Fatalf("item %d: missing remote id", i)
		}
		want := start.Add(time.Duration(i+1) * interval)
		if !closeTo(item.ScheduledAt, want, time.Minute) {
			t.Fatalf("item %d: slot %s not near %s", i, item.ScheduledAt, want)
		}
		// Slots space out from submission time, not the requested target.
		if closeTo(item.ScheduledAt, job.PublishAt, time.Minute) {
			t.Fatalf("item %d: slot landed on the requested publish time", i)
		}
		at, ok := pub.scheduledAt(item.RemoteID)
		if !ok {
			t.Fatalf("item %d: no schedule call recorded for %s", i, item.RemoteID)
		}
		if !at.Equal(item.ScheduledAt) {
			t.Fatalf("item %d: scheduled %s remotely, %s locally", i, at, item.ScheduledAt)
		}
	}

	events := notifier.published()
	if len(events) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(events))
	}
	for i, event := range events {
		if event.PublicURL != "https://videos.test/watch/"+items[i].RemoteID {
			t.Fatalf("event %d: unexpected public url %q", i, event.PublicURL)
		}
		if event.FullContent != job.Content {
			t.Fatalf("event %d: unexpected content %q", i, event.FullContent)
		}
		if !event.ScheduledAt.Equal(items[i].ScheduledAt) {
			t.Fatalf("event %d: unexpected scheduled time %s", i, event.ScheduledAt)
		}
	}
}

func TestManagerContinuesAfterFailedJob(t *testing.T) {
	gen := &fakeGenerator{segments: 1, dir: t.TempDir()}
	gen.setErr(errors.New("render backend offline"))
	pub := newFakePublisher()
	mgr, store, queue := newTestManager(t, gen, pub, &recordingNotifier{})

	first := testsupport.NewJob(t, store, "test-owner-key", "doomed content")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	failed := waitForStatus(t, store, first.ID, jobs.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected an error message on the failed job")
	}
	if pub.uploadCount() != 0 {
		t.Fatalf("expected no uploads for failed job, got %d", pub.uploadCount())
	}
	if queue.Len() != 0 {
		t.Fatalf("expected empty queue after failed job, got %d items", queue.Len())
	}

	gen.setErr(nil)
	second := testsupport.NewJob(t, store, "test-owner-key", "healthy content")
	waitForStatus(t, store, second.ID, jobs.StatusCompleted)
}

func TestManagerKeepsJobCompleteWhenUploadFails(t *testing.T) {
	gen := &fakeGenerator{segments: 1, dir: t.TempDir()}
	pub := newFakePublisher()
	pub.uploadErr = errors.New("storage rejected upload")
	notifier := &recordingNotifier{}
	mgr, store, queue := newTestManager(t, gen, pub, notifier)

	job := testsupport.NewJob(t, store, "test-owner-key", "single segment")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	done := waitForStatus(t, store, job.ID, jobs.StatusCompleted)
	if done.VideosPublished != 0 {
		t.Fatalf("expected 0 published videos, got %d", done.VideosPublished)
	}

	items := queue.Snapshot()
	if len(items) != 1 {
		t.Fatalf("expected 1 queue item, got %d", len(items))
	}
	item := items[0]
	if item.Status != uploadqueue.StatusFailed {
		t.Fatalf("expected failed item, got %s", item.Status)
	}
	if item.UploadAttempts != 1 || item.LastAttemptAt == nil {
		t.Fatalf("expected one recorded attempt, got %d (last=%v)", item.UploadAttempts, item.LastAttemptAt)
	}
	if item.ErrorMessage == "" {
		t.Fatal("expected an error message on the failed item")
	}

	events := notifier.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(events))
	}
	if events[0].PublicURL != "" {
		t.Fatalf("expected empty public url for failed upload, got %q", events[0].PublicURL)
	}
}

func TestManagerCountsOnlyCommittedUploads(t *testing.T) {
	gen := &fakeGenerator{segments: 2, dir: t.TempDir()}
	pub := newFakePublisher()
	pub.failFirstN = 1
	mgr, store, queue := newTestManager(t, gen, pub, &recordingNotifier{})

	job := testsupport.NewJob(t, store, "test-owner-key", "first segment — pause — second segment")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	done := waitForStatus(t, store, job.ID, jobs.StatusCompleted)
	if done.VideosGenerated != 2 {
		t.Fatalf("expected 2 generated videos, got %d", done.VideosGenerated)
	}
	// Only the upload that went through may count; the rejected one stays in
	// the queue for the retry sweep.
	if done.VideosPublished != 1 {
		t.Fatalf("expected 1 published video, got %d", done.VideosPublished)
	}
	if done.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", done.Progress)
	}

	var failed, scheduled int
	for _, item := range queue.Snapshot() {
		switch item.Status {
		case uploadqueue.StatusFailed:
			failed++
		case uploadqueue.StatusScheduled:
			scheduled++
		}
	}
	if failed != 1 || scheduled != 1 {
		t.Fatalf("expected 1 failed and 1 scheduled item, got %d/%d", failed, scheduled)
	}
}

func TestManagerHonorsCancelDuringGeneration(t *testing.T) {
	gen := &fakeGenerator{
		segments: 2,
		dir:      t.TempDir(),
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	pub := newFakePublisher()
	mgr, store, queue := newTestManager(t, gen, pub, &recordingNotifier{})

	job := testsupport.NewJob(t, store, "test-owner-key", "first segment — pause — second segment")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	select {
	case <-gen.started:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for generation to start")
	}
	if err := store.Update(context.Background(), job.ID, jobs.Cancelled("owner request")); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	close(gen.release)

	// The loop must move on to fresh work while leaving the cancelled job
	// untouched.
	second := testsupport.NewJob(t, store, "test-owner-key", "healthy content")
	waitForStatus(t, store, second.ID, jobs.StatusCompleted)

	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if got.Progress != 0 {
		t.Fatalf("progress = %d, want 0 after cancel", got.Progress)
	}
	for _, item := range queue.Snapshot() {
		if item.JobID == job.ID {
			t.Fatalf("cancelled job enqueued item %q", item.Title)
		}
	}
	if pub.uploadCount() != gen.segments {
		t.Fatalf("expected uploads for the second job only, got %d", pub.uploadCount())
	}
}

func TestManagerStartStop(t *testing.T) {
	gen := &fakeGenerator{segments: 1, dir: t.TempDir()}
	mgr, _, _ := newTestManager(t, gen, newFakePublisher(), &recordingNotifier{})

	if mgr.Running() {
		t.Fatal("manager should not report running before Start")
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !mgr.Running() {
		t.Fatal("manager should report running after Start")
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	mgr.Stop()
	if mgr.Running() {
		t.Fatal("manager should not report running after Stop")
	}
	mgr.Stop()
}
