package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shortcast/internal/generation"
	"shortcast/internal/jobs"
	"shortcast/internal/logging"
	"shortcast/internal/scheduling"
	"shortcast/internal/services"
	"shortcast/internal/uploadqueue"
)

// errCancelled aborts a pipeline run when the owner cancelled the job
// between stages.
var errCancelled = errors.New("job cancelled")

func (m *Manager) runJobLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextQueued(ctx)
		if err != nil {
			m.setLastError(err)
			m.logger.Error("failed to fetch next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
			if !sleepCtx(ctx, m.errorRetry) {
				return
			}
			continue
		}
		if job == nil {
			// Idle: give stranded pending queue items (restart recovery,
			// re-pended retries) an upload pass before sleeping.
			if err := m.uploadPass(ctx, "", nil); err != nil && !errors.Is(err, context.Canceled) {
				m.setLastError(err)
			}
			if !sleepCtx(ctx, m.pollInterval) {
				return
			}
			continue
		}

		m.setCurrentJob(job.ID)
		err = m.processJob(ctx, job)
		m.setCurrentJob("")
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil && !errors.Is(err, errCancelled) {
			m.setLastError(err)
		}
	}
}

// processJob drives one job through generate, dedup, allocate, enqueue, and
// upload. Stage failures mark the job failed and return; they never
// propagate as loop errors.
func (m *Manager) processJob(ctx context.Context, job *jobs.Job) error {
	logger := m.logger.With(logging.String(logging.FieldJobID, job.ID))
	logger.Info("job started",
		logging.String(logging.FieldOwner, job.OwnerKey),
		logging.String("kind", string(job.Kind)),
	)

	if err := m.checkpoint(ctx, job.ID, 10, "generating content"); err != nil {
		return m.failJob(ctx, job.ID, logger, err)
	}

	artifacts, err := m.generator.Generate(ctx, generation.Request{
		JobID:   job.ID,
		Content: job.Content,
		Voice:   job.Voice,
		Speed:   job.Speed,
		Kind:    string(job.Kind),
	}, func(percent int, message string) {
		// Remote generation progress maps onto the 10..50 band.
		scaled := 10 + percent*40/100
		_ = m.checkpointProgress(ctx, job.ID, scaled, message)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return m.failJob(ctx, job.ID, logger, err)
	}

	if cancelled, err := m.jobCancelled(ctx, job.ID); err != nil {
		return m.failJob(ctx, job.ID, logger, err)
	} else if cancelled {
		logger.Info("job cancelled before enqueue")
		return errCancelled
	}

	if err := m.checkpoint(ctx, job.ID, 50, fmt.Sprintf("%d artifacts staged", len(artifacts))); err != nil {
		return m.failJob(ctx, job.ID, logger, err)
	}

	enqueued, skipped, err := m.enqueueArtifacts(job, artifacts)
	if err != nil {
		return m.failJob(ctx, job.ID, logger, err)
	}
	if skipped > 0 {
		logger.Warn("duplicate artifacts skipped",
			logging.Int("skipped", skipped),
			logging.String(logging.FieldEventType, "duplicate_skipped"),
		)
	}
	generated := len(enqueued)
	if err := m.store.Update(ctx, job.ID, jobs.Update{
		Progress:        intPtr(60),
		Message:         strPtr("artifacts queued for upload"),
		VideosGenerated: &generated,
	}); err != nil {
		return m.failJob(ctx, job.ID, logger, err)
	}

	if cancelled, err := m.jobCancelled(ctx, job.ID); err != nil {
		return m.failJob(ctx, job.ID, logger, err)
	} else if cancelled {
		logger.Info("job cancelled before upload")
		return errCancelled
	}

	// processed drives progress reporting; committed counts only items that
	// actually made it through upload and is what lands on the job record.
	processed := 0
	committed := 0
	total := len(enqueued)
	err = m.uploadPass(ctx, job.ID, func(ok bool) {
		processed++
		progress := 60
		if total > 0 {
			progress = 60 + processed*40/total
		}
		_ = m.checkpointProgress(ctx, job.ID, progress, fmt.Sprintf("uploaded %d of %d", processed, total))
		if ok {
			committed++
			count := committed
			_ = m.store.Update(ctx, job.ID, jobs.Update{VideosPublished: &count})
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return m.failJob(ctx, job.ID, logger, err)
	}

	if err := m.store.Update(ctx, job.ID, jobs.Update{
		Status:   statusPtr(jobs.StatusCompleted),
		Progress: intPtr(100),
		Message:  strPtr("all artifacts processed"),
	}); err != nil {
		return m.failJob(ctx, job.ID, logger, err)
	}
	logger.Info("job completed", logging.Int("artifacts", total))
	return nil
}

// enqueueArtifacts turns staged artifacts into queue items with allocated
// publish slots. Duplicate titles against the live queue are dropped before
// slot allocation so skipped items never consume a slot.
func (m *Manager) enqueueArtifacts(job *jobs.Job, artifacts []generation.Artifact) ([]uploadqueue.Item, int, error) {
	snapshot := m.queue.Snapshot()

	accepted := make([]generation.Artifact, 0, len(artifacts))
	seen := make([]uploadqueue.Item, 0, len(artifacts))
	skipped := 0
	for _, artifact := range artifacts {
		title := uploadqueue.TitleFromArtifact(artifact.Path)
		if uploadqueue.IsDuplicate(title, snapshot) || uploadqueue.IsDuplicate(title, seen) {
			skipped++
			continue
		}
		accepted = append(accepted, artifact)
		seen = append(seen, uploadqueue.Item{Title: title, Status: uploadqueue.StatusPending})
	}
	if len(accepted) == 0 {
		return nil, skipped, nil
	}

	now := time.Now().UTC()
	slots := scheduling.Allocate(snapshot, len(accepted), m.interval, nil, now)

	items := make([]uploadqueue.Item, 0, len(accepted))
	for i, artifact := range accepted {
		items = append(items, uploadqueue.Item{
			ArtifactPath:   artifact.Path,
			Title:          uploadqueue.TitleFromArtifact(artifact.Path),
			Description:    m.cfg.Publish.DefaultDescription,
			Tags:           append([]string(nil), m.cfg.Publish.DefaultTags...),
			Status:         uploadqueue.StatusPending,
			ScheduledAt:    slots[i],
			AddedAt:        now,
			Kind:           string(job.Kind),
			ContentSnippet: job.Content,
			JobID:          job.ID,
		})
	}
	if err := m.queue.Append(items...); err != nil {
		return nil, skipped, services.Wrap(services.ErrPersistence, "workflow", "enqueue", "persist queue items", err)
	}
	return items, skipped, nil
}

func (m *Manager) failJob(ctx context.Context, jobID string, logger *slog.Logger, cause error) error {
	message := services.UserMessage(cause)
	logger.Error("job failed",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "job_failed"),
	)
	update := jobs.Update{
		Status:       statusPtr(jobs.StatusFailed),
		Message:      strPtr("job failed"),
		ErrorMessage: &message,
	}
	if err := m.store.Update(ctx, jobID, update); err != nil {
		m.logger.Error("failed to record job failure",
			logging.Error(err),
			logging.String(logging.FieldJobID, jobID),
		)
	}
	return cause
}

// jobCancelled reloads the job and reports whether the owner cancelled it.
// Cancellation is honored between stages only; a running stage completes.
func (m *Manager) jobCancelled(ctx context.Context, jobID string) (bool, error) {
	job, err := m.store.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	return job.Status == jobs.StatusCancelled, nil
}

func (m *Manager) checkpoint(ctx context.Context, jobID string, progress int, message string) error {
	return m.store.Update(ctx, jobID, jobs.Update{
		Status:   statusPtr(jobs.StatusProcessing),
		Progress: &progress,
		Message:  &message,
	})
}

// checkpointProgress records progress without forcing a status transition.
// Used from callbacks where the job may already be cancelled.
func (m *Manager) checkpointProgress(ctx context.Context, jobID string, progress int, message string) error {
	update := jobs.Update{Progress: &progress}
	if message != "" {
		update.Message = &message
	}
	return m.store.Update(ctx, jobID, update)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func statusPtr(s jobs.Status) *jobs.Status { return &s }
func intPtr(v int) *int                    { return &v }
func strPtr(v string) *string              { return &v }
