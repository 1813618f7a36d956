package workflow

import (
	"context"
	"fmt"
	"time"

	"shortcast/internal/logging"
	"shortcast/internal/uploadqueue"
)

// registerSweeps wires the publish, retry, and retention sweeps into the
// cron runner. Specs come from configuration and are validated here.
func (m *Manager) registerSweeps(ctx context.Context) error {
	type sweep struct {
		name string
		spec string
		run  func(context.Context)
	}
	sweeps := []sweep{
		{"publish", m.cfg.Workflow.PublishSweepSpec, m.publishSweep},
		{"retry", m.cfg.Workflow.RetrySweepSpec, m.retrySweep},
		{"retention", m.cfg.Workflow.RetentionSweepSpec, m.retentionSweep},
	}
	for _, s := range sweeps {
		run := s.run
		_, err := m.cron.AddFunc(s.spec, func() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			run(ctx)
		})
		if err != nil {
			return fmt.Errorf("register %s sweep (%q): %w", s.name, s.spec, err)
		}
	}
	return nil
}

// publishSweep flips scheduled items that are due (within the configured
// tolerance) to public. A failed flip is logged and the item stays
// scheduled; the next sweep retries it.
func (m *Manager) publishSweep(ctx context.Context) {
	now := time.Now().UTC()
	due := now.Add(m.tolerance)

	for _, item := range m.queue.Snapshot() {
		if item.Status != uploadqueue.StatusScheduled || item.ScheduledAt.After(due) {
			continue
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.publisher.MakePublic(ctx, item.RemoteID); err != nil {
			m.logger.Error("publish sweep failed to make item public",
				logging.Error(err),
				logging.String(logging.FieldEventType, "publish_sweep_failed"),
				logging.String(logging.FieldItemTitle, item.Title),
				logging.String(logging.FieldRemoteID, item.RemoteID),
			)
			continue
		}
		publishedAt := now
		m.mutateItem(item.ArtifactPath, func(it *uploadqueue.Item) {
			it.Status = uploadqueue.StatusPublished
			it.PublishedAt = &publishedAt
			it.ErrorMessage = ""
		})
		m.logger.Info("item published",
			logging.String(logging.FieldItemTitle, item.Title),
			logging.String(logging.FieldRemoteID, item.RemoteID),
			logging.Time("scheduled_at", item.ScheduledAt),
		)
	}
}

// retrySweep re-pends failed items whose retry delay has elapsed. Items that
// exhausted the attempt budget stay failed permanently. The worker loop's
// idle drain performs the actual re-upload.
func (m *Manager) retrySweep(ctx context.Context) {
	now := time.Now().UTC()
	repended := 0

	for _, item := range m.queue.Snapshot() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if item.Status != uploadqueue.StatusFailed && item.Status != uploadqueue.StatusScheduleFailed {
			continue
		}
		if m.policy.Exhausted(item.UploadAttempts) {
			// Out of attempts: park the item permanently.
			if item.Status != uploadqueue.StatusFailed {
				m.mutateItem(item.ArtifactPath, func(it *uploadqueue.Item) {
					it.Status = uploadqueue.StatusFailed
				})
			}
			continue
		}
		if !m.policy.Eligible(item, now) {
			continue
		}
		m.mutateItem(item.ArtifactPath, func(it *uploadqueue.Item) {
			it.Status = uploadqueue.StatusPending
			it.LastAttemptAt = &now
		})
		repended++
	}
	if repended > 0 {
		m.logger.Info("retry sweep re-pended items", logging.Int("count", repended))
	}
}

// retentionSweep purges terminal jobs and housekeeps the upload queue beyond
// the retention window. Published items and permanently failed items older
// than the window are dropped; everything else is kept indefinitely.
func (m *Manager) retentionSweep(ctx context.Context) {
	retention := time.Duration(m.cfg.Workflow.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-retention)

	purged, err := m.store.Purge(ctx, cutoff)
	if err != nil {
		m.logger.Error("retention sweep failed to purge jobs",
			logging.Error(err),
			logging.String(logging.FieldEventType, "retention_failed"),
		)
	} else if purged > 0 {
		m.logger.Info("old jobs purged", logging.Int64("count", purged))
	}

	snapshot := m.queue.Snapshot()
	kept := make([]uploadqueue.Item, 0, len(snapshot))
	dropped := 0
	for _, item := range snapshot {
		if m.expired(item, cutoff) {
			dropped++
			continue
		}
		kept = append(kept, item)
	}
	if dropped == 0 {
		return
	}
	if err := m.queue.Replace(kept); err != nil {
		m.logger.Error("retention sweep failed to persist queue",
			logging.Error(err),
			logging.String(logging.FieldEventType, "retention_failed"),
		)
		return
	}
	m.logger.Info("old queue items dropped", logging.Int("count", dropped))
}

func (m *Manager) expired(item uploadqueue.Item, cutoff time.Time) bool {
	switch item.Status {
	case uploadqueue.StatusPublished:
		return item.PublishedAt != nil && item.PublishedAt.Before(cutoff)
	case uploadqueue.StatusFailed:
		return m.policy.Exhausted(item.UploadAttempts) &&
			item.LastAttemptAt != nil && item.LastAttemptAt.Before(cutoff)
	default:
		return false
	}
}
