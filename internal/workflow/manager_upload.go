package workflow

import (
	"context"
	"log/slog"
	"time"

	"shortcast/internal/logging"
	"shortcast/internal/notify"
	"shortcast/internal/publish"
	"shortcast/internal/services"
	"shortcast/internal/uploadqueue"
)

// uploadPass runs every pending queue item through upload and schedule. When
// onlyJob is set the pass is restricted to that job's items. onItemDone, when
// non-nil, is invoked after each item with whether it reached a committed
// state. Item failures are recorded on the item and never abort the pass.
func (m *Manager) uploadPass(ctx context.Context, onlyJob string, onItemDone func(ok bool)) error {
	var candidates []string
	for _, item := range m.queue.Snapshot() {
		if item.Status != uploadqueue.StatusPending {
			continue
		}
		if onlyJob != "" && item.JobID != onlyJob {
			continue
		}
		candidates = append(candidates, item.ArtifactPath)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Sequence ids restart per pass so downstream consumers see 01, 02, ...
	// for each batch.
	m.notifier.ResetSequence()

	for _, path := range candidates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		ok := m.processQueueItem(ctx, path)
		if onItemDone != nil {
			onItemDone(ok)
		}
	}
	return nil
}

// processQueueItem uploads and schedules a single item identified by its
// artifact path. Returns true when the item reaches scheduled or published.
func (m *Manager) processQueueItem(ctx context.Context, path string) bool {
	item, found := m.findItem(path)
	if !found || item.Status != uploadqueue.StatusPending {
		return false
	}
	logger := m.logger.With(
		logging.String(logging.FieldItemTitle, item.Title),
		logging.String(logging.FieldJobID, item.JobID),
	)

	now := time.Now().UTC()

	// Re-pended items that already uploaded keep their remote id and skip
	// straight to scheduling.
	if item.RemoteID == "" {
		remoteID, err := m.publisher.Upload(ctx, publish.UploadRequest{
			ArtifactPath: item.ArtifactPath,
			Title:        item.Title,
			Description:  item.Description,
			Tags:         item.Tags,
			Kind:         item.Kind,
		})
		if err != nil {
			logger.Error("upload failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "upload_failed"),
				logging.Int("attempts", item.UploadAttempts+1),
			)
			m.mutateItem(path, func(it *uploadqueue.Item) {
				it.Status = uploadqueue.StatusFailed
				it.UploadAttempts++
				it.LastAttemptAt = &now
				it.ErrorMessage = services.UserMessage(err)
			})
			m.announce(ctx, logger, item, "")
			return false
		}
		item.RemoteID = remoteID
		m.mutateItem(path, func(it *uploadqueue.Item) {
			it.Status = uploadqueue.StatusUploadedPrivate
			it.RemoteID = remoteID
			it.UploadAttempts++
			it.LastAttemptAt = &now
			it.ErrorMessage = ""
		})
	}

	committed := m.scheduleItem(ctx, logger, path, item, now)
	m.announce(ctx, logger, item, m.publisher.WatchURL(item.RemoteID))
	return committed
}

// scheduleItem commits the item's publish slot. A slot already in the past
// publishes immediately instead of scheduling a time the platform would
// reject.
func (m *Manager) scheduleItem(ctx context.Context, logger *slog.Logger, path string, item uploadqueue.Item, now time.Time) bool {
	if !item.ScheduledAt.After(now) {
		if err := m.publisher.MakePublic(ctx, item.RemoteID); err != nil {
			logger.Error("immediate publish failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "schedule_failed"),
			)
			m.mutateItem(path, func(it *uploadqueue.Item) {
				it.Status = uploadqueue.StatusScheduleFailed
				it.UploadAttempts++
				it.LastAttemptAt = &now
				it.ErrorMessage = services.UserMessage(err)
			})
			return false
		}
		m.mutateItem(path, func(it *uploadqueue.Item) {
			it.Status = uploadqueue.StatusPublished
			it.PublishedAt = &now
			it.ErrorMessage = ""
		})
		logger.Info("published immediately", logging.String(logging.FieldRemoteID, item.RemoteID))
		return true
	}

	if err := m.publisher.Schedule(ctx, item.RemoteID, item.ScheduledAt); err != nil {
		logger.Error("schedule failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "schedule_failed"),
		)
		m.mutateItem(path, func(it *uploadqueue.Item) {
			it.Status = uploadqueue.StatusScheduleFailed
			it.UploadAttempts++
			it.LastAttemptAt = &now
			it.ErrorMessage = services.UserMessage(err)
		})
		return false
	}
	m.mutateItem(path, func(it *uploadqueue.Item) {
		it.Status = uploadqueue.StatusScheduled
		it.ErrorMessage = ""
	})
	logger.Info("publish scheduled",
		logging.String(logging.FieldRemoteID, item.RemoteID),
		logging.Time("scheduled_at", item.ScheduledAt),
	)
	return true
}

// announce fires the downstream webhook for one processed item. Delivery
// failures are logged and dropped; notification state never feeds back into
// the pipeline.
func (m *Manager) announce(ctx context.Context, logger *slog.Logger, item uploadqueue.Item, publicURL string) {
	err := m.notifier.Publish(ctx, notify.Event{
		FullContent: item.ContentSnippet,
		PublicURL:   publicURL,
		ScheduledAt: item.ScheduledAt,
	})
	if err != nil {
		logger.Warn("webhook notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notify_failed"),
		)
	}
}

func (m *Manager) findItem(path string) (uploadqueue.Item, bool) {
	for _, item := range m.queue.Snapshot() {
		if item.ArtifactPath == path {
			return item, true
		}
	}
	return uploadqueue.Item{}, false
}

// mutateItem applies fn to the queue item with the given artifact path and
// persists the queue. Persistence failures are logged; the in-memory state
// still advances so the pass can continue.
func (m *Manager) mutateItem(path string, fn func(*uploadqueue.Item)) {
	err := m.queue.Update(func(it *uploadqueue.Item) {
		if it.ArtifactPath == path {
			fn(it)
		}
	})
	if err != nil {
		m.logger.Error("failed to persist queue item",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_persist_failed"),
			logging.String("artifact_path", path),
		)
	}
}
