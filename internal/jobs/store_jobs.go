package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortcast/internal/services"
)

const jobColumns = `id, owner_key, status, progress, message, content, voice, speed, kind,
    publish_at, videos_generated, videos_published, error_message, created_at, completed_at`

// Create inserts a new queued job and returns the stored record. A custom id
// may be supplied through params; otherwise a fresh UUID is assigned.
func (s *Store) Create(ctx context.Context, params Params) (*Job, error) {
	ctx = ensureContext(ctx)

	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx, `
        INSERT INTO jobs (
            id, owner_key, status, progress, message, content, voice, speed, kind,
            publish_at, created_at
        ) VALUES (?, ?, ?, 0, '', ?, ?, ?, ?, ?, ?)`,
		id,
		params.OwnerKey,
		StatusQueued,
		params.Content,
		params.Voice,
		params.Speed,
		params.Kind,
		timestamp(params.PublishAt),
		timestamp(now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, services.Wrap(services.ErrValidation, "jobs", "create", fmt.Sprintf("job id %q already exists", id), nil)
		}
		return nil, services.Wrap(services.ErrPersistence, "jobs", "create", "", err)
	}

	return s.Get(ctx, id)
}

// Get returns the job with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "jobs", "get", fmt.Sprintf("job %q", id), nil)
		}
		return nil, services.Wrap(services.ErrPersistence, "jobs", "get", "", err)
	}
	return job, nil
}

// Update applies a partial mutation to a job. Unknown ids fail with a
// not-found error. Transitions out of a terminal status are rejected, and
// progress or message writes against an already-terminal job are dropped.
// Entering a terminal status stamps the completion time unless the update
// carries one explicitly. Progress never regresses while a job stays in
// processing.
func (s *Store) Update(ctx context.Context, id string, update Update) error {
	ctx = ensureContext(ctx)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return services.Wrap(services.ErrPersistence, "jobs", "update", "begin", err)
		}
		defer tx.Rollback() //nolint:errcheck

		row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
		current, err := scanJob(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return services.Wrap(services.ErrNotFound, "jobs", "update", fmt.Sprintf("job %q", id), nil)
			}
			return services.Wrap(services.ErrPersistence, "jobs", "update", "", err)
		}

		next := *current
		if update.Status != nil {
			if current.Status.Terminal() && *update.Status != current.Status {
				return services.Wrap(services.ErrValidation, "jobs", "update",
					fmt.Sprintf("job %q is already %s", id, current.Status), nil)
			}
			next.Status = *update.Status
		}
		if current.Status.Terminal() {
			// Terminal records are frozen: late checkpoint writes from
			// in-flight stage callbacks must not touch them.
			update.Progress = nil
			update.Message = nil
		}
		if update.Progress != nil {
			next.Progress = clampProgress(*update.Progress)
		}
		if update.Message != nil {
			next.Message = *update.Message
		}
		if update.VideosGenerated != nil {
			next.VideosGenerated = *update.VideosGenerated
		}
		if update.VideosPublished != nil {
			next.VideosPublished = *update.VideosPublished
		}
		if update.ErrorMessage != nil {
			next.ErrorMessage = *update.ErrorMessage
		}
		if update.CompletedAt != nil {
			next.CompletedAt = update.CompletedAt
		}

		// Progress is monotonic while the job keeps processing.
		if current.Status == StatusProcessing && next.Status == StatusProcessing && next.Progress < current.Progress {
			next.Progress = current.Progress
		}
		if next.Status.Terminal() && next.CompletedAt == nil {
			now := time.Now().UTC()
			next.CompletedAt = &now
		}

		var completedAt any
		if next.CompletedAt != nil {
			completedAt = timestamp(*next.CompletedAt)
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE jobs SET status = ?, progress = ?, message = ?, videos_generated = ?,
                videos_published = ?, error_message = ?, completed_at = ?
            WHERE id = ?`,
			next.Status, next.Progress, next.Message, next.VideosGenerated,
			next.VideosPublished, next.ErrorMessage, completedAt, id,
		); err != nil {
			return services.Wrap(services.ErrPersistence, "jobs", "update", "", err)
		}

		if err := tx.Commit(); err != nil {
			return services.Wrap(services.ErrPersistence, "jobs", "update", "commit", err)
		}
		return nil
	})
}

// List returns jobs matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Job, error) {
	ctx = ensureContext(ctx)

	query := `SELECT ` + jobColumns + ` FROM jobs`
	var (
		clauses []string
		args    []any
	)
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.OwnerKey != "" {
		clauses = append(clauses, "owner_key = ?")
		args = append(args, filter.OwnerKey)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "jobs", "list", "", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "jobs", "list", "scan", err)
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// NextQueued returns the oldest queued job, or nil when the queue is empty.
func (s *Store) NextQueued(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at ASC LIMIT 1`,
		StatusQueued,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrPersistence, "jobs", "next", "", err)
	}
	return job, nil
}

// CountActive counts queued and processing jobs for an owner.
func (s *Store) CountActive(ctx context.Context, ownerKey string) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM jobs WHERE owner_key = ? AND status IN (?, ?)`,
		ownerKey, StatusQueued, StatusProcessing,
	).Scan(&count)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "jobs", "count active", "", err)
	}
	return count, nil
}

func clampProgress(progress int) int {
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job         Job
		status      string
		kind        string
		publishAt   string
		createdAt   string
		completedAt sql.NullString
	)
	if err := row.Scan(
		&job.ID, &job.OwnerKey, &status, &job.Progress, &job.Message,
		&job.Content, &job.Voice, &job.Speed, &kind, &publishAt,
		&job.VideosGenerated, &job.VideosPublished, &job.ErrorMessage,
		&createdAt, &completedAt,
	); err != nil {
		return nil, err
	}

	parsedStatus, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown job status %q", status)
	}
	job.Status = parsedStatus

	parsedKind, ok := ParseKind(kind)
	if !ok {
		return nil, fmt.Errorf("unknown job kind %q", kind)
	}
	job.Kind = parsedKind

	var err error
	if job.PublishAt, err = parseTimestamp(publishAt); err != nil {
		return nil, err
	}
	if job.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if completedAt.Valid && completedAt.String != "" {
		parsed, err := parseTimestamp(completedAt.String)
		if err != nil {
			return nil, err
		}
		job.CompletedAt = &parsed
	}
	return &job, nil
}
