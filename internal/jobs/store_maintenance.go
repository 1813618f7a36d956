package jobs

import (
	"context"
	"time"

	"shortcast/internal/services"
)

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "jobs", "stats", "", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Purge deletes terminal jobs created before the cutoff and reports how many
// rows were removed. Queued and processing jobs are never purged.
func (s *Store) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `
        DELETE FROM jobs
        WHERE created_at < ? AND status IN (?, ?, ?)`,
		timestamp(olderThan), StatusCompleted, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "jobs", "purge", "", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "jobs", "purge", "rows affected", err)
	}
	return deleted, nil
}
