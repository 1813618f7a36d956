package uploadqueue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"shortcast/internal/logging"
)

// Store persists the ordered upload queue as a single JSON file rewritten
// wholesale on every mutation. Insertion order is the default scheduling
// priority. The store assumes a single worker process per queue file; the
// advisory flock guards against an accidental second daemon, not against
// general multi-process use.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	items []Item
	lock  *flock.Flock
}

// NewStore creates a queue store backed by the file at path and loads any
// existing queue. A missing or corrupt file yields an empty queue: losing a
// readable snapshot must not take the pipeline down, so the condition is
// surfaced in diagnostics instead of raised.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithComponent(logger, "uploadqueue")

	s := &Store{
		path:   path,
		logger: logger,
		lock:   flock.New(path + ".lock"),
	}
	s.items = s.load()
	return s
}

// Path returns the queue file location.
func (s *Store) Path() string { return s.path }

func (s *Store) load() []Item {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		s.logger.Warn("failed to read upload queue; starting empty",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_load_failed"),
			logging.String(logging.FieldErrorHint, "check queue file permissions"),
		)
		return nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("upload queue file is corrupt; starting empty",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_load_failed"),
			logging.String(logging.FieldErrorHint, "inspect or remove the queue file"),
		)
		return nil
	}
	return items
}

// Snapshot returns a copy of the current queue in insertion order.
func (s *Store) Snapshot() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Item, len(s.items))
	copy(cp, s.items)
	return cp
}

// Len returns the number of queued items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Append adds items to the end of the queue and persists the result.
func (s *Store) Append(items ...Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return s.save()
}

// Replace swaps the whole queue for the provided list and persists it. The
// worker uses this after mutating items it holds in a pass snapshot.
func (s *Store) Replace(items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make([]Item, len(items))
	copy(s.items, items)
	return s.save()
}

// Update applies fn to every item and persists the result.
func (s *Store) Update(fn func(*Item)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		fn(&s.items[i])
	}
	return s.save()
}

// save writes the queue atomically: marshal, write to a temp file in the
// same directory, then rename over the target so a reader never observes a
// truncated file. Caller must hold s.mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure queue directory: %w", err)
	}

	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !locked {
		return errors.New("upload queue is locked by another process")
	}
	defer s.lock.Unlock() //nolint:errcheck

	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal upload queue: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp queue file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp queue file: %w", err)
	}
	return nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make(map[Status]int, len(allStatuses))
	for _, item := range s.items {
		stats[item.Status]++
	}
	return stats
}
