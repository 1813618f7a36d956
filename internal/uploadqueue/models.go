package uploadqueue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued publish item.
type Status string

const (
	StatusPending         Status = "pending"
	StatusUploadedPrivate Status = "uploaded_private"
	StatusScheduled       Status = "scheduled"
	StatusScheduleFailed  Status = "schedule_failed"
	StatusPublished       Status = "published"
	StatusFailed          Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusUploadedPrivate,
	StatusScheduled,
	StatusScheduleFailed,
	StatusPublished,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Uploaded reports whether the status implies a remote id exists.
func (s Status) Uploaded() bool {
	switch s {
	case StatusUploadedPrivate, StatusScheduled, StatusScheduleFailed, StatusPublished:
		return true
	default:
		return false
	}
}

// Item is one artifact awaiting upload, schedule, and publish. Items are
// persisted on every mutation and never silently deleted outside explicit
// housekeeping.
type Item struct {
	ArtifactPath   string     `json:"artifact_path"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Tags           []string   `json:"tags"`
	Status         Status     `json:"status"`
	RemoteID       string     `json:"remote_id,omitempty"`
	ScheduledAt    time.Time  `json:"scheduled_publish_time"`
	AddedAt        time.Time  `json:"added_at"`
	UploadAttempts int        `json:"upload_attempts"`
	LastAttemptAt  *time.Time `json:"last_attempt_time,omitempty"`
	Kind           string     `json:"kind"`
	ContentSnippet string     `json:"content_snippet,omitempty"`
	JobID          string     `json:"job_id,omitempty"`
	ErrorMessage   string     `json:"error,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

// TitleFromArtifact derives a display title from an artifact locator: the
// base name without extension, underscores replaced with spaces.
func TitleFromArtifact(path string) string {
	base := path
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
}
