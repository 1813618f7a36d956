package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a generation job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether a job still holds a worker or a queue slot.
func (s Status) Active() bool {
	return s == StatusQueued || s == StatusProcessing
}

// Kind selects the artifact format produced by generation.
type Kind string

const (
	KindShort Kind = "short"
	KindLong  Kind = "long"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindShort:
		return KindShort, true
	case KindLong:
		return KindLong, true
	default:
		return "", false
	}
}

// Params holds the caller-supplied inputs for a new job.
type Params struct {
	ID        string // optional custom id; generated when empty
	OwnerKey  string
	Content   string
	Voice     string
	Speed     float64
	Kind      Kind
	PublishAt time.Time
}

// Job is one content-to-publish pipeline instance persisted in SQLite.
type Job struct {
	ID              string
	OwnerKey        string
	Status          Status
	Progress        int
	Message         string
	Content         string
	Voice           string
	Speed           float64
	Kind            Kind
	PublishAt       time.Time
	VideosGenerated int
	VideosPublished int
	ErrorMessage    string
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// Update carries a partial mutation; nil fields are left untouched.
type Update struct {
	Status          *Status
	Progress        *int
	Message         *string
	VideosGenerated *int
	VideosPublished *int
	ErrorMessage    *string
	CompletedAt     *time.Time
}

// Filter narrows List results.
type Filter struct {
	Status   *Status
	OwnerKey string
	Limit    int
}

func statusPtr(s Status) *Status { return &s }

// Cancelled constructs the update applied when a caller cancels a job.
func Cancelled(message string) Update {
	progress := 0
	return Update{
		Status:   statusPtr(StatusCancelled),
		Message:  &message,
		Progress: &progress,
	}
}
