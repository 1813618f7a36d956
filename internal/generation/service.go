package generation

import (
	"context"
	"strings"
)

// Request describes one content generation submission.
type Request struct {
	JobID   string
	Content string
	Voice   string
	Speed   float64
	Kind    string
}

// Artifact is one generated output downloaded to local staging.
type Artifact struct {
	Index int
	Name  string
	Path  string
}

// ProgressFunc receives coarse progress updates while a generation request
// runs. Implementations must be fast; they are called on the poll goroutine.
type ProgressFunc func(percent int, message string)

// Service produces artifacts from submitted content.
type Service interface {
	Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Artifact, error)
}

// EstimateSegments reports how many artifacts a generation request is
// expected to yield based on pause markers in the content. Content without
// markers yields a single segment.
func EstimateSegments(content, marker string) int {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0
	}
	if marker == "" {
		return 1
	}
	return strings.Count(content, marker) + 1
}
