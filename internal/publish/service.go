package publish

import (
	"context"
	"strings"
	"time"
)

const maxTitleRunes = 100

// UploadRequest describes one artifact upload. Uploads always start private;
// visibility is flipped later by the publish sweep.
type UploadRequest struct {
	ArtifactPath string
	Title        string
	Description  string
	Tags         []string
	Kind         string
}

// Service is the publish target contract. Upload returns the remote id the
// other operations key on.
type Service interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
	Schedule(ctx context.Context, remoteID string, at time.Time) error
	MakePublic(ctx context.Context, remoteID string) error
	WatchURL(remoteID string) string
}

// ClampTitle trims a title to the platform's 100-character limit without
// splitting a rune.
func ClampTitle(title string) string {
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return strings.TrimSpace(string(runes[:maxTitleRunes]))
}

// Decorate applies kind-specific platform conventions: short-form uploads
// carry the Shorts tag and description suffix so the platform routes them to
// the short-form surface.
func Decorate(req UploadRequest) UploadRequest {
	if req.Kind != "short" {
		return req
	}
	hasTag := false
	for _, tag := range req.Tags {
		if strings.EqualFold(tag, "Shorts") {
			hasTag = true
			break
		}
	}
	if !hasTag {
		req.Tags = append(append([]string(nil), req.Tags...), "Shorts")
	}
	if !strings.Contains(req.Description, "#Shorts") {
		req.Description = strings.TrimSpace(req.Description + " #Shorts")
	}
	return req
}
