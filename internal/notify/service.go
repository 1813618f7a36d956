package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"shortcast/internal/config"
	"shortcast/internal/logging"
)

const userAgent = "Shortcast/0.1.0"

const previewRunes = 200

// Event describes one committed publish item announced downstream.
type Event struct {
	FullContent string
	PublicURL   string // empty when upload or schedule failed
	ScheduledAt time.Time
}

// Service delivers downstream notifications. Delivery is strictly
// best-effort: a failure is reported to the caller for logging but must
// never roll back pipeline state.
type Service interface {
	// ResetSequence restarts the per-batch sequence counter. Called at the
	// start of each upload pass.
	ResetSequence()
	// Publish sends one event, retrying with bounded exponential backoff.
	Publish(ctx context.Context, event Event) error
}

// NewService builds a webhook-backed notification service. When no webhook
// URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	url := strings.TrimSpace(cfg.Webhook.URL)
	if url == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Webhook.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	location, err := time.LoadLocation(cfg.Webhook.Timezone)
	if err != nil {
		// Validate rejects bad zones at load time; use UTC if one slips through.
		location = time.UTC
	}
	maxAttempts := cfg.Webhook.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &webhookService{
		url:         url,
		apiKey:      strings.TrimSpace(cfg.Webhook.APIKey),
		offset:      time.Duration(cfg.Webhook.OffsetMinutes) * time.Minute,
		location:    location,
		maxAttempts: maxAttempts,
		client:      &http.Client{Timeout: timeout},
		logger:      logging.WithComponent(logger, "notify"),
	}
}

type noopService struct{}

func (noopService) ResetSequence() {}

func (noopService) Publish(context.Context, Event) error { return nil }

type webhookService struct {
	url         string
	apiKey      string
	offset      time.Duration
	location    *time.Location
	maxAttempts int
	client      *http.Client
	logger      *slog.Logger

	mu       sync.Mutex
	sequence int
}

type payload struct {
	SequenceID  string `json:"sequence_id"`
	Preview     string `json:"preview"`
	FullContent string `json:"full_content"`
	PublicURL   string `json:"public_url"`
	TargetTime  string `json:"target_time"`
}

func (w *webhookService) ResetSequence() {
	w.mu.Lock()
	w.sequence = 0
	w.mu.Unlock()
}

func (w *webhookService) Publish(ctx context.Context, event Event) error {
	w.mu.Lock()
	w.sequence++
	seq := w.sequence
	w.mu.Unlock()

	body := payload{
		SequenceID:  fmt.Sprintf("%02d", seq),
		Preview:     Preview(event.FullContent),
		FullContent: event.FullContent,
		PublicURL:   event.PublicURL,
		TargetTime:  w.targetTime(event.ScheduledAt),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second // 1s, 2s, 4s
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = w.send(ctx, data)
		if lastErr == nil {
			return nil
		}
		w.logger.Warn("webhook delivery attempt failed",
			logging.Error(lastErr),
			logging.Int("attempt", attempt+1),
			logging.String("sequence_id", body.SequenceID),
		)
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", w.maxAttempts, lastErr)
}

func (w *webhookService) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if w.apiKey != "" {
		req.Header.Set("x-api-key", w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// targetTime renders the downstream posting time: the publish slot plus the
// configured offset, in the fixed configured zone regardless of caller
// locale. Format matches the downstream automation: "17-11-2025 02:30 PM".
func (w *webhookService) targetTime(scheduled time.Time) string {
	return scheduled.Add(w.offset).In(w.location).Format("02-01-2006 03:04 PM")
}

// Preview collapses whitespace and truncates to the first 200 runes,
// appending an ellipsis when content was cut.
func Preview(content string) string {
	cleaned := strings.Join(strings.Fields(content), " ")
	runes := []rune(cleaned)
	if len(runes) <= previewRunes {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:previewRunes])) + "..."
}
