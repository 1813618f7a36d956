package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortcast/internal/config"
	"shortcast/internal/logging"
	"shortcast/internal/services"
)

// Client implements Service against the publish target's HTTP API.
type Client struct {
	baseURL     string
	apiKey      string
	category    string
	uploadHTTP  *http.Client
	callHTTP    *http.Client
	logger      *slog.Logger
	watchPrefix string
}

var _ Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClients overrides both the upload and the control-call clients.
// Used by tests to point at a local server without real timeouts.
func WithHTTPClients(upload, call *http.Client) Option {
	return func(c *Client) {
		if upload != nil {
			c.uploadHTTP = upload
		}
		if call != nil {
			c.callHTTP = call
		}
	}
}

// NewClient creates a publish client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.Publish.BaseURL)
	if baseURL == "" {
		return nil, errors.New("publish base url required")
	}
	client := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.Publish.APIKey),
		category:    cfg.Publish.Category,
		uploadHTTP:  &http.Client{Timeout: time.Duration(cfg.Publish.UploadTimeout) * time.Second},
		callHTTP:    &http.Client{Timeout: time.Duration(cfg.Publish.CallTimeout) * time.Second},
		logger:      logging.WithComponent(logger, "publish"),
		watchPrefix: strings.TrimRight(baseURL, "/") + "/watch/",
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type uploadMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category,omitempty"`
	Visibility  string   `json:"visibility"`
}

type uploadResponse struct {
	ID string `json:"id"`
}

// Upload sends the artifact as multipart form data with a private visibility.
// Returns the remote id on success.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (string, error) {
	req = Decorate(req)
	req.Title = ClampTitle(req.Title)

	file, err := os.Open(req.ArtifactPath)
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "publish", "upload", "open artifact", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	meta, err := json.Marshal(uploadMetadata{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Category:    c.category,
		Visibility:  "private",
	})
	if err != nil {
		return "", fmt.Errorf("marshal upload metadata: %w", err)
	}
	if err := writer.WriteField("metadata", string(meta)); err != nil {
		return "", fmt.Errorf("write metadata field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(req.ArtifactPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", services.Wrap(services.ErrPersistence, "publish", "upload", "read artifact", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(httpReq)

	start := time.Now()
	resp, err := c.uploadHTTP.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "publish", "upload", "upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", services.Wrap(services.ErrExternal, "publish", "upload",
			fmt.Sprintf("upload returned %d", resp.StatusCode), nil)
	}
	var payload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return "", services.Wrap(services.ErrExternal, "publish", "upload", "upload response missing id", nil)
	}
	c.logger.Info("artifact uploaded",
		logging.String(logging.FieldRemoteID, payload.ID),
		logging.String(logging.FieldItemTitle, req.Title),
		logging.Duration("elapsed", time.Since(start)),
	)
	return payload.ID, nil
}

// Schedule sets the remote item's publish time. The item stays private until
// the sweep makes it public.
func (c *Client) Schedule(ctx context.Context, remoteID string, at time.Time) error {
	body := map[string]string{"publish_at": at.UTC().Format(time.RFC3339)}
	return c.call(ctx, http.MethodPatch, "/videos/"+remoteID+"/schedule", body, "schedule")
}

// MakePublic flips the remote item to public visibility.
func (c *Client) MakePublic(ctx context.Context, remoteID string) error {
	body := map[string]string{"visibility": "public"}
	return c.call(ctx, http.MethodPatch, "/videos/"+remoteID+"/visibility", body, "make_public")
}

// WatchURL returns the public viewing URL for a remote id.
func (c *Client) WatchURL(remoteID string) string {
	if remoteID == "" {
		return ""
	}
	return c.watchPrefix + remoteID
}

func (c *Client) call(ctx context.Context, method, path string, body any, operation string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.callHTTP.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternal, "publish", operation, "publish service unreachable", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return services.Wrap(services.ErrExternal, "publish", operation,
			fmt.Sprintf("publish service returned %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
