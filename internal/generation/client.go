package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortcast/internal/config"
	"shortcast/internal/logging"
	"shortcast/internal/services"
	"shortcast/internal/textutil"
)

// Client talks to the content generation service over HTTP. Generation is
// asynchronous: a submission returns a remote job id which is then polled
// until it completes, fails, or the configured poll timeout elapses.
type Client struct {
	baseURL         string
	apiKey          string
	stagingDir      string
	marker          string
	pollInterval    time.Duration
	pollTimeout     time.Duration
	downloadTimeout time.Duration
	download        bool
	httpClient      *http.Client
	logger          *slog.Logger
}

var _ Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a generation client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.Generation.BaseURL)
	if baseURL == "" {
		return nil, errors.New("generation base url required")
	}
	client := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          strings.TrimSpace(cfg.Generation.APIKey),
		stagingDir:      cfg.Paths.StagingDir,
		marker:          cfg.Generation.SegmentMarker,
		pollInterval:    time.Duration(cfg.Generation.PollInterval) * time.Second,
		pollTimeout:     time.Duration(cfg.Generation.PollTimeout) * time.Second,
		downloadTimeout: time.Duration(cfg.Generation.DownloadTimeout) * time.Second,
		download:        cfg.Generation.DownloadArtifacts,
		httpClient:      &http.Client{Timeout: time.Duration(cfg.Generation.RequestTimeout) * time.Second},
		logger:          logging.WithComponent(logger, "generation"),
	}
	if client.pollInterval <= 0 {
		client.pollInterval = 5 * time.Second
	}
	if client.pollTimeout <= 0 {
		client.pollTimeout = 30 * time.Minute
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type submitPayload struct {
	Content string  `json:"content"`
	Voice   string  `json:"voice"`
	Speed   float64 `json:"speed"`
	Kind    string  `json:"kind"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Status    string         `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	Error     string         `json:"error"`
	Artifacts []artifactInfo `json:"artifacts"`
}

type artifactInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Generate submits the request, polls until the remote job settles, and
// stages the resulting artifacts locally. The returned artifact order matches
// segment order in the source content.
func (c *Client) Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Artifact, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, services.Wrap(services.ErrValidation, "generation", "generate", "content must not be empty", nil)
	}

	remoteID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Info("generation submitted",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String(logging.FieldRemoteID, remoteID),
		logging.Int("estimated_segments", EstimateSegments(req.Content, c.marker)),
	)

	status, err := c.poll(ctx, remoteID, progress)
	if err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(status.Artifacts))
	for i, info := range status.Artifacts {
		artifact := Artifact{Index: i, Name: info.Name, Path: info.URL}
		if c.download {
			localPath, err := c.fetchArtifact(ctx, req.JobID, info, i)
			if err != nil {
				return nil, err
			}
			artifact.Path = localPath
		}
		artifacts = append(artifacts, artifact)
	}
	if len(artifacts) == 0 {
		return nil, services.Wrap(services.ErrExternal, "generation", "generate", "remote job completed without artifacts", nil)
	}
	return artifacts, nil
}

func (c *Client) submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(submitPayload{
		Content: req.Content,
		Voice:   req.Voice,
		Speed:   req.Speed,
		Kind:    req.Kind,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "generation", "submit", "generation service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", services.Wrap(services.ErrExternal, "generation", "submit",
			fmt.Sprintf("generation submit returned %d", resp.StatusCode), nil)
	}
	var payload submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode generation submit response: %w", err)
	}
	if strings.TrimSpace(payload.ID) == "" {
		return "", services.Wrap(services.ErrExternal, "generation", "submit", "generation service returned no job id", nil)
	}
	return payload.ID, nil
}

func (c *Client) poll(ctx context.Context, remoteID string, progress ProgressFunc) (*statusResponse, error) {
	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.fetchStatus(ctx, remoteID)
		if err != nil {
			return nil, err
		}
		if progress != nil {
			progress(status.Progress, status.Message)
		}
		switch status.Status {
		case "completed":
			return status, nil
		case "failed":
			message := status.Error
			if message == "" {
				message = "remote generation failed"
			}
			return nil, services.Wrap(services.ErrExternal, "generation", "poll", message, nil)
		}

		if time.Now().After(deadline) {
			return nil, services.Wrap(services.ErrTimeout, "generation", "poll",
				fmt.Sprintf("generation did not complete within %s", c.pollTimeout), nil)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchStatus(ctx context.Context, remoteID string) (*statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+remoteID, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "generation", "status", "generation status check failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrExternal, "generation", "status",
			fmt.Sprintf("generation status returned %d", resp.StatusCode), nil)
	}
	var payload statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode generation status: %w", err)
	}
	return &payload, nil
}

// fetchArtifact streams one artifact into the staging directory. Downloads
// write to a temp file and rename so a partial transfer never leaves a
// truncated artifact behind.
func (c *Client) fetchArtifact(ctx context.Context, jobID string, info artifactInfo, index int) (string, error) {
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build artifact request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "generation", "download", "artifact download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternal, "generation", "download",
			fmt.Sprintf("artifact download returned %d", resp.StatusCode), nil)
	}

	name := textutil.SanitizeFileName(info.Name)
	if name == "" {
		name = fmt.Sprintf("%s_part_%02d.mp4", jobID, index+1)
	}
	if err := os.MkdirAll(c.stagingDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPersistence, "generation", "download", "create staging directory", err)
	}
	target := filepath.Join(c.stagingDir, filepath.Base(name))
	tmp := target + ".tmp"

	out, err := os.Create(tmp)
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "generation", "download", "create staging file", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", services.Wrap(services.ErrExternal, "generation", "download", "stream artifact", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", services.Wrap(services.ErrPersistence, "generation", "download", "close staging file", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", services.Wrap(services.ErrPersistence, "generation", "download", "finalize staging file", err)
	}
	return target, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
