package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Owner identifies a caller allowed to submit jobs.
type Owner struct {
	Key  string `toml:"key"`
	Name string `toml:"name"`
}

// Limits caps per-owner submission behavior.
type Limits struct {
	MaxConcurrentJobs    int `toml:"max_concurrent_jobs"`
	MaxRequestsPerMinute int `toml:"max_requests_per_minute"`
}

// Scheduling controls publish-slot allocation.
type Scheduling struct {
	IntervalHours float64 `toml:"interval_hours"`
}

// Generation configures the external content-generation service.
type Generation struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	RequestTimeout      int    `toml:"request_timeout"`
	PollInterval        int    `toml:"poll_interval"`
	PollTimeout         int    `toml:"poll_timeout"`
	MaxContentLength    int    `toml:"max_content_length"`
	SegmentMarker       string `toml:"segment_marker"`
	DownloadArtifacts   bool   `toml:"download_artifacts"`
	DownloadTimeout     int    `toml:"download_timeout"`
}

// Publish configures the external publish target service.
type Publish struct {
	BaseURL            string   `toml:"base_url"`
	APIKey             string   `toml:"api_key"`
	UploadTimeout      int      `toml:"upload_timeout"`
	CallTimeout        int      `toml:"call_timeout"`
	DefaultDescription string   `toml:"default_description"`
	DefaultTags        []string `toml:"default_tags"`
	Category           string   `toml:"category"`
}

// Webhook configures the downstream notification target.
type Webhook struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	OffsetMinutes  int    `toml:"offset_minutes"`
	Timezone       string `toml:"timezone"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Workflow contains daemon timing, sweep schedules, and retry policy knobs.
type Workflow struct {
	JobPollInterval         int    `toml:"job_poll_interval"`
	ErrorRetryInterval      int    `toml:"error_retry_interval"`
	PublishSweepSpec        string `toml:"publish_sweep_spec"`
	RetrySweepSpec          string `toml:"retry_sweep_spec"`
	RetentionSweepSpec      string `toml:"retention_sweep_spec"`
	PublishToleranceMinutes int    `toml:"publish_tolerance_minutes"`
	RetentionDays           int    `toml:"retention_days"`
	MaxUploadAttempts       int    `toml:"max_upload_attempts"`
	RetryDelaysMinutes      []int  `toml:"retry_delays_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for shortcast.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Owners     []Owner    `toml:"owners"`
	Limits     Limits     `toml:"limits"`
	Scheduling Scheduling `toml:"scheduling"`
	Generation Generation `toml:"generation"`
	Publish    Publish    `toml:"publish"`
	Webhook    Webhook    `toml:"webhook"`
	Workflow   Workflow   `toml:"workflow"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shortcast/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and secrets overridden from the
// environment where present.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	candidate := strings.TrimSpace(path)
	if candidate == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		candidate = defaultPath
	}

	expanded, err := expandPath(candidate)
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return expanded, true, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHORTCAST_GENERATION_API_KEY"); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("SHORTCAST_PUBLISH_API_KEY"); v != "" {
		c.Publish.APIKey = v
	}
	if v := os.Getenv("SHORTCAST_WEBHOOK_API_KEY"); v != "" {
		c.Webhook.APIKey = v
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("log_dir: %w", err)
	}
	c.Generation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Generation.BaseURL), "/")
	c.Publish.BaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.BaseURL), "/")
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates the directories shortcast needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// QueueFilePath returns the path of the durable upload queue file.
func (c *Config) QueueFilePath() string {
	return filepath.Join(c.Paths.DataDir, "upload_queue.json")
}

// JobDBPath returns the path of the job store database.
func (c *Config) JobDBPath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// OwnerName resolves the display name of an owner key, if configured.
func (c *Config) OwnerName(key string) (string, bool) {
	for _, owner := range c.Owners {
		if owner.Key == key {
			name := owner.Name
			if name == "" {
				name = "unnamed"
			}
			return name, true
		}
	}
	return "", false
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else if strings.HasPrefix(trimmed, "~/") {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
