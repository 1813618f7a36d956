package testsupport

import (
	"path/filepath"
	"testing"

	"shortcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Owners = []config.Owner{{Key: "test-owner-key", Name: "Test Owner"}}
	cfg.Generation.BaseURL = "http://127.0.0.1:0"
	cfg.Publish.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithOwner replaces the configured owners with a single owner key.
func WithOwner(key, name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Owners = []config.Owner{{Key: key, Name: name}}
	}
}

// WithWebhook points the webhook at the given URL.
func WithWebhook(url, apiKey string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Webhook.URL = url
		cfg.Webhook.APIKey = apiKey
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
