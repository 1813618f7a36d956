package preflight

import (
	"context"

	"shortcast/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// External-service checks run only when the service is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDiskSpace("Staging free space", cfg.Paths.StagingDir, minStagingBytes))

	if cfg.Generation.BaseURL != "" {
		results = append(results, CheckEndpoint(ctx, "Generation service", cfg.Generation.BaseURL+"/health", "X-API-Key", cfg.Generation.APIKey))
	}
	if cfg.Publish.BaseURL != "" {
		results = append(results, CheckEndpoint(ctx, "Publish service", cfg.Publish.BaseURL+"/health", "Authorization", bearer(cfg.Publish.APIKey)))
	}

	return results
}

func bearer(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	return "Bearer " + apiKey
}
