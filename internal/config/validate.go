package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOwners(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateScheduling(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateWebhook(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	return nil
}

func (c *Config) validateOwners() error {
	seen := make(map[string]struct{}, len(c.Owners))
	for i, owner := range c.Owners {
		key := strings.TrimSpace(owner.Key)
		if key == "" {
			return fmt.Errorf("owners[%d].key must not be empty", i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("owners[%d].key is duplicated", i)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.MaxConcurrentJobs < 1 {
		return errors.New("limits.max_concurrent_jobs must be at least 1")
	}
	if c.Limits.MaxRequestsPerMinute < 1 {
		return errors.New("limits.max_requests_per_minute must be at least 1")
	}
	return nil
}

func (c *Config) validateScheduling() error {
	if c.Scheduling.IntervalHours <= 0 {
		return errors.New("scheduling.interval_hours must be positive")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.MaxContentLength < 1 {
		return errors.New("generation.max_content_length must be positive")
	}
	if c.Generation.PollInterval < 1 {
		return errors.New("generation.poll_interval must be at least 1 second")
	}
	if c.Generation.PollTimeout < c.Generation.PollInterval {
		return errors.New("generation.poll_timeout must exceed generation.poll_interval")
	}
	if strings.TrimSpace(c.Generation.SegmentMarker) == "" {
		return errors.New("generation.segment_marker must not be empty")
	}
	return nil
}

func (c *Config) validateWebhook() error {
	if c.Webhook.URL == "" {
		return nil // notifications disabled
	}
	if c.Webhook.MaxAttempts < 1 {
		return errors.New("webhook.max_attempts must be at least 1")
	}
	if _, err := time.LoadLocation(c.Webhook.Timezone); err != nil {
		return fmt.Errorf("webhook.timezone: %w", err)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.JobPollInterval < 1 {
		return errors.New("workflow.job_poll_interval must be at least 1 second")
	}
	if c.Workflow.PublishToleranceMinutes < 0 {
		return errors.New("workflow.publish_tolerance_minutes must not be negative")
	}
	if c.Workflow.RetentionDays < 1 {
		return errors.New("workflow.retention_days must be at least 1 day")
	}
	if c.Workflow.MaxUploadAttempts < 1 {
		return errors.New("workflow.max_upload_attempts must be at least 1")
	}
	if len(c.Workflow.RetryDelaysMinutes) == 0 {
		return errors.New("workflow.retry_delays_minutes must not be empty")
	}
	for i, delay := range c.Workflow.RetryDelaysMinutes {
		if delay < 1 {
			return fmt.Errorf("workflow.retry_delays_minutes[%d] must be at least 1 minute", i)
		}
	}
	return nil
}
