package config

const (
	defaultDataDir    = "~/.local/share/shortcast/data"
	defaultStagingDir = "~/.local/share/shortcast/staging"
	defaultLogDir     = "~/.local/share/shortcast/logs"

	defaultMaxConcurrentJobs    = 3
	defaultMaxRequestsPerMinute = 10

	defaultIntervalHours = 2.5

	defaultGenerationRequestTimeout = 300
	defaultGenerationPollInterval   = 5
	defaultGenerationPollTimeout    = 300
	defaultGenerationDownloadLimit  = 300
	defaultMaxContentLength         = 50000
	defaultSegmentMarker            = "— pause —"

	defaultPublishUploadTimeout = 300
	defaultPublishCallTimeout   = 30
	defaultPublishCategory      = "22"

	defaultWebhookOffsetMinutes  = 15
	defaultWebhookTimezone       = "Asia/Kolkata"
	defaultWebhookRequestTimeout = 30
	defaultWebhookMaxAttempts    = 3

	defaultJobPollInterval         = 30
	defaultErrorRetryInterval      = 10
	defaultPublishSweepSpec        = "* * * * *"
	defaultRetrySweepSpec          = "*/5 * * * *"
	defaultRetentionSweepSpec      = "30 3 * * *"
	defaultPublishToleranceMinutes = 1
	defaultRetentionDays           = 7
	defaultMaxUploadAttempts       = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

var defaultRetryDelaysMinutes = []int{5, 15, 30, 60, 120}

var defaultPublishTags = []string{"news", "shorts", "ai", "automation", "daily"}

const defaultPublishDescription = "Automated shorts generated from daily content."

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Limits: Limits{
			MaxConcurrentJobs:    defaultMaxConcurrentJobs,
			MaxRequestsPerMinute: defaultMaxRequestsPerMinute,
		},
		Scheduling: Scheduling{
			IntervalHours: defaultIntervalHours,
		},
		Generation: Generation{
			RequestTimeout:    defaultGenerationRequestTimeout,
			PollInterval:      defaultGenerationPollInterval,
			PollTimeout:       defaultGenerationPollTimeout,
			MaxContentLength:  defaultMaxContentLength,
			SegmentMarker:     defaultSegmentMarker,
			DownloadArtifacts: true,
			DownloadTimeout:   defaultGenerationDownloadLimit,
		},
		Publish: Publish{
			UploadTimeout:      defaultPublishUploadTimeout,
			CallTimeout:        defaultPublishCallTimeout,
			DefaultDescription: defaultPublishDescription,
			DefaultTags:        append([]string(nil), defaultPublishTags...),
			Category:           defaultPublishCategory,
		},
		Webhook: Webhook{
			OffsetMinutes:  defaultWebhookOffsetMinutes,
			Timezone:       defaultWebhookTimezone,
			RequestTimeout: defaultWebhookRequestTimeout,
			MaxAttempts:    defaultWebhookMaxAttempts,
		},
		Workflow: Workflow{
			JobPollInterval:         defaultJobPollInterval,
			ErrorRetryInterval:      defaultErrorRetryInterval,
			PublishSweepSpec:        defaultPublishSweepSpec,
			RetrySweepSpec:          defaultRetrySweepSpec,
			RetentionSweepSpec:      defaultRetentionSweepSpec,
			PublishToleranceMinutes: defaultPublishToleranceMinutes,
			RetentionDays:           defaultRetentionDays,
			MaxUploadAttempts:       defaultMaxUploadAttempts,
			RetryDelaysMinutes:      append([]int(nil), defaultRetryDelaysMinutes...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
