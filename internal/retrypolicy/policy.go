// Package retrypolicy decides when a failed upload becomes eligible for
// another attempt. Delays come from a fixed escalating table rather than
// unbounded exponential growth; once attempts reach the policy maximum the
// item is permanently failed and requires manual intervention.
package retrypolicy

import (
	"time"

	"shortcast/internal/config"
	"shortcast/internal/uploadqueue"
)

// Policy bounds progressive retry for upload failures.
type Policy struct {
	MaxAttempts int
	Delays      []time.Duration
}

// Default returns the standard policy: five attempts with delays of
// 5, 15, 30, 60, and 120 minutes.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		Delays: []time.Duration{
			5 * time.Minute,
			15 * time.Minute,
			30 * time.Minute,
			60 * time.Minute,
			120 * time.Minute,
		},
	}
}

// FromConfig builds a policy from workflow configuration, falling back to
// defaults for missing values.
func FromConfig(cfg config.Workflow) Policy {
	policy := Default()
	if cfg.MaxUploadAttempts > 0 {
		policy.MaxAttempts = cfg.MaxUploadAttempts
	}
	if len(cfg.RetryDelaysMinutes) > 0 {
		delays := make([]time.Duration, 0, len(cfg.RetryDelaysMinutes))
		for _, minutes := range cfg.RetryDelaysMinutes {
			delays = append(delays, time.Duration(minutes)*time.Minute)
		}
		policy.Delays = delays
	}
	return policy
}

// Delay returns the wait required after the given number of attempts. The
// table caps: attempts beyond its length reuse the final entry.
func (p Policy) Delay(attempts int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= len(p.Delays) {
		attempts = len(p.Delays) - 1
	}
	return p.Delays[attempts]
}

// Exhausted reports whether the attempt count has consumed the policy.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// Eligible reports whether a failed item may re-enter the pending pool:
// attempts remain and the required delay since the last attempt has elapsed.
// Items without a recorded attempt time are immediately eligible.
func (p Policy) Eligible(item uploadqueue.Item, now time.Time) bool {
	if p.Exhausted(item.UploadAttempts) {
		return false
	}
	if item.LastAttemptAt == nil {
		return true
	}
	return now.Sub(*item.LastAttemptAt) >= p.Delay(item.UploadAttempts)
}
