// Package workflow coordinates the job pipeline and the background sweeps.
//
// A single worker goroutine takes queued jobs in submission order and drives
// each through generation, deduplication, slot allocation, enqueue, and
// upload. Cron-scheduled sweeps publish due items, re-pend retryable
// failures, and purge records beyond the retention window. One job's failure
// never stops the loop.
package workflow
