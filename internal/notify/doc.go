// Package notify delivers publish notifications to a downstream webhook.
// Delivery is best-effort and never blocks or rolls back pipeline state.
package notify
