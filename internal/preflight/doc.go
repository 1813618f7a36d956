// Package preflight verifies the runtime environment before the daemon
// starts processing: directory access, free disk space, and external
// service reachability.
package preflight
