// Package jobs persists generation jobs and their lifecycle in SQLite.
//
// A job moves queued -> processing -> {completed, failed, cancelled}. The
// store is the sole writer of job rows: the workflow manager mutates jobs
// through Update, which merges partial changes, refuses transitions out of a
// terminal status, and stamps completion times.
package jobs
