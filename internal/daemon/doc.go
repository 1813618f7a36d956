// Package daemon composes the stores and the workflow manager into a
// single-instance background service.
package daemon
