package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify failures at boundaries. Boundary errors
// (validation, authorization, rate limiting) are rejected before a job is
// created; the remaining markers classify pipeline failures.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrExternal     = errors.New("external service error")
	ErrPersistence  = errors.New("persistence error")
	ErrTimeout      = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsBoundary reports whether an error belongs to the submission boundary and
// must never enter the pipeline.
func IsBoundary(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrRateLimited)
}

var markers = []error{ErrValidation, ErrNotFound, ErrUnauthorized, ErrRateLimited, ErrExternal, ErrPersistence, ErrTimeout}

// UserMessage reduces an error chain to the message a caller should see: the
// innermost failure text, with markers and component context left to the logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	cause := innermostCause(err)
	msg := cause.Error()
	for _, sentinel := range markers {
		prefix := sentinel.Error() + ": "
		if errors.Is(cause, sentinel) && strings.HasPrefix(msg, prefix) {
			// Still in Wrap's own formatting: drop the component and
			// operation segments and keep the trailing message.
			msg = strings.TrimPrefix(msg, prefix)
			if idx := strings.LastIndex(msg, ": "); idx >= 0 {
				msg = msg[idx+2:]
			}
			break
		}
	}
	return strings.TrimSpace(msg)
}

func innermostCause(err error) error {
	for {
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			wrapped := u.Unwrap()
			if len(wrapped) == 0 {
				return err
			}
			err = wrapped[len(wrapped)-1]
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil || isMarker(next) {
				return err
			}
			err = next
		default:
			return err
		}
	}
}

func isMarker(err error) bool {
	for _, sentinel := range markers {
		if err == sentinel {
			return true
		}
	}
	return false
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
