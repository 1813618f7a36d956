package services_test

import (
	"errors"
	"fmt"
	"testing"

	"shortcast/internal/services"
)

func TestWrapTagsWithMarker(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrExternal, "publish", "upload", "send failed", cause)

	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected error to match ErrExternal: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected error to retain the cause: %v", err)
	}
	if errors.Is(err, services.ErrValidation) {
		t.Fatalf("error matched the wrong marker: %v", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "intake", "submit", "content too long", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker: %v", err)
	}
	want := "validation error: intake: submit: content too long"
	if err.Error() != want {
		t.Fatalf("unexpected message: got %q want %q", err.Error(), want)
	}
}

func TestWrapNilMarkerDefaultsToExternal(t *testing.T) {
	err := services.Wrap(nil, "generation", "poll", "", nil)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external marker fallback: %v", err)
	}
}

func TestIsBoundary(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrValidation, "intake", "submit", "bad speed", nil), true},
		{services.Wrap(services.ErrUnauthorized, "intake", "status", "unknown owner", nil), true},
		{services.Wrap(services.ErrRateLimited, "intake", "submit", "too many requests", nil), true},
		{services.Wrap(services.ErrExternal, "publish", "upload", "down", nil), false},
		{services.Wrap(services.ErrPersistence, "jobs", "update", "disk full", nil), false},
		{errors.New("plain"), false},
		{nil, false},
	}
	for i, tc := range cases {
		if got := services.IsBoundary(tc.err); got != tc.want {
			t.Fatalf("case %d: IsBoundary(%v) = %v, want %v", i, tc.err, got, tc.want)
		}
	}
}

func TestUserMessageDropsComponentContext(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "generation", "poll", "remote job stalled", nil)
	if got := services.UserMessage(err); got != "remote job stalled" {
		t.Fatalf("unexpected user message: %q", got)
	}
}

func TestUserMessageSurfacesInnermostCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrExternal, "publish", "upload", "send failed", cause)
	if got := services.UserMessage(err); got != "connection refused" {
		t.Fatalf("unexpected user message: %q", got)
	}

	nested := services.Wrap(services.ErrExternal, "workflow", "publish", "upload pass", err)
	if got := services.UserMessage(nested); got != "connection refused" {
		t.Fatalf("unexpected user message for nested wrap: %q", got)
	}
}

func TestUserMessagePassthrough(t *testing.T) {
	if got := services.UserMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}
	plain := fmt.Errorf("plain failure")
	if got := services.UserMessage(plain); got != "plain failure" {
		t.Fatalf("expected message unchanged, got %q", got)
	}
}
