package main

import (
	"io"
	"strings"
	"testing"
)

func TestShouldColorizeRejectsNonFileWriters(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatal("expected io.Discard to disable colorization")
	}
	var sb strings.Builder
	if shouldColorize(&sb) {
		t.Fatal("expected strings.Builder to disable colorization")
	}
}

func TestSectionHeader(t *testing.T) {
	if got := sectionHeader("Jobs", false); got != "Jobs" {
		t.Fatalf("unexpected plain header: %q", got)
	}
	colored := sectionHeader("Jobs", true)
	if !strings.Contains(colored, "Jobs") || !strings.Contains(colored, ansiReset) {
		t.Fatalf("unexpected colored header: %q", colored)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Status", "Progress"},
		[][]string{{"job-1", "queued"}},
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
	if !strings.Contains(out, "job-1") || !strings.Contains(out, "Status") {
		t.Fatalf("table missing expected content:\n%s", out)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if got := renderTable(nil, nil, nil); got != "" {
		t.Fatalf("expected empty render, got %q", got)
	}
}
