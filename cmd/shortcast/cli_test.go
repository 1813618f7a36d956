package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(base, "data") + `"
staging_dir = "` + filepath.Join(base, "staging") + `"
log_dir = "` + filepath.Join(base, "logs") + `"

[[owners]]
key = "cli-owner"
name = "CLI Owner"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestSubmitThenListAndCancel(t *testing.T) {
	cfgPath := writeTestConfig(t)
	publishAt := time.Now().Add(2 * time.Hour).Format(time.RFC3339)

	out, err := runCommand(t,
		"--config", cfgPath, "--owner", "cli-owner",
		"submit", "daily summary content", "--publish-at", publishAt,
	)
	if err != nil {
		t.Fatalf("submit failed: %v\n%s", err, out)
	}
	match := regexp.MustCompile(`Job (\S+) queued`).FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("submit output missing job id: %q", out)
	}
	jobID := match[1]

	out, err = runCommand(t, "--config", cfgPath, "--owner", "cli-owner", "jobs")
	if err != nil {
		t.Fatalf("jobs failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "queued") {
		t.Fatalf("jobs output missing queued row:\n%s", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "--owner", "cli-owner", "cancel", jobID)
	if err != nil {
		t.Fatalf("cancel failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "cancelled") {
		t.Fatalf("cancel output unexpected: %q", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "--owner", "cli-owner", "job", jobID)
	if err != nil {
		t.Fatalf("job failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "cancelled") {
		t.Fatalf("expected cancelled status in job output:\n%s", out)
	}
}

func TestSubmitRejectsPastPublishTime(t *testing.T) {
	cfgPath := writeTestConfig(t)
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)

	_, err := runCommand(t,
		"--config", cfgPath, "--owner", "cli-owner",
		"submit", "late content", "--publish-at", past,
	)
	if err == nil {
		t.Fatal("expected submission with past publish time to fail")
	}
}

func TestSubmitRequiresKnownOwner(t *testing.T) {
	cfgPath := writeTestConfig(t)
	publishAt := time.Now().Add(2 * time.Hour).Format(time.RFC3339)

	_, err := runCommand(t,
		"--config", cfgPath, "--owner", "stranger",
		"submit", "content", "--publish-at", publishAt,
	)
	if err == nil {
		t.Fatal("expected submission with unknown owner to fail")
	}
}

func TestQueueEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "queue")
	if err != nil {
		t.Fatalf("queue failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Upload queue is empty") {
		t.Fatalf("unexpected queue output: %q", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected sample config at %s: %v", path, err)
	}

	out, err = runCommand(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v\n%s", err, out)
	}
}
