//go:build unix

package tunnel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "BrowserStackLocal")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandExecutorCapturesOutput(t *testing.T) {
	script := writeScript(t, "echo '{\"state\":\"connected\",\"pid\":12}'\necho warn >&2\n")

	result, err := commandExecutor{}.Run(context.Background(), script, []string{"-d", "start"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if strings.TrimSpace(string(result.Stdout)) != `{"state":"connected","pid":12}` {
		t.Fatalf("unexpected stdout %q", result.Stdout)
	}
	if strings.TrimSpace(string(result.Stderr)) != "warn" {
		t.Fatalf("unexpected stderr %q", result.Stderr)
	}
}

func TestCommandExecutorReportsExitCode(t *testing.T) {
	script := writeScript(t, "exit 3\n")
	result, err := commandExecutor{}.Run(context.Background(), script, nil)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.ExitCode != 3 {
		t.Fatalf("unexpected exit code %d", result.ExitCode)
	}
}

func TestCommandExecutorMissingBinary(t *testing.T) {
	_, err := commandExecutor{}.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestCommandExecutorHonoursContext(t *testing.T) {
	script := writeScript(t, "exec sleep 5\n")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := commandExecutor{}.Run(ctx, script, nil)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestProcessExists(t *testing.T) {
	if !processExists(os.Getpid()) {
		t.Fatal("expected current process to exist")
	}
	if processExists(0) || processExists(-1) {
		t.Fatal("non-positive pids must not be reported alive")
	}
}
