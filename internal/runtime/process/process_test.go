//go:build !windows

package process

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/groundctl/groundctl/internal/runtime"
)

func startProcess(t *testing.T, spec runtime.StartSpec) runtime.Handle {
	t.Helper()
	handle, err := New().Start(context.Background(), spec)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return handle
}

func TestStartRequiresCommand(t *testing.T) {
	if _, err := New().Start(context.Background(), runtime.StartSpec{Name: "proxy"}); err == nil {
		t.Fatalf("expected error for missing command")
	}
}

func TestStartReportsSpawnFailure(t *testing.T) {
	_, err := New().Start(context.Background(), runtime.StartSpec{
		Name:         "proxy",
		Command:      []string{"definitely-not-a-real-binary-4821"},
		InheritStdio: true,
	})
	if err == nil {
		t.Fatalf("expected spawn failure")
	}
}

func TestWaitObservesExitCode(t *testing.T) {
	handle := startProcess(t, runtime.StartSpec{
		Name:         "crasher",
		Command:      []string{"sh", "-c", "exit 3"},
		InheritStdio: true,
	})

	err := handle.Wait(context.Background())
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if exitErr.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.ExitCode())
	}
}

func TestStopTerminatesGracefully(t *testing.T) {
	handle := startProcess(t, runtime.StartSpec{
		Name:         "sleeper",
		Command:      []string{"sh", "-c", "sleep 30"},
		InheritStdio: true,
		GracePeriod:  5 * time.Second,
	})
	if handle.PID() == 0 {
		t.Fatalf("expected a pid for the running child")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := handle.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// A second stop on the exited process is a no-op.
	if err := handle.Stop(ctx); err != nil {
		t.Fatalf("repeat stop: %v", err)
	}
}

func TestStopEscalatesAfterGracePeriod(t *testing.T) {
	handle := startProcess(t, runtime.StartSpec{
		Name:         "stubborn",
		Command:      []string{"sh", "-c", `trap "" TERM; sleep 30`},
		InheritStdio: true,
		GracePeriod:  200 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	start := time.Now()
	if err := handle.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Fatalf("stop returned before the grace period elapsed")
	}

	if err := handle.Wait(context.Background()); err == nil {
		t.Fatalf("expected a kill to surface as a wait error")
	}
}

func TestPipedOutputIsLabelled(t *testing.T) {
	handle := startProcess(t, runtime.StartSpec{
		Name:    "chatty",
		Command: []string{"sh", "-c", "echo hello; echo trouble 1>&2"},
	})

	var stdoutSeen, stderrWarn bool
	for entry := range handle.Logs() {
		switch {
		case entry.Source == runtime.LogSourceStdout && entry.Message == "hello":
			stdoutSeen = true
		case entry.Source == runtime.LogSourceStderr && entry.Message == "trouble":
			if entry.Level != "warn" {
				t.Fatalf("stderr lines should default to warn, got %q", entry.Level)
			}
			stderrWarn = true
		}
	}
	if !stdoutSeen || !stderrWarn {
		t.Fatalf("missing expected output lines (stdout=%v stderr=%v)", stdoutSeen, stderrWarn)
	}

	_ = handle.Wait(context.Background())
}

func TestInheritedStdioHasNoLogChannel(t *testing.T) {
	handle := startProcess(t, runtime.StartSpec{
		Name:         "quiet",
		Command:      []string{"sh", "-c", "exit 0"},
		InheritStdio: true,
	})
	if handle.Logs() != nil {
		t.Fatalf("inherited stdio must not capture output")
	}
	_ = handle.Wait(context.Background())
}
