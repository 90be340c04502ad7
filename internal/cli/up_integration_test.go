//go:build !windows

package cli

import (
	"bytes"
	stdcontext "context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeUpManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launch.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestUpSupervisesUntilNaturalExit(t *testing.T) {
	manifest := writeUpManifest(t, `
launch:
  name: flight-sim
  startDelay: 0s
  gracePeriod: 2s
processes:
  - name: proxy
    command: ["sh", "-c", "sleep 0.1"]
  - name: simulator
    command: ["sh", "-c", "sleep 0.1"]
`)

	out, err := runCommand(t, "up", "-f", manifest)
	if err != nil {
		t.Fatalf("up: %v\n%s", err, out)
	}
	if !strings.Contains(out, "shut down (exited)") {
		t.Fatalf("expected a natural-exit report, got:\n%s", out)
	}
	for _, name := range []string{"proxy", "simulator"} {
		if !strings.Contains(out, name) {
			t.Fatalf("report should list %s:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "code 0") {
		t.Fatalf("clean exits should report code 0:\n%s", out)
	}
}

func TestUpShutsDownOnCancellation(t *testing.T) {
	manifest := writeUpManifest(t, `
launch:
  name: flight-sim
  startDelay: 0s
  gracePeriod: 2s
processes:
  - name: proxy
    command: ["sh", "-c", "sleep 30"]
  - name: simulator
    command: ["sh", "-c", "sleep 30"]
`)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"up", "-f", manifest})

	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("up: %v\n%s", err, out.String())
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("shutdown took too long")
	}
	if !strings.Contains(out.String(), "shut down (signal)") {
		t.Fatalf("expected a signal-shutdown report, got:\n%s", out.String())
	}
}

func TestUpFailsFastOnMissingFiles(t *testing.T) {
	manifest := writeUpManifest(t, `
launch:
  name: flight-sim
requires:
  - simulator_config.yaml
processes:
  - name: proxy
    command: ["sh", "-c", "sleep 30"]
`)

	out, err := runCommand(t, "up", "-f", manifest)
	if err == nil {
		t.Fatalf("expected preflight failure, got:\n%s", out)
	}
	if !strings.Contains(err.Error(), "simulator_config.yaml") {
		t.Fatalf("error should name the missing file: %v", err)
	}
}

func TestUpPersistsPipedOutput(t *testing.T) {
	manifest := writeUpManifest(t, `
launch:
  name: flight-sim
  startDelay: 0s
processes:
  - name: proxy
    command: ["sh", "-c", "echo telemetry ready"]
    stdio: pipe
`)
	logDir := t.TempDir()

	out, err := runCommand(t, "up", "-f", manifest, "--log-dir", logDir)
	if err != nil {
		t.Fatalf("up: %v\n%s", err, out)
	}

	data, err := os.ReadFile(filepath.Join(logDir, "proxy.log"))
	if err != nil {
		t.Fatalf("read persisted log: %v", err)
	}
	if !strings.Contains(string(data), "telemetry ready") {
		t.Fatalf("persisted log missing output: %q", string(data))
	}
}

func TestBareInvocationRunsUp(t *testing.T) {
	manifest := writeUpManifest(t, `
launch:
  name: flight-sim
  startDelay: 0s
processes:
  - name: proxy
    command: ["sh", "-c", "true"]
`)

	out, err := runCommand(t, "-f", manifest)
	if err != nil {
		t.Fatalf("bare invocation: %v\n%s", err, out)
	}
	if !strings.Contains(out, "shut down (exited)") {
		t.Fatalf("expected the stack to launch and exit, got:\n%s", out)
	}
}
