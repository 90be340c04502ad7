package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestPreflightAllPresent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tcp_proxy.py")
	writeFile(t, dir, "tcp_simulator.py")
	writeFile(t, dir, "simulator_config.yaml")

	requires := []string{"tcp_proxy.py", "tcp_simulator.py", "simulator_config.yaml"}
	if err := Preflight(context.Background(), dir, requires, PreflightOptions{}); err != nil {
		t.Fatalf("preflight: %v", err)
	}
}

func TestPreflightReportsAllMissingFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tcp_proxy.py")

	requires := []string{"tcp_proxy.py", "tcp_simulator.py", "simulator_config.yaml"}
	err := Preflight(context.Background(), dir, requires, PreflightOptions{})

	var missing *MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFileError, got %v", err)
	}
	if len(missing.Files) != 2 {
		t.Fatalf("expected both missing files reported, got %v", missing.Files)
	}
	for _, want := range []string{"tcp_simulator.py", "simulator_config.yaml"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error should name %s: %v", want, err)
		}
	}
}

func TestPreflightWaitResolvesWhenFileAppears(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tcp_proxy.py")

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "simulator_config.yaml"), []byte("x"), 0o644)
	}()

	requires := []string{"tcp_proxy.py", "simulator_config.yaml"}
	err := Preflight(context.Background(), dir, requires,
		PreflightOptions{Wait: true, WaitTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("expected wait to resolve, got %v", err)
	}
}

func TestPreflightWaitTimesOut(t *testing.T) {
	dir := t.TempDir()

	start := time.Now()
	err := Preflight(context.Background(), dir, []string{"simulator_config.yaml"},
		PreflightOptions{Wait: true, WaitTimeout: 150 * time.Millisecond})

	var missing *MissingFileError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFileError after timeout, got %v", err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Fatalf("wait returned before the timeout elapsed")
	}
}
