package cli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigRendersBuiltinManifest(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "launch.yaml")

	out, err := runCommand(t, "config", "-f", missing)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "# source: builtin") {
		t.Fatalf("expected builtin source header, got %q", out)
	}
	for _, want := range []string{"tcp_proxy.py", "tcp_simulator.py", "simulator_config.yaml", "startDelay: 2s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered manifest missing %q:\n%s", want, out)
		}
	}
}

func TestConfigRendersLoadedManifestWithDefaults(t *testing.T) {
	_, manifest := writeStackFixture(t)

	out, err := runCommand(t, "config", "-f", manifest)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out, "# source: "+manifest) {
		t.Fatalf("expected manifest path in source header, got %q", out)
	}
	if !strings.Contains(out, "gracePeriod: 5s") {
		t.Fatalf("defaults should be visible in the effective manifest:\n%s", out)
	}
}
