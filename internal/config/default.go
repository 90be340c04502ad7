package config

import (
	"fmt"
	"os"
)

// Names of the flight-stack collaborators the built-in manifest launches and
// checks for. The proxy must be listening before the simulator connects to it,
// which the stagger delay approximates.
const (
	ProxyScript     = "tcp_proxy.py"
	SimulatorScript = "tcp_simulator.py"
	SimulatorConfig = "simulator_config.yaml"
)

// Default returns the built-in manifest equivalent to the original demo
// launcher: start the TCP proxy, give it a two second head start, then start
// the simulator. Required files are resolved against the current directory.
func Default() (*Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	doc := &Manifest{
		Version: "1",
		Launch: LaunchMeta{
			Name:            "flight-sim",
			ResolvedWorkdir: cwd,
		},
		Requires: []string{ProxyScript, SimulatorScript, SimulatorConfig},
		Processes: []*ProcessSpec{
			{Name: "proxy", Command: []string{"python3", ProxyScript}},
			{Name: "simulator", Command: []string{"python3", SimulatorScript}},
		},
	}
	if err := doc.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}
