package config

import (
	"fmt"
	"strings"
	"time"
)

// Stdio modes for a launched process.
const (
	// StdioInherit passes the launcher's own stdout/stderr to the child. This
	// is the default: child output reaches the console unlabelled and is never
	// captured by the launcher.
	StdioInherit = "inherit"
	// StdioPipe captures the child's output line by line so it can be
	// labelled, multiplexed and persisted.
	StdioPipe = "pipe"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Manifest mirrors the launch.yaml document structure.
type Manifest struct {
	Version   string         `yaml:"version"`
	Launch    LaunchMeta     `yaml:"launch"`
	Requires  []string       `yaml:"requires"`
	Processes []*ProcessSpec `yaml:"processes"`
}

// LaunchMeta contains launch-wide settings.
type LaunchMeta struct {
	Name    string `yaml:"name"`
	Workdir string `yaml:"workdir"`

	// StartDelay is the stagger inserted between ordered launches. It is an
	// ordering proxy only: the previous process is given a head start, not
	// verified ready. A readiness probe on the preceding process replaces it.
	StartDelay Duration `yaml:"startDelay"`

	// GracePeriod bounds the graceful stop of each process before the
	// launcher escalates to a forced kill. Zero disables escalation.
	GracePeriod Duration `yaml:"gracePeriod"`

	ResolvedWorkdir string `yaml:"-"`
}

// ProcessSpec describes an individual process in the launch order.
type ProcessSpec struct {
	Name      string            `yaml:"name"`
	Command   []string          `yaml:"command"`
	Env       map[string]string `yaml:"env"`
	Stdio     string            `yaml:"stdio"`
	Readiness *ProbeSpec        `yaml:"readiness"`
}

// ProbeSpec configures an optional readiness probe for a process.
type ProbeSpec struct {
	GracePeriod      Duration      `yaml:"gracePeriod"`
	Interval         Duration      `yaml:"interval"`
	Timeout          Duration      `yaml:"timeout"`
	FailureThreshold int           `yaml:"failureThreshold"`
	SuccessThreshold int           `yaml:"successThreshold"`
	TCP              *TCPProbe     `yaml:"tcp"`
	HTTP             *HTTPProbe    `yaml:"http"`
	Command          *CommandProbe `yaml:"cmd"`
}

// TCPProbe defines a TCP dial probe.
type TCPProbe struct {
	Address string `yaml:"address"`
}

// HTTPProbe defines an HTTP GET probe.
type HTTPProbe struct {
	URL          string `yaml:"url"`
	ExpectStatus []int  `yaml:"expectStatus"`
}

// CommandProbe defines a command probe.
type CommandProbe struct {
	Command []string `yaml:"command"`
}

// Clone creates a deep copy of the process specification.
func (p *ProcessSpec) Clone() *ProcessSpec {
	if p == nil {
		return nil
	}
	cp := &ProcessSpec{Name: p.Name, Stdio: p.Stdio}
	if len(p.Command) > 0 {
		cp.Command = append([]string(nil), p.Command...)
	}
	if len(p.Env) > 0 {
		cp.Env = make(map[string]string, len(p.Env))
		for k, v := range p.Env {
			cp.Env[k] = v
		}
	}
	cp.Readiness = p.Readiness.Clone()
	return cp
}

// Clone creates a deep copy of the probe specification.
func (p *ProbeSpec) Clone() *ProbeSpec {
	if p == nil {
		return nil
	}
	cp := *p
	if p.TCP != nil {
		tcp := *p.TCP
		cp.TCP = &tcp
	}
	if p.HTTP != nil {
		http := *p.HTTP
		if len(p.HTTP.ExpectStatus) > 0 {
			http.ExpectStatus = append([]int(nil), p.HTTP.ExpectStatus...)
		}
		cp.HTTP = &http
	}
	if p.Command != nil {
		cmd := *p.Command
		if len(p.Command.Command) > 0 {
			cmd.Command = append([]string(nil), p.Command.Command...)
		}
		cp.Command = &cmd
	}
	return &cp
}

// ApplyDefaults fills in launch-wide and per-process defaults.
func (m *Manifest) ApplyDefaults() error {
	if m.Launch.Name == "" {
		m.Launch.Name = "launch"
	}
	if !m.Launch.StartDelay.IsSet() {
		m.Launch.StartDelay = Duration{Duration: 2 * time.Second}
	}
	if !m.Launch.GracePeriod.IsSet() {
		m.Launch.GracePeriod = Duration{Duration: 5 * time.Second}
	}
	for i, proc := range m.Processes {
		if proc == nil {
			return fmt.Errorf("process %d is null", i)
		}
		proc.Stdio = strings.TrimSpace(strings.ToLower(proc.Stdio))
		if proc.Stdio == "" {
			proc.Stdio = StdioInherit
		}
		if proc.Readiness != nil {
			proc.Readiness.applyDefaults()
		}
	}
	return nil
}

func (p *ProbeSpec) applyDefaults() {
	if !p.Interval.IsSet() {
		p.Interval = Duration{Duration: 250 * time.Millisecond}
	}
	if !p.Timeout.IsSet() {
		p.Timeout = Duration{Duration: time.Second}
	}
	if p.FailureThreshold <= 0 {
		p.FailureThreshold = 40
	}
	if p.SuccessThreshold <= 0 {
		p.SuccessThreshold = 1
	}
}

// Validate checks the manifest for structural errors.
func (m *Manifest) Validate() error {
	if len(m.Processes) == 0 {
		return fmt.Errorf("manifest defines no processes")
	}
	seen := make(map[string]struct{}, len(m.Processes))
	for i, proc := range m.Processes {
		field := fmt.Sprintf("processes[%d]", i)
		if strings.TrimSpace(proc.Name) == "" {
			return fmt.Errorf("%s: name must not be empty", field)
		}
		if _, dup := seen[proc.Name]; dup {
			return fmt.Errorf("%s: duplicate process name %q", field, proc.Name)
		}
		seen[proc.Name] = struct{}{}
		if len(proc.Command) == 0 || strings.TrimSpace(proc.Command[0]) == "" {
			return fmt.Errorf("process %s: command must not be empty", proc.Name)
		}
		switch proc.Stdio {
		case StdioInherit, StdioPipe:
		default:
			return fmt.Errorf("process %s: invalid stdio mode %q", proc.Name, proc.Stdio)
		}
		if proc.Readiness != nil {
			if err := proc.Readiness.validate(); err != nil {
				return fmt.Errorf("process %s: readiness: %w", proc.Name, err)
			}
		}
	}
	for i, path := range m.Requires {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("requires[%d]: path must not be empty", i)
		}
	}
	return nil
}

func (p *ProbeSpec) validate() error {
	kinds := 0
	if p.TCP != nil {
		kinds++
		if strings.TrimSpace(p.TCP.Address) == "" {
			return fmt.Errorf("tcp probe requires an address")
		}
	}
	if p.HTTP != nil {
		kinds++
		if strings.TrimSpace(p.HTTP.URL) == "" {
			return fmt.Errorf("http probe requires a url")
		}
	}
	if p.Command != nil {
		kinds++
		if len(p.Command.Command) == 0 {
			return fmt.Errorf("cmd probe requires a command")
		}
	}
	switch kinds {
	case 0:
		return fmt.Errorf("missing probe configuration")
	case 1:
		return nil
	default:
		return fmt.Errorf("at most one probe kind may be configured")
	}
}
