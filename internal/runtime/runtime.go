package runtime

import (
	"context"
	"time"
)

// Log sources attached to entries surfaced by runtimes.
const (
	LogSourceStdout = "stdout"
	LogSourceStderr = "stderr"
	LogSourceSystem = "system"
)

// LogEntry represents a single line of output captured from a child process.
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Source    string
	Level     string
}

// StartSpec describes a single child process to launch.
type StartSpec struct {
	// Name identifies the process in events, logs and metrics.
	Name string

	// Command is the argv to execute. Command[0] is the executable.
	Command []string

	// Env holds additional environment variables layered over the
	// supervisor's own environment.
	Env map[string]string

	// Workdir is the working directory for the child.
	Workdir string

	// InheritStdio passes the supervisor's stdout/stderr straight through to
	// the child. When false both streams are captured and surfaced via Logs.
	InheritStdio bool

	// GracePeriod bounds how long Stop waits after a termination request
	// before escalating to a forced kill. Zero disables escalation; Stop then
	// blocks until the child exits on its own.
	GracePeriod time.Duration
}

// Handle is the supervisor-owned reference to a launched child process. No
// other component may terminate the process behind it.
type Handle interface {
	// PID returns the operating system process identifier.
	PID() int

	// Wait blocks until the process exits or the context is cancelled. It
	// returns the error reported by the OS wait; nil means a clean exit.
	Wait(ctx context.Context) error

	// Stop requests graceful termination and blocks until the process has
	// exited. Implementations must be idempotent and must tolerate a process
	// that has already exited.
	Stop(ctx context.Context) error

	// Logs returns captured output lines. The channel is closed once the
	// process has exited and its output is drained. A nil channel means stdio
	// was inherited and nothing is captured.
	Logs() <-chan LogEntry
}

// Runtime describes a backend capable of launching child processes.
type Runtime interface {
	// Start launches the described process and returns a handle to it.
	// Implementations should respect context cancellation and surface spawn
	// failures via returned errors.
	Start(ctx context.Context, spec StartSpec) (Handle, error)
}

// Registry maps runtime identifiers to their concrete implementations.
type Registry map[string]Runtime

// Clone returns a shallow copy of the registry, allowing callers to avoid
// accidental mutation of shared maps.
func (r Registry) Clone() Registry {
	dup := make(Registry, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}
