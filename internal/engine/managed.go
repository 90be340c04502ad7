package engine

import (
	"sync"
	"time"

	"github.com/groundctl/groundctl/internal/runtime"
)

// ProcessState is the lifecycle state of a managed process. Transitions follow
// Starting -> Running -> Stopping -> Stopped; a process that crashes before
// the launcher observes it running goes Starting -> Stopped directly. No other
// transition skips a state and Stopped is terminal.
type ProcessState string

const (
	StateStarting ProcessState = "starting"
	StateRunning  ProcessState = "running"
	StateStopping ProcessState = "stopping"
	StateStopped  ProcessState = "stopped"
)

// ManagedProcess tracks one launched child for the lifetime of a deployment.
// The handle is owned exclusively by the deployment; exit observations and
// termination requests are the only mutations.
type ManagedProcess struct {
	Name      string
	PID       int
	StartedAt time.Time

	handle runtime.Handle

	mu       sync.Mutex
	state    ProcessState
	exitCode int
	exited   bool
}

func newManagedProcess(name string, handle runtime.Handle) *ManagedProcess {
	return &ManagedProcess{
		Name:      name,
		PID:       handle.PID(),
		StartedAt: time.Now(),
		handle:    handle,
		state:     StateStarting,
	}
}

// State returns the current lifecycle state.
func (m *ManagedProcess) State() ProcessState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ExitCode returns the recorded exit code once the process has stopped.
func (m *ManagedProcess) ExitCode() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode, m.exited
}

func (m *ManagedProcess) markRunning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStarting {
		m.state = StateRunning
	}
}

func (m *ManagedProcess) markStopping() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStarting || m.state == StateRunning {
		m.state = StateStopping
	}
}

// markStopped records the terminal state and exit code. Once set the entity is
// immutable; repeated calls are no-ops.
func (m *ManagedProcess) markStopped(code int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateStopped {
		return false
	}
	m.state = StateStopped
	m.exitCode = code
	m.exited = true
	return true
}

// ProcessStatus is an immutable snapshot of a managed process.
type ProcessStatus struct {
	Name      string
	PID       int
	StartedAt time.Time
	State     ProcessState
	ExitCode  *int
}

// Status snapshots the process for reporting.
func (m *ManagedProcess) Status() ProcessStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := ProcessStatus{
		Name:      m.Name,
		PID:       m.PID,
		StartedAt: m.StartedAt,
		State:     m.state,
	}
	if m.exited {
		code := m.exitCode
		st.ExitCode = &code
	}
	return st
}
