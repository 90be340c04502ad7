package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/groundctl/groundctl/internal/metrics"
	"github.com/groundctl/groundctl/internal/runtime"
)

// WaitReason explains why a deployment's wait returned.
type WaitReason string

const (
	// WaitReasonSignal means the wait context was cancelled, normally by an
	// interrupt or terminate signal.
	WaitReasonSignal WaitReason = "signal"
	// WaitReasonExited means every managed process exited on its own.
	WaitReasonExited WaitReason = "exited"
)

// LogSource pairs a process name with its captured output channel.
type LogSource struct {
	Name    string
	Entries <-chan runtime.LogEntry
}

// Deployment tracks the processes brought up by a single launch. It is the
// sole owner of their handles.
type Deployment struct {
	ID   string
	Name string

	events chan<- Event

	mu    sync.Mutex
	procs []*ManagedProcess

	wg       sync.WaitGroup
	stopping atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

func (d *Deployment) add(mp *ManagedProcess) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.procs = append(d.procs, mp)
}

func (d *Deployment) processes() []*ManagedProcess {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*ManagedProcess(nil), d.procs...)
}

// watch observes a single process until it exits, recording the terminal
// state. It is the only writer of exit codes.
func (d *Deployment) watch(mp *ManagedProcess) {
	defer d.wg.Done()

	err := mp.handle.Wait(context.Background())
	code := exitCode(err)
	mp.markStopped(code)
	metrics.SetProcessUp(mp.Name, false)

	switch {
	case d.stopping.Load():
		sendEvent(d.events, mp.Name, EventTypeStopped, "",
			fmt.Sprintf("process stopped (code %d)", code), nil)
	case code != 0:
		sendEvent(d.events, mp.Name, EventTypeExited, "warn",
			fmt.Sprintf("process exited unexpectedly (code %d)", code), err)
	default:
		sendEvent(d.events, mp.Name, EventTypeExited, "",
			"process exited", nil)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// LogSources returns the captured output channels of processes launched in
// pipe mode, in launch order. Inherited-stdio processes are omitted.
func (d *Deployment) LogSources() []LogSource {
	var sources []LogSource
	for _, mp := range d.processes() {
		if logs := mp.handle.Logs(); logs != nil {
			sources = append(sources, LogSource{Name: mp.Name, Entries: logs})
		}
	}
	return sources
}

// Wait blocks until every managed process has exited or the context is
// cancelled, and reports which happened. It does not initiate a shutdown; the
// caller follows up with Stop either way.
func (d *Deployment) Wait(ctx context.Context) WaitReason {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return WaitReasonSignal
	case <-done:
		return WaitReasonExited
	}
}

// Stop requests graceful termination of every process that has not yet
// stopped, in reverse launch order, and waits until all exits are observed.
// It is idempotent: repeat calls (for example from repeated signals) return
// the first result without re-signalling anything, and already-stopped
// processes are skipped.
func (d *Deployment) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		if ctx == nil {
			ctx = context.Background()
		}

		var firstErr error
		procs := d.processes()
		for i := len(procs) - 1; i >= 0; i-- {
			mp := procs[i]
			if mp.State() == StateStopped {
				continue
			}
			mp.markStopping()
			sendEvent(d.events, mp.Name, EventTypeStopping, "", "stopping process", nil)

			start := time.Now()
			if err := mp.handle.Stop(ctx); err != nil {
				sendEvent(d.events, mp.Name, EventTypeError, "", "stop failed", err)
				if firstErr == nil {
					firstErr = fmt.Errorf("stop process %s: %w", mp.Name, err)
				}
				continue
			}
			metrics.ObserveStopDuration(mp.Name, time.Since(start))
		}

		// Exit codes are recorded by the watch goroutines; wait for them so
		// the report is complete and no handle is left unreaped.
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			if firstErr == nil {
				firstErr = ctx.Err()
			}
		}

		metrics.IncStops()
		d.stopErr = firstErr
	})
	return d.stopErr
}

// rollback stops everything launched so far after a mid-launch failure.
func (d *Deployment) rollback() {
	ctx, cancel := context.WithTimeout(context.Background(), rollbackStopTimeout)
	defer cancel()
	_ = d.Stop(ctx)
}

// Report summarises the deployment's terminal state.
type Report struct {
	LaunchID  string
	Name      string
	Reason    WaitReason
	Processes []ProcessStatus
}

// Report snapshots every managed process, in launch order.
func (d *Deployment) Report(reason WaitReason) *Report {
	procs := d.processes()
	statuses := make([]ProcessStatus, 0, len(procs))
	for _, mp := range procs {
		statuses = append(statuses, mp.Status())
	}
	return &Report{
		LaunchID:  d.ID,
		Name:      d.Name,
		Reason:    reason,
		Processes: statuses,
	}
}
