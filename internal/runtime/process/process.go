package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/groundctl/groundctl/internal/runtime"
)

type runtimeImpl struct{}

// New constructs a runtime that executes children as local host processes.
func New() runtime.Runtime {
	return &runtimeImpl{}
}

func (r *runtimeImpl) Start(ctx context.Context, spec runtime.StartSpec) (runtime.Handle, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("process %s requires a command", spec.Name)
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	if spec.Workdir != "" {
		cmd.Dir = spec.Workdir
	}

	env := os.Environ()
	if len(spec.Env) > 0 {
		for k, v := range spec.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	cmd.Env = env

	inst := &processHandle{
		name:     spec.Name,
		cmd:      cmd,
		grace:    spec.GracePeriod,
		waitDone: make(chan struct{}),
	}

	var stdout, stderr io.ReadCloser
	if spec.InheritStdio {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		var err error
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("process %s stdout: %w", spec.Name, err)
		}
		stderr, err = cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("process %s stderr: %w", spec.Name, err)
		}
		inst.logs = make(chan runtime.LogEntry, 64)
	}

	configureCmdSysProcAttr(cmd)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start process %s: %w", spec.Name, err)
	}

	if inst.logs != nil {
		var wg sync.WaitGroup
		wg.Add(2)
		go inst.streamLogs(stdout, runtime.LogSourceStdout, &wg)
		go inst.streamLogs(stderr, runtime.LogSourceStderr, &wg)
		go func() {
			wg.Wait()
			close(inst.logs)
		}()
	}

	go func() {
		inst.waitErr = cmd.Wait()
		close(inst.waitDone)
	}()

	return inst, nil
}

type processHandle struct {
	name  string
	cmd   *exec.Cmd
	grace time.Duration
	logs  chan runtime.LogEntry

	waitErr  error
	waitDone chan struct{}
}

func (p *processHandle) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *processHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.waitDone:
		return p.waitErr
	}
}

func (p *processHandle) Logs() <-chan runtime.LogEntry {
	return p.logs
}

func (p *processHandle) streamLogs(r io.Reader, source string, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		entry := runtime.LogEntry{Timestamp: time.Now(), Message: line, Source: source}
		if source == runtime.LogSourceStderr {
			entry.Level = "warn"
		}
		p.logs <- entry
	}
}

// exited reports whether the OS wait has already completed.
func (p *processHandle) exited() bool {
	select {
	case <-p.waitDone:
		return true
	default:
		return false
	}
}
