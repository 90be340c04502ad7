//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// Stop delivers SIGTERM to the child's process group and waits for the exit to
// be observed. When a grace period is configured the wait is bounded and the
// group is SIGKILLed once it elapses; a zero grace period blocks until the
// child exits on its own. A non-zero exit status after a termination request
// is not treated as a stop failure.
func (p *processHandle) Stop(ctx context.Context) error {
	if p.cmd.Process == nil || p.exited() {
		return nil
	}

	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %s: %w", p.name, err)
	}

	if p.grace <= 0 {
		select {
		case <-p.waitDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-p.waitDone:
		return nil
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %s: %w", p.name, err)
	}
	select {
	case <-p.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
