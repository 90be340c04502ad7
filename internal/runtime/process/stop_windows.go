//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Stop is best-effort on Windows: an interrupt reaches the direct child only,
// and escalation terminates the top-level process rather than the whole tree.
func (p *processHandle) Stop(ctx context.Context) error {
	if p.cmd.Process == nil || p.exited() {
		return nil
	}

	_ = p.cmd.Process.Signal(os.Interrupt)

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

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %s: %w", p.name, err)
	}
	select {
	case <-p.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
