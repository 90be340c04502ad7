// Package probe implements opt-in readiness probes used to gate ordered
// launches. A probe replaces the fixed stagger delay for a process; without
// one the launcher makes no readiness claim beyond "the delay elapsed".
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groundctl/groundctl/internal/config"
)

// Prober defines a single readiness check attempt.
type Prober interface {
	Probe(ctx context.Context) error
}

// New constructs a Prober for the supplied specification.
func New(spec *config.ProbeSpec) (Prober, error) {
	if spec == nil {
		return nil, nil
	}

	var probers []Prober
	if spec.TCP != nil {
		probers = append(probers, newTCPProber(spec.TCP))
	}
	if spec.HTTP != nil {
		probers = append(probers, newHTTPProber(spec.HTTP))
	}
	if spec.Command != nil {
		prober, err := newCommandProber(spec.Command)
		if err != nil {
			return nil, err
		}
		probers = append(probers, prober)
	}

	switch len(probers) {
	case 0:
		return nil, errors.New("probe: missing configuration")
	case 1:
		return probers[0], nil
	default:
		return nil, errors.New("probe: at most one probe kind may be configured")
	}
}

// Wait runs the prober until it has satisfied the success threshold, the
// failure threshold is exhausted, or the context is cancelled. It is a
// one-shot initial-readiness wait; there is no continuous watching once the
// process is considered ready.
func Wait(ctx context.Context, prober Prober, spec *config.ProbeSpec) error {
	if prober == nil || spec == nil {
		return nil
	}

	successNeeded := spec.SuccessThreshold
	if successNeeded <= 0 {
		successNeeded = 1
	}
	failureAllowed := spec.FailureThreshold
	if failureAllowed <= 0 {
		failureAllowed = 1
	}

	interval := spec.Interval.Duration
	timeout := spec.Timeout.Duration

	if gp := spec.GracePeriod.Duration; gp > 0 {
		timer := time.NewTimer(gp)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	successes := 0
	failures := 0
	var lastErr error

	for {
		attemptCtx := ctx
		cancel := func() {}
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		err := prober.Probe(attemptCtx)
		cancel()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err == nil {
			successes++
			if successes >= successNeeded {
				return nil
			}
		} else {
			if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
				err = fmt.Errorf("timeout after %s", timeout)
			}
			successes = 0
			failures++
			lastErr = err
			if failures >= failureAllowed {
				return fmt.Errorf("readiness not reached after %d attempts: %w", failures, lastErr)
			}
		}

		if interval <= 0 {
			continue
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
