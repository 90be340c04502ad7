package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/groundctl/groundctl/internal/config"
	"github.com/groundctl/groundctl/internal/metrics"
	"github.com/groundctl/groundctl/internal/probe"
	"github.com/groundctl/groundctl/internal/runtime"
)

const rollbackStopTimeout = 10 * time.Second

// Launcher brings up the manifest's processes strictly in declaration order
// and hands the running set over as a Deployment.
type Launcher struct {
	rt       runtime.Runtime
	manifest *config.Manifest
	events   chan<- Event

	sleep     func(context.Context, time.Duration) error
	probeWait func(context.Context, probe.Prober, *config.ProbeSpec) error
}

// NewLauncher constructs a launcher for the given manifest. Events are
// delivered to the supplied channel; the caller must keep draining it until
// the deployment has fully stopped.
func NewLauncher(rt runtime.Runtime, manifest *config.Manifest, events chan<- Event) *Launcher {
	return &Launcher{
		rt:        rt,
		manifest:  manifest,
		events:    events,
		sleep:     sleepWithContext,
		probeWait: probe.Wait,
	}
}

// Preflight checks the manifest's required files without launching anything.
func (l *Launcher) Preflight(ctx context.Context, opts PreflightOptions) error {
	return Preflight(ctx, l.manifest.Launch.ResolvedWorkdir, l.manifest.Requires, opts)
}

// Up launches each process in order, gating between launches with either the
// configured readiness probe of the process just started or the fixed stagger
// delay. If any step fails every already-launched process is stopped before
// the error is returned, so the caller never inherits unmanaged children.
func (l *Launcher) Up(ctx context.Context) (*Deployment, error) {
	dep := &Deployment{
		ID:     uuid.NewString(),
		Name:   l.manifest.Launch.Name,
		events: l.events,
	}

	specs := l.manifest.Processes
	for i, spec := range specs {
		sendEvent(l.events, spec.Name, EventTypeStarting, "", "starting process", nil)

		handle, err := l.rt.Start(ctx, buildStartSpec(l.manifest.Launch, spec))
		if err != nil {
			sendEvent(l.events, spec.Name, EventTypeError, "", "start failed", err)
			dep.rollback()
			return nil, &LaunchError{Process: spec.Name, Err: err}
		}

		mp := newManagedProcess(spec.Name, handle)
		mp.markRunning()
		metrics.SetProcessUp(spec.Name, true)
		dep.add(mp)
		dep.wg.Add(1)
		go dep.watch(mp)
		sendEvent(l.events, spec.Name, EventTypeRunning, "",
			fmt.Sprintf("started pid=%d", mp.PID), nil)

		if spec.Readiness != nil {
			if err := l.awaitReady(ctx, spec); err != nil {
				sendEvent(l.events, spec.Name, EventTypeError, "", "readiness failed", err)
				dep.rollback()
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, &LaunchError{Process: spec.Name, Err: err}
			}
			sendEvent(l.events, spec.Name, EventTypeReady, "", "process ready", nil)
		} else if i < len(specs)-1 {
			if delay := l.manifest.Launch.StartDelay.Duration; delay > 0 {
				sendEvent(l.events, spec.Name, EventTypeLog, "",
					fmt.Sprintf("head start %s before next launch", delay), nil)
				if err := l.sleep(ctx, delay); err != nil {
					dep.rollback()
					return nil, err
				}
			}
		}
	}

	metrics.IncLaunches()
	return dep, nil
}

func (l *Launcher) awaitReady(ctx context.Context, spec *config.ProcessSpec) error {
	prober, err := probe.New(spec.Readiness)
	if err != nil {
		return err
	}
	return l.probeWait(ctx, prober, spec.Readiness)
}

func buildStartSpec(meta config.LaunchMeta, spec *config.ProcessSpec) runtime.StartSpec {
	out := runtime.StartSpec{
		Name:         spec.Name,
		Workdir:      meta.ResolvedWorkdir,
		InheritStdio: spec.Stdio != config.StdioPipe,
		GracePeriod:  meta.GracePeriod.Duration,
	}
	if len(spec.Command) > 0 {
		out.Command = append([]string(nil), spec.Command...)
	}
	if len(spec.Env) > 0 {
		env := make(map[string]string, len(spec.Env))
		for k, v := range spec.Env {
			env[k] = v
		}
		out.Env = env
	}
	return out
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
