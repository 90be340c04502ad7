package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/groundctl/groundctl/internal/engine"
	"github.com/groundctl/groundctl/internal/logmux"
)

const defaultWaitFilesTimeout = 30 * time.Second

type upOptions struct {
	waitFiles        bool
	waitFilesTimeout time.Duration
}

func newUpCmd(cctx *context) *cobra.Command {
	opts := upOptions{waitFilesTimeout: defaultWaitFilesTimeout}
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Launch the stack and supervise it until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd, cctx, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.waitFiles, "wait-files", false, "Wait for missing required files to appear instead of failing")
	cmd.Flags().DurationVar(&opts.waitFilesTimeout, "wait-files-timeout", opts.waitFilesTimeout, "How long to wait for required files with --wait-files")
	return cmd
}

func runUp(cmd *cobra.Command, cctx *context, opts upOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	manifest, source, err := cctx.loadManifest()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Launch %s loaded from %s\n", manifest.Launch.Name, source)

	events := make(chan engine.Event, 64)
	launcher := engine.NewLauncher(cctx.runtimeFor("process"), manifest, events)

	if err := launcher.Preflight(ctx, engine.PreflightOptions{
		Wait:        opts.waitFiles,
		WaitTimeout: opts.waitFilesTimeout,
	}); err != nil {
		return err
	}

	sink := logmux.NewSink(cctx.logCfg.Directory, sinkOptions(cctx.logCfg)...)
	defer sink.Close()

	renderer := newRenderer(out)
	mux := logmux.New(64)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for evt := range events {
			renderer.Render(evt)
			_ = sink.Write(evt)
		}
	}()
	go func() {
		defer wg.Done()
		for evt := range mux.Output() {
			renderer.Render(evt)
			_ = sink.Write(evt)
		}
	}()

	dep, err := launcher.Up(ctx)
	if err != nil {
		mux.Close()
		close(events)
		wg.Wait()
		if errors.Is(err, stdcontext.Canceled) && ctx.Err() != nil {
			// Interrupted mid-launch; everything started so far has already
			// been rolled back.
			return nil
		}
		return err
	}

	for _, src := range dep.LogSources() {
		mux.Add(src.Name, src.Entries)
	}

	reason := dep.Wait(ctx)

	// The stop itself is unbounded: per-process grace handling (and optional
	// SIGKILL escalation) lives in the runtime handle.
	stopErr := dep.Stop(stdcontext.Background())
	report := dep.Report(reason)

	mux.Close()
	close(events)
	wg.Wait()

	printReport(out, report)
	return stopErr
}

func sinkOptions(cfg *logConfig) []logmux.SinkOption {
	var opts []logmux.SinkOption
	if cfg.MaxFileSizeMB > 0 {
		opts = append(opts, logmux.WithMaxFileSize(cfg.MaxFileSizeMB))
	}
	if cfg.MaxFiles > 0 {
		opts = append(opts, logmux.WithMaxBackups(cfg.MaxFiles))
	}
	return opts
}

func printReport(out io.Writer, report *engine.Report) {
	fmt.Fprintf(out, "Launch %s (%s) shut down (%s)\n", report.Name, report.LaunchID, report.Reason)
	for _, st := range report.Processes {
		code := "-"
		if st.ExitCode != nil {
			code = fmt.Sprintf("%d", *st.ExitCode)
		}
		fmt.Fprintf(out, "  %-12s pid %-8d %-8s code %s\n", st.Name, st.PID, st.State, code)
	}
}
