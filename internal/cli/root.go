package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groundctl/groundctl/internal/config"
	"github.com/groundctl/groundctl/internal/runtime"
	"github.com/groundctl/groundctl/internal/runtime/process"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var manifestPath string
	logCfg := logConfigFromEnv()

	root := &cobra.Command{
		Use:   "groundctl",
		Short: "Launcher and supervisor for the flight simulator stack",
		Long: "groundctl launches the flight stack's TCP proxy and simulator as ordered\n" +
			"child processes, verifies required files up front, and guarantees both are\n" +
			"shut down together on interrupt or terminate.",
	}

	root.PersistentFlags().
		StringVarP(&manifestPath, "file", "f", "launch.yaml", "Path to launch manifest (built-in flight-sim manifest when absent)")
	root.PersistentFlags().StringVar(&logCfg.Directory, "log-dir", logCfg.Directory, "Directory to persist captured child output")
	root.PersistentFlags().IntVar(&logCfg.MaxFileSizeMB, "log-max-file-size", logCfg.MaxFileSizeMB, "Maximum size of individual log files in megabytes before rotation")
	root.PersistentFlags().IntVar(&logCfg.MaxFiles, "log-max-files", logCfg.MaxFiles, "Maximum number of rotated log files to retain per process")

	ctx := &context{manifestPath: &manifestPath, logCfg: &logCfg}

	up := newUpCmd(ctx)
	root.AddCommand(up)
	root.AddCommand(newCheckCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	// Bare invocation launches the stack, matching the original script entry
	// point which took no arguments.
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runUp(cmd, ctx, upOptions{waitFilesTimeout: defaultWaitFilesTimeout})
	}

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint. Interrupt and terminate signals cancel the
// command context; the handler is released once execution completes.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	manifestPath *string
	logCfg       *logConfig

	runtimes runtime.Registry
}

type logConfig struct {
	Directory     string
	MaxFileSizeMB int
	MaxFiles      int
}

func (c *context) loadManifest() (*config.Manifest, string, error) {
	return config.LoadOrDefault(*c.manifestPath)
}

func (c *context) runtimeFor(name string) runtime.Runtime {
	if c.runtimes == nil {
		c.runtimes = runtime.Registry{
			"process": process.New(),
		}
	}
	return c.runtimes.Clone()[name]
}

func logConfigFromEnv() logConfig {
	cfg := logConfig{}
	cfg.Directory = os.Getenv("GROUNDCTL_LOG_DIR")
	if value := os.Getenv("GROUNDCTL_LOG_MAX_FILE_SIZE"); value != "" {
		if size, err := strconv.Atoi(value); err == nil && size > 0 {
			cfg.MaxFileSizeMB = size
		}
	}
	if value := os.Getenv("GROUNDCTL_LOG_MAX_FILES"); value != "" {
		if count, err := strconv.Atoi(value); err == nil && count > 0 {
			cfg.MaxFiles = count
		}
	}
	return cfg
}
