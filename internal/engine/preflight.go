package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PreflightOptions configure the required-file check.
type PreflightOptions struct {
	// Wait keeps watching for missing files instead of failing immediately.
	Wait bool
	// WaitTimeout bounds the wait; zero waits until the context is cancelled.
	WaitTimeout time.Duration
}

// Preflight verifies that every required file exists before anything is
// launched. Relative paths resolve against workdir. All missing files found in
// one pass are reported together. With the wait option the call blocks,
// re-checking on filesystem notifications, until the files appear or the
// timeout elapses.
func Preflight(ctx context.Context, workdir string, requires []string, opts PreflightOptions) error {
	paths := make([]string, 0, len(requires))
	for _, p := range requires {
		if !filepath.IsAbs(p) {
			p = filepath.Join(workdir, p)
		}
		paths = append(paths, filepath.Clean(p))
	}

	missing := missingFiles(paths)
	if len(missing) == 0 {
		return nil
	}
	if !opts.Wait {
		return &MissingFileError{Files: missing}
	}
	return waitForFiles(ctx, paths, missing, opts.WaitTimeout)
}

func missingFiles(paths []string) []string {
	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

func waitForFiles(ctx context.Context, paths, missing []string, timeout time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch required files: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]struct{})
	for _, p := range missing {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	// Notifications can race with the initial stat pass, so re-check on a
	// coarse ticker as well.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return &MissingFileError{Files: missingFiles(paths)}
		case err := <-watcher.Errors:
			return fmt.Errorf("watch required files: %w", err)
		case <-watcher.Events:
		case <-ticker.C:
		}
		if len(missingFiles(paths)) == 0 {
			return nil
		}
	}
}
