package engine

import (
	"fmt"
	"strings"
)

// MissingFileError reports required files that were absent at preflight time.
// All missing files discovered in one pass are reported together.
type MissingFileError struct {
	Files []string
}

func (e *MissingFileError) Error() string {
	switch len(e.Files) {
	case 0:
		return "missing required files"
	case 1:
		return fmt.Sprintf("missing required file: %s", e.Files[0])
	default:
		return fmt.Sprintf("missing required files: %s", strings.Join(e.Files, ", "))
	}
}

// LaunchError reports a failure to bring up the named process. By the time it
// is returned every previously launched process has been stopped again.
type LaunchError struct {
	Process string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch process %s: %v", e.Process, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
