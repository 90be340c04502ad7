package logmux

import (
	"fmt"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/groundctl/groundctl/internal/engine"
)

const defaultMaxFileSizeMB = 10

// Sink persists captured child output to one size-rotated file per process
// under the configured directory.
type Sink struct {
	dir        string
	maxSizeMB  int
	maxBackups int

	mu      sync.Mutex
	writers map[string]*lumberjack.Logger
}

// SinkOption customises sink behaviour.
type SinkOption func(*Sink)

// WithMaxFileSize caps individual log files at the given size in megabytes.
func WithMaxFileSize(mb int) SinkOption {
	return func(s *Sink) {
		if mb > 0 {
			s.maxSizeMB = mb
		}
	}
}

// WithMaxBackups caps how many rotated files are retained per process.
func WithMaxBackups(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.maxBackups = n
		}
	}
}

// NewSink constructs a sink rooted at dir. A nil sink is returned for an empty
// directory so callers can wire it unconditionally.
func NewSink(dir string, opts ...SinkOption) *Sink {
	if dir == "" {
		return nil
	}
	s := &Sink{
		dir:       dir,
		maxSizeMB: defaultMaxFileSizeMB,
		writers:   make(map[string]*lumberjack.Logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write appends a log event to the owning process's file. Non-log events are
// ignored. A nil sink is a no-op.
func (s *Sink) Write(evt engine.Event) error {
	if s == nil || evt.Type != engine.EventTypeLog {
		return nil
	}
	w := s.writer(evt.Process)
	line := fmt.Sprintf("%s %s %s\n",
		evt.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"), evt.Source, evt.Message)
	if _, err := w.Write([]byte(line)); err != nil {
		return fmt.Errorf("persist log for %s: %w", evt.Process, err)
	}
	return nil
}

func (s *Sink) writer(process string) *lumberjack.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.writers[process]; ok {
		return w
	}
	w := &lumberjack.Logger{
		Filename:   filepath.Join(s.dir, process+".log"),
		MaxSize:    s.maxSizeMB,
		MaxBackups: s.maxBackups,
	}
	s.writers[process] = w
	return w
}

// Close flushes and closes every per-process file. A nil sink is a no-op.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, w := range s.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.writers = make(map[string]*lumberjack.Logger)
	return firstErr
}
