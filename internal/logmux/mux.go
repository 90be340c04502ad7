// Package logmux fans in captured output from multiple child processes and
// delivers it via a bounded channel. When downstream consumers cannot keep up
// the mux drops lines and emits a synthesized warning event surfacing the
// number of discarded entries.
package logmux

import (
	"fmt"
	"sync"
	"time"

	"github.com/groundctl/groundctl/internal/engine"
	"github.com/groundctl/groundctl/internal/runtime"
)

type Mux struct {
	out chan engine.Event

	mu     sync.Mutex
	drops  map[string]int
	inputs sync.WaitGroup
}

// New constructs a mux backed by a channel of the provided size. A size of
// zero results in a minimally buffered channel.
func New(size int) *Mux {
	if size <= 0 {
		size = 1
	}
	return &Mux{
		out:   make(chan engine.Event, size),
		drops: make(map[string]int),
	}
}

// Output exposes the muxed event channel.
func (m *Mux) Output() <-chan engine.Event {
	return m.out
}

// Add registers a process's captured output. The mux consumes entries until
// the source channel is closed.
func (m *Mux) Add(process string, source <-chan runtime.LogEntry) {
	if source == nil {
		return
	}
	m.inputs.Add(1)
	go func() {
		defer m.inputs.Done()
		for entry := range source {
			m.deliver(toEvent(process, entry))
		}
	}()
}

// Close waits for all sources to be drained, emits any pending drop metadata,
// and closes the output channel.
func (m *Mux) Close() {
	m.inputs.Wait()
	m.flushDrops()
	close(m.out)
}

func (m *Mux) deliver(evt engine.Event) {
	if !m.flushPending(evt.Process) {
		m.recordDrops(evt.Process, 1)
		return
	}
	if m.trySend(evt) {
		return
	}
	m.recordDrops(evt.Process, 1)
}

func (m *Mux) flushPending(process string) bool {
	for {
		count := m.takeDrops(process)
		if count == 0 {
			return true
		}
		if m.trySend(dropEvent(process, count)) {
			continue
		}
		m.recordDrops(process, count)
		return false
	}
}

func (m *Mux) takeDrops(process string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := m.drops[process]
	if count != 0 {
		delete(m.drops, process)
	}
	return count
}

func (m *Mux) recordDrops(process string, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops[process] += count
}

func (m *Mux) flushDrops() {
	m.mu.Lock()
	pending := m.drops
	m.drops = make(map[string]int)
	m.mu.Unlock()

	for process, count := range pending {
		if count > 0 {
			m.out <- dropEvent(process, count)
		}
	}
}

func (m *Mux) trySend(evt engine.Event) bool {
	select {
	case m.out <- evt:
		return true
	default:
		return false
	}
}

func toEvent(process string, entry runtime.LogEntry) engine.Event {
	evt := engine.Event{
		Timestamp: entry.Timestamp,
		Process:   process,
		Type:      engine.EventTypeLog,
		Message:   entry.Message,
		Level:     entry.Level,
		Source:    entry.Source,
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.Source == "" {
		evt.Source = runtime.LogSourceStdout
	}
	if evt.Level == "" {
		if evt.Source == runtime.LogSourceStderr {
			evt.Level = "warn"
		} else {
			evt.Level = "info"
		}
	}
	return evt
}

func dropEvent(process string, count int) engine.Event {
	return engine.Event{
		Timestamp: time.Now(),
		Process:   process,
		Type:      engine.EventTypeLog,
		Message:   fmt.Sprintf("dropped=%d", count),
		Level:     "warn",
		Source:    runtime.LogSourceSystem,
	}
}
