package engine

import (
	"time"

	"github.com/groundctl/groundctl/internal/runtime"
)

// EventType captures lifecycle notifications emitted by the launcher and the
// deployment it manages.
type EventType string

const (
	EventTypeStarting EventType = "starting"
	EventTypeRunning  EventType = "running"
	EventTypeReady    EventType = "ready"
	EventTypeStopping EventType = "stopping"
	EventTypeStopped  EventType = "stopped"
	EventTypeExited   EventType = "exited"
	EventTypeLog      EventType = "log"
	EventTypeError    EventType = "error"
)

// Event represents a single lifecycle or log notification.
type Event struct {
	Timestamp time.Time
	Process   string
	Type      EventType
	Message   string
	Level     string
	Source    string
	Err       error
}

func sendEvent(events chan<- Event, process string, t EventType, level, message string, err error) {
	if events == nil {
		return
	}
	if level == "" {
		level = "info"
		if err != nil {
			level = "error"
		}
	}
	events <- Event{
		Timestamp: time.Now(),
		Process:   process,
		Type:      t,
		Message:   message,
		Level:     level,
		Source:    runtime.LogSourceSystem,
		Err:       err,
	}
}
