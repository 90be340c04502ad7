package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/groundctl/groundctl/internal/engine"
)

// renderer prints events as human-readable lines. On a terminal timestamps
// are shortened to the time of day; otherwise full RFC3339 stamps are used so
// the output stays useful when redirected.
type renderer struct {
	mu         sync.Mutex
	out        io.Writer
	timeFormat string
}

func newRenderer(out io.Writer) *renderer {
	timeFormat := time.RFC3339
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		timeFormat = "15:04:05.000"
	}
	return &renderer{out: out, timeFormat: timeFormat}
}

func (r *renderer) Render(evt engine.Event) {
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	level := evt.Level
	if level == "" {
		level = "info"
	}
	msg := evt.Message
	if evt.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, evt.Err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if evt.Type == engine.EventTypeLog {
		fmt.Fprintf(r.out, "%s %-5s [%s] %s\n", ts.Format(r.timeFormat), level, evt.Process, msg)
		return
	}
	fmt.Fprintf(r.out, "%s %-5s [%s] %s: %s\n", ts.Format(r.timeFormat), level, evt.Process, evt.Type, msg)
}
