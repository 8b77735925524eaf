package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/ryanelliottsmith/iperfcheck/pkg/types"
)

// ProgressPrinter renders run events as they arrive. In json mode every event
// is written as one JSON line, otherwise as a human-readable line.
type ProgressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
}

func NewProgressPrinter(w io.Writer, format string) *ProgressPrinter {
	return &ProgressPrinter{w: stdoutIfNil(w), format: format}
}

// Handle satisfies types.EventHandler.
func (p *ProgressPrinter) Handle(event *types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == FormatJSON {
		if err := json.NewEncoder(p.w).Encode(event); err != nil {
			fmt.Fprintf(p.w, "failed to emit event: %v\n", err)
		}
		return
	}

	if line := FormatEvent(event); line != "" {
		fmt.Fprintln(p.w, line)
	}
}

// FormatEvent returns the console line for an event, or "" for events that
// have no line of their own.
func FormatEvent(event *types.Event) string {
	switch event.Type {
	case types.EventTypeRunStart:
		n := 0
		if d, ok := event.Details.(map[string]interface{}); ok {
			n, _ = d["servers"].(int)
		}
		bold := color.New(color.Bold).SprintFunc()
		return fmt.Sprintf("⚡ Starting iPerf3 testing on %s servers\n", bold(n))
	case types.EventTypePortsClosed:
		return fmt.Sprintf("%s ❌ (all ports closed)", event.Server)
	case types.EventTypePortPassed:
		line := fmt.Sprintf("%s ✅ (port %d)", event.Server, event.Port)
		if event.Attempt > 1 {
			line += fmt.Sprintf(", attempt %d", event.Attempt)
		}
		return line
	case types.EventTypeAttemptFailed:
		return fmt.Sprintf("%s ❌ attempt %d on port %d: %s", event.Server, event.Attempt, event.Port, oneLine(event.Error))
	case types.EventTypePortFailed:
		return fmt.Sprintf("%s ❌ port %d failed: %s", event.Server, event.Port, oneLine(event.Error))
	case types.EventTypeServerError:
		return fmt.Sprintf("%s ❌ error: %s", event.Server, oneLine(event.Error))
	}
	return ""
}
