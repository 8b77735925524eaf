package types

import "time"

type EventType string

const (
	EventTypeRunStart      EventType = "run_start"
	EventTypePortsClosed   EventType = "ports_closed"
	EventTypePortPassed    EventType = "port_passed"
	EventTypeAttemptFailed EventType = "attempt_failed"
	EventTypePortFailed    EventType = "port_failed"
	EventTypeServerError   EventType = "server_error"
	EventTypeComplete      EventType = "complete"
)

// Event is a progress notification emitted while a run is in flight.
type Event struct {
	Type      EventType   `json:"type"`
	Server    string      `json:"server,omitempty"`
	Address   string      `json:"address,omitempty"`
	Port      int         `json:"port,omitempty"`
	Attempt   int         `json:"attempt,omitempty"`
	Error     string      `json:"error,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"run_id,omitempty"`
}

// EventHandler receives progress events. Implementations must be safe for
// concurrent use; servers are tested in parallel.
type EventHandler func(*Event)

func RunStartEvent(runID string, servers int) *Event {
	return &Event{
		Type:      EventTypeRunStart,
		Details:   map[string]interface{}{"servers": servers},
		RunID:     runID,
		Timestamp: time.Now(),
	}
}

func PortsClosedEvent(server ServerSpec, ports []int) *Event {
	return &Event{
		Type:      EventTypePortsClosed,
		Server:    server.Name,
		Address:   server.Address,
		Details:   ports,
		Timestamp: time.Now(),
	}
}

func PortPassedEvent(server ServerSpec, port, attempt int) *Event {
	return &Event{
		Type:      EventTypePortPassed,
		Server:    server.Name,
		Address:   server.Address,
		Port:      port,
		Attempt:   attempt,
		Timestamp: time.Now(),
	}
}

func AttemptFailedEvent(server ServerSpec, port, attempt int, errMsg string) *Event {
	return &Event{
		Type:      EventTypeAttemptFailed,
		Server:    server.Name,
		Address:   server.Address,
		Port:      port,
		Attempt:   attempt,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

func PortFailedEvent(server ServerSpec, port, attempts int, errMsg string) *Event {
	return &Event{
		Type:      EventTypePortFailed,
		Server:    server.Name,
		Address:   server.Address,
		Port:      port,
		Attempt:   attempts,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

func ServerErrorEvent(server ServerSpec, errMsg string) *Event {
	return &Event{
		Type:      EventTypeServerError,
		Server:    server.Name,
		Address:   server.Address,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

func CompleteEvent(runID string, summary interface{}) *Event {
	return &Event{
		Type:      EventTypeComplete,
		Details:   summary,
		RunID:     runID,
		Timestamp: time.Now(),
	}
}
