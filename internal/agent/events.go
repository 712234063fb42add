// Package agent implements the session controller: the per-session actor
// that owns conversational state, the tool-dispatch cascade, the streaming
// response relay and the client event protocol.
package agent

import (
	"encoding/json"

	"github.com/nkoterov/breeze/internal/session"
)

// Inbound event types.
const (
	ClientEventModel = "model"
	ClientEventReset = "reset"
	ClientEventChat  = "chat"
)

// ClientEvent is one inbound JSON frame. Frames with an unknown type — or
// that fail to decode at all — are silently ignored by the controller.
type ClientEvent struct {
	Type  string `json:"type"`
	Model string `json:"model,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Outbound event types.
const (
	EventReady   = "ready"
	EventDelta   = "delta"
	EventDone    = "done"
	EventTool    = "tool"
	EventCleared = "cleared"
)

// Tool event statuses, emitted in fixed phase order:
// started → step(s) → done|error.
const (
	ToolStatusStarted = "started"
	ToolStatusStep    = "step"
	ToolStatusDone    = "done"
	ToolStatusError   = "error"
)

// Event is one outbound JSON frame.
type Event struct {
	Type string `json:"type"`

	// delta
	Text string `json:"text,omitempty"`

	// ready
	State *session.State `json:"state,omitempty"`

	// tool
	Tool    string          `json:"tool,omitempty"`
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Sink delivers outbound events to the connected client. The websocket layer
// implements it; tests capture events with a slice-backed fake.
type Sink interface {
	Send(ev Event) error
}
