// Package session provides the per-conversation data model and its
// PostgreSQL persistence.
//
// A Session is one conversation, addressed by an opaque id shared between the
// client connection and durable storage. Messages are append-only; ordering is
// insertion order, with the ts field as a monotonic-enough ordering key.
package session

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// idPattern is the fixed charset/length pattern for client-supplied session ids.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ValidID reports whether id is an acceptable session identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Message is a single conversation message. Immutable once created.
//
// For user/assistant roles Content is raw text; for tool rows it is a
// JSON-encoded ToolEnvelope.
type Message struct {
	ID      uuid.UUID `json:"-"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// NewMessage creates a message with a fresh id and the current timestamp.
func NewMessage(role, content string) Message {
	return Message{
		ID:      uuid.New(),
		Role:    role,
		Content: content,
		TS:      time.Now(),
	}
}

// ToolEnvelope is the content shape persisted for tool messages.
type ToolEnvelope struct {
	Type   string          `json:"type"` // always "tool_result"
	Tool   string          `json:"tool"`
	Result json.RawMessage `json:"result"`
}

// NewToolMessage wraps a tool result into a tool-role message. The result is
// JSON-encoded into the envelope; encoding failure is reported rather than
// persisted as a mangled row.
func NewToolMessage(tool string, result any) (Message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Message{}, fmt.Errorf("encode tool result for %s: %w", tool, err)
	}
	content, err := json.Marshal(ToolEnvelope{Type: "tool_result", Tool: tool, Result: raw})
	if err != nil {
		return Message{}, fmt.Errorf("encode tool envelope for %s: %w", tool, err)
	}
	return NewMessage(RoleTool, string(content)), nil
}
