package session

import "time"

// State is the in-memory snapshot of one session. It is an immutable value:
// every mutation returns a new snapshot, and the controller replaces its copy
// only after the matching durable write succeeded. A crash between the two
// therefore never loses a durably written message.
type State struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewState returns an empty snapshot with a fresh creation time and the
// rolling TTL started.
func NewState(model string, ttl time.Duration) State {
	now := time.Now()
	return State{
		Model:     model,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// WithModel returns a snapshot with the selected model replaced.
func (s State) WithModel(model string) State {
	s.Messages = cloneMessages(s.Messages)
	s.Model = model
	return s
}

// WithMessage returns a snapshot with msg appended and the TTL extended.
func (s State) WithMessage(msg Message, ttl time.Duration) State {
	msgs := make([]Message, 0, len(s.Messages)+1)
	msgs = append(msgs, s.Messages...)
	msgs = append(msgs, msg)
	s.Messages = msgs
	s.ExpiresAt = time.Now().Add(ttl)
	return s
}

// WithMessages returns a snapshot with the full message log replaced. Used
// when hydrating from durable storage on connect.
func (s State) WithMessages(msgs []Message, ttl time.Duration) State {
	s.Messages = cloneMessages(msgs)
	s.ExpiresAt = time.Now().Add(ttl)
	return s
}

// Empty reports whether the snapshot holds no messages.
func (s State) Empty() bool {
	return len(s.Messages) == 0
}

// Recent returns up to n of the most recent messages whose role is in roles.
// With no roles given, all roles qualify. Order is preserved.
func (s State) Recent(n int, roles ...string) []Message {
	allowed := func(role string) bool {
		if len(roles) == 0 {
			return true
		}
		for _, r := range roles {
			if r == role {
				return true
			}
		}
		return false
	}

	var filtered []Message
	for _, m := range s.Messages {
		if allowed(m.Role) {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
