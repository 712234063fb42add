package agent

import (
	"context"
	"strings"

	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/log"
)

// streamer is the streaming slice of the model client.
type streamer interface {
	Stream(ctx context.Context, req llm.Request, onDelta func(text string) error) (string, error)
}

// Relay runs the plain streaming chat path: forward every delta to the
// client as it arrives and hand back the accumulated text for persistence.
type Relay struct {
	client    streamer
	model     string
	maxTokens int
	logger    log.Logger
}

// NewRelay creates a relay bound to model as its default.
func NewRelay(client streamer, model string, maxTokens int, logger log.Logger) *Relay {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Relay{client: client, model: model, maxTokens: maxTokens, logger: logger}
}

// Stream relays one completion. Mid-stream errors are absorbed: whatever text
// already arrived is kept, and a wholly empty outcome is replaced with a
// fixed fallback so the turn never ends silent. The returned string is the
// exact text the client saw, ready to persist as the assistant turn.
func (r *Relay) Stream(ctx context.Context, model string, messages []llm.Message, onDelta func(text string) error) string {
	if model == "" {
		model = r.model
	}

	full, err := r.client.Stream(ctx, llm.Request{
		Model:     model,
		Messages:  messages,
		MaxTokens: r.maxTokens,
	}, onDelta)
	if err != nil {
		r.logger.Warn("chat stream ended with error", "error", err, "partial_len", len(full))
	}

	if strings.TrimSpace(full) == "" {
		if derr := onDelta(emptyStreamFallback); derr != nil {
			r.logger.Debug("fallback delta not delivered", "error", derr)
		}
		return emptyStreamFallback
	}
	return full
}
