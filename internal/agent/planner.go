package agent

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/log"
	"github.com/nkoterov/breeze/internal/tools"
)

// completer is the non-streaming slice of the model client.
type completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// PlanCall is a planner decision to run the forecast tool.
type PlanCall struct {
	Tool string
	Args tools.WeatherArgs
}

// Planner asks the model whether the latest user turn is a forecast request.
// It is advisory only: every failure mode — transport error, bad status,
// no tool call, an unknown tool name — collapses to "no plan", and the turn
// falls through to the next dispatch stage.
type Planner struct {
	client       completer
	model        string
	systemPrompt string
	maxTokens    int
	logger       log.Logger
}

// NewPlanner creates a planner bound to model. systemPrompt is the base
// behaviour prompt; the planner instruction is appended per call.
func NewPlanner(client completer, model, systemPrompt string, maxTokens int, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Planner{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		logger:       logger,
	}
}

// Plan returns the forecast tool call for userText, or nil when the turn is
// not a forecast request or the planner call failed. model overrides the
// planner's default model when non-empty.
func (p *Planner) Plan(ctx context.Context, model string, history []llm.Message, userText string) *PlanCall {
	if model == "" {
		model = p.model
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: p.systemPrompt + plannerInstruction})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: userText})

	resp, err := p.client.Complete(ctx, llm.Request{
		Model:     model,
		Messages:  messages,
		Tools:     []llm.Tool{weatherToolSchema()},
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		p.logger.Debug("planner call failed, falling through", "error", err)
		return nil
	}

	// Only the first proposed call counts; a later forecast call behind an
	// unknown one does not rescue the turn.
	if len(resp.ToolCalls) == 0 {
		return nil
	}
	call := resp.ToolCalls[0]
	if call.Name != tools.ToolWeather {
		p.logger.Debug("planner proposed unknown tool, ignoring", "tool", call.Name)
		return nil
	}
	return &PlanCall{Tool: tools.ToolWeather, Args: decodeWeatherArgs(call.Arguments)}
}

// decodeWeatherArgs tolerates the two argument encodings backends produce: a
// JSON object, or that object serialised again as a JSON string. Anything
// malformed yields empty args and the forecast pipeline asks for a location.
func decodeWeatherArgs(raw json.RawMessage) tools.WeatherArgs {
	var args tools.WeatherArgs
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return args
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return tools.WeatherArgs{}
		}
		trimmed = []byte(inner)
	}
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return tools.WeatherArgs{}
	}
	return args
}
