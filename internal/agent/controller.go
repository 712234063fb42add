package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/log"
	"github.com/nkoterov/breeze/internal/session"
	"github.com/nkoterov/breeze/internal/tools"
)

// MessageStore is the durable persistence slice the controller needs.
// *session.Store satisfies it.
type MessageStore interface {
	EnsureSession(ctx context.Context, id, model string, expiresAt time.Time) error
	Append(ctx context.Context, id string, msg session.Message, expiresAt time.Time) error
	Messages(ctx context.Context, id string) ([]session.Message, error)
	DeleteAll(ctx context.Context, id string, expiresAt time.Time) error
}

// ArtifactPurger clears a session's stored captures. *artifact.Store
// satisfies it.
type ArtifactPurger interface {
	DeleteBySession(ctx context.Context, sessionID string) error
}

// Forecaster runs the forecast pipeline. *tools.Weather satisfies it.
type Forecaster interface {
	Lookup(ctx context.Context, args tools.WeatherArgs) tools.ForecastResult
}

// PageCapturer runs the browser pipelines. *tools.Capturer satisfies it.
type PageCapturer interface {
	Screenshot(ctx context.Context, sessionID string, opts tools.CaptureOptions, onPhase func(string)) tools.CaptureResult
	PDF(ctx context.Context, sessionID string, opts tools.CaptureOptions, onPhase func(string)) tools.CaptureResult
}

type chatPlanner interface {
	Plan(ctx context.Context, model string, history []llm.Message, userText string) *PlanCall
}

type chatRelay interface {
	Stream(ctx context.Context, model string, messages []llm.Message, onDelta func(string) error) string
}

type outcomeSummarizer interface {
	Summarize(ctx context.Context, model, tool, userQuery string, res tools.CaptureResult) string
}

// Options configures a session controller.
type Options struct {
	DefaultModel string
	SystemPrompt string
	HistoryLimit int
	TTL          time.Duration
	NavTimeoutMs int
}

// Deps bundles the controller's collaborators.
type Deps struct {
	Store      MessageStore
	Artifacts  ArtifactPurger
	Planner    chatPlanner
	Relay      chatRelay
	Summarizer outcomeSummarizer
	Forecast   Forecaster
	Capture    PageCapturer
	Logger     log.Logger
}

// Controller is the per-session actor. One controller exists per session id;
// its mutex serialises handlers, so a session processes one event at a time
// while distinct sessions run concurrently.
//
// Persistence is durable-first: a message is written to the store before the
// in-memory mirror is updated, so the mirror never claims history the
// database lost.
type Controller struct {
	sessionID string
	opts      Options
	deps      Deps
	logger    log.Logger

	mu    sync.Mutex
	state session.State
}

// NewController creates the controller for sessionID with empty state.
func NewController(sessionID string, opts Options, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Controller{
		sessionID: sessionID,
		opts:      opts,
		deps:      deps,
		logger:    logger.With("session_id", sessionID),
		state:     session.NewState(opts.DefaultModel, opts.TTL),
	}
}

// OnConnect prepares the session for a (re)connecting client: it ensures the
// durable session row exists, hydrates empty in-memory state from the message
// log, and emits the ready snapshot. Hydration only runs on empty state, so a
// reconnect mid-session does not clobber the live mirror.
func (c *Controller) OnConnect(ctx context.Context, sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.deps.Store.EnsureSession(ctx, c.sessionID, c.state.Model, time.Now().Add(c.opts.TTL)); err != nil {
		c.logger.Warn("ensure session failed", "error", err)
	}

	if c.state.Empty() {
		msgs, err := c.deps.Store.Messages(ctx, c.sessionID)
		if err != nil {
			c.logger.Warn("hydrate from store failed", "error", err)
		} else if len(msgs) > 0 {
			c.state = c.state.WithMessages(msgs, c.opts.TTL)
		}
	}

	state := c.state
	c.send(sink, Event{Type: EventReady, State: &state})
}

// OnEvent dispatches one inbound client event. Unknown types are ignored.
func (c *Controller) OnEvent(ctx context.Context, sink Sink, ev ClientEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case ClientEventModel:
		c.handleModel(ev.Model)
	case ClientEventReset:
		c.handleReset(ctx, sink)
	case ClientEventChat:
		c.handleChat(ctx, sink, ev.Text)
	default:
		c.logger.Debug("ignoring unknown client event", "type", ev.Type)
	}
}

// handleModel switches the session's model in memory. The choice applies to
// subsequent turns only; persisted history is untouched.
func (c *Controller) handleModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	c.state = c.state.WithModel(model)
	c.logger.Debug("model switched", "model", model)
}

// handleReset clears the session durably, then in memory. On a store failure
// nothing is cleared and no event is emitted, so the client's view stays
// consistent with the database. Stored captures are purged best-effort once
// the message log is gone; their keys are unreachable after the reset either
// way.
func (c *Controller) handleReset(ctx context.Context, sink Sink) {
	if err := c.deps.Store.DeleteAll(ctx, c.sessionID, time.Now().Add(c.opts.TTL)); err != nil {
		c.logger.Error("reset failed", "error", err)
		return
	}
	if c.deps.Artifacts != nil {
		if err := c.deps.Artifacts.DeleteBySession(ctx, c.sessionID); err != nil {
			c.logger.Warn("artifact purge failed", "error", err)
		}
	}
	c.state = session.NewState(c.state.Model, c.opts.TTL)
	c.send(sink, Event{Type: EventCleared})
}

// handleChat runs the dispatch cascade for one user turn:
// planner-selected forecast, screenshot intent, PDF intent, streaming chat.
// Every non-empty turn ends with exactly one terminal done event.
func (c *Controller) handleChat(ctx context.Context, sink Sink, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if err := c.persist(ctx, session.NewMessage(session.RoleUser, text)); err != nil {
		c.send(sink, Event{Type: EventDelta, Text: "Sorry — I couldn't save your message. Please try again."})
		c.send(sink, Event{Type: EventDone})
		return
	}

	history := c.recentHistory()
	// The user turn just mirrored is the last history entry; the planner
	// receives it separately as the turn under decision.
	planHistory := history
	if n := len(planHistory); n > 0 && planHistory[n-1].Role == session.RoleUser && planHistory[n-1].Content == text {
		planHistory = planHistory[:n-1]
	}

	if plan := c.deps.Planner.Plan(ctx, c.state.Model, planHistory, text); plan != nil {
		c.runForecast(ctx, sink, plan.Args)
		return
	}
	if tools.WantsScreenshot(text) {
		c.runCapture(ctx, sink, text, tools.ToolScreenshot)
		return
	}
	if tools.WantsPDF(text) {
		c.runCapture(ctx, sink, text, tools.ToolPDF)
		return
	}
	c.streamChat(ctx, sink, history)
}

// runForecast executes the forecast pipeline with a fixed preamble and tool
// lifecycle events around the lookup.
func (c *Controller) runForecast(ctx context.Context, sink Sink, args tools.WeatherArgs) {
	em := sinkEmitter{c: c, sink: sink}

	c.send(sink, Event{Type: EventDelta, Text: forecastPreamble})
	c.persistBestEffort(ctx, session.NewMessage(session.RoleAssistant, forecastPreamble))

	em.Started(tools.ToolWeather)
	em.Step(tools.ToolWeather, "Looking up the forecast…")

	res := c.deps.Forecast.Lookup(ctx, args)
	if res.OK {
		em.Done(tools.ToolWeather, res)
	} else {
		em.Error(tools.ToolWeather, res)
	}
	c.persistToolResult(ctx, tools.ToolWeather, res)

	text := res.Error
	if res.OK {
		text = tools.SummarizeForecast(res)
	}
	if text == "" {
		text = "I couldn't get that forecast — could you try rephrasing?"
	}

	c.send(sink, Event{Type: EventDelta, Text: text})
	c.send(sink, Event{Type: EventDone})
	c.persistBestEffort(ctx, session.NewMessage(session.RoleAssistant, text))
}

// runCapture executes a browser pipeline (screenshot or pdf) and closes the
// turn with a summarised outcome.
func (c *Controller) runCapture(ctx context.Context, sink Sink, userText, tool string) {
	em := sinkEmitter{c: c, sink: sink}
	em.Started(tool)

	opts := tools.CaptureOptions{
		URL:       tools.ExtractURL(userText),
		TimeoutMs: c.opts.NavTimeoutMs,
	}
	onPhase := func(msg string) { em.Step(tool, msg) }

	var res tools.CaptureResult
	if tool == tools.ToolPDF {
		res = c.deps.Capture.PDF(ctx, c.sessionID, opts, onPhase)
	} else {
		res = c.deps.Capture.Screenshot(ctx, c.sessionID, opts, onPhase)
	}

	if res.OK {
		em.Done(tool, res)
	} else {
		em.Error(tool, res)
	}
	c.persistToolResult(ctx, tool, res)

	summary := c.deps.Summarizer.Summarize(ctx, c.state.Model, tool, userText, res)
	c.send(sink, Event{Type: EventDelta, Text: summary})
	c.send(sink, Event{Type: EventDone})
	c.persistBestEffort(ctx, session.NewMessage(session.RoleAssistant, summary))
}

// streamChat relays a plain completion over the bounded history.
func (c *Controller) streamChat(ctx context.Context, sink Sink, history []llm.Message) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: c.opts.SystemPrompt})
	messages = append(messages, history...)

	full := c.deps.Relay.Stream(ctx, c.state.Model, messages, func(text string) error {
		return sink.Send(Event{Type: EventDelta, Text: text})
	})

	c.send(sink, Event{Type: EventDone})
	c.persistBestEffort(ctx, session.NewMessage(session.RoleAssistant, full))
}

// recentHistory maps the bounded user/assistant mirror into model messages.
// Tool messages are persisted but never replayed to the model.
func (c *Controller) recentHistory() []llm.Message {
	msgs := c.state.Recent(c.opts.HistoryLimit, session.RoleUser, session.RoleAssistant)
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// persist writes msg durably, then mirrors it into state.
func (c *Controller) persist(ctx context.Context, msg session.Message) error {
	if err := c.deps.Store.Append(ctx, c.sessionID, msg, time.Now().Add(c.opts.TTL)); err != nil {
		c.logger.Error("append message failed", "role", msg.Role, "error", err)
		return err
	}
	c.state = c.state.WithMessage(msg, c.opts.TTL)
	return nil
}

// persistBestEffort persists assistant-side messages. The client already saw
// the text, so a store failure degrades durability but not the live turn.
func (c *Controller) persistBestEffort(ctx context.Context, msg session.Message) {
	_ = c.persist(ctx, msg)
}

func (c *Controller) persistToolResult(ctx context.Context, tool string, result any) {
	msg, err := session.NewToolMessage(tool, result)
	if err != nil {
		c.logger.Error("encode tool result failed", "tool", tool, "error", err)
		return
	}
	c.persistBestEffort(ctx, msg)
}

func (c *Controller) send(sink Sink, ev Event) {
	if err := sink.Send(ev); err != nil {
		c.logger.Debug("event not delivered", "type", ev.Type, "error", err)
	}
}

// sinkEmitter adapts the client sink to the tool lifecycle protocol.
type sinkEmitter struct {
	c    *Controller
	sink Sink
}

var _ tools.Emitter = sinkEmitter{}

func (e sinkEmitter) Started(tool string) {
	e.c.send(e.sink, Event{Type: EventTool, Tool: tool, Status: ToolStatusStarted})
}

func (e sinkEmitter) Step(tool, message string) {
	e.c.send(e.sink, Event{Type: EventTool, Tool: tool, Status: ToolStatusStep, Message: message})
}

func (e sinkEmitter) Done(tool string, result any) {
	e.c.send(e.sink, Event{Type: EventTool, Tool: tool, Status: ToolStatusDone, Result: marshalResult(e.c.logger, result)})
}

func (e sinkEmitter) Error(tool string, result any) {
	e.c.send(e.sink, Event{Type: EventTool, Tool: tool, Status: ToolStatusError, Result: marshalResult(e.c.logger, result)})
}

func marshalResult(logger log.Logger, result any) json.RawMessage {
	raw, err := json.Marshal(result)
	if err != nil {
		logger.Error("marshal tool result failed", "error", err)
		return json.RawMessage(`{"ok":false,"error":"internal error"}`)
	}
	return raw
}
