package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/log"
	"github.com/nkoterov/breeze/internal/tools"
)

// maxSummaryResultChars bounds the serialised tool result handed to the
// model; artifact byte payloads never reach this path, so the cap only trims
// pathological titles or error strings.
const maxSummaryResultChars = 1800

// Summarizer turns a capture tool result into the user-facing assistant
// text. It tries the model first and falls back to a deterministic template
// when the model is unreachable or answers with nothing.
type Summarizer struct {
	client       completer
	model        string
	systemPrompt string
	maxTokens    int
	logger       log.Logger
}

// NewSummarizer creates a summarizer bound to model as its default.
func NewSummarizer(client completer, model, systemPrompt string, maxTokens int, logger log.Logger) *Summarizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Summarizer{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		logger:       logger,
	}
}

// Summarize produces one to three sentences describing a capture outcome.
// userQuery is the original user turn, res the tool result.
func (s *Summarizer) Summarize(ctx context.Context, model, tool, userQuery string, res tools.CaptureResult) string {
	if model == "" {
		model = s.model
	}
	if text, err := s.viaModel(ctx, model, tool, userQuery, res); err == nil {
		return text
	} else {
		s.logger.Debug("model summary failed, using template", "tool", tool, "error", err)
	}
	return templateSummary(tool, res)
}

func (s *Summarizer) viaModel(ctx context.Context, model, tool, userQuery string, res tools.CaptureResult) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("no model client configured")
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	serialized := string(payload)
	if len(serialized) > maxSummaryResultChars {
		// Back off to a rune boundary so the truncated JSON stays valid UTF-8.
		cut := maxSummaryResultChars
		for cut > 0 && !utf8.RuneStart(serialized[cut]) {
			cut--
		}
		serialized = serialized[:cut]
	}

	resp, err := s.client.Complete(ctx, llm.Request{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: s.systemPrompt},
			{Role: "user", Content: fmt.Sprintf("%s\n\nUser request: %s\nTool: %s\nResult: %s",
				summaryInstruction, userQuery, tool, serialized)},
		},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("model returned empty summary")
	}
	return text, nil
}

// templateSummary is the deterministic fallback.
func templateSummary(tool string, res tools.CaptureResult) string {
	verb := "captured a screenshot of"
	noun := "screenshot"
	if tool == tools.ToolPDF {
		verb = "rendered a PDF of"
		noun = "PDF"
	}

	if res.OK {
		subject := res.Title
		if subject == "" {
			subject = res.URL
		}
		var b strings.Builder
		fmt.Fprintf(&b, "I %s %s", verb, subject)
		if tool == tools.ToolScreenshot && res.Width > 0 && res.Height > 0 {
			fmt.Fprintf(&b, " at %d×%d", res.Width, res.Height)
		}
		if res.Bytes > 0 {
			fmt.Fprintf(&b, " (%s)", humanBytes(res.Bytes))
		}
		b.WriteString(".")
		return b.String()
	}

	var hint string
	switch res.Code {
	case tools.CodeBadURL:
		hint = "Please give me a full address, like https://example.com."
	case tools.CodeNavTimeout:
		hint = "The page took too long to load — you could try again with a longer timeout."
	case tools.CodeNavFail:
		hint = "The page could not be reached — the address may be wrong or the site down."
	default:
		hint = "You could try again in a moment."
	}
	if res.Error != "" {
		return fmt.Sprintf("The %s didn't work out (%s): %s %s", noun, res.Code, res.Error, hint)
	}
	return fmt.Sprintf("The %s didn't work out (%s). %s", noun, res.Code, hint)
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
