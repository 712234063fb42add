package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkoterov/breeze/internal/llm"
	"github.com/nkoterov/breeze/internal/log"
	"github.com/nkoterov/breeze/internal/tools"
)

func TestSummarizePrefersModel(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{resp: &llm.Response{Text: "All done, here is your screenshot."}}
	s := NewSummarizer(client, "m", "prompt", 512, log.NewNop())

	got := s.Summarize(context.Background(), "", tools.ToolScreenshot, "screenshot example.com",
		tools.CaptureResult{OK: true, Title: "Example"})

	assert.Equal(t, "All done, here is your screenshot.", got)
}

func TestSummarizeFallsBackToTemplate(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{err: errors.New("backend down")}
	s := NewSummarizer(client, "m", "prompt", 512, log.NewNop())

	got := s.Summarize(context.Background(), "", tools.ToolScreenshot, "screenshot example.com",
		tools.CaptureResult{OK: true, Title: "Example Domain", Width: 1280, Height: 800, Bytes: 2048})

	assert.Contains(t, got, "Example Domain")
	assert.Contains(t, got, "1280×800")
	assert.Contains(t, got, "2.0 KB")
}

func TestSummarizeTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{resp: &llm.Response{Text: "Done."}}
	s := NewSummarizer(client, "m", "prompt", 512, log.NewNop())

	// A long multi-byte title forces the serialised result past the cap with
	// a rune straddling the cut point.
	title := strings.Repeat("日本語タイトル", 200)
	s.Summarize(context.Background(), "", tools.ToolScreenshot, "screenshot example.com",
		tools.CaptureResult{OK: true, Title: title})

	content := client.lastReq.Messages[1].Content
	_, serialized, found := strings.Cut(content, "Result: ")
	require.True(t, found)
	assert.LessOrEqual(t, len(serialized), maxSummaryResultChars)
	assert.True(t, utf8.ValidString(serialized))
}

func TestTemplateSummary(t *testing.T) {
	t.Parallel()

	t.Run("pdf success", func(t *testing.T) {
		t.Parallel()
		got := templateSummary(tools.ToolPDF, tools.CaptureResult{
			OK: true, URL: "https://example.com", Bytes: 3 << 20,
		})
		assert.Contains(t, got, "rendered a PDF of https://example.com")
		assert.Contains(t, got, "3.0 MB")
	})

	t.Run("timeout failure hints at retrying", func(t *testing.T) {
		t.Parallel()
		got := templateSummary(tools.ToolScreenshot, tools.CaptureResult{
			Error: "timed out loading https://slow.test", Code: tools.CodeNavTimeout,
		})
		assert.Contains(t, got, "timed out loading")
		assert.Contains(t, got, "longer timeout")
	})

	t.Run("bad url asks for a full address", func(t *testing.T) {
		t.Parallel()
		got := templateSummary(tools.ToolPDF, tools.CaptureResult{
			Error: `could not interpret "x" as a web address`, Code: tools.CodeBadURL,
		})
		assert.Contains(t, got, "https://example.com")
	})
}
