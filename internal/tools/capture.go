package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkoterov/breeze/internal/artifact"
	"github.com/nkoterov/breeze/internal/browser"
	"github.com/nkoterov/breeze/internal/log"
)

// captureEngine is the navigation/capture surface the pipelines need.
// Satisfied by *browser.Engine; tests substitute a script.
type captureEngine interface {
	Capture(ctx context.Context, req browser.Request, onPhase func(string)) (*browser.Capture, error)
}

// artifactPutter is the upload surface the pipelines need.
// Satisfied by *artifact.Store.
type artifactPutter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// CaptureOptions are the tool-facing options for a screenshot or PDF call.
type CaptureOptions struct {
	URL           string
	WaitCondition string
	TimeoutMs     int
	Viewport      *browser.Viewport

	// Screenshot
	FullPage *bool // nil means true

	// PDF
	PageFormat string
	Landscape  bool
	Scale      float64
}

// Capturer composes the navigation engine and the artifact store into the
// screenshot and PDF pipelines. All failure codes are terminal; the only
// retry logic is the engine's navigation ladder.
type Capturer struct {
	engine captureEngine
	store  artifactPutter
	logger log.Logger
}

// NewCapturer creates the capture pipelines.
func NewCapturer(engine captureEngine, store artifactPutter, logger log.Logger) *Capturer {
	return &Capturer{engine: engine, store: store, logger: logger}
}

// Screenshot captures a full-page raster of the target URL.
func (c *Capturer) Screenshot(ctx context.Context, sessionID string, opts CaptureOptions, onPhase func(string)) CaptureResult {
	return c.capture(ctx, sessionID, browser.KindScreenshot, opts, onPhase)
}

// PDF renders the target URL to a paginated document.
func (c *Capturer) PDF(ctx context.Context, sessionID string, opts CaptureOptions, onPhase func(string)) CaptureResult {
	return c.capture(ctx, sessionID, browser.KindPDF, opts, onPhase)
}

func (c *Capturer) capture(ctx context.Context, sessionID string, kind browser.Kind, opts CaptureOptions, onPhase func(string)) CaptureResult {
	if onPhase == nil {
		onPhase = func(string) {}
	}

	target, ok := NormalizeURL(opts.URL)
	if !ok {
		return captureFailure(CodeBadURL, fmt.Sprintf("could not interpret %q as a web address", opts.URL))
	}

	req := browser.Request{
		URL:           target,
		Kind:          kind,
		WaitCondition: opts.WaitCondition,
		Timeout:       time.Duration(opts.TimeoutMs) * time.Millisecond,
		FullPage:      true,
		PageFormat:    opts.PageFormat,
		Landscape:     opts.Landscape,
		Scale:         opts.Scale,
	}
	if opts.Viewport != nil {
		req.Viewport = *opts.Viewport
	}
	if opts.FullPage != nil {
		req.FullPage = *opts.FullPage
	}

	capture, err := c.engine.Capture(ctx, req, onPhase)
	if err != nil {
		return c.classify(target, err)
	}

	ext := "png"
	if kind == browser.KindPDF {
		ext = "pdf"
	}
	key := artifact.NewKey(sessionID, ext)

	onPhase("Uploading…")
	if err := c.store.Put(ctx, key, capture.Data, capture.ContentType); err != nil {
		c.logger.Warn("artifact upload failed", "key", key, "error", err)
		return captureFailure(CodeUploadFail, fmt.Sprintf("captured the page but could not store the file: %v", err))
	}

	return CaptureResult{
		OK:          true,
		Path:        "/" + key,
		Key:         key,
		ContentType: capture.ContentType,
		Bytes:       len(capture.Data),
		Width:       capture.Width,
		Height:      capture.Height,
		URL:         capture.FinalURL,
		Title:       capture.Title,
	}
}

// classify converts engine errors into the failure variant.
func (c *Capturer) classify(target string, err error) CaptureResult {
	var navErr *browser.NavigationError
	if errors.As(err, &navErr) {
		c.logger.Info("navigation exhausted",
			"url", target,
			"attempts", len(navErr.Attempts),
			"timeout", navErr.Timeout)
		if navErr.Timeout {
			return captureFailure(CodeNavTimeout, fmt.Sprintf("timed out loading %s", target))
		}
		return captureFailure(CodeNavFail, fmt.Sprintf("could not load %s: %v", target, navErr.Last))
	}

	var capErr *browser.CaptureError
	if errors.As(err, &capErr) {
		return captureFailure(CodeCaptureFail, fmt.Sprintf("loaded %s but the capture failed: %v", target, capErr.Err))
	}

	// Context cancellation and anything unexpected still end as a typed
	// failure; nothing escapes the pipeline boundary.
	return captureFailure(CodeCaptureFail, fmt.Sprintf("capture of %s failed: %v", target, err))
}
