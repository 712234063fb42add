// Package browser drives a headless Chromium page to a target URL and
// captures it as a raster screenshot or a paginated PDF.
//
// Navigation uses a layered retry ladder across wait conditions and host
// variants; see navigate.go. Both browser tools share this engine.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/nkoterov/breeze/internal/log"
)

// Kind selects the capture output.
type Kind string

const (
	KindScreenshot Kind = "screenshot"
	KindPDF        Kind = "pdf"
)

// Viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// DefaultViewport is used when the caller does not specify one.
var DefaultViewport = Viewport{Width: 1280, Height: 800}

// Timeout bounds for a single navigation attempt.
const (
	MinTimeout     = 1 * time.Second
	MaxTimeout     = 60 * time.Second
	DefaultTimeout = 20 * time.Second

	// settleDelay lets dynamic content paint after navigation settles.
	// Single-page apps often finish network activity before finishing
	// visual render.
	settleDelay = 1200 * time.Millisecond
)

// Request describes one capture call.
type Request struct {
	URL           string
	Kind          Kind
	WaitCondition string // normalized via normalizeWait; empty means network idle
	Timeout       time.Duration
	Viewport      Viewport

	// Screenshot options
	FullPage bool

	// PDF options
	PageFormat string // e.g. "A4", "Letter"; empty means the browser default
	Landscape  bool
	Scale      float64 // 0 means 1.0
}

// Capture is a successful capture.
type Capture struct {
	Data        []byte
	ContentType string
	Width       int // screenshot only
	Height      int // screenshot only
	FinalURL    string
	Title       string
}

// Engine owns the playwright runtime and a shared browser instance. Each
// capture runs in its own browser context, so concurrent sessions do not
// share cookies or page state.
type Engine struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	headless bool
	logger   log.Logger
}

// NewEngine starts playwright and launches Chromium.
func NewEngine(headless bool, logger log.Logger) (*Engine, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			logger.Warn("stopping playwright after launch failure", "error", stopErr)
		}
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &Engine{pw: pw, browser: b, headless: headless, logger: logger}, nil
}

// Close shuts down the browser and the playwright runtime.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.browser.Close(); err != nil {
		firstErr = fmt.Errorf("close browser: %w", err)
	}
	if err := e.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop playwright: %w", err)
	}
	return firstErr
}

// Capture navigates to req.URL and produces the requested artifact. onPhase
// is invoked synchronously at each named phase transition so callers can
// forward live status; it may be nil.
//
// Navigation failures return a *NavigationError; post-navigation capture
// failures return a *CaptureError. The caller classifies both into its own
// result contract.
func (e *Engine) Capture(ctx context.Context, req Request, onPhase func(string)) (*Capture, error) {
	phase := func(msg string) {
		if onPhase != nil {
			onPhase(msg)
		}
	}

	req = withDefaults(req)

	phase("Launching browser…")
	bctx, err := e.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: req.Viewport.Width, Height: req.Viewport.Height},
	})
	if err != nil {
		return nil, &CaptureError{Err: fmt.Errorf("new browser context: %w", err)}
	}
	defer func() {
		if closeErr := bctx.Close(); closeErr != nil {
			e.logger.Debug("closing browser context", "error", closeErr)
		}
	}()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, &CaptureError{Err: fmt.Errorf("new page: %w", err)}
	}

	driver := &playwrightDriver{page: page}
	attempts, navErr := navigateWithFallback(ctx, driver, req.URL, req.WaitCondition, req.Timeout, phase)
	for _, a := range attempts {
		e.logger.Debug("navigation attempt",
			"url", req.URL,
			"wait", a.WaitCondition,
			"elapsed_ms", a.Elapsed.Milliseconds(),
			"outcome", a.Outcome)
	}
	if navErr != nil {
		return nil, navErr
	}

	phase("Settling…")
	driver.Settle(settleDelay)

	var (
		data        []byte
		contentType string
	)
	switch req.Kind {
	case KindPDF:
		phase("Rendering…")
		data, err = driver.PDF(req.PageFormat, req.Landscape, req.Scale)
		contentType = "application/pdf"
	default:
		phase("Capturing…")
		data, err = driver.Screenshot(req.FullPage)
		contentType = "image/png"
	}
	if err != nil {
		return nil, &CaptureError{Err: err}
	}

	out := &Capture{
		Data:        data,
		ContentType: contentType,
		FinalURL:    driver.URL(),
		Title:       driver.Title(),
	}
	if req.Kind == KindScreenshot {
		if cfg, err := png.DecodeConfig(bytes.NewReader(data)); err == nil {
			out.Width = cfg.Width
			out.Height = cfg.Height
		}
	}
	return out, nil
}

// withDefaults clamps and defaults request fields.
func withDefaults(req Request) Request {
	if req.Timeout == 0 {
		req.Timeout = DefaultTimeout
	}
	if req.Timeout < MinTimeout {
		req.Timeout = MinTimeout
	}
	if req.Timeout > MaxTimeout {
		req.Timeout = MaxTimeout
	}
	if req.Viewport.Width <= 0 || req.Viewport.Height <= 0 {
		req.Viewport = DefaultViewport
	}
	if req.Scale == 0 {
		req.Scale = 1.0
	}
	return req
}

// playwrightDriver adapts a playwright page to the pageDriver interface.
type playwrightDriver struct {
	page playwright.Page
}

func (d *playwrightDriver) Goto(url, wait string, timeout time.Duration) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitUntilState(wait),
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (d *playwrightDriver) Settle(delay time.Duration) {
	d.page.WaitForTimeout(float64(delay.Milliseconds()))
}

func (d *playwrightDriver) Screenshot(fullPage bool) ([]byte, error) {
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("take screenshot: %w", err)
	}
	return data, nil
}

func (d *playwrightDriver) PDF(format string, landscape bool, scale float64) ([]byte, error) {
	opts := playwright.PagePdfOptions{
		Landscape:       playwright.Bool(landscape),
		Scale:           playwright.Float(scale),
		PrintBackground: playwright.Bool(true),
	}
	if format != "" {
		opts.Format = playwright.String(format)
	}
	data, err := d.page.PDF(opts)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return data, nil
}

func (d *playwrightDriver) URL() string {
	return d.page.URL()
}

func (d *playwrightDriver) Title() string {
	title, err := d.page.Title()
	if err != nil {
		return ""
	}
	return title
}

// waitUntilState maps a normalized wait condition to playwright's enum.
func waitUntilState(wait string) *playwright.WaitUntilState {
	switch wait {
	case WaitLoad:
		return playwright.WaitUntilStateLoad
	case WaitDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	default:
		return playwright.WaitUntilStateNetworkidle
	}
}
