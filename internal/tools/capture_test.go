package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkoterov/breeze/internal/artifact"
	"github.com/nkoterov/breeze/internal/browser"
	"github.com/nkoterov/breeze/internal/log"
)

type fakeEngine struct {
	lastReq browser.Request
	capture *browser.Capture
	err     error
}

func (e *fakeEngine) Capture(_ context.Context, req browser.Request, onPhase func(string)) (*browser.Capture, error) {
	e.lastReq = req
	onPhase("Navigating…")
	if e.err != nil {
		return nil, e.err
	}
	return e.capture, nil
}

type fakePutter struct {
	key         string
	data        []byte
	contentType string
	err         error
}

func (p *fakePutter) Put(_ context.Context, key string, data []byte, contentType string) error {
	p.key, p.data, p.contentType = key, data, contentType
	return p.err
}

func TestCapturerScreenshotSuccess(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{capture: &browser.Capture{
		Data:        []byte("png-bytes"),
		ContentType: "image/png",
		Width:       1280,
		Height:      2400,
		FinalURL:    "https://example.com/",
		Title:       "Example Domain",
	}}
	store := &fakePutter{}
	c := NewCapturer(engine, store, log.NewNop())

	var phases []string
	res := c.Screenshot(context.Background(), "sess-1234", CaptureOptions{URL: "example.com", TimeoutMs: 5000},
		func(p string) { phases = append(phases, p) })

	require.True(t, res.OK, "error: %s", res.Error)
	assert.Equal(t, "https://example.com", engine.lastReq.URL)
	assert.Equal(t, browser.KindScreenshot, engine.lastReq.Kind)
	assert.Equal(t, 5*time.Second, engine.lastReq.Timeout)
	assert.True(t, engine.lastReq.FullPage, "full page is the default")

	require.NoError(t, artifact.ValidateKey(res.Key))
	assert.True(t, strings.HasPrefix(res.Key, "files/sess-1234/"))
	assert.True(t, strings.HasSuffix(res.Key, ".png"))
	assert.Equal(t, "/"+res.Key, res.Path)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, len("png-bytes"), res.Bytes)
	assert.Equal(t, 1280, res.Width)
	assert.Equal(t, 2400, res.Height)
	assert.Equal(t, "Example Domain", res.Title)

	assert.Equal(t, res.Key, store.key)
	assert.Contains(t, phases, "Uploading…")
}

func TestCapturerPDFSuccess(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{capture: &browser.Capture{
		Data:        []byte("%PDF-1.7"),
		ContentType: "application/pdf",
	}}
	c := NewCapturer(engine, &fakePutter{}, log.NewNop())

	res := c.PDF(context.Background(), "sess-1234", CaptureOptions{URL: "https://example.com"}, nil)

	require.True(t, res.OK)
	assert.Equal(t, browser.KindPDF, engine.lastReq.Kind)
	assert.True(t, strings.HasSuffix(res.Key, ".pdf"))
}

func TestCapturerBadURLSkipsEngine(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{err: errors.New("should not be called")}
	c := NewCapturer(engine, &fakePutter{}, log.NewNop())

	res := c.Screenshot(context.Background(), "sess-1234", CaptureOptions{URL: "ftp://example.com"}, nil)

	assert.False(t, res.OK)
	assert.Equal(t, CodeBadURL, res.Code)
	assert.Empty(t, engine.lastReq.URL, "engine must not run for a bad URL")
}

func TestCapturerClassifiesEngineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code Code
	}{
		{
			"navigation timeout",
			&browser.NavigationError{Last: errors.New("Timeout 20000ms exceeded"), Timeout: true},
			CodeNavTimeout,
		},
		{
			"navigation failure",
			&browser.NavigationError{Last: errors.New("net::ERR_NAME_NOT_RESOLVED"), Timeout: false},
			CodeNavFail,
		},
		{
			"capture failure",
			&browser.CaptureError{Err: errors.New("page crashed")},
			CodeCaptureFail,
		},
		{
			"unexpected error",
			errors.New("something else"),
			CodeCaptureFail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewCapturer(&fakeEngine{err: tt.err}, &fakePutter{}, log.NewNop())

			res := c.Screenshot(context.Background(), "sess-1234", CaptureOptions{URL: "https://example.com"}, nil)

			assert.False(t, res.OK)
			assert.Equal(t, tt.code, res.Code)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestCapturerUploadFailure(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{capture: &browser.Capture{Data: []byte("x"), ContentType: "image/png"}}
	store := &fakePutter{err: errors.New("disk full")}
	c := NewCapturer(engine, store, log.NewNop())

	res := c.Screenshot(context.Background(), "sess-1234", CaptureOptions{URL: "https://example.com"}, nil)

	assert.False(t, res.OK)
	assert.Equal(t, CodeUploadFail, res.Code)
	assert.Contains(t, res.Error, "could not store")
}
