package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver scripts navigation outcomes keyed by "url|wait".
type fakeDriver struct {
	outcomes map[string]error
	calls    []string
}

func (d *fakeDriver) Goto(url, wait string, _ time.Duration) error {
	key := url + "|" + wait
	d.calls = append(d.calls, key)
	if err, ok := d.outcomes[key]; ok {
		return err
	}
	return nil
}

func (d *fakeDriver) Settle(time.Duration)                {}
func (d *fakeDriver) Screenshot(bool) ([]byte, error)     { return nil, nil }
func (d *fakeDriver) PDF(string, bool, float64) ([]byte, error) { return nil, nil }
func (d *fakeDriver) URL() string                         { return "" }
func (d *fakeDriver) Title() string                       { return "" }

var errTimeout = errors.New("Timeout 20000ms exceeded")
var errRefused = errors.New("net::ERR_CONNECTION_REFUSED")

func TestNormalizeWait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", WaitNetworkIdle},
		{"networkidle", WaitNetworkIdle},
		{"network-idle-0", WaitNetworkIdle},
		{"load", WaitLoad},
		{"LOAD", WaitLoad},
		{"domcontentloaded", WaitDOMContentLoaded},
		{"document-content-loaded", WaitDOMContentLoaded},
		{"nonsense", WaitNetworkIdle},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeWait(tt.in), "input %q", tt.in)
	}
}

func TestNavigateLadderStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{outcomes: map[string]error{
		"https://example.com|networkidle": errTimeout,
	}}

	attempts, err := navigateLadder(context.Background(), d, "https://example.com", "", 20*time.Second, func(string) {})

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "timeout", attempts[0].Outcome)
	assert.Equal(t, "ok", attempts[1].Outcome)
	assert.Equal(t, WaitLoad, attempts[1].WaitCondition)
}

func TestNavigateLadderStartsAtRequestedCondition(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{}
	attempts, err := navigateLadder(context.Background(), d, "https://example.com", "load", 20*time.Second, func(string) {})

	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, []string{"https://example.com|load"}, d.calls)
}

func TestNavigateWithFallbackTriesWWWVariant(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{outcomes: map[string]error{
		"https://example.com|networkidle":      errRefused,
		"https://example.com|load":             errRefused,
		"https://example.com|domcontentloaded": errRefused,
	}}

	var phases []string
	attempts, err := navigateWithFallback(context.Background(), d, "https://example.com", "", 20*time.Second, func(p string) {
		phases = append(phases, p)
	})

	require.NoError(t, err)
	assert.Len(t, attempts, 4) // 3 failures + 1 www success
	assert.Contains(t, d.calls, "https://www.example.com|networkidle")
	assert.Contains(t, phases, "Retrying with www…")
}

func TestNavigateWithFallbackSkipsWWWWhenAlreadyPrefixed(t *testing.T) {
	t.Parallel()

	d := &fakeDriver{outcomes: map[string]error{
		"https://www.example.com|networkidle":      errRefused,
		"https://www.example.com|load":             errRefused,
		"https://www.example.com|domcontentloaded": errRefused,
	}}

	_, err := navigateWithFallback(context.Background(), d, "https://www.example.com", "", 20*time.Second, func(string) {})

	var navErr *NavigationError
	require.ErrorAs(t, err, &navErr)
	assert.Len(t, navErr.Attempts, 3)
	assert.False(t, navErr.Timeout)
}

func TestNavigateWithFallbackClassifiesLastFailure(t *testing.T) {
	t.Parallel()

	t.Run("timeout when last failure is a timeout", func(t *testing.T) {
		t.Parallel()
		d := &fakeDriver{outcomes: map[string]error{
			"https://www.slow.test|networkidle":      errRefused,
			"https://www.slow.test|load":             errRefused,
			"https://www.slow.test|domcontentloaded": errTimeout,
		}}

		_, err := navigateWithFallback(context.Background(), d, "https://www.slow.test", "", time.Second, func(string) {})

		var navErr *NavigationError
		require.ErrorAs(t, err, &navErr)
		assert.True(t, navErr.Timeout)
	})

	t.Run("fail when last failure is not a timeout", func(t *testing.T) {
		t.Parallel()
		d := &fakeDriver{outcomes: map[string]error{
			"https://www.down.test|networkidle":      errTimeout,
			"https://www.down.test|load":             errTimeout,
			"https://www.down.test|domcontentloaded": errRefused,
		}}

		_, err := navigateWithFallback(context.Background(), d, "https://www.down.test", "", time.Second, func(string) {})

		var navErr *NavigationError
		require.ErrorAs(t, err, &navErr)
		assert.False(t, navErr.Timeout)
	})
}

func TestWithWWWHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://example.com/page", "https://www.example.com/page", true},
		{"http://example.com:8080/x", "http://www.example.com:8080/x", true},
		{"https://www.example.com", "", false},
		{"https://WWW.example.com", "", false},
		{"not a url at all \x7f", "", false},
	}
	for _, tt := range tests {
		got, ok := withWWWHost(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestWithDefaultsClampsTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero becomes default", 0, DefaultTimeout},
		{"below minimum clamps up", 200 * time.Millisecond, MinTimeout},
		{"above maximum clamps down", 5 * time.Minute, MaxTimeout},
		{"in range passes through", 30 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := withDefaults(Request{URL: "https://example.com", Kind: KindScreenshot, Timeout: tt.in})
			assert.Equal(t, tt.want, got.Timeout)
			assert.Equal(t, DefaultViewport, got.Viewport)
		})
	}
}
