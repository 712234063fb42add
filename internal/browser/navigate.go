package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Normalized wait conditions. Client-facing aliases ("network-idle-0",
// "document-content-loaded") are folded into these by normalizeWait.
const (
	WaitNetworkIdle      = "networkidle"
	WaitLoad             = "load"
	WaitDOMContentLoaded = "domcontentloaded"
)

// ladder is the ordered wait-condition fallback applied per host variant.
var ladder = []string{WaitNetworkIdle, WaitLoad, WaitDOMContentLoaded}

// Attempt records the outcome of a single navigation try. Diagnostic only;
// accumulated per capture call and logged, never persisted.
type Attempt struct {
	WaitCondition string
	Elapsed       time.Duration
	Outcome       string // "ok", "timeout" or "fail"
}

// NavigationError reports that every rung of the ladder failed.
type NavigationError struct {
	Attempts []Attempt
	Last     error
	Timeout  bool // last failure was a timeout
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed after %d attempts: %v", len(e.Attempts), e.Last)
}

func (e *NavigationError) Unwrap() error { return e.Last }

// CaptureError reports a post-navigation failure (screenshot or PDF render).
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("capture failed: %v", e.Err) }
func (e *CaptureError) Unwrap() error { return e.Err }

// pageDriver abstracts the page operations the ladder needs, so the retry
// logic is testable without a browser.
type pageDriver interface {
	Goto(url, waitCondition string, timeout time.Duration) error
	Settle(delay time.Duration)
	Screenshot(fullPage bool) ([]byte, error)
	PDF(format string, landscape bool, scale float64) ([]byte, error)
	URL() string
	Title() string
}

// normalizeWait folds client-facing wait condition aliases into the
// canonical set. Unknown values fall back to network idle.
func normalizeWait(wait string) string {
	switch strings.ToLower(strings.TrimSpace(wait)) {
	case "load":
		return WaitLoad
	case "domcontentloaded", "document-content-loaded", "dom-content-loaded":
		return WaitDOMContentLoaded
	default:
		return WaitNetworkIdle
	}
}

// navigateLadder walks the wait-condition ladder for one host variant,
// starting at the requested condition. Conditions earlier in the ladder than
// the requested one are skipped; the requested one always runs first.
func navigateLadder(ctx context.Context, d pageDriver, target, requested string, timeout time.Duration, onPhase func(string)) ([]Attempt, error) {
	conditions := ladderFrom(requested)

	var (
		attempts []Attempt
		lastErr  error
	)
	for i, wait := range conditions {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}
		if i == 0 {
			onPhase("Navigating…")
		} else {
			onPhase(fmt.Sprintf("Retrying with %s wait…", wait))
		}

		start := time.Now()
		err := d.Goto(target, wait, timeout)
		elapsed := time.Since(start)

		if err == nil {
			attempts = append(attempts, Attempt{WaitCondition: wait, Elapsed: elapsed, Outcome: "ok"})
			return attempts, nil
		}

		outcome := "fail"
		if isTimeout(err) {
			outcome = "timeout"
		}
		attempts = append(attempts, Attempt{WaitCondition: wait, Elapsed: elapsed, Outcome: outcome})
		lastErr = err
	}
	return attempts, lastErr
}

// ladderFrom returns the wait conditions to try, beginning at requested and
// continuing down the ladder.
func ladderFrom(requested string) []string {
	requested = normalizeWait(requested)
	for i, wait := range ladder {
		if wait == requested {
			return ladder[i:]
		}
	}
	return ladder
}

// navigateWithFallback runs the ladder against the target URL and, if every
// attempt fails and the host does not already start with "www.", once more
// against the www-prefixed host. On exhaustion it returns a *NavigationError
// classified by the kind of the last failure.
func navigateWithFallback(ctx context.Context, d pageDriver, target, requested string, timeout time.Duration, onPhase func(string)) ([]Attempt, error) {
	attempts, err := navigateLadder(ctx, d, target, requested, timeout, onPhase)
	if err == nil {
		return attempts, nil
	}
	if ctx.Err() != nil {
		return attempts, &NavigationError{Attempts: attempts, Last: err, Timeout: isTimeout(err)}
	}

	if wwwTarget, ok := withWWWHost(target); ok {
		onPhase("Retrying with www…")
		wwwAttempts, wwwErr := navigateLadder(ctx, d, wwwTarget, requested, timeout, onPhase)
		attempts = append(attempts, wwwAttempts...)
		if wwwErr == nil {
			return attempts, nil
		}
		err = wwwErr
	}

	return attempts, &NavigationError{Attempts: attempts, Last: err, Timeout: isTimeout(err)}
}

// withWWWHost rewrites the URL host to its www-prefixed variant. Returns
// false when the host already starts with www. or the URL is unparseable.
func withWWWHost(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := u.Hostname()
	if strings.HasPrefix(strings.ToLower(host), "www.") {
		return "", false
	}
	if port := u.Port(); port != "" {
		u.Host = "www." + host + ":" + port
	} else {
		u.Host = "www." + host
	}
	return u.String(), true
}

// isTimeout reports whether err looks like a navigation timeout. Playwright
// surfaces these as TimeoutError with a "Timeout ...ms exceeded" message.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
