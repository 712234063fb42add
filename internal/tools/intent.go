package tools

import (
	"net/url"
	"regexp"
	"strings"
)

// Intent routing is a deterministic cascade over a closed set of patterns,
// not a model call: a URL is either present in the text or it isn't, so
// cheap local extraction is enough for the browser tools.

var (
	screenshotPattern = regexp.MustCompile(`(?i)\b(screen\s?shot|capture\s+(?:\S+\s+){0,3}?(?:page|site|website|screen)|image\s+of)\b`)

	pdfPattern = regexp.MustCompile(`(?i)\b(export\s+to\s+pdf|save\s+as\s+pdf|render\s+(?:\S+\s+){0,3}?pdf|pdf)\b`)

	// explicitURLPattern matches scheme'd URLs anywhere in the text.
	explicitURLPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

	// bareDomainPattern matches domain-like tokens with an optional path.
	bareDomainPattern = regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}(?:/[^\s<>"')\]]*)?`)
)

// WantsScreenshot reports whether text reads as a screenshot request.
func WantsScreenshot(text string) bool {
	return screenshotPattern.MatchString(text)
}

// WantsPDF reports whether text reads as a PDF-render request.
func WantsPDF(text string) bool {
	return pdfPattern.MatchString(text)
}

// ExtractURL finds the first URL-looking token in text. Explicit http(s)
// URLs win over bare domain-like tokens; among equals the leftmost wins.
// Returns "" when nothing URL-like is present.
func ExtractURL(text string) string {
	if m := explicitURLPattern.FindString(text); m != "" {
		return m
	}
	return bareDomainPattern.FindString(text)
}

// NormalizeURL trims raw and returns an absolute http(s) URL. A token
// without a scheme is retried with an https:// prefix. Inputs that still do
// not parse to a host report ok=false; callers classify that as BAD_URL
// before any browser session is opened.
func NormalizeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if u, err := url.Parse(raw); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return u.String(), true
	}
	if strings.Contains(raw, "://") {
		// Explicit non-http scheme; not a navigable target.
		return "", false
	}

	prefixed := "https://" + raw
	if u, err := url.Parse(prefixed); err == nil && u.Host != "" && strings.Contains(u.Hostname(), ".") {
		return u.String(), true
	}
	return "", false
}
