package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWantsScreenshot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"take a screenshot of example.com", true},
		{"screen shot https://example.com please", true},
		{"can you capture that page for me", true},
		{"capture the whole site", true},
		{"I want an image of example.com", true},
		{"what's the weather in Lisbon", false},
		{"screenshot this", true},
		{"save example.com as pdf", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WantsScreenshot(tt.text), "text %q", tt.text)
	}
}

func TestWantsPDF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"save example.com as pdf", true},
		{"export to PDF", true},
		{"render that page as a pdf", true},
		{"make me a PDF of https://example.com", true},
		{"what's the weather", false},
		{"take a screenshot of example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WantsPDF(tt.text), "text %q", tt.text)
	}
}

func TestExtractURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"explicit url", "screenshot https://example.com/page as well", "https://example.com/page"},
		{"explicit wins over bare", "grab foo.com and https://bar.com too", "https://bar.com"},
		{"bare domain", "screenshot example.com for me", "example.com"},
		{"bare domain with path", "capture news.site.org/today please", "news.site.org/today"},
		{"first of several bare", "compare alpha.com and beta.com", "alpha.com"},
		{"nothing urlish", "just chatting about nothing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractURL(tt.text))
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"absolute https", "https://example.com/a", "https://example.com/a", true},
		{"absolute http", "http://example.com", "http://example.com", true},
		{"bare domain gains https", "example.com", "https://example.com", true},
		{"bare domain with path", "example.com/x/y", "https://example.com/x/y", true},
		{"whitespace trimmed", "  example.com  ", "https://example.com", true},
		{"non-http scheme rejected", "ftp://example.com", "", false},
		{"dotless token rejected", "localhost", "", false},
		{"empty rejected", "", "", false},
		{"spaces rejected", "not a url", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
