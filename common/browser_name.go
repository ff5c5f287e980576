package common

import "strings"

// BrowserName identifies one of the browsers scopecheck can drive.
type BrowserName uint8

// The supported browsers, and the sentinel returned when none is usable.
const (
	BrowserUnsupported BrowserName = iota
	BrowserChrome
	BrowserFirefox
	BrowserEdge
	BrowserIE
)

var browserNames = [...]string{
	BrowserUnsupported: "Unsupported Browser",
	BrowserChrome:      "chrome",
	BrowserFirefox:     "firefox",
	BrowserEdge:        "edge",
	BrowserIE:          "ie",
}

// String returns the lowercase identifier of the browser.
func (b BrowserName) String() string {
	if int(b) >= len(browserNames) {
		return browserNames[BrowserUnsupported]
	}
	return browserNames[b]
}

// Supported reports whether b names a browser that can be launched.
func (b BrowserName) Supported() bool {
	return b > BrowserUnsupported && int(b) < len(browserNames)
}

// ParseBrowserName returns the browser named s. Matching is case
// insensitive; anything unknown maps to BrowserUnsupported.
func ParseBrowserName(s string) BrowserName {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, b := range CandidateBrowsers() {
		if browserNames[b] == s {
			return b
		}
	}
	return BrowserUnsupported
}

// CandidateBrowsers returns the browsers in the order they are tried.
func CandidateBrowsers() []BrowserName {
	return []BrowserName{BrowserChrome, BrowserFirefox, BrowserEdge, BrowserIE}
}
