package page

import (
	"net/url"
	"strings"
)

// supportedHosts is the fixed allow-list of job boards the page operations
// know how to drive.
var supportedHosts = []string{
	"linkedin.com",
	"indeed.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"monster.com",
	"wellfound.com",
}

// SourceName returns the bare board domain for a supported URL, or "unknown".
func SourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range supportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return h
		}
	}
	return "unknown"
}

// SupportedSource reports whether rawURL points at a known job board.
// Subdomains count; unparseable URLs do not.
func SupportedSource(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range supportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
