package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// InvalidURLError reports why a URL was rejected by NormalizeURL.
type InvalidURLError struct {
	Reason string
}

func (e *InvalidURLError) Error() string {
	return "invalid url: " + e.Reason
}

// NormalizeURL applies the canonicalization rules a schedule source URL must
// pass before it is ever dialed: scheme/host lowercased, default ports
// stripped, fragment removed, path and query left intact. Only http/https
// are accepted; webcal: is rewritten to https: per the calendar-subscription
// convention. Any explicit port other than 80 (http) or 443 (https) is
// rejected rather than silently kept, since the Safe Fetcher treats port as
// part of its allowlist/SSRF surface.
//
// NormalizeURL is pure and idempotent: NormalizeURL(NormalizeURL(x)) == NormalizeURL(x).
func NormalizeURL(raw string) (url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return url.URL{}, &InvalidURLError{Reason: fmt.Sprintf("parse: %v", err)}
	}

	scheme := lowerASCII(parsed.Scheme)
	if scheme == "webcal" {
		scheme = "https"
	}
	if scheme != "http" && scheme != "https" {
		return url.URL{}, &InvalidURLError{Reason: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}
	parsed.Scheme = scheme

	host := lowerASCII(parsed.Hostname())
	if host == "" {
		return url.URL{}, &InvalidURLError{Reason: "missing host"}
	}

	if port := parsed.Port(); port != "" {
		defaultPort := "80"
		if scheme == "https" {
			defaultPort = "443"
		}
		if port != defaultPort {
			return url.URL{}, &InvalidURLError{Reason: fmt.Sprintf("non-default port %q", port)}
		}
	}

	if strings.Contains(host, ":") {
		// An IPv6 literal keeps its brackets so Hostname() can split it again.
		parsed.Host = "[" + host + "]"
	} else {
		parsed.Host = host
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""

	return *parsed, nil
}

// lowerASCII converts ASCII characters to lowercase. A string with no
// uppercase ASCII letter is returned as is, without allocating.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
