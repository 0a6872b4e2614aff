package extractor

import (
	"regexp"
	"strings"
)

// noisePatterns strip vendor-injected marketing/broadcast noise that
// shouldn't be part of a displayed title: stream/broadcast callouts and
// ticket-sales prefixes/suffixes, case-insensitive.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(live stream|livestream|broadcast)\s*[:\-]\s*`),
	regexp.MustCompile(`(?i)\s*[\(\[]\s*(live|streaming|stream|broadcast)\s*[\)\]]\s*$`),
	regexp.MustCompile(`(?i)\s*[-–—]\s*(buy tickets|tickets?( on sale)?)\s*$`),
	regexp.MustCompile(`(?i)^\s*(tickets?( on sale)?)\s*[:\-]\s*`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeTitle strips vendor-injected stream/broadcast/ticket noise from a
// raw title and collapses whitespace. The result is what the user sees;
// callers that need id stability across tightened sanitization rules
// should keep the pre-sanitized value as TitleForHash.
func SanitizeTitle(title string) string {
	out := title
	for _, p := range noisePatterns {
		out = p.ReplaceAllString(out, "")
	}
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
