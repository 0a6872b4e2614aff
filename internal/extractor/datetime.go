package extractor

import (
	"regexp"
	"strings"
	"time"
)

// gluedDateTime matches a date immediately followed by an am/pm time with no
// separating space, e.g. "3/1/20257:00pm". A glued time without an am/pm
// suffix is not matched.
var gluedDateTime = regexp.MustCompile(`(?i)(\d{4}|\d{1,2}/\d{1,2}/\d{2,4})(\d{1,2}:\d{2}\s*[ap]m)`)

// bareAMPM matches an am/pm suffix glued directly onto the preceding
// digit, e.g. the "0pm" in "7:00pm" or "7:00PM", so a space can be put
// before the suffix. "7:00 pm" already has the space and is not matched.
var bareAMPM = regexp.MustCompile(`(?i)(\d)([ap]m)\b`)

var layouts = []string{
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"January 2, 2006 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"Mon Jan 2, 2006 3:04 PM",
	"2006-01-02 3:04 PM",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Mon Jan 2, 2006",
}

// CombineDateTime implements spec §4.D's date/time normalization: normalize
// whitespace, separate glued date+time and glued time+am/pm tokens, avoid
// double-concatenating a dateText that already carries a time, then attempt
// a single permissive parse. An unparseable combination returns false.
func CombineDateTime(dateText, timeText string) (time.Time, bool) {
	dateText = normalizeWhitespace(dateText)
	timeText = normalizeWhitespace(timeText)

	combined := dateText
	if timeText != "" && !strings.EqualFold(dateText, timeText) && !containsTime(dateText) {
		combined = dateText + " " + timeText
	}

	combined = gluedDateTime.ReplaceAllString(combined, "$1 $2")
	combined = bareAMPM.ReplaceAllString(combined, "$1 $2")
	combined = normalizeWhitespace(combined)

	for _, layout := range layouts {
		if t, err := time.Parse(layout, combined); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

var timeMarker = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*([ap]m)?`)

func containsTime(s string) bool {
	return timeMarker.MatchString(s)
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseRFC3339Loose accepts the handful of ISO-8601 shapes JSON-LD and
// embedded-JSON payloads use in the wild: a full offset datetime, a
// floating datetime (treated as UTC), or a bare date (midnight UTC).
func parseRFC3339Loose(raw string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
