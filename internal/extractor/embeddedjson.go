package extractor

import (
	"encoding/json"
	"strings"
)

// embeddedPrefixes are the vendor-specific globals known to carry an
// "events" array inline in a <script> block, assigned as raw JS rather
// than JSON-LD (spec §4.D).
var embeddedPrefixes = []string{
	"window.__INITIAL_STATE__",
	"window.__SIDARM_DATA__",
	"window.__SCHEDULE_DATA__",
	"window.__DATA__",
}

// ParseEmbeddedJSON scans the body for any known "window.__X__ = {...}"
// assignment, extracts the balanced JSON object that follows the "=", and
// reads its "events" array.
func ParseEmbeddedJSON(body string) []ParsedEvent {
	var out []ParsedEvent
	for _, prefix := range embeddedPrefixes {
		idx := strings.Index(body, prefix)
		if idx < 0 {
			continue
		}
		rest := body[idx+len(prefix):]
		eq := strings.Index(rest, "=")
		if eq < 0 {
			continue
		}
		jsonText, ok := extractBalancedValue(rest[eq+1:])
		if !ok {
			continue
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
			continue
		}
		events, _ := payload["events"].([]any)
		for _, raw := range events {
			obj, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if p, ok := eventFromEmbedded(obj); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// extractBalancedValue finds the first '{' or '[' in s and returns the
// substring through its matching close, tracking string literals so braces
// inside quoted text don't throw off the balance count.
func extractBalancedValue(s string) (string, bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			start, open, close = i, '{', '}'
		case '[':
			start, open, close = i, '[', ']'
		case ' ', '\t', '\n', '\r':
			continue
		}
		if start >= 0 {
			break
		}
		return "", false
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func eventFromEmbedded(obj map[string]any) (ParsedEvent, bool) {
	title := firstNonEmpty(stringField(obj["title"]), stringField(obj["name"]))
	startRaw := firstNonEmpty(stringField(obj["start"]), stringField(obj["startDate"]), stringField(obj["startTime"]))
	if startRaw == "" {
		return ParsedEvent{}, false
	}
	startAt, ok := parseRFC3339Loose(startRaw)
	if !ok {
		return ParsedEvent{}, false
	}

	p := ParsedEvent{Title: title, StartAt: startAt}
	if endRaw := firstNonEmpty(stringField(obj["end"]), stringField(obj["endDate"])); endRaw != "" {
		if endAt, ok := parseRFC3339Loose(endRaw); ok {
			p.EndAt = &endAt
		}
	}
	if loc := stringField(obj["location"]); loc != "" {
		p.Location = &loc
	}
	return p, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
