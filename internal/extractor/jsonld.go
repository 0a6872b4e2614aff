package extractor

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/teammeet/schedulesync/internal/store"
)

// jsonLDDefaultEnd is the end offset given to a JSON-LD event with no usable
// endDate, the same 2h the table extractor uses.
const jsonLDDefaultEnd = 2 * time.Hour

// ParseJSONLD walks every <script type="application/ld+json"> block in the
// page, recursing into "@graph" arrays, and extracts one ParsedEvent per
// object whose "@type" is or contains "Event" (spec §4.D).
func ParseJSONLD(html string) ([]ParsedEvent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []ParsedEvent
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var parsed any
		if err := json.Unmarshal([]byte(sel.Text()), &parsed); err != nil {
			return
		}
		out = append(out, walkJSONLD(parsed)...)
	})
	return out, nil
}

func walkJSONLD(node any) []ParsedEvent {
	switch v := node.(type) {
	case []any:
		var out []ParsedEvent
		for _, item := range v {
			out = append(out, walkJSONLD(item)...)
		}
		return out
	case map[string]any:
		var out []ParsedEvent
		if graph, ok := v["@graph"]; ok {
			out = append(out, walkJSONLD(graph)...)
		}
		if isEventType(v["@type"]) {
			if p, ok := eventFromJSONLD(v); ok {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.Contains(v, "Event")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.Contains(s, "Event") {
				return true
			}
		}
	}
	return false
}

func eventFromJSONLD(obj map[string]any) (ParsedEvent, bool) {
	startRaw, _ := obj["startDate"].(string)
	if startRaw == "" {
		return ParsedEvent{}, false
	}
	startAt, ok := parseRFC3339Loose(startRaw)
	if !ok {
		return ParsedEvent{}, false
	}

	p := ParsedEvent{
		Title:   stringField(obj["name"]),
		StartAt: startAt,
		Status:  mapJSONLDStatus(stringField(obj["eventStatus"])),
	}
	endAt := startAt.Add(jsonLDDefaultEnd)
	if endRaw, _ := obj["endDate"].(string); endRaw != "" {
		if parsedEnd, ok := parseRFC3339Loose(endRaw); ok {
			endAt = parsedEnd
		}
	}
	p.EndAt = &endAt
	if loc, ok := jsonLDLocation(obj["location"]); ok {
		p.Location = &loc
	}
	return p, true
}

func jsonLDLocation(v any) (string, bool) {
	switch loc := v.(type) {
	case string:
		if loc != "" {
			return loc, true
		}
	case map[string]any:
		if name := stringField(loc["name"]); name != "" {
			return name, true
		}
		switch addr := loc["address"].(type) {
		case string:
			if addr != "" {
				return addr, true
			}
		case map[string]any:
			if street := stringField(addr["streetAddress"]); street != "" {
				return street, true
			}
		}
	}
	return "", false
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

func mapJSONLDStatus(raw string) store.ScheduleEventStatus {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "cancel"):
		return store.ScheduleEventStatusCancelled
	case strings.Contains(lower, "tentative") || strings.Contains(lower, "postponed"):
		return store.ScheduleEventStatusTentative
	default:
		return store.ScheduleEventStatusConfirmed
	}
}
