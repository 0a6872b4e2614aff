package extractor

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/teammeet/schedulesync/internal/store"
)

// ParseICS parses a text/calendar body into ParsedEvents, one per VEVENT.
// SUMMARY and DTSTART are required; a VEVENT missing either is skipped
// rather than failing the whole feed.
func ParseICS(body string) ([]ParsedEvent, error) {
	dec := ical.NewDecoder(strings.NewReader(body))
	cal, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode ics: %w", err)
	}

	var out []ParsedEvent
	for _, event := range cal.Events() {
		summary := propValue(event.Props, "SUMMARY")
		if summary == "" {
			continue
		}
		startAt, ok := parseICSTime(event.Props, "DTSTART")
		if !ok {
			continue
		}

		p := ParsedEvent{
			Title:   summary,
			StartAt: startAt,
			Status:  mapICSStatus(propValue(event.Props, "STATUS")),
		}
		if endAt, ok := parseICSTime(event.Props, "DTEND"); ok {
			p.EndAt = &endAt
		}
		if loc := propValue(event.Props, "LOCATION"); loc != "" {
			p.Location = &loc
		}
		out = append(out, p)
	}
	return out, nil
}

func propValue(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}

// parseICSTime interprets a DTSTART/DTEND value per spec §4.D: a Z-suffixed
// or TZID-qualified value converts to real UTC; a VALUE=DATE value or a
// floating (no Z, no TZID) value collapses to midnight UTC of that day.
func parseICSTime(props ical.Props, name string) (time.Time, bool) {
	prop := props.Get(name)
	if prop == nil || prop.Value == "" {
		return time.Time{}, false
	}

	raw := prop.Value
	isDateOnly := prop.Params.Get("VALUE") == "DATE" || len(raw) == 8

	if isDateOnly {
		if len(raw) < 8 {
			return time.Time{}, false
		}
		if t, err := time.ParseInLocation("20060102", raw[:8], time.UTC); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	if strings.HasSuffix(raw, "Z") {
		if t, err := time.ParseInLocation("20060102T150405Z", raw, time.UTC); err == nil {
			return t.UTC(), true
		}
		return time.Time{}, false
	}

	if tzid := prop.Params.Get("TZID"); tzid != "" {
		if loc, err := time.LoadLocation(tzid); err == nil {
			if t, err := time.ParseInLocation("20060102T150405", raw, loc); err == nil {
				return t.UTC(), true
			}
		}
	}

	// Floating local time with no resolvable zone: spec treats this as
	// midnight UTC of the specified day rather than guessing an offset.
	if len(raw) < 8 {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation("20060102", raw[:8], time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func mapICSStatus(raw string) store.ScheduleEventStatus {
	switch strings.ToUpper(raw) {
	case "CANCELLED":
		return store.ScheduleEventStatusCancelled
	case "TENTATIVE":
		return store.ScheduleEventStatusTentative
	default:
		return store.ScheduleEventStatusConfirmed
	}
}

// IsICSContent reports whether a Content-Type/body pair is calendar data: a
// text/calendar content type, or a body that begins with BEGIN:VCALENDAR.
func IsICSContent(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "text/calendar") {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(body), "BEGIN:VCALENDAR")
}
