package extractor

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// tableDefaultEnd is the fallback end offset for a table row, distinct
// from Normalize's general 1h default (spec §4.D).
const tableDefaultEnd = 2 * time.Hour

type tableColumn int

const (
	colDate tableColumn = iota
	colTime
	colOpponent
	colLocation
	colHome
	colAway
	colSport
	colGender
	colEventType
)

var columnMarkers = map[tableColumn][]string{
	colDate:      {"date"},
	colTime:      {"time"},
	colOpponent:  {"opponent", "event", "match"},
	colLocation:  {"location", "site", "facility", "venue"},
	colHome:      {"home"},
	colAway:      {"away"},
	colSport:     {"sport"},
	colGender:    {"gender"},
	colEventType: {"event type"},
}

// ParseTables extracts one ParsedEvent per <tbody tr> across every <table>
// in the page whose <thead th> headers resolve at least a date column.
// RowIndex is left nil: a row inserted or removed mid-table would otherwise
// shift every subsequent row's external_uid on the next sync. Only Vendor
// B's extraction path is known to need the row-index fold (see
// ParseTablesWithRowIndex); every other table-based connector must use this
// variant.
func ParseTables(html string) ([]ParsedEvent, error) {
	return parseTables(html, false)
}

// ParseTablesWithRowIndex is ParseTables with RowIndex populated on every
// row. Reserved for Vendor B, whose pages are known to produce duplicate
// (title, start, location) triples that only a row position can disambiguate.
func ParseTablesWithRowIndex(html string) ([]ParsedEvent, error) {
	return parseTables(html, true)
}

func parseTables(html string, withRowIndex bool) ([]ParsedEvent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var out []ParsedEvent
	rowIndex := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		columns := resolveColumns(table)
		if _, ok := columns[colDate]; !ok {
			return
		}

		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			get := func(col tableColumn) string {
				idx, ok := columns[col]
				if !ok || idx >= cells.Length() {
					return ""
				}
				return strings.TrimSpace(cells.Eq(idx).Text())
			}

			dateText := get(colDate)
			if dateText == "" {
				return
			}
			startAt, ok := CombineDateTime(dateText, get(colTime))
			if !ok {
				return
			}

			title := firstNonEmpty(
				get(colOpponent),
				buildSportTitle(get(colGender), get(colSport), get(colAway), get(colHome), get(colEventType)),
				"Event",
			)

			p := ParsedEvent{Title: title, StartAt: startAt}
			if withRowIndex {
				idx := rowIndex
				rowIndex++
				p.RowIndex = &idx
			}
			endAt := startAt.Add(tableDefaultEnd)
			p.EndAt = &endAt
			if loc := get(colLocation); loc != "" {
				p.Location = &loc
			}
			out = append(out, p)
		})
	})
	return out, nil
}

func buildSportTitle(gender, sport, away, home, eventType string) string {
	if gender == "" && sport == "" {
		return ""
	}
	prefix := strings.TrimSpace(strings.TrimSpace(gender) + " " + strings.TrimSpace(sport))
	var suffix string
	switch {
	case away != "" && home != "":
		suffix = away + " vs " + home
	case eventType != "":
		suffix = eventType
	default:
		return ""
	}
	return strings.TrimSpace(prefix) + " - " + suffix
}

func resolveColumns(table *goquery.Selection) map[tableColumn]int {
	columns := map[tableColumn]int{}
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		header := strings.ToLower(strings.TrimSpace(th.Text()))
		for col, markers := range columnMarkers {
			if _, already := columns[col]; already {
				continue
			}
			for _, marker := range markers {
				if strings.Contains(header, marker) {
					columns[col] = i
					break
				}
			}
		}
	})
	return columns
}
