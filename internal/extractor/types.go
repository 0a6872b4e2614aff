// Package extractor turns raw fetched bodies (ICS, JSON-LD, vendor-embedded
// JSON, HTML tables) into the store's ScheduleEvent shape, computing the
// stable external_uid every connector relies on for idempotent re-syncs
// (spec §4.D).
package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/teammeet/schedulesync/internal/store"
	"github.com/teammeet/schedulesync/pkg/hashutil"
)

// ParsedEvent is what every extractor emits, before end_at defaulting, title
// sanitization, and external_uid computation.
type ParsedEvent struct {
	Title        string
	TitleForHash string // pre-sanitization title, when the source distinguishes one; empty means "use Title"
	StartAt      time.Time
	EndAt        *time.Time
	Location     *string
	Status       store.ScheduleEventStatus
	// RowIndex is set only by extractors (the table extractor) whose
	// vendor routinely produces duplicate (title, start, location)
	// triples within a single page; it folds into the external_uid.
	RowIndex *int
}

// defaultEndOffset is applied when an extractor never discovered an end
// time at all. Individual extractors may supply their own default (the
// table and JSON-LD extractors use 2h) by setting EndAt themselves
// before calling Normalize.
const defaultEndOffset = 1 * time.Hour

// Normalize fills in end_at defaults, sanitizes titles, and computes each
// event's external_uid, producing the rows the reconciler persists.
func Normalize(parsed []ParsedEvent, raw []byte) []store.ScheduleEvent {
	out := make([]store.ScheduleEvent, 0, len(parsed))
	for _, p := range parsed {
		endAt := p.StartAt.Add(defaultEndOffset)
		if p.EndAt != nil {
			endAt = *p.EndAt
		}

		status := p.Status
		if status == "" {
			status = store.ScheduleEventStatusConfirmed
		}

		sanitizedTitle := SanitizeTitle(p.Title)
		titleForHash := p.TitleForHash
		if titleForHash == "" {
			titleForHash = p.Title
		}

		out = append(out, store.ScheduleEvent{
			ExternalUID: externalUID(titleForHash, p.StartAt, p.Location, p.RowIndex),
			Title:       sanitizedTitle,
			StartAt:     p.StartAt,
			EndAt:       endAt,
			Location:    p.Location,
			Status:      status,
			Raw:         raw,
		})
	}
	return out
}

// externalUID implements spec §4.D's stable id: SHA-256 hex over
// title_for_hash | start_at | location | (|rowIndex)?, where start_at is
// formatted as UTC RFC3339 and a missing location contributes "".
func externalUID(titleForHash string, startAt time.Time, location *string, rowIndex *int) string {
	loc := ""
	if location != nil {
		loc = *location
	}
	parts := []string{titleForHash, startAt.UTC().Format(time.RFC3339), loc}
	if rowIndex != nil {
		parts = append(parts, fmt.Sprintf("%d", *rowIndex))
	}
	sum, err := hashutil.HashBytes([]byte(strings.Join(parts, "|")), hashutil.HashAlgoSHA256)
	if err != nil {
		// HashBytes only fails for an unsupported algorithm, never for
		// HashAlgoSHA256, so this can't happen.
		panic(err)
	}
	return sum
}
