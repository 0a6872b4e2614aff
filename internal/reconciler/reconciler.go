// Package reconciler implements syncScheduleEvents (spec §4.G): folding a
// batch of freshly-extracted events for one source into the persisted
// event set for that source's sync window, the way docs-crawler's
// internal/storage reconciles a crawl batch against prior page rows —
// dedupe incoming duplicates, diff against what's already there, upsert
// what survived, and cancel whatever dropped out of the window.
package reconciler

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/teammeet/schedulesync/internal/store"
)

const defaultEventDuration = 1 * time.Hour

// Store is the narrow persistence surface syncScheduleEvents needs.
type Store interface {
	LoadEventsInWindow(ctx context.Context, sourceID string, window store.SyncWindow) ([]store.ScheduleEvent, error)
	UpsertEventsBatch(ctx context.Context, events []store.ScheduleEvent) error
	CancelEvents(ctx context.Context, sourceID string, externalUIDs []string) (int, error)
}

// Result is the outcome returned to the caller (a connector's Sync, or the
// Source Runner directly).
type Result struct {
	Imported  int
	Updated   int
	Cancelled int
}

// Input bundles the parameters to SyncScheduleEvents.
type Input struct {
	OrgID    string
	SourceID string
	Events   []store.ScheduleEvent
	Window   store.SyncWindow
}

// SyncScheduleEvents dedupes events by ExternalUID (keeping the last
// occurrence), drops anything outside window, defaults a zero EndAt to
// StartAt+1h, diffs the survivors against what's already persisted for
// this source in the window, upserts the survivors, and cancels whatever
// previously-active row fell out of the survivor set.
func SyncScheduleEvents(ctx context.Context, s Store, log zerolog.Logger, in Input) (Result, error) {
	deduped := dedupe(in.Events, log)

	surviving := make([]store.ScheduleEvent, 0, len(deduped))
	for _, e := range deduped {
		if e.StartAt.Before(in.Window.From) || e.StartAt.After(in.Window.To) {
			continue
		}
		if e.EndAt.IsZero() {
			e.EndAt = e.StartAt.Add(defaultEventDuration)
		}
		e.OrgID = in.OrgID
		e.SourceID = in.SourceID
		surviving = append(surviving, e)
	}

	existing, err := s.LoadEventsInWindow(ctx, in.SourceID, in.Window)
	if err != nil {
		return Result{}, err
	}
	existingByUID := make(map[string]store.ScheduleEvent, len(existing))
	for _, e := range existing {
		existingByUID[e.ExternalUID] = e
	}

	var result Result
	survivingUIDs := make(map[string]struct{}, len(surviving))
	for _, e := range surviving {
		survivingUIDs[e.ExternalUID] = struct{}{}
		if _, ok := existingByUID[e.ExternalUID]; ok {
			result.Updated++
		} else {
			result.Imported++
		}
	}

	if len(surviving) > 0 {
		if err := s.UpsertEventsBatch(ctx, surviving); err != nil {
			return Result{}, err
		}
	}

	var toCancel []string
	for uid, e := range existingByUID {
		if e.Status == store.ScheduleEventStatusCancelled {
			continue
		}
		if _, stillPresent := survivingUIDs[uid]; !stillPresent {
			toCancel = append(toCancel, uid)
		}
	}
	sort.Strings(toCancel)

	if len(toCancel) > 0 {
		cancelled, err := s.CancelEvents(ctx, in.SourceID, toCancel)
		if err != nil {
			return Result{}, err
		}
		result.Cancelled = cancelled
	}

	log.Debug().
		Str("source_id", in.SourceID).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("cancelled", result.Cancelled).
		Msg("reconciled schedule events")

	return result, nil
}

// dedupe collapses events sharing an ExternalUID, keeping the last
// occurrence in input order (matching the order an extractor would have
// produced them — later rows win on accidental duplicate keys).
func dedupe(events []store.ScheduleEvent, log zerolog.Logger) []store.ScheduleEvent {
	order := make([]string, 0, len(events))
	byUID := make(map[string]store.ScheduleEvent, len(events))
	for _, e := range events {
		if _, seen := byUID[e.ExternalUID]; !seen {
			order = append(order, e.ExternalUID)
		} else {
			log.Debug().Str("external_uid", e.ExternalUID).Msg("dropped duplicate event row")
		}
		byUID[e.ExternalUID] = e
	}
	out := make([]store.ScheduleEvent, 0, len(order))
	for _, uid := range order {
		out = append(out, byUID[uid])
	}
	return out
}
