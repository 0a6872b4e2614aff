// Package connector implements the per-vendor strategies (spec §4.E) that
// each expose canHandle/preview/sync, the way docs-crawler picks a parser
// strategy per content type — here the strategy also owns classification
// confidence and the second-hop fetch a vendor's page may require.
package connector

import (
	"context"
	"sort"
	"strings"

	"github.com/teammeet/schedulesync/internal/fetcher"
	"github.com/teammeet/schedulesync/internal/store"
)

const maxPreviewEvents = 20

// CanHandleInput is what a connector inspects to score itself against a
// candidate source. HTML and Headers are populated by the Registry after
// its own verify-mode fetch; a connector must not assume either is set.
type CanHandleInput struct {
	URL     string
	HTML    string
	Headers map[string]string
}

// CanHandleResult is a connector's self-assessed fitness for URL.
type CanHandleResult struct {
	OK         bool
	Confidence float64
	Reason     string
}

// PreviewInput drives a read-only preview fetch.
type PreviewInput struct {
	URL        string
	OrgID      string
	UserID     *string
	VendorHint *string
}

// PreviewResult is never written to the store.
type PreviewResult struct {
	Vendor       string
	Title        *string
	Events       []store.ScheduleEvent
	InferredMeta map[string]string
}

// SyncInput drives a connector's Sync, which fetches, normalizes, and
// defers to the Reconciler.
type SyncInput struct {
	SourceID string
	OrgID    string
	URL      string
	UserID   *string
	Window   store.SyncWindow
}

// SyncResult is the outcome the Source Runner persists onto the source row.
type SyncResult struct {
	Imported  int
	Updated   int
	Cancelled int
	Vendor    string
}

// Connector is the common strategy surface every vendor-specific
// implementation exposes.
type Connector interface {
	CanHandle(ctx context.Context, in CanHandleInput) (CanHandleResult, error)
	Preview(ctx context.Context, in PreviewInput) (PreviewResult, error)
	Sync(ctx context.Context, in SyncInput) (SyncResult, error)
}

// Fetcher is the narrow surface connectors need from the Safe Fetcher.
type Fetcher interface {
	FetchURLSafe(ctx context.Context, rawURL string, opts fetcher.Options) (fetcher.Result, error)
}

// AllowlistChecker is the narrow surface connectors need to decide whether
// a host is on a given vendor's (or the generic) allowlist.
type AllowlistChecker interface {
	IsHostAllowed(ctx context.Context, host string, vendorID *string) (bool, error)
}

func sortAndLimitPreview(events []store.ScheduleEvent) []store.ScheduleEvent {
	sort.Slice(events, func(i, j int) bool { return events[i].StartAt.Before(events[j].StartAt) })
	if len(events) > maxPreviewEvents {
		events = events[:maxPreviewEvents]
	}
	return events
}

// headerValue does a case-insensitive lookup into a header map keyed by
// whatever casing net/http canonicalized it to.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func orgIDPtr(orgID string) *string { return &orgID }
