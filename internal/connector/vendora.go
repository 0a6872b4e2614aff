package connector

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/teammeet/schedulesync/internal/extractor"
	"github.com/teammeet/schedulesync/internal/fetcher"
	"github.com/teammeet/schedulesync/internal/reconciler"
	"github.com/teammeet/schedulesync/internal/store"
)

const VendorA = "vendorA"

// vendorAMarkers are URL/body substrings that imply Vendor A even on a
// host the allowlist hasn't recognized yet (a widget embedded elsewhere).
var vendorAMarkers = []string{"vendora", "vendora-sports"}

// vendorASubScheduleMarker flags a page that actually defers its real
// schedule data to a second-hop API endpoint.
const vendorASubScheduleMarker = "/api/schedule"

// VendorAConnector extracts via JSON-LD, then embedded JSON, then table,
// in that priority order, following a second hop when the page points at
// its own schedule API.
type VendorAConnector struct {
	fetcher   Fetcher
	allowlist AllowlistChecker
	store     reconciler.Store
	log       zerolog.Logger
}

func NewVendorA(f Fetcher, a AllowlistChecker, s reconciler.Store, log zerolog.Logger) *VendorAConnector {
	return &VendorAConnector{fetcher: f, allowlist: a, store: s, log: log}
}

func (c *VendorAConnector) CanHandle(ctx context.Context, in CanHandleInput) (CanHandleResult, error) {
	host := hostOnly(in.URL)
	vendorID := VendorA
	allowed, err := c.allowlist.IsHostAllowed(ctx, host, &vendorID)
	if err != nil {
		return CanHandleResult{}, err
	}
	if allowed {
		return CanHandleResult{OK: true, Confidence: 0.75, Reason: "vendor_allowlist"}, nil
	}
	if containsAnyMarker(in.URL, in.HTML, vendorAMarkers) {
		return CanHandleResult{OK: true, Confidence: 0.55, Reason: "marker"}, nil
	}
	return CanHandleResult{OK: false}, nil
}

func (c *VendorAConnector) Preview(ctx context.Context, in PreviewInput) (PreviewResult, error) {
	events, err := c.fetchAndParse(ctx, in.URL, in.OrgID, in.VendorHint)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Vendor: VendorA, Events: sortAndLimitPreview(events)}, nil
}

func (c *VendorAConnector) Sync(ctx context.Context, in SyncInput) (SyncResult, error) {
	events, err := c.fetchAndParse(ctx, in.URL, in.OrgID, nil)
	if err != nil {
		return SyncResult{}, err
	}
	result, err := reconciler.SyncScheduleEvents(ctx, c.store, c.log, reconciler.Input{
		OrgID: in.OrgID, SourceID: in.SourceID, Events: events, Window: in.Window,
	})
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Imported: result.Imported, Updated: result.Updated, Cancelled: result.Cancelled, Vendor: VendorA}, nil
}

func (c *VendorAConnector) fetchAndParse(ctx context.Context, url, orgID string, vendorHint *string) ([]store.ScheduleEvent, error) {
	res, err := c.fetcher.FetchURLSafe(ctx, url, fetcher.Options{
		Mode: fetcher.ModeFull, OrgID: orgIDPtr(orgID), VendorID: vendorHint,
	})
	if err != nil {
		return nil, err
	}

	body := res.Text
	if subURL, ok := findSubScheduleURL(body, vendorASubScheduleMarker); ok {
		subRes, err := c.fetcher.FetchURLSafe(ctx, subURL, fetcher.Options{
			Mode: fetcher.ModeFull, OrgID: orgIDPtr(orgID), VendorID: vendorHint,
		})
		if err == nil {
			body = subRes.Text
		}
	}

	return extractFromHTML(body, false)
}

// extractFromHTML runs the shared JSON-LD -> embedded JSON -> table
// extraction pipeline, stopping at the first stage that yields events.
// withRowIndex is only true for Vendor B, whose table fallback is known to
// produce duplicate (title, start, location) triples; every other caller
// must leave RowIndex unset so mid-table inserts/removals don't reshuffle
// external_uids on later rows.
func extractFromHTML(body string, withRowIndex bool) ([]store.ScheduleEvent, error) {
	if parsed, err := extractor.ParseJSONLD(body); err == nil && len(parsed) > 0 {
		return extractor.Normalize(parsed, []byte(body)), nil
	}
	if parsed := extractor.ParseEmbeddedJSON(body); len(parsed) > 0 {
		return extractor.Normalize(parsed, []byte(body)), nil
	}
	parseTables := extractor.ParseTables
	if withRowIndex {
		parseTables = extractor.ParseTablesWithRowIndex
	}
	parsed, err := parseTables(body)
	if err != nil {
		return nil, err
	}
	return extractor.Normalize(parsed, []byte(body)), nil
}

func containsAnyMarker(url, html string, markers []string) bool {
	haystack := strings.ToLower(url + " " + html)
	for _, m := range markers {
		if strings.Contains(haystack, m) {
			return true
		}
	}
	return false
}

// findSubScheduleURL returns the first quote- or space-delimited token in
// body that contains marker, the way a vendor page embeds a link to its own
// API. The token is returned as written: it is not resolved against the
// page URL and its origin is not checked.
func findSubScheduleURL(body, marker string) (string, bool) {
	idx := strings.Index(body, marker)
	if idx < 0 {
		return "", false
	}
	start := idx
	for start > 0 && body[start-1] != '"' && body[start-1] != '\'' && body[start-1] != ' ' {
		start--
	}
	end := idx
	for end < len(body) && body[end] != '"' && body[end] != '\'' && body[end] != ' ' {
		end++
	}
	candidate := strings.TrimSpace(body[start:end])
	if candidate == "" {
		return "", false
	}
	return candidate, true
}
