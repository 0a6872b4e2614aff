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

const VendorGeneric = "generic"

// embeddedScheduleMarkers are URL substrings that flag a page as deferring
// its real schedule data to an embedded third-party endpoint.
var embeddedScheduleMarkers = []string{"sidearmsports.com", "prestosports.com", "vendora.com"}

// GenericConnector only ever handles a host that's on the generic
// allowlist AND whose body actually produces at least one table event —
// it never claims a page it can't demonstrably parse.
type GenericConnector struct {
	fetcher   Fetcher
	allowlist AllowlistChecker
	store     reconciler.Store
	log       zerolog.Logger
}

func NewGeneric(f Fetcher, a AllowlistChecker, s reconciler.Store, log zerolog.Logger) *GenericConnector {
	return &GenericConnector{fetcher: f, allowlist: a, store: s, log: log}
}

func (c *GenericConnector) CanHandle(ctx context.Context, in CanHandleInput) (CanHandleResult, error) {
	host := hostOnly(in.URL)
	allowed, err := c.allowlist.IsHostAllowed(ctx, host, nil)
	if err != nil {
		return CanHandleResult{}, err
	}
	if !allowed {
		return CanHandleResult{OK: false}, nil
	}

	rows, err := extractor.ParseTables(in.HTML)
	if err != nil || len(rows) == 0 {
		return CanHandleResult{OK: false}, nil
	}
	return CanHandleResult{OK: true, Confidence: 0.4, Reason: "generic_table"}, nil
}

func (c *GenericConnector) Preview(ctx context.Context, in PreviewInput) (PreviewResult, error) {
	events, err := c.fetchAndParse(ctx, in.URL, in.OrgID, in.VendorHint)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Vendor: VendorGeneric, Events: sortAndLimitPreview(events)}, nil
}

func (c *GenericConnector) Sync(ctx context.Context, in SyncInput) (SyncResult, error) {
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
	return SyncResult{Imported: result.Imported, Updated: result.Updated, Cancelled: result.Cancelled, Vendor: VendorGeneric}, nil
}

func (c *GenericConnector) fetchAndParse(ctx context.Context, pageURL, orgID string, vendorHint *string) ([]store.ScheduleEvent, error) {
	res, err := c.fetcher.FetchURLSafe(ctx, pageURL, fetcher.Options{
		Mode: fetcher.ModeFull, OrgID: orgIDPtr(orgID), VendorID: vendorHint,
	})
	if err != nil {
		return nil, err
	}

	body := res.Text
	for _, marker := range embeddedScheduleMarkers {
		if !strings.Contains(strings.ToLower(body), marker) {
			continue
		}
		if subURL, ok := findSubScheduleURL(body, marker); ok {
			subRes, err := c.fetcher.FetchURLSafe(ctx, subURL, fetcher.Options{
				Mode: fetcher.ModeFull, OrgID: orgIDPtr(orgID), VendorID: vendorHint,
			})
			if err == nil {
				body = subRes.Text
			}
		}
		break
	}

	parsed, err := extractor.ParseTables(body)
	if err != nil {
		return nil, err
	}
	return extractor.Normalize(parsed, []byte(body)), nil
}
