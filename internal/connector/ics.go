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

const VendorICS = "ics"

// ICSConnector handles any source that serves a raw .ics feed, including
// second-hop delegation from Vendor B.
type ICSConnector struct {
	fetcher Fetcher
	store   reconciler.Store
	log     zerolog.Logger
}

func NewICS(f Fetcher, s reconciler.Store, log zerolog.Logger) *ICSConnector {
	return &ICSConnector{fetcher: f, store: s, log: log}
}

func (c *ICSConnector) CanHandle(_ context.Context, in CanHandleInput) (CanHandleResult, error) {
	if strings.HasSuffix(strings.ToLower(in.URL), ".ics") {
		return CanHandleResult{OK: true, Confidence: 0.95, Reason: "url_suffix"}, nil
	}
	if strings.Contains(strings.ToLower(headerValue(in.Headers, "Content-Type")), "text/calendar") {
		return CanHandleResult{OK: true, Confidence: 0.9, Reason: "content_type"}, nil
	}
	return CanHandleResult{OK: false}, nil
}

func (c *ICSConnector) Preview(ctx context.Context, in PreviewInput) (PreviewResult, error) {
	events, err := c.fetchAndParse(ctx, in.URL, in.OrgID, in.VendorHint)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Vendor: VendorICS, Events: sortAndLimitPreview(events)}, nil
}

func (c *ICSConnector) Sync(ctx context.Context, in SyncInput) (SyncResult, error) {
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
	return SyncResult{Imported: result.Imported, Updated: result.Updated, Cancelled: result.Cancelled, Vendor: VendorICS}, nil
}

func (c *ICSConnector) fetchAndParse(ctx context.Context, url, orgID string, vendorHint *string) ([]store.ScheduleEvent, error) {
	res, err := c.fetcher.FetchURLSafe(ctx, url, fetcher.Options{
		Mode: fetcher.ModeFull, OrgID: orgIDPtr(orgID), VendorID: vendorHint,
	})
	if err != nil {
		return nil, err
	}
	parsed, err := extractor.ParseICS(res.Text)
	if err != nil {
		return nil, err
	}
	return extractor.Normalize(parsed, []byte(res.Text)), nil
}
