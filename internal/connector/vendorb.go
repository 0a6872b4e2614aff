package connector

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/teammeet/schedulesync/internal/fetcher"
	"github.com/teammeet/schedulesync/internal/reconciler"
	"github.com/teammeet/schedulesync/internal/store"
)

const VendorB = "vendorB"

var vendorBMarkers = []string{"sidearmsports", "prestosports"}

var icsLinkPattern = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+\.ics)["']`)

// VendorBConnector shares Vendor A's extraction pipeline but additionally
// delegates straight to the ICS connector when the page links to its own
// feed file, preserving "vendorB" as the reported vendor (scenario S3).
type VendorBConnector struct {
	fetcher   Fetcher
	allowlist AllowlistChecker
	ics       *ICSConnector
	store     reconciler.Store
	log       zerolog.Logger
}

func NewVendorB(f Fetcher, a AllowlistChecker, ics *ICSConnector, s reconciler.Store, log zerolog.Logger) *VendorBConnector {
	return &VendorBConnector{fetcher: f, allowlist: a, ics: ics, store: s, log: log}
}

func (c *VendorBConnector) CanHandle(ctx context.Context, in CanHandleInput) (CanHandleResult, error) {
	host := hostOnly(in.URL)
	vendorID := VendorB
	allowed, err := c.allowlist.IsHostAllowed(ctx, host, &vendorID)
	if err != nil {
		return CanHandleResult{}, err
	}
	if allowed {
		return CanHandleResult{OK: true, Confidence: 0.75, Reason: "vendor_allowlist"}, nil
	}
	if containsAnyMarker(in.URL, in.HTML, vendorBMarkers) {
		return CanHandleResult{OK: true, Confidence: 0.55, Reason: "marker"}, nil
	}
	return CanHandleResult{OK: false}, nil
}

func (c *VendorBConnector) Preview(ctx context.Context, in PreviewInput) (PreviewResult, error) {
	events, err := c.fetchAndParse(ctx, in.URL, in.OrgID, in.VendorHint)
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Vendor: VendorB, Events: sortAndLimitPreview(events)}, nil
}

func (c *VendorBConnector) Sync(ctx context.Context, in SyncInput) (SyncResult, error) {
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
	return SyncResult{Imported: result.Imported, Updated: result.Updated, Cancelled: result.Cancelled, Vendor: VendorB}, nil
}

func (c *VendorBConnector) fetchAndParse(ctx context.Context, pageURL, orgID string, vendorHint *string) ([]store.ScheduleEvent, error) {
	res, err := c.fetcher.FetchURLSafe(ctx, pageURL, fetcher.Options{
		Mode: fetcher.ModeFull, OrgID: orgIDPtr(orgID), VendorID: vendorHint,
	})
	if err != nil {
		return nil, err
	}

	if icsURL, ok := findICSLink(res.Text, res.FinalURL); ok {
		return c.ics.fetchAndParse(ctx, icsURL, orgID, vendorHint)
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
	return extractFromHTML(body, true)
}

// findICSLink resolves a relative .ics href against pageURL's base.
func findICSLink(html, pageURL string) (string, bool) {
	match := icsLinkPattern.FindStringSubmatch(html)
	if match == nil {
		return "", false
	}
	href := match[1]
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, true
	}
	return resolveAgainst(pageURL, href), true
}
