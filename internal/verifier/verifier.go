// Package verifier implements verifyAndEnroll (spec §4.C): the single path
// by which an unknown host is promoted to active or pending on the
// Allowlist, grounded on the Safe Fetcher's own guarded single-shot request
// so enrollment never bypasses SSRF protection, only the allowlist check
// itself.
package verifier

import (
	"context"
	"strings"
	"time"

	"github.com/teammeet/schedulesync/internal/allowlist"
	"github.com/teammeet/schedulesync/internal/fetcher"
	"github.com/teammeet/schedulesync/internal/store"
)

// vendorSuffixes maps a known hostname suffix to the vendor id it implies.
// sidearmsports and prestosports are the concrete members of the "vendorB"
// umbrella the Allowlist Engine already aliases.
var vendorSuffixes = map[string]string{
	"sidearmsports.com": "sidearmsports",
	"prestosports.com":  "prestosports",
}

// vendorMarkers lists body substrings that imply a vendor even when the
// host suffix doesn't match (a vendor-hosted widget embedded on a third
// party's own domain, for instance).
var vendorMarkers = map[string]string{
	"sidearmsports": "sidearmsports",
	"prestosports":  "prestosports",
}

// Store is the narrow persistence surface verifyAndEnroll needs.
type Store interface {
	GetAllowedDomain(ctx context.Context, hostname string) (*store.AllowedDomain, error)
	TouchAllowedDomain(ctx context.Context, hostname string) error
	UpsertAllowedDomainIfNotBlocked(ctx context.Context, domain store.AllowedDomain) (store.AllowedDomain, error)
}

// Fetcher is the narrow surface verifyAndEnroll needs from the Safe
// Fetcher. Declared here rather than depending on *fetcher.Fetcher's
// concrete type so tests can substitute a stub.
type Fetcher interface {
	FetchURLSafe(ctx context.Context, rawURL string, opts fetcher.Options) (fetcher.Result, error)
}

// Verifier implements fetcher.Enroller, closing the one import cycle the
// Safe Fetcher must never take on directly: fetcher -> verifier is never
// allowed, so verifier satisfies fetcher.Enroller structurally instead.
type Verifier struct {
	fetcher Fetcher
	store   Store
}

func New(f Fetcher, s Store) *Verifier {
	return &Verifier{fetcher: f, store: s}
}

// SetFetcher wires the Safe Fetcher in after construction, for callers
// that must build the Verifier before the Fetcher exists (the Fetcher
// itself takes the Verifier as its Enroller).
func (v *Verifier) SetFetcher(f Fetcher) {
	v.fetcher = f
}

var _ fetcher.Enroller = (*Verifier)(nil)

func (v *Verifier) VerifyAndEnroll(ctx context.Context, req fetcher.EnrollRequest) (fetcher.EnrollResult, error) {
	host, err := hostnameOf(req.URL)
	if err != nil {
		return fetcher.EnrollResult{}, err
	}

	if fast, ok, err := v.fastPath(ctx, host); err != nil {
		return fetcher.EnrollResult{}, err
	} else if ok {
		return fast, nil
	}

	result, fetchErr := v.fetcher.FetchURLSafe(ctx, req.URL, fetcher.Options{
		Mode:          fetcher.ModeVerify,
		AllowlistMode: fetcher.AllowlistSkip,
		VendorID:      req.VendorHint,
	})
	if fetchErr != nil {
		return fetcher.EnrollResult{}, fetchErr
	}

	classification := classify(result)
	status := decide(classification.confidence)

	persisted, err := v.persist(ctx, host, req, classification, status)
	if err != nil {
		return fetcher.EnrollResult{}, err
	}

	return fetcher.EnrollResult{
		AllowStatus: toAllowlistStatus(persisted.Status),
		VendorID:    persisted.VendorID,
		Confidence:  &classification.confidence,
		Evidence:    classification.evidence,
	}, nil
}

// fastPath implements the "already resolved" shortcut: blocked and active
// hosts never reach verification at all.
func (v *Verifier) fastPath(ctx context.Context, host string) (fetcher.EnrollResult, bool, error) {
	domain, err := v.store.GetAllowedDomain(ctx, host)
	if err == store.ErrNotFound {
		return fetcher.EnrollResult{}, false, nil
	}
	if err != nil {
		return fetcher.EnrollResult{}, false, err
	}

	switch domain.Status {
	case store.AllowedDomainStatusBlocked:
		return fetcher.EnrollResult{AllowStatus: allowlist.StatusBlocked, VendorID: domain.VendorID}, true, nil
	case store.AllowedDomainStatusActive:
		_ = v.store.TouchAllowedDomain(ctx, host)
		return fetcher.EnrollResult{AllowStatus: allowlist.StatusActive, VendorID: domain.VendorID}, true, nil
	default: // pending, or any other value: fall through to (re)verify
		return fetcher.EnrollResult{}, false, nil
	}
}

type classification struct {
	vendor     string
	confidence float64
	evidence   []string
}

func classify(result fetcher.Result) classification {
	if isICS(result) {
		return classification{vendor: "ics", confidence: 0.99, evidence: []string{"ics_content"}}
	}

	host := strings.ToLower(hostOnlyFromURL(result.FinalURL))
	body := strings.ToLower(result.Text)

	hostVendor := ""
	for suffix, vendor := range vendorSuffixes {
		if strings.HasSuffix(host, suffix) {
			hostVendor = vendor
			break
		}
	}

	markerVendor := ""
	for vendor, marker := range vendorMarkers {
		if strings.Contains(body, marker) {
			markerVendor = vendor
			break
		}
	}

	switch {
	case hostVendor != "" && markerVendor != "" && hostVendor == markerVendor:
		return classification{vendor: hostVendor, confidence: 0.97, evidence: []string{"host_suffix", "body_marker"}}
	case hostVendor != "":
		return classification{vendor: hostVendor, confidence: 0.92, evidence: []string{"host_suffix"}}
	case markerVendor != "":
		return classification{vendor: markerVendor, confidence: 0.85, evidence: []string{"body_marker"}}
	default:
		return classification{vendor: "unknown", confidence: 0.0}
	}
}

func isICS(result fetcher.Result) bool {
	if strings.Contains(strings.ToLower(result.Headers["Content-Type"]), "text/calendar") {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(result.Text), "BEGIN:VCALENDAR")
}

func decide(confidence float64) store.AllowedDomainStatus {
	switch {
	case confidence >= 0.95:
		return store.AllowedDomainStatusActive
	case confidence >= 0.80:
		return store.AllowedDomainStatusPending
	default:
		return ""
	}
}

// persist applies the race-safe write described in spec §4.C: a decision of
// "denied" (status == "") is never written at all, so a concurrently
// blocked host is never resurrected by a stale enrollment attempt landing
// after the block.
func (v *Verifier) persist(ctx context.Context, host string, req fetcher.EnrollRequest, c classification, status store.AllowedDomainStatus) (store.AllowedDomain, error) {
	if status == "" {
		domain, err := v.store.GetAllowedDomain(ctx, host)
		if err == store.ErrNotFound {
			return store.AllowedDomain{Hostname: host, Status: "denied"}, nil
		}
		if err != nil {
			return store.AllowedDomain{}, err
		}
		if domain.Status == store.AllowedDomainStatusBlocked {
			return *domain, nil
		}
		return store.AllowedDomain{Hostname: host, Status: "denied"}, nil
	}

	now := time.Now().UTC()
	var vendorID *string
	if c.vendor != "" && c.vendor != "unknown" {
		vendor := c.vendor
		vendorID = &vendor
	}
	method := strings.Join(c.evidence, ",")

	return v.store.UpsertAllowedDomainIfNotBlocked(ctx, store.AllowedDomain{
		Hostname:           host,
		VendorID:           vendorID,
		Status:             status,
		VerifiedByOrgID:    &req.OrgID,
		VerifiedByUserID:   req.UserID,
		VerifiedAt:         &now,
		VerificationMethod: &method,
		LastSeenAt:         now,
		CreatedAt:          now,
	})
}

func toAllowlistStatus(s store.AllowedDomainStatus) allowlist.Status {
	switch s {
	case store.AllowedDomainStatusActive:
		return allowlist.StatusActive
	case store.AllowedDomainStatusPending:
		return allowlist.StatusPending
	case store.AllowedDomainStatusBlocked:
		return allowlist.StatusBlocked
	default:
		return allowlist.StatusDenied
	}
}
