package fetcher

import (
	"context"

	"github.com/teammeet/schedulesync/internal/allowlist"
)

// EnrollRequest is the payload fetchUrlSafe hands to the Enroller when a
// host resolves "denied" but the caller supplied an orgId, mirroring
// verifyAndEnroll's own parameter shape (spec §4.C).
type EnrollRequest struct {
	URL        string
	OrgID      string
	UserID     *string
	VendorHint *string
}

// EnrollResult is the decision the Enroller returns.
type EnrollResult struct {
	AllowStatus allowlist.Status
	VendorID    *string
	Confidence  *float64
	Evidence    []string
}

// Enroller is the narrow surface the Safe Fetcher needs from the
// Verifier/Enroller. Declaring it here (rather than importing a concrete
// verifier.Verifier type) keeps internal/fetcher free of any dependency on
// internal/verifier; internal/verifier depends on internal/fetcher, not the
// other way around, and satisfies this interface structurally.
type Enroller interface {
	VerifyAndEnroll(ctx context.Context, req EnrollRequest) (EnrollResult, error)
}

// AllowlistChecker is the narrow surface the Safe Fetcher needs from the
// Allowlist Engine.
type AllowlistChecker interface {
	CheckHostStatus(ctx context.Context, host string, vendorID *string) (allowlist.Decision, error)
	TouchAllowedDomain(ctx context.Context, host string) error
}
