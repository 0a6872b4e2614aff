package verifier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammeet/schedulesync/internal/allowlist"
	"github.com/teammeet/schedulesync/internal/fetcher"
	"github.com/teammeet/schedulesync/internal/store"
	"github.com/teammeet/schedulesync/internal/store/memstore"
	"github.com/teammeet/schedulesync/internal/verifier"
)

type stubFetcher struct {
	result fetcher.Result
	err    error
}

func (s stubFetcher) FetchURLSafe(context.Context, string, fetcher.Options) (fetcher.Result, error) {
	return s.result, s.err
}

func TestVerifyAndEnrollFastPathBlocked(t *testing.T) {
	ms := memstore.New()
	ms.SeedAllowedDomain(store.AllowedDomain{Hostname: "blocked.example", Status: store.AllowedDomainStatusBlocked})

	v := verifier.New(stubFetcher{}, ms)
	result, err := v.VerifyAndEnroll(context.Background(), fetcher.EnrollRequest{URL: "https://blocked.example/x", OrgID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusBlocked, result.AllowStatus)
}

func TestVerifyAndEnrollFastPathActiveTouchesDomain(t *testing.T) {
	ms := memstore.New()
	ms.SeedAllowedDomain(store.AllowedDomain{Hostname: "active.example", Status: store.AllowedDomainStatusActive})

	v := verifier.New(stubFetcher{}, ms)
	result, err := v.VerifyAndEnroll(context.Background(), fetcher.EnrollRequest{URL: "https://active.example/x", OrgID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusActive, result.AllowStatus)

	domain, err := ms.GetAllowedDomain(context.Background(), "active.example")
	require.NoError(t, err)
	assert.False(t, domain.LastSeenAt.IsZero())
}

func TestVerifyAndEnrollICSContentIsActive(t *testing.T) {
	ms := memstore.New()
	f := stubFetcher{result: fetcher.Result{
		FinalURL: "https://new.example/feed.ics",
		Headers:  map[string]string{"Content-Type": "text/calendar"},
		Text:     "BEGIN:VCALENDAR\r\n...",
	}}

	v := verifier.New(f, ms)
	result, err := v.VerifyAndEnroll(context.Background(), fetcher.EnrollRequest{URL: "https://new.example/feed.ics", OrgID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusActive, result.AllowStatus)
	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.99, *result.Confidence)

	domain, err := ms.GetAllowedDomain(context.Background(), "new.example")
	require.NoError(t, err)
	assert.Equal(t, store.AllowedDomainStatusActive, domain.Status)
}

// TestVerifyAndEnrollHostSuffixOnlyIsPending: a host-suffix match with no
// body marker scores 0.92, below the 0.95 active threshold.
func TestVerifyAndEnrollHostSuffixOnlyIsPending(t *testing.T) {
	ms := memstore.New()
	f := stubFetcher{result: fetcher.Result{
		FinalURL: "https://teams.sidearmsports.com/schedule",
		Headers:  map[string]string{"Content-Type": "text/html"},
		Text:     "<html>no markers here</html>",
	}}

	v := verifier.New(f, ms)
	result, err := v.VerifyAndEnroll(context.Background(), fetcher.EnrollRequest{URL: "https://teams.sidearmsports.com/schedule", OrgID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusPending, result.AllowStatus)
	require.NotNil(t, result.VendorID)
	assert.Equal(t, "sidearmsports", *result.VendorID)
}

// TestVerifyAndEnrollMarkerOnlyIsPending is scenario S6: a marker-only match
// (confidence 0.85) inserts a pending row rather than active.
func TestVerifyAndEnrollMarkerOnlyIsPending(t *testing.T) {
	ms := memstore.New()
	f := stubFetcher{result: fetcher.Result{
		FinalURL: "https://thirdparty.example/schedule",
		Headers:  map[string]string{"Content-Type": "text/html"},
		Text:     "<html>powered by sidearmsports widgets</html>",
	}}

	v := verifier.New(f, ms)
	result, err := v.VerifyAndEnroll(context.Background(), fetcher.EnrollRequest{URL: "https://thirdparty.example/schedule", OrgID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusPending, result.AllowStatus)

	domain, err := ms.GetAllowedDomain(context.Background(), "thirdparty.example")
	require.NoError(t, err)
	assert.Equal(t, store.AllowedDomainStatusPending, domain.Status)
}

func TestVerifyAndEnrollNoSignalIsDeniedWithoutRow(t *testing.T) {
	ms := memstore.New()
	f := stubFetcher{result: fetcher.Result{
		FinalURL: "https://unknown.example/page",
		Headers:  map[string]string{"Content-Type": "text/html"},
		Text:     "<html>nothing recognizable</html>",
	}}

	v := verifier.New(f, ms)
	result, err := v.VerifyAndEnroll(context.Background(), fetcher.EnrollRequest{URL: "https://unknown.example/page", OrgID: "org1"})
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusDenied, result.AllowStatus)

	_, err = ms.GetAllowedDomain(context.Background(), "unknown.example")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// TestVerifyAndEnrollNeverResurrectsBlocked is property #11: a verification
// landing after a concurrent admin block must never produce an active row.
// It exercises the store write that VerifyAndEnroll persists through.
func TestVerifyAndEnrollNeverResurrectsBlocked(t *testing.T) {
	ms := memstore.New()
	ms.SeedAllowedDomain(store.AllowedDomain{Hostname: "race.example", Status: store.AllowedDomainStatusBlocked})

	persisted, err := ms.UpsertAllowedDomainIfNotBlocked(context.Background(), store.AllowedDomain{
		Hostname: "race.example",
		Status:   store.AllowedDomainStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, store.AllowedDomainStatusBlocked, persisted.Status)
}

// TestVerifyAndEnrollNeverDowngradesActiveToPending covers the companion
// race: a low-confidence classification landing after a concurrent
// high-confidence one must never downgrade an already-active row. It
// exercises the store write that VerifyAndEnroll persists through.
func TestVerifyAndEnrollNeverDowngradesActiveToPending(t *testing.T) {
	ms := memstore.New()
	ms.SeedAllowedDomain(store.AllowedDomain{Hostname: "race2.example", Status: store.AllowedDomainStatusActive})

	persisted, err := ms.UpsertAllowedDomainIfNotBlocked(context.Background(), store.AllowedDomain{
		Hostname: "race2.example",
		Status:   store.AllowedDomainStatusPending,
	})
	require.NoError(t, err)
	assert.Equal(t, store.AllowedDomainStatusActive, persisted.Status)
}
