package connector_test

import (
	"context"
	"time"

	"github.com/teammeet/schedulesync/internal/fetcher"
)

type stubFetcher struct {
	result fetcher.Result
	err    error
}

func (s stubFetcher) FetchURLSafe(context.Context, string, fetcher.Options) (fetcher.Result, error) {
	return s.result, s.err
}

// multiStubFetcher returns a different result per call, matching second-hop
// connectors that fetch the landing page, then a sub-schedule/ICS URL.
type multiStubFetcher struct {
	results []fetcher.Result
	call    int
}

func (s *multiStubFetcher) FetchURLSafe(context.Context, string, fetcher.Options) (fetcher.Result, error) {
	idx := s.call
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.call++
	return s.results[idx], nil
}

type stubAllowlist struct {
	allowed map[string]bool
}

func (s stubAllowlist) IsHostAllowed(_ context.Context, host string, _ *string) (bool, error) {
	return s.allowed[host], nil
}

func fetchedAt() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
