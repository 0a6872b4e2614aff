package fetcher

import (
	"github.com/teammeet/schedulesync/pkg/failure"
)

// FetchErrorCause is the closed set of tagged fetch failure kinds. The fetcher core
// performs no retries (spec §7), so every FetchError is permanent.
type FetchErrorCause string

const (
	CauseInvalidURL        FetchErrorCause = "invalid_url"
	CauseInvalidPort       FetchErrorCause = "invalid_port"
	CauseLocalhost         FetchErrorCause = "localhost"
	CausePrivateIP         FetchErrorCause = "private_ip"
	CauseTooManyRedirects  FetchErrorCause = "too_many_redirects"
	CauseResponseTooLarge  FetchErrorCause = "response_too_large"
	CauseFetchFailed       FetchErrorCause = "fetch_failed"
	CauseAllowlistDenied   FetchErrorCause = "allowlist_denied"
	CauseAllowlistPending  FetchErrorCause = "allowlist_pending"
	CauseAllowlistBlocked  FetchErrorCause = "allowlist_blocked"
	CauseUnsupportedVendor FetchErrorCause = "unsupported_vendor"
	CauseNoConnector       FetchErrorCause = "no_connector"
)

// FetchError is the single tagged error kind the Safe Fetcher raises. It is
// never retryable; the caller (the scheduler, or a human re-running a
// sync) decides whether to try again.
type FetchError struct {
	Message string
	Cause   FetchErrorCause
}

func (e *FetchError) Error() string { return e.Message }

func (e *FetchError) Severity() failure.Severity { return failure.SeverityFatal }

func (e *FetchError) IsRetryable() bool { return false }
