// Package fetcher implements fetchUrlSafe: the single point through which
// every byte of third-party content enters the system, guarded against
// SSRF and scoped by the Allowlist Engine. It never retries — the caller
// decides whether to try again (spec §7) — the way docs-crawler's
// HtmlFetcher performs one guarded request per call, metadata-recorded
// either way.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teammeet/schedulesync/internal/allowlist"
	"github.com/teammeet/schedulesync/internal/metadata"
	"github.com/teammeet/schedulesync/pkg/urlutil"
)

const defaultUserAgent = "TeamMeet-ScheduleSync/1.0"
const defaultAccept = "text/html,application/json,text/calendar,text/plain"

type Fetcher struct {
	httpClient   *http.Client
	allowlist    AllowlistChecker
	enroller     Enroller
	metadataSink metadata.MetadataSink
	userAgent    string
	acceptHeader string
	maxRedirects int

	// ssrfGuard defaults to checkSSRF; only ever overridden by tests in
	// this package that need to route requests to a loopback test server.
	ssrfGuard func(ctx context.Context, host string) *FetchError
}

func New(allowlistChecker AllowlistChecker, enroller Enroller, sink metadata.MetadataSink, userAgent, acceptHeader string, maxRedirects int) *Fetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if acceptHeader == "" {
		acceptHeader = defaultAccept
	}
	if sink == nil {
		sink = metadata.NopSink{}
	}
	return &Fetcher{
		httpClient: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		allowlist:    allowlistChecker,
		enroller:     enroller,
		metadataSink: sink,
		userAgent:    userAgent,
		acceptHeader: acceptHeader,
		maxRedirects: maxRedirects,
		ssrfGuard:    checkSSRF,
	}
}

// FetchURLSafe performs a single guarded fetch of rawURL, following at most
// maxRedirects manually-handled redirects, reporting every attempt and
// terminal outcome to the metadata sink.
func (f *Fetcher) FetchURLSafe(ctx context.Context, rawURL string, opts Options) (Result, error) {
	opts = applyDefaults(opts)
	start := time.Now()

	currentURL := rawURL
	for redirects := 0; ; redirects++ {
		normalized, err := urlutil.NormalizeURL(currentURL)
		if err != nil {
			return f.fail(start, currentURL, "", &FetchError{Message: err.Error(), Cause: classifyNormalizeError(err)})
		}

		if sErr := f.ssrfGuard(ctx, normalized.Hostname()); sErr != nil {
			return f.fail(start, currentURL, normalized.Hostname(), sErr)
		}

		if opts.AllowlistMode == AllowlistEnforce {
			if aErr := f.enforceAllowlist(ctx, normalized, opts); aErr != nil {
				return f.fail(start, currentURL, normalized.Hostname(), aErr)
			}
		}

		resp, fErr := f.doRequest(ctx, normalized, opts)
		if fErr != nil {
			return f.fail(start, currentURL, normalized.Hostname(), fErr)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			resp.Body.Close()
			if redirects >= f.maxRedirects {
				return f.fail(start, currentURL, normalized.Hostname(), &FetchError{
					Message: fmt.Sprintf("exceeded %d redirects", f.maxRedirects),
					Cause:   CauseTooManyRedirects,
				})
			}
			location := resp.Header.Get("Location")
			if location == "" {
				return f.fail(start, currentURL, normalized.Hostname(), &FetchError{
					Message: "redirect response missing Location header",
					Cause:   CauseFetchFailed,
				})
			}
			next, err := resolveRedirect(normalized, location)
			if err != nil {
				return f.fail(start, currentURL, normalized.Hostname(), &FetchError{
					Message: fmt.Sprintf("invalid redirect location: %v", err),
					Cause:   CauseFetchFailed,
				})
			}
			currentURL = next
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return f.fail(start, currentURL, normalized.Hostname(), &FetchError{
				Message: fmt.Sprintf("http status %d", resp.StatusCode),
				Cause:   CauseFetchFailed,
			})
		}

		text, rErr := readLimited(resp.Body, opts.MaxBytes, resp.ContentLength)
		resp.Body.Close()
		if rErr != nil {
			return f.fail(start, currentURL, normalized.Hostname(), rErr)
		}

		headers := map[string]string{}
		for key, values := range resp.Header {
			if len(values) > 0 {
				headers[key] = values[0]
			}
		}

		f.metadataSink.RecordFetch(metadata.FetchEvent{
			FetchURL:    normalized.String(),
			HTTPStatus:  resp.StatusCode,
			Duration:    time.Since(start),
			ContentType: headers["Content-Type"],
		})

		return Result{
			FinalURL:  normalized.String(),
			Status:    resp.StatusCode,
			Headers:   headers,
			Text:      text,
			FetchedAt: start,
		}, nil
	}
}

func (f *Fetcher) fail(start time.Time, attemptedURL, host string, err *FetchError) (Result, error) {
	f.metadataSink.RecordFetch(metadata.FetchEvent{
		FetchURL: attemptedURL,
		Duration: time.Since(start),
	})
	attrs := []metadata.Attribute{metadata.NewAttr(metadata.AttrURL, attemptedURL)}
	if host != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHost, host))
	}
	f.metadataSink.RecordError(time.Now(), "fetcher", "FetchURLSafe", mapCauseToMetadata(err.Cause), err.Error(), attrs)
	return Result{}, err
}

func (f *Fetcher) doRequest(ctx context.Context, target url.URL, opts Options) (*http.Response, *FetchError) {
	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("failed to build request: %v", err), Cause: CauseFetchFailed}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.acceptHeader)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("request failed: %v", err), Cause: CauseFetchFailed}
	}
	return resp, nil
}

func (f *Fetcher) enforceAllowlist(ctx context.Context, target url.URL, opts Options) *FetchError {
	host := target.Hostname()
	decision, err := f.allowlist.CheckHostStatus(ctx, host, opts.VendorID)
	if err != nil {
		return &FetchError{Message: fmt.Sprintf("allowlist lookup failed: %v", err), Cause: CauseFetchFailed}
	}

	switch decision.Status {
	case allowlist.StatusActive:
		if decision.Source == allowlist.SourceDomain {
			_ = f.allowlist.TouchAllowedDomain(ctx, host)
		}
		return nil
	case allowlist.StatusBlocked:
		return &FetchError{Message: fmt.Sprintf("host %q is blocked", host), Cause: CauseAllowlistBlocked}
	case allowlist.StatusPending:
		return &FetchError{Message: fmt.Sprintf("host %q is pending admin approval", host), Cause: CauseAllowlistPending}
	default: // StatusDenied
		if opts.OrgID == nil || f.enroller == nil {
			return &FetchError{Message: fmt.Sprintf("host %q is not allowlisted", host), Cause: CauseAllowlistDenied}
		}
		result, err := f.enroller.VerifyAndEnroll(ctx, EnrollRequest{
			URL:        target.String(),
			OrgID:      *opts.OrgID,
			UserID:     opts.UserID,
			VendorHint: opts.VendorID,
		})
		if err != nil {
			return &FetchError{Message: fmt.Sprintf("enrollment failed: %v", err), Cause: CauseFetchFailed}
		}
		switch result.AllowStatus {
		case allowlist.StatusActive:
			return nil
		case allowlist.StatusPending:
			return &FetchError{Message: fmt.Sprintf("host %q is pending admin approval", host), Cause: CauseAllowlistPending}
		default:
			return &FetchError{Message: fmt.Sprintf("host %q is not allowlisted", host), Cause: CauseAllowlistDenied}
		}
	}
}

func readLimited(body io.Reader, maxBytes int64, contentLength int64) (string, *FetchError) {
	if contentLength > 0 && contentLength > maxBytes {
		return "", &FetchError{Message: "content-length exceeds max bytes", Cause: CauseResponseTooLarge}
	}

	limited := io.LimitReader(body, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "", &FetchError{Message: fmt.Sprintf("failed to read response body: %v", err), Cause: CauseFetchFailed}
	}
	if int64(len(data)) > maxBytes {
		return "", &FetchError{Message: "response exceeded max bytes", Cause: CauseResponseTooLarge}
	}
	return string(data), nil
}

// classifyNormalizeError distinguishes the one URL normalization failure
// that gets its own tagged cause (a rejected non-default port) from every
// other malformed-URL case.
func classifyNormalizeError(err error) FetchErrorCause {
	var invalidURL *urlutil.InvalidURLError
	if errors.As(err, &invalidURL) && strings.Contains(invalidURL.Reason, "non-default port") {
		return CauseInvalidPort
	}
	return CauseInvalidURL
}

func resolveRedirect(base url.URL, location string) (string, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(loc).String(), nil
}

func mapCauseToMetadata(cause FetchErrorCause) metadata.ErrorCause {
	switch cause {
	case CauseLocalhost, CausePrivateIP, CauseAllowlistDenied, CauseAllowlistPending, CauseAllowlistBlocked:
		return metadata.CausePolicyDisallow
	case CauseFetchFailed, CauseTooManyRedirects, CauseResponseTooLarge:
		return metadata.CauseNetworkFailure
	case CauseInvalidURL, CauseInvalidPort, CauseUnsupportedVendor, CauseNoConnector:
		return metadata.CauseInvariantViolation
	default:
		return metadata.CauseUnknown
	}
}
