// Package registry implements detectConnector (spec §4.F): picking the
// best connector for a URL with the fewest possible network round-trips,
// the way docs-crawler's frontier decides a fetch strategy before it
// commits to one.
package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/teammeet/schedulesync/internal/connector"
	"github.com/teammeet/schedulesync/internal/fetcher"
)

// ErrNoSupportedConnector is returned when nothing — not even the ICS
// classifier's URL-only verdict — claims the URL.
var ErrNoSupportedConnector = errors.New("registry: no supported connector for url")

const calendarScheme = "google://"

// DetectInput is the optional context detectConnector accepts.
type DetectInput struct {
	OrgID *string
}

// Detection is the chosen connector plus the confidence it scored.
type Detection struct {
	Connector  connector.Connector
	Vendor     string
	Confidence float64
	Reason     string
}

// Fetcher is the narrow surface the Registry needs for its single
// verify-mode classification fetch.
type Fetcher interface {
	FetchURLSafe(ctx context.Context, rawURL string, opts fetcher.Options) (fetcher.Result, error)
}

// namedConnector pairs a connector with the vendor id it reports, since
// Connector itself has no Vendor() accessor.
type namedConnector struct {
	vendor string
	impl   connector.Connector
}

// Registry holds every connector strategy and resolves which one to use.
type Registry struct {
	fetcher     Fetcher
	calendar    connector.Connector
	ics         connector.Connector
	others      []namedConnector
}

// New builds a Registry. calendarConn handles google://, icsConn handles
// raw .ics feeds, others is every remaining vendor-specific and generic
// connector, tried in map iteration order when no shortcut applies (so which
// of two connectors with equal confidence wins is not defined).
func New(f Fetcher, calendarConn, icsConn connector.Connector, others map[string]connector.Connector) *Registry {
	r := &Registry{fetcher: f, calendar: calendarConn, ics: icsConn}
	for vendor, impl := range others {
		r.others = append(r.others, namedConnector{vendor: vendor, impl: impl})
	}
	return r
}

// DetectConnector implements the 4-step algorithm from spec §4.F.
func (r *Registry) DetectConnector(ctx context.Context, url string, in DetectInput) (Detection, error) {
	if strings.HasPrefix(url, calendarScheme) {
		return Detection{Connector: r.calendar, Vendor: connector.VendorCalendar, Confidence: 1.0, Reason: "calendar_scheme"}, nil
	}

	icsURLOnly, err := r.ics.CanHandle(ctx, connector.CanHandleInput{URL: url})
	if err != nil {
		return Detection{}, err
	}
	if icsURLOnly.OK && icsURLOnly.Confidence >= 0.9 {
		return Detection{Connector: r.ics, Vendor: connector.VendorICS, Confidence: icsURLOnly.Confidence, Reason: icsURLOnly.Reason}, nil
	}

	result, fetchErr := r.fetcher.FetchURLSafe(ctx, url, fetcher.Options{
		Mode:          fetcher.ModeVerify,
		AllowlistMode: fetcher.AllowlistEnforce,
		OrgID:         in.OrgID,
	})

	var best Detection
	if fetchErr == nil {
		chInput := connector.CanHandleInput{URL: url, HTML: result.Text, Headers: result.Headers}

		if icsFromHeaders, err := r.ics.CanHandle(ctx, chInput); err == nil && icsFromHeaders.OK && icsFromHeaders.Confidence > best.Confidence {
			best = Detection{Connector: r.ics, Vendor: connector.VendorICS, Confidence: icsFromHeaders.Confidence, Reason: icsFromHeaders.Reason}
		}

		for _, nc := range r.others {
			res, err := nc.impl.CanHandle(ctx, chInput)
			if err != nil || !res.OK {
				continue
			}
			if res.Confidence > best.Confidence {
				best = Detection{Connector: nc.impl, Vendor: nc.vendor, Confidence: res.Confidence, Reason: res.Reason}
			}
		}
	}

	if best.Connector != nil {
		return best, nil
	}
	if icsURLOnly.OK {
		return Detection{Connector: r.ics, Vendor: connector.VendorICS, Confidence: icsURLOnly.Confidence, Reason: icsURLOnly.Reason}, nil
	}
	return Detection{}, ErrNoSupportedConnector
}
