package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/teammeet/schedulesync/internal/reconciler"
	"github.com/teammeet/schedulesync/internal/store"
)

const VendorCalendar = "calendar"
const calendarScheme = "google://"

// ErrMissingConnectedUser is returned when a google:// source has no
// connected_user_id — there is no account to mint an access token for.
var ErrMissingConnectedUser = errors.New("connector: calendar source requires connected_user_id")

// CalendarInstance is one occurrence the calendar API returns for a
// calendar id; the connector maps InstanceKey to ExternalUID itself, the
// raw API representation never carrying that concept.
type CalendarInstance struct {
	InstanceKey string
	Title       string
	StartAt     time.Time
	EndAt       time.Time
	Location    *string
	Cancelled   bool
}

// AccessTokenFunc mints a short-lived OAuth token for userId, the way the
// real integration would call out to the identity provider.
type AccessTokenFunc func(ctx context.Context, userID string) (string, error)

// CalendarFetcher is the injected client the Authorized Calendar connector
// calls once it holds a token; kept separate from the Safe Fetcher since
// calendar APIs are not third-party vendor pages subject to SSRF/allowlist
// rules.
type CalendarFetcher interface {
	ListInstances(ctx context.Context, accessToken, calendarID string, window store.SyncWindow) ([]CalendarInstance, error)
}

// CalendarConnector handles the opaque google://{calendarId} scheme.
type CalendarConnector struct {
	getAccessToken AccessTokenFunc
	calendar       CalendarFetcher
	store          reconciler.Store
	log            zerolog.Logger
}

func NewCalendar(tokenFn AccessTokenFunc, cal CalendarFetcher, s reconciler.Store, log zerolog.Logger) *CalendarConnector {
	return &CalendarConnector{getAccessToken: tokenFn, calendar: cal, store: s, log: log}
}

func (c *CalendarConnector) CanHandle(_ context.Context, in CanHandleInput) (CanHandleResult, error) {
	if strings.HasPrefix(in.URL, calendarScheme) {
		return CanHandleResult{OK: true, Confidence: 1.0, Reason: "calendar_scheme"}, nil
	}
	return CanHandleResult{OK: false}, nil
}

func (c *CalendarConnector) Preview(ctx context.Context, in PreviewInput) (PreviewResult, error) {
	if in.UserID == nil {
		return PreviewResult{}, ErrMissingConnectedUser
	}
	events, err := c.fetchInstances(ctx, in.URL, *in.UserID, store.SyncWindow{})
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{Vendor: VendorCalendar, Events: sortAndLimitPreview(events)}, nil
}

func (c *CalendarConnector) Sync(ctx context.Context, in SyncInput) (SyncResult, error) {
	if in.UserID == nil {
		return SyncResult{}, ErrMissingConnectedUser
	}
	events, err := c.fetchInstances(ctx, in.URL, *in.UserID, in.Window)
	if err != nil {
		return SyncResult{}, err
	}
	result, err := reconciler.SyncScheduleEvents(ctx, c.store, c.log, reconciler.Input{
		OrgID: in.OrgID, SourceID: in.SourceID, Events: events, Window: in.Window,
	})
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Imported: result.Imported, Updated: result.Updated, Cancelled: result.Cancelled, Vendor: VendorCalendar}, nil
}

func (c *CalendarConnector) fetchInstances(ctx context.Context, rawURL, userID string, window store.SyncWindow) ([]store.ScheduleEvent, error) {
	calendarID := strings.TrimPrefix(rawURL, calendarScheme)
	if calendarID == "" {
		return nil, fmt.Errorf("connector: empty calendar id in %q", rawURL)
	}

	token, err := c.getAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	instances, err := c.calendar.ListInstances(ctx, token, calendarID, window)
	if err != nil {
		return nil, err
	}

	events := make([]store.ScheduleEvent, 0, len(instances))
	for _, inst := range instances {
		status := store.ScheduleEventStatusConfirmed
		if inst.Cancelled {
			status = store.ScheduleEventStatusCancelled
		}
		endAt := inst.EndAt
		if endAt.IsZero() {
			endAt = inst.StartAt.Add(1 * time.Hour)
		}
		events = append(events, store.ScheduleEvent{
			ExternalUID: inst.InstanceKey,
			Title:       inst.Title,
			StartAt:     inst.StartAt,
			EndAt:       endAt,
			Location:    inst.Location,
			Status:      status,
		})
	}
	return events, nil
}
