package connector_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammeet/schedulesync/internal/connector"
	"github.com/teammeet/schedulesync/internal/store"
	"github.com/teammeet/schedulesync/internal/store/memstore"
)

type stubCalendarFetcher struct {
	instances []connector.CalendarInstance
	err       error
}

func (s stubCalendarFetcher) ListInstances(context.Context, string, string, store.SyncWindow) ([]connector.CalendarInstance, error) {
	return s.instances, s.err
}

func stubToken(context.Context, string) (string, error) { return "token-123", nil }

func TestCalendarCanHandleMatchesSchemeOnly(t *testing.T) {
	c := connector.NewCalendar(stubToken, stubCalendarFetcher{}, memstore.New(), zerolog.Nop())
	result, err := c.CanHandle(context.Background(), connector.CanHandleInput{URL: "google://cal-abc123"})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestCalendarCanHandleRejectsOtherSchemes(t *testing.T) {
	c := connector.NewCalendar(stubToken, stubCalendarFetcher{}, memstore.New(), zerolog.Nop())
	result, err := c.CanHandle(context.Background(), connector.CanHandleInput{URL: "https://team.example/schedule"})
	require.NoError(t, err)
	assert.False(t, result.OK)
}

func TestCalendarPreviewRequiresConnectedUser(t *testing.T) {
	c := connector.NewCalendar(stubToken, stubCalendarFetcher{}, memstore.New(), zerolog.Nop())
	_, err := c.Preview(context.Background(), connector.PreviewInput{URL: "google://cal-abc123", OrgID: "org1"})
	assert.ErrorIs(t, err, connector.ErrMissingConnectedUser)
}

func TestCalendarPreviewMapsInstanceKeyToExternalUID(t *testing.T) {
	userID := "user1"
	instances := []connector.CalendarInstance{
		{InstanceKey: "evt-1", Title: "Practice", StartAt: time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC)},
	}
	c := connector.NewCalendar(stubToken, stubCalendarFetcher{instances: instances}, memstore.New(), zerolog.Nop())
	result, err := c.Preview(context.Background(), connector.PreviewInput{URL: "google://cal-abc123", OrgID: "org1", UserID: &userID})
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "evt-1", result.Events[0].ExternalUID)
	assert.Equal(t, time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC), result.Events[0].EndAt)
}

func TestCalendarSyncRequiresConnectedUser(t *testing.T) {
	c := connector.NewCalendar(stubToken, stubCalendarFetcher{}, memstore.New(), zerolog.Nop())
	_, err := c.Sync(context.Background(), connector.SyncInput{URL: "google://cal-abc123", OrgID: "org1", SourceID: "src1"})
	assert.ErrorIs(t, err, connector.ErrMissingConnectedUser)
}

func TestCalendarSyncDefersToReconciler(t *testing.T) {
	userID := "user1"
	ms := memstore.New()
	instances := []connector.CalendarInstance{
		{InstanceKey: "evt-1", Title: "Practice", StartAt: time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC), EndAt: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)},
	}
	c := connector.NewCalendar(stubToken, stubCalendarFetcher{instances: instances}, ms, zerolog.Nop())
	result, err := c.Sync(context.Background(), connector.SyncInput{
		SourceID: "src1", OrgID: "org1", URL: "google://cal-abc123", UserID: &userID,
		Window: store.SyncWindow{
			From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, connector.VendorCalendar, result.Vendor)
}
