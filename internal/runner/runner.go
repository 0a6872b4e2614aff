// Package runner implements syncScheduleSource (spec §4.H): the per-source
// control loop that resolves a connector by vendor id, invokes its Sync,
// and persists the outcome back onto the source row — grounded on
// docs-crawler's scheduler loop, which drives one crawl job through
// fetch -> parse -> store -> status-write in the same shape.
package runner

import (
	"context"
	"fmt"

	"github.com/teammeet/schedulesync/internal/connector"
	"github.com/teammeet/schedulesync/internal/store"
)

// Store is the narrow persistence surface the Source Runner needs.
type Store interface {
	UpdateScheduleSourceResult(ctx context.Context, sourceID string, result store.ScheduleSourceResult) error
}

// Result is the zero-or-populated outcome returned to the caller alongside
// the persisted write; Ok mirrors whether the sync succeeded.
type Result struct {
	Imported  int
	Updated   int
	Cancelled int
	Ok        bool
}

// Input bundles the parameters to syncScheduleSource.
type Input struct {
	Source store.ScheduleSource
	Window store.SyncWindow
}

// SyncScheduleSource resolves source.VendorID against connectors, runs the
// sync, and persists the result. An unknown vendor never invokes any
// connector at all.
func SyncScheduleSource(ctx context.Context, s Store, connectors map[string]connector.Connector, in Input) (Result, error) {
	impl, ok := connectors[in.Source.VendorID]
	if !ok {
		msg := fmt.Sprintf("Unsupported vendor: %s", in.Source.VendorID)
		if err := s.UpdateScheduleSourceResult(ctx, in.Source.ID, store.ScheduleSourceResult{
			Status:    store.ScheduleSourceStatusError,
			LastError: &msg,
		}); err != nil {
			return Result{}, err
		}
		return Result{Ok: false}, nil
	}

	syncResult, syncErr := impl.Sync(ctx, connector.SyncInput{
		SourceID: in.Source.ID,
		OrgID:    in.Source.OrgID,
		URL:      in.Source.SourceURL,
		UserID:   in.Source.ConnectedUserID,
		Window:   in.Window,
	})

	if syncErr != nil {
		msg := syncErr.Error()
		if err := s.UpdateScheduleSourceResult(ctx, in.Source.ID, store.ScheduleSourceResult{
			Status:    store.ScheduleSourceStatusError,
			LastError: &msg,
		}); err != nil {
			return Result{}, err
		}
		return Result{Ok: false}, nil
	}

	if err := s.UpdateScheduleSourceResult(ctx, in.Source.ID, store.ScheduleSourceResult{
		Status:         store.ScheduleSourceStatusActive,
		LastError:      nil,
		LastEventCount: syncResult.Imported + syncResult.Updated,
		LastImported:   syncResult.Imported,
		LastUpdated:    syncResult.Updated,
		LastCancelled:  syncResult.Cancelled,
	}); err != nil {
		return Result{}, err
	}

	return Result{
		Imported:  syncResult.Imported,
		Updated:   syncResult.Updated,
		Cancelled: syncResult.Cancelled,
		Ok:        true,
	}, nil
}
