package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by single-row lookups when nothing matches.
var ErrNotFound = errors.New("store: not found")

// Store is the full persistence surface the schedulesync core needs. Each
// consuming package (allowlist, verifier, reconciler, runner) declares its
// own narrower interface naming only the methods it calls; any Store
// implementation satisfies all of them structurally. Keeping one full
// interface here avoids four divergent redefinitions of the same schema.
type Store interface {
	// Allowlist Engine (spec §4.B)
	ListDomainRules(ctx context.Context, vendorIDs []string) ([]DomainRule, error)
	GetAllowedDomain(ctx context.Context, hostname string) (*AllowedDomain, error)
	TouchAllowedDomain(ctx context.Context, hostname string) error

	// Verifier / Enroller (spec §4.C)
	UpsertAllowedDomain(ctx context.Context, domain AllowedDomain) error

	// UpsertAllowedDomainIfNotBlocked applies domain unless an existing row
	// for the same hostname is already blocked, in which case the write is
	// skipped and the pre-existing blocked row is returned instead. This is
	// what keeps a verification racing against a concurrent admin block
	// from ever resurrecting the host to active.
	UpsertAllowedDomainIfNotBlocked(ctx context.Context, domain AllowedDomain) (AllowedDomain, error)

	// Reconciler (spec §4.G)
	LoadEventsInWindow(ctx context.Context, sourceID string, window SyncWindow) ([]ScheduleEvent, error)
	UpsertEventsBatch(ctx context.Context, events []ScheduleEvent) error
	CancelEvents(ctx context.Context, sourceID string, externalUIDs []string) (int, error)

	// Source Runner (spec §4.H)
	GetScheduleSource(ctx context.Context, sourceID string) (*ScheduleSource, error)
	UpdateScheduleSourceResult(ctx context.Context, sourceID string, result ScheduleSourceResult) error

	// Daemon polling (cmd/schedulesyncd)
	ListSourcesDueForSync(ctx context.Context, limit int) ([]ScheduleSource, error)
}

// ScheduleSourceResult is the outcome the Source Runner persists back onto
// the ScheduleSource row after a sync pass.
type ScheduleSourceResult struct {
	Status         ScheduleSourceStatus
	LastError      *string
	LastEventCount int
	LastImported   int
	LastUpdated    int
	LastCancelled  int
}
