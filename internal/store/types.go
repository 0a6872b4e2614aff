// Package store defines the persisted data model (spec §3/§6) and the
// narrow interfaces each component needs against it. Organization is an
// external, opaque ownership key — the core never interprets it beyond
// comparing ids.
package store

import "time"

type ScheduleSourceStatus string

const (
	ScheduleSourceStatusActive ScheduleSourceStatus = "active"
	ScheduleSourceStatusError  ScheduleSourceStatus = "error"
)

type ScheduleEventStatus string

const (
	ScheduleEventStatusConfirmed ScheduleEventStatus = "confirmed"
	ScheduleEventStatusCancelled ScheduleEventStatus = "cancelled"
	ScheduleEventStatusTentative ScheduleEventStatus = "tentative"
)

type AllowedDomainStatus string

const (
	AllowedDomainStatusActive  AllowedDomainStatus = "active"
	AllowedDomainStatusPending AllowedDomainStatus = "pending"
	AllowedDomainStatusBlocked AllowedDomainStatus = "blocked"
)

type DomainRuleStatus string

const (
	DomainRuleStatusActive  DomainRuleStatus = "active"
	DomainRuleStatusBlocked DomainRuleStatus = "blocked"
)

// ScheduleSource is the persisted record a Source Runner pass operates on.
// Mutated only by the Source Runner.
type ScheduleSource struct {
	ID               string
	OrgID            string
	VendorID         string
	SourceURL        string
	ConnectedUserID  *string
	Status           ScheduleSourceStatus
	LastSyncedAt     *time.Time
	LastError        *string
	LastEventCount   int
	LastImported     int
	LastUpdated      int
	LastCancelled    int
}

// ScheduleEvent has composite unique key (SourceID, ExternalUID).
type ScheduleEvent struct {
	ID          string
	OrgID       string
	SourceID    string
	ExternalUID string
	Title       string
	StartAt     time.Time
	EndAt       time.Time
	Location    *string
	Status      ScheduleEventStatus
	Raw         []byte
	UpdatedAt   time.Time
}

// AllowedDomain is keyed by hostname (lowercased, trailing dot stripped).
// Invariant: never downgraded active -> pending except via explicit admin
// action; never auto-cleared from blocked.
type AllowedDomain struct {
	Hostname           string
	VendorID           *string
	Status             AllowedDomainStatus
	VerifiedByOrgID    *string
	VerifiedByUserID   *string
	VerifiedAt         *time.Time
	VerificationMethod *string
	Fingerprint        []byte
	LastSeenAt         time.Time
	CreatedAt          time.Time
}

// DomainRule is a pattern-based overlay; rules take precedence over
// AllowedDomain, and a blocked rule wins over an active one.
type DomainRule struct {
	ID       string
	Pattern  string
	VendorID *string
	Status   DomainRuleStatus
}

// SyncWindow is the half-inclusive time range the reconciler compares
// start_at against when deciding which events are candidates for
// cancellation.
type SyncWindow struct {
	From time.Time
	To   time.Time
}
