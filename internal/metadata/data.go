package metadata

import "time"

// FetchEvent describes one completed call to the Safe Fetcher, recorded for
// observability only.
type FetchEvent struct {
	FetchURL    string
	HTTPStatus  int
	Duration    time.Duration
	ContentType string
	RetryCount  int
}

/*
RunStats is a terminal, derived summary of one Source Runner pass over a
single schedule source.

  - Contains only aggregate counts and durations.
  - Recorded through RunFinalizer.RecordFinalRunStats. runner.SyncScheduleSource
    neither builds a RunStats nor calls RecordFinalRunStats.
  - Must not influence scheduling, retries, or termination: it is written
    after the decision that produced it has already been made.
*/
type RunStats struct {
	SourceID  string
	Imported  int
	Updated   int
	Cancelled int
	Errors    int
	Duration  time.Duration
}

// ArtifactRecord names a persisted byproduct of a sync pass (for example the
// raw ICS/HTML payload archived for a verification run).
type ArtifactRecord struct {
	SourceID string
	Kind     ArtifactKind
	Path     string
}

type ArtifactKind string

const (
	ArtifactRawPayload      ArtifactKind = "raw_payload"
	ArtifactFingerprintDump ArtifactKind = "fingerprint_dump"
)

/*
ErrorCause is a closed, canonical classification used exclusively for
observability (logging, metrics, reporting).

Rules:
  - ErrorCause is for observability only.
  - It must never be used to derive retry, continuation, or abort decisions;
    those decisions are made from the error the failing call returns (for
    a fetch, the *fetcher.FetchError's Cause and IsRetryable), not from
    this value.
  - Any use of metadata.ErrorCause outside logging, metrics, or reporting is
    a design violation.
  - ErrorCause values MUST have stable, package-agnostic semantics. Packages
    MAY map their local errors to an ErrorCause but MUST NOT invent new
    meanings for an existing one.

If a failure does not clearly map to a defined cause, CauseUnknown MUST be
used.
*/
type ErrorCause int

const (
	// CauseUnknown is the safe fallback for failures that do not map
	// cleanly to any known category.
	CauseUnknown ErrorCause = iota

	// CauseNetworkFailure covers transport or remote-availability failures:
	// TCP timeouts, DNS resolution failures, connection resets.
	CauseNetworkFailure

	// CausePolicyDisallow covers fetches refused by the Allowlist Engine or
	// the SSRF guard: blocked/pending/denied hosts, private-IP refusals.
	CausePolicyDisallow

	// CauseContentInvalid covers content that was fetched but could not be
	// parsed or extracted meaningfully: malformed ICS, missing JSON-LD,
	// unrecognized vendor markup.
	CauseContentInvalid

	// CauseStorageFailure covers failures persisting rows or artifacts:
	// constraint violations outside the expected unique-key races,
	// connection pool exhaustion, migration errors.
	CauseStorageFailure

	// CauseInvariantViolation covers a data-model invariant failing despite
	// upstream validation: a NormalizedEvent missing start_at, a duplicate
	// external_uid surviving dedup.
	CauseInvariantViolation
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{Key: key, Value: val}
}

type AttributeKey string

const (
	AttrTime        AttributeKey = "time"
	AttrURL         AttributeKey = "url"
	AttrHost        AttributeKey = "host"
	AttrPath        AttributeKey = "path"
	AttrOrgID       AttributeKey = "org_id"
	AttrSourceID    AttributeKey = "source_id"
	AttrVendorID    AttributeKey = "vendor_id"
	AttrExternalUID AttributeKey = "external_uid"
	AttrConnector   AttributeKey = "connector"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrField       AttributeKey = "field"
)
