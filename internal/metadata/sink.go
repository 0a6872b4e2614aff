package metadata

import "time"

// MetadataSink is the observability hook every component that performs I/O
// is handed. Implementations must treat every call as fire-and-forget: a
// sink must never be able to fail a caller's operation, and nothing in this
// interface returns an error.
type MetadataSink interface {
	RecordFetch(event FetchEvent)
	RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, errMessage string, attrs []Attribute)
	RecordArtifact(artifact ArtifactRecord)
}

// RunFinalizer records the terminal summary of one Source Runner pass.
// No package in this module calls RecordFinalRunStats; the runner does
// not record a RunStats.
type RunFinalizer interface {
	RecordFinalRunStats(stats RunStats)
}

// NopSink discards every event. Used by previews and tests that don't care
// about observability plumbing.
type NopSink struct{}

func (NopSink) RecordFetch(FetchEvent)                                                       {}
func (NopSink) RecordError(time.Time, string, string, ErrorCause, string, []Attribute)        {}
func (NopSink) RecordArtifact(ArtifactRecord)                                                 {}
func (NopSink) RecordFinalRunStats(RunStats)                                                  {}
