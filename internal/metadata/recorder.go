package metadata

import (
	"time"

	"github.com/rs/zerolog"
)

/*
Metadata collected by Recorder:
  - Fetch timestamps, HTTP status codes, content types, retry counts
  - Tagged error causes with structured attributes
  - Per-source run summaries (imported/updated/cancelled/error counts)
  - Persisted artifact paths

Logging goals: debuggable sync runs, post-run auditability, failure
diagnostics. Everything above is a primitive value, a timestamp, a URL
rendered as a string, or an identifier — never a live object with behavior.
*/
type Recorder struct {
	log zerolog.Logger

	// component names the subsystem this recorder instance is embedded in
	// (e.g. "fetcher", "runner", "verifier"), attached to every event.
	component string
}

func NewRecorder(log zerolog.Logger, component string) *Recorder {
	return &Recorder{log: log, component: component}
}

func (r *Recorder) RecordFetch(event FetchEvent) {
	r.log.Info().
		Str("component", r.component).
		Str("fetch_url", event.FetchURL).
		Int("http_status", event.HTTPStatus).
		Dur("duration", event.Duration).
		Str("content_type", event.ContentType).
		Int("retry_count", event.RetryCount).
		Msg("fetch completed")
}

func (r *Recorder) RecordError(observedAt time.Time, packageName, action string, cause ErrorCause, errMessage string, attrs []Attribute) {
	evt := r.log.Error().
		Str("component", r.component).
		Time("observed_at", observedAt).
		Str("package", packageName).
		Str("action", action).
		Int("cause", int(cause)).
		Str("error", errMessage)

	for _, a := range attrs {
		evt = evt.Str(string(a.Key), a.Value)
	}
	evt.Msg("operation failed")
}

func (r *Recorder) RecordArtifact(artifact ArtifactRecord) {
	r.log.Debug().
		Str("component", r.component).
		Str("source_id", artifact.SourceID).
		Str("kind", string(artifact.Kind)).
		Str("path", artifact.Path).
		Msg("artifact persisted")
}

func (r *Recorder) RecordFinalRunStats(stats RunStats) {
	r.log.Info().
		Str("component", r.component).
		Str("source_id", stats.SourceID).
		Int("imported", stats.Imported).
		Int("updated", stats.Updated).
		Int("cancelled", stats.Cancelled).
		Int("errors", stats.Errors).
		Dur("duration", stats.Duration).
		Msg("sync run finished")
}
