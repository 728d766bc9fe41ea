package metrics

import "time"

// SkipReason enumerates why a record produced no output.
type SkipReason string

const (
	SkipLoad         SkipReason = "load"
	SkipMissingField SkipReason = "missing_field"
	SkipUnsupported  SkipReason = "unsupported"
)

// Outcome is the final status of a generation run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning" // completed with skipped records
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Recorder defines observability hooks for generation runs. All methods must
// be safe to call on the NoopRecorder (allowing optional injection).
type Recorder interface {
	IncRendered(contentType, format string)
	IncSkipped(contentType string, reason SkipReason)
	ObserveJobDuration(contentType string, d time.Duration)
	IncRunOutcome(outcome Outcome)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncRendered(string, string)                 {}
func (NoopRecorder) IncSkipped(string, SkipReason)              {}
func (NoopRecorder) ObserveJobDuration(string, time.Duration) {}
func (NoopRecorder) IncRunOutcome(Outcome)                      {}
