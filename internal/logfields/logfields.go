package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID       = "run_id"
	KeyContentType = "content_type"
	KeyFormat      = "format"
	KeyRecordID    = "record_id"
	KeySourcePath  = "source_path"
	KeyOutputPath  = "output_path"
	KeyJobKind     = "job_kind"
	KeyCount       = "count"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func ContentType(t string) slog.Attr  { return slog.String(KeyContentType, t) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func RecordID(id string) slog.Attr    { return slog.String(KeyRecordID, id) }
func SourcePath(p string) slog.Attr   { return slog.String(KeySourcePath, p) }
func OutputPath(p string) slog.Attr   { return slog.String(KeyOutputPath, p) }
func JobKind(k string) slog.Attr      { return slog.String(KeyJobKind, k) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
