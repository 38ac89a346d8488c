package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeySlug       = "slug"
	KeyKind       = "kind"
	KeyCount      = "count"
	KeyWorkers    = "workers"
	KeyOutput     = "output"
	KeyLine       = "line"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Workers(n int) slog.Attr         { return slog.Int(KeyWorkers, n) }
func Output(dir string) slog.Attr     { return slog.String(KeyOutput, dir) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
