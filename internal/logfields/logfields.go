package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyStep       = "step"
	KeyKind       = "kind"
	KeyIndex      = "index"
	KeyExitCode   = "exit_code"
	KeyGuarded    = "guarded"
	KeyDurationMS = "duration_ms"
	KeyCommand    = "command"
	KeyRepo       = "repository"
	KeyPath       = "path"
	KeyName       = "name"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Index(i int) slog.Attr           { return slog.Int(KeyIndex, i) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func Guarded(g bool) slog.Attr        { return slog.Bool(KeyGuarded, g) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
