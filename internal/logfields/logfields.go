package logfields

import (
	"log/slog"
	"time"
)

// Canonical log attribute keys shared by every package.
const (
	KeyBuildID    = "build_id"
	KeyDocument   = "document"
	KeyGate       = "gate"
	KeyDecision   = "decision"
	KeyRevision   = "revision"
	KeyPath       = "path"
	KeyTrigger    = "trigger"
	KeyTransition = "transition"
	KeyJobID      = "job_id"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr        { return slog.String(KeyBuildID, id) }
func Document(path string) slog.Attr     { return slog.String(KeyDocument, path) }
func Gate(name string) slog.Attr         { return slog.String(KeyGate, name) }
func Revision(hash string) slog.Attr     { return slog.String(KeyRevision, hash) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Trigger(t string) slog.Attr         { return slog.String(KeyTrigger, t) }
func Transition(kind string) slog.Attr   { return slog.String(KeyTransition, kind) }
func JobID(id string) slog.Attr          { return slog.String(KeyJobID, id) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr { return slog.Int64(KeyDurationMS, d.Milliseconds()) }

// Decision renders a publish decision as "publish" or "skip".
func Decision(publishable bool) slog.Attr {
	if publishable {
		return slog.String(KeyDecision, "publish")
	}
	return slog.String(KeyDecision, "skip")
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
