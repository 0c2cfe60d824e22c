package publish

import (
	"time"

	"git.home.luguber.info/inful/pubgate/internal/content"
)

// GateName identifies a gate in decisions, logs and metrics.
type GateName string

const (
	GateDraft   GateName = "draft"
	GateFuture  GateName = "future"
	GateExpired GateName = "expired"
)

// Gate is one named publication predicate.
type Gate struct {
	Name   GateName
	Allows func(doc *content.Document, cfg BuildConfig, now time.Time) bool
}

var (
	DraftGate = Gate{Name: GateDraft, Allows: func(doc *content.Document, cfg BuildConfig, _ time.Time) bool {
		return !doc.Draft || cfg.BuildDrafts
	}}

	FutureGate = Gate{Name: GateFuture, Allows: func(doc *content.Document, cfg BuildConfig, now time.Time) bool {
		return cfg.BuildFuture || !doc.EffectiveDate().After(now)
	}}

	ExpiredGate = Gate{Name: GateExpired, Allows: func(doc *content.Document, cfg BuildConfig, now time.Time) bool {
		return cfg.BuildExpired || !doc.HasExpiry() || doc.ExpiryDate.After(now)
	}}
)

// DefaultGates returns a fresh slice of the draft, future and expired gates.
func DefaultGates() []Gate {
	return []Gate{DraftGate, FutureGate, ExpiredGate}
}

// IsPublishable applies the default gates.
func IsPublishable(doc *content.Document, cfg BuildConfig, now time.Time) bool {
	for _, g := range DefaultGates() {
		if !g.Allows(doc, cfg, now) {
			return false
		}
	}
	return true
}
