package publish

import (
	"time"

	"git.home.luguber.info/inful/pubgate/internal/content"
)

// NextTransition returns the earliest instant after now at which a document's
// decision changes on its own: a future document reaching its effective date,
// or a live document reaching its expiry. Switches that disable a gate remove
// that gate's instants. An instant only counts when the decision differs
// just before and at it, so a date another gate keeps blocked is skipped.
// ok is false when nothing is pending.
func NextTransition(docs []*content.Document, cfg BuildConfig, now time.Time) (next time.Time, ok bool) {
	for _, doc := range docs {
		consider := func(t time.Time) {
			if t.IsZero() || !t.After(now) {
				return
			}
			if ok && !t.Before(next) {
				return
			}
			if IsPublishable(doc, cfg, t.Add(-time.Nanosecond)) == IsPublishable(doc, cfg, t) {
				return
			}
			next, ok = t, true
		}
		if !cfg.BuildFuture {
			consider(doc.EffectiveDate())
		}
		if !cfg.BuildExpired && doc.HasExpiry() {
			consider(doc.ExpiryDate)
		}
	}
	return next, ok
}
