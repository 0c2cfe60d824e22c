// Package publish decides which documents belong in the generated site.
//
// A document is publishable when every gate allows it. The default gates are
// the Hugo build switches:
//
//   - draft:   allowed unless the document is a draft and BuildDrafts is off
//   - future:  allowed unless the effective date is after now and BuildFuture is off
//   - expired: allowed unless the expiry date is at or before now and BuildExpired is off
//
// Evaluation is pure. The current time is always an argument.
package publish
