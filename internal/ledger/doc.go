// Package ledger persists every build's publication decisions in SQLite and
// compares consecutive builds to find documents that were published,
// withdrawn or changed.
package ledger
