// Package git reads the revision of the repository a site lives in, so that
// every recorded build can be traced back to the commit it was made from.
//
// Only local, read-only operations are performed. Sites that are not under
// version control are reported with ErrNotRepository and are otherwise fine.
package git
