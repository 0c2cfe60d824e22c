// Package content turns Markdown source files into Documents: typed front matter
// metadata plus the body, ready for the publication filter.
//
// Front matter keys are matched case-insensitively, as Hugo does. Recognized keys
// are title, date, publishDate (alias pubDate), expiryDate (alias unpublishDate),
// draft, categories and tags; every other key is kept verbatim in Params.
package content
