// Package catalog orders the published documents and groups them by taxonomy
// term, the way a site lists them.
package catalog

import (
	"slices"
	"strings"
	"unicode"

	"git.home.luguber.info/inful/pubgate/internal/content"
)

// Term is one taxonomy value and the pages carrying it.
type Term struct {
	Name  string // as first written by an author
	Key   string // URL-safe, case-folded
	Pages []*content.Document
}

// Catalog is an immutable view over a publish set.
type Catalog struct {
	pages []*content.Document
	terms map[string][]Term
}

// New builds a catalog. Pages are ordered newest first by effective date,
// then by path; undated pages sort last.
func New(docs []*content.Document) *Catalog {
	pages := slices.Clone(docs)
	slices.SortStableFunc(pages, comparePages)

	c := &Catalog{pages: pages, terms: map[string][]Term{}}
	for _, taxonomy := range []string{content.TaxonomyTags, content.TaxonomyCategories} {
		c.terms[taxonomy] = group(pages, taxonomy)
	}
	return c
}

func comparePages(a, b *content.Document) int {
	ad, bd := a.EffectiveDate(), b.EffectiveDate()
	switch {
	case ad.IsZero() && !bd.IsZero():
		return 1
	case !ad.IsZero() && bd.IsZero():
		return -1
	}
	if c := bd.Compare(ad); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

func group(pages []*content.Document, taxonomy string) []Term {
	index := map[string]int{}
	var terms []Term
	for _, p := range pages {
		for _, label := range p.Labels(taxonomy) {
			key := TermKey(label)
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(terms)
				index[key] = i
				terms = append(terms, Term{Name: label, Key: key})
			}
			if !slices.Contains(terms[i].Pages, p) {
				terms[i].Pages = append(terms[i].Pages, p)
			}
		}
	}
	slices.SortFunc(terms, func(a, b Term) int { return strings.Compare(a.Key, b.Key) })
	return terms
}

// TermKey folds a label into its URL form: lower case, runs of anything other
// than letters and digits collapsed to a single dash.
func TermKey(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// Pages returns the published pages in listing order.
func (c *Catalog) Pages() []*content.Document { return c.pages }

// Len is the number of published pages.
func (c *Catalog) Len() int { return len(c.pages) }

// Terms returns the terms of a taxonomy sorted by key. Unknown taxonomies
// have no terms.
func (c *Catalog) Terms(taxonomy string) []Term { return c.terms[taxonomy] }
