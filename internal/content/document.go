package content

import (
	"path"
	"strings"
	"time"

	"git.home.luguber.info/inful/pubgate/internal/frontmatter"
)

// Taxonomy names understood by Labels.
const (
	TaxonomyTags       = "tags"
	TaxonomyCategories = "categories"
)

// Document is one content file with its decoded metadata.
type Document struct {
	Path        string // slash-separated, relative to the content directory
	Title       string
	Date        time.Time
	PublishDate time.Time
	ExpiryDate  time.Time
	Draft       bool
	Categories  []string
	Tags        []string
	Params      map[string]any
	Format      frontmatter.Format
	Body        []byte
	Fingerprint string
}

// EffectiveDate is the instant the document becomes visible: publishDate when
// set, date otherwise. Zero means "no date", which never blocks publication.
func (d *Document) EffectiveDate() time.Time {
	if !d.PublishDate.IsZero() {
		return d.PublishDate
	}
	return d.Date
}

// HasExpiry reports whether the document declares an expiry date.
func (d *Document) HasExpiry() bool { return !d.ExpiryDate.IsZero() }

// Labels returns the document's terms for a taxonomy, or nil for unknown taxonomies.
func (d *Document) Labels(taxonomy string) []string {
	switch taxonomy {
	case TaxonomyTags:
		return d.Tags
	case TaxonomyCategories:
		return d.Categories
	default:
		return nil
	}
}

// IsSection reports whether the document is a section page (_index.md),
// which introduces the pages below it rather than being listed itself.
func (d *Document) IsSection() bool {
	base := path.Base(d.Path)
	return strings.TrimSuffix(base, path.Ext(base)) == "_index"
}

// Section is the directory of the document relative to the content root, or
// "" at the top level. A section page's section is its own directory.
func (d *Document) Section() string {
	dir := path.Dir(d.Path)
	if dir == "." {
		return ""
	}
	return dir
}

// Slug is the output path of the document without extension. Leaf bundles
// (index.md) and section pages (_index.md) map to their directory. A "slug"
// front matter value replaces the last path segment.
func (d *Document) Slug() string {
	p := strings.TrimSuffix(d.Path, path.Ext(d.Path))
	dir, base := path.Split(p)
	if base == "index" || base == "_index" {
		p = strings.TrimSuffix(dir, "/")
		dir, base = path.Split(p)
	}
	if s, ok := d.Params["slug"].(string); ok && strings.TrimSpace(s) != "" {
		base = strings.TrimSpace(s)
	}
	return strings.TrimPrefix(path.Join(dir, base), "/")
}
