// Package render writes the publish set as a static HTML site.
//
// Output is built in a staging directory next to the target and swapped in
// once complete, so a withdrawn document disappears from the site in the same
// step new ones appear.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/pubgate/internal/catalog"
	"git.home.luguber.info/inful/pubgate/internal/content"
	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
)

// Options configures a Renderer.
type Options struct {
	OutputDir string
	Title     string
	BaseURL   string
	LayoutDir string // optional *.html overrides of the built-in templates
	StaticDir string // optional files copied verbatim into the output
}

// Result summarizes a render.
type Result struct {
	Pages int
	Files []string // slash-separated, relative to the output directory
}

// Renderer turns a catalog into HTML files.
type Renderer struct {
	opts Options
	md   goldmark.Markdown
	tmpl *template.Template
}

// New parses templates and prepares the markdown converter.
func New(opts Options) (*Renderer, error) {
	if opts.OutputDir == "" {
		return nil, errors.ValidationError("output directory is required").Build()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "/"
	}
	if !strings.HasSuffix(opts.BaseURL, "/") {
		opts.BaseURL += "/"
	}

	tmpl, err := parseTemplates(opts.LayoutDir)
	if err != nil {
		return nil, errors.RenderError("failed to parse templates").
			WithCause(err).
			WithContext("layout_dir", opts.LayoutDir).
			Build()
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithXHTML()),
	)
	return &Renderer{opts: opts, md: md, tmpl: tmpl}, nil
}

type siteView struct {
	Title   string
	BaseURL string
}

type termLink struct {
	Name  string
	Key   string
	URL   string
	Count int
}

type pageView struct {
	Title   string
	URL     string
	Date    time.Time
	Dated   bool
	Summary string
	Content template.HTML
	Tags    []termLink
}

type view struct {
	Site  siteView
	Title string
	Page  *pageView
	Intro template.HTML
	List  []*pageView
	Terms []termLink
}

// Render writes the whole site for cat and replaces the output directory.
func (r *Renderer) Render(ctx context.Context, cat *catalog.Catalog) (*Result, error) {
	out := filepath.Clean(r.opts.OutputDir)
	staging := out + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return nil, r.fsError("failed to clear staging directory", err, staging)
	}

	w := &writer{root: staging}
	res, err := r.renderTo(ctx, w, cat)
	if err != nil {
		_ = os.RemoveAll(staging)
		return nil, err
	}
	if err := swap(staging, out); err != nil {
		_ = os.RemoveAll(staging)
		return nil, r.fsError("failed to replace output directory", err, out)
	}

	slog.Info("Site rendered", logfields.Path(out), logfields.Count(res.Pages), slog.Int("files", len(res.Files)))
	return res, nil
}

func (r *Renderer) renderTo(ctx context.Context, w *writer, cat *catalog.Catalog) (*Result, error) {
	site := siteView{Title: r.opts.Title, BaseURL: r.opts.BaseURL}
	res := &Result{}

	views := make(map[*content.Document]*pageView, cat.Len())
	var home *content.Document
	var regular []*pageView
	var sections []*content.Document

	for _, doc := range cat.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pv, err := r.pageView(doc)
		if err != nil {
			return nil, err
		}
		views[doc] = pv
		switch {
		case doc.IsSection() && doc.Section() == "":
			home = doc
		case doc.IsSection():
			sections = append(sections, doc)
		default:
			regular = append(regular, pv)
			if err := r.write(w, path.Join(doc.Slug(), "index.html"), view{Site: site, Title: pv.Title, Page: pv}); err != nil {
				return nil, err
			}
			res.Pages++
		}
	}

	for _, sec := range sections {
		pv := views[sec]
		var list []*pageView
		for _, doc := range cat.Pages() {
			if !doc.IsSection() && strings.HasPrefix(doc.Path, sec.Section()+"/") {
				list = append(list, views[doc])
			}
		}
		if err := r.write(w, path.Join(sec.Slug(), "index.html"), view{Site: site, Title: pv.Title, Intro: pv.Content, List: list}); err != nil {
			return nil, err
		}
		res.Pages++
	}

	index := view{Site: site, List: regular}
	if home != nil {
		index.Intro = views[home].Content
	}
	if err := r.write(w, "index.html", index); err != nil {
		return nil, err
	}

	for _, taxonomy := range []string{content.TaxonomyTags, content.TaxonomyCategories} {
		terms := cat.Terms(taxonomy)
		links := make([]termLink, 0, len(terms))
		for _, term := range terms {
			list := make([]*pageView, 0, len(term.Pages))
			for _, doc := range term.Pages {
				if !doc.IsSection() {
					list = append(list, views[doc])
				}
			}
			termURL := taxonomy + "/" + term.Key + "/"
			if err := r.write(w, termURL+"index.html", view{Site: site, Title: displayTitle(term.Name), List: list}); err != nil {
				return nil, err
			}
			links = append(links, termLink{Name: term.Name, Key: term.Key, URL: termURL, Count: len(list)})
		}
		if len(links) == 0 {
			continue
		}
		if err := r.write(w, taxonomy+"/index.html", view{Site: site, Title: displayTitle(taxonomy), Terms: links}); err != nil {
			return nil, err
		}
	}

	feed, err := buildFeed(r.opts, regular)
	if err != nil {
		return nil, errors.RenderError("failed to build feed").WithCause(err).Build()
	}
	if err := w.writeFile("index.xml", feed); err != nil {
		return nil, r.fsError("failed to write feed", err, "index.xml")
	}

	if r.opts.StaticDir != "" {
		if err := copyStatic(r.opts.StaticDir, w); err != nil {
			return nil, r.fsError("failed to copy static files", err, r.opts.StaticDir)
		}
	}

	res.Files = w.files
	return res, nil
}

func (r *Renderer) pageView(doc *content.Document) (*pageView, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(doc.Body, &buf); err != nil {
		return nil, errors.RenderError("failed to convert markdown").
			WithCause(err).
			WithContext("document", doc.Path).
			Build()
	}

	summary := ""
	if manual, ok := splitMore(doc.Body); ok {
		var sb bytes.Buffer
		if err := r.md.Convert(manual, &sb); err == nil {
			summary = Summarize(sb.Bytes(), -1)
		}
	} else {
		summary = Summarize(buf.Bytes(), SummaryWords)
	}

	pv := &pageView{
		Title:   doc.Title,
		URL:     pageURL(doc),
		Date:    doc.EffectiveDate(),
		Dated:   !doc.EffectiveDate().IsZero(),
		Summary: summary,
		// #nosec G203 -- goldmark output; raw HTML in markdown is not rendered
		Content: template.HTML(buf.String()),
	}
	for _, tag := range doc.Tags {
		if key := catalog.TermKey(tag); key != "" {
			pv.Tags = append(pv.Tags, termLink{Name: tag, Key: key, URL: content.TaxonomyTags + "/" + key + "/"})
		}
	}
	return pv, nil
}

func pageURL(doc *content.Document) string {
	slug := doc.Slug()
	if slug == "" {
		return ""
	}
	return slug + "/"
}

func (r *Renderer) write(w *writer, rel string, v view) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", v); err != nil {
		return errors.RenderError("failed to execute template").
			WithCause(err).
			WithContext("path", rel).
			Build()
	}
	if err := w.writeFile(rel, buf.Bytes()); err != nil {
		return r.fsError("failed to write page", err, rel)
	}
	return nil
}

func (r *Renderer) fsError(msg string, err error, p string) error {
	return errors.FileSystemError(msg).WithCause(err).WithContext("path", p).Build()
}

type writer struct {
	root  string
	files []string
}

func (w *writer) writeFile(rel string, data []byte) error {
	full := filepath.Join(w.root, filepath.FromSlash(rel))
	// #nosec G301 -- published site directories are world-readable
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	// #nosec G306 -- published site files are world-readable
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	w.files = append(w.files, rel)
	return nil
}

// swap moves staging into place of out, keeping the old tree until the move
// has succeeded.
func swap(staging, out string) error {
	previous := out + ".previous"
	_ = os.RemoveAll(previous)

	hadOutput := false
	if _, err := os.Stat(out); err == nil {
		if err := os.Rename(out, previous); err != nil {
			return err
		}
		hadOutput = true
	}
	if err := os.Rename(staging, out); err != nil {
		if hadOutput {
			_ = os.Rename(previous, out)
		}
		return err
	}
	if hadOutput {
		return os.RemoveAll(previous)
	}
	return nil
}
