package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pubgate/internal/catalog"
	"git.home.luguber.info/inful/pubgate/internal/content"
)

func readOut(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func sampleCatalog() *catalog.Catalog {
	d := func(day int) time.Time { return time.Date(2024, 2, day, 0, 0, 0, 0, time.UTC) }
	return catalog.New([]*content.Document{
		{Path: "_index.md", Title: "Home", Body: []byte("Welcome to the *blog*.")},
		{Path: "posts/_index.md", Title: "Posts", Body: []byte("All posts.")},
		{
			Path: "posts/git-history.md", Title: "Rewriting Git History", Date: d(3),
			Tags: []string{"Git"}, Categories: []string{"tools"},
			Body: []byte("# Rewriting\n\nUse `git rebase` carefully.\n\n<!--more-->\n\nMore detail here."),
		},
		{
			Path: "posts/net-http/index.md", Title: "net/http", Date: d(5),
			Tags: []string{"go", "http"},
			Body: []byte("| a | b |\n|---|---|\n| 1 | 2 |\n"),
		},
		{Path: "about.md", Title: "About", Body: []byte("About me.")},
	})
}

func TestRender_WritesSite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	r, err := New(Options{OutputDir: out, Title: "Notes", BaseURL: "https://example.org"})
	require.NoError(t, err)

	res, err := r.Render(context.Background(), sampleCatalog())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Pages)
	assert.Contains(t, res.Files, "posts/git-history/index.html")
	assert.Contains(t, res.Files, "posts/net-http/index.html")
	assert.Contains(t, res.Files, "tags/git/index.html")
	assert.Contains(t, res.Files, "categories/tools/index.html")

	page := readOut(t, out, "posts/git-history/index.html")
	assert.Contains(t, page, "<title>Rewriting Git History | Notes</title>")
	assert.Contains(t, page, `<h1 id="rewriting">Rewriting</h1>`)
	assert.Contains(t, page, `href="https://example.org/tags/git/"`)

	table := readOut(t, out, "posts/net-http/index.html")
	assert.Contains(t, table, "<table>", "GFM tables are enabled")

	index := readOut(t, out, "index.html")
	assert.Contains(t, index, "Welcome to the <em>blog</em>.")
	assert.Less(t, strings.Index(index, "net/http"), strings.Index(index, "Rewriting Git History"), "newest first")
	assert.Contains(t, index, "<p>Rewriting Use git rebase carefully.</p>", "manual summary stops at the divider")
	assert.NotContains(t, index, "More detail here")

	section := readOut(t, out, "posts/index.html")
	assert.Contains(t, section, "All posts.")
	assert.Contains(t, section, "Rewriting Git History")
	assert.NotContains(t, section, "About")

	tags := readOut(t, out, "tags/index.html")
	assert.Contains(t, tags, "<title>Tags | Notes</title>")
	assert.Contains(t, tags, `href="https://example.org/tags/go/"`)

	feed := readOut(t, out, "index.xml")
	assert.Contains(t, feed, "<link>https://example.org/posts/net-http/</link>")
	assert.NotContains(t, feed, "About", "undated pages stay out of the feed")
}

func TestRender_ReplacesPreviousOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "withdrawn"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(out, "withdrawn", "index.html"), []byte("old"), 0o600))

	r, err := New(Options{OutputDir: out, Title: "Notes"})
	require.NoError(t, err)
	_, err = r.Render(context.Background(), catalog.New(nil))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "withdrawn"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(out + ".staging")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(out + ".previous")
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, readOut(t, out, "index.html"), "<title>Notes</title>")
}

func TestRender_LayoutOverrideAndStatic(t *testing.T) {
	root := t.TempDir()
	layouts := filepath.Join(root, "layouts")
	static := filepath.Join(root, "static")
	require.NoError(t, os.MkdirAll(layouts, 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(static, "css"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(layouts, "base.html"),
		[]byte(`{{define "base"}}CUSTOM {{template "main" .}}{{end}}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(static, "css", "site.css"), []byte("body{}"), 0o600))

	out := filepath.Join(root, "public")
	r, err := New(Options{OutputDir: out, LayoutDir: layouts, StaticDir: static})
	require.NoError(t, err)
	_, err = r.Render(context.Background(), sampleCatalog())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(readOut(t, out, "about/index.html"), "CUSTOM "))
	assert.Equal(t, "body{}", readOut(t, out, "css/site.css"))
}

func TestRender_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "public")
	r, err := New(Options{OutputDir: out})
	require.NoError(t, err)
	_, err = r.Render(ctx, sampleCatalog())
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "nothing is published on failure")
}

func TestNew_RequiresOutputDir(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
