// Package scan discovers and parses the markdown documents under a content
// tree.
package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pubgate/internal/content"
	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/logfields"
)

// Problem is a document that could not be read or parsed. It is excluded from
// publication and reported, and the scan carries on.
type Problem struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// Message returns the problem's error text.
func (p Problem) Message() string {
	if p.Err == nil {
		return ""
	}
	return p.Err.Error()
}

// Result is the outcome of a scan.
type Result struct {
	Documents []*content.Document
	Problems  []Problem
}

// Options controls a scan.
type Options struct {
	Parse content.ParseOptions
}

// IsMarkdown reports whether name has a markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}

func isHidden(name string) bool {
	return name != "." && strings.HasPrefix(name, ".")
}

// Scan walks fsys and parses every markdown file. Hidden files and
// directories are skipped. Documents come back sorted by path. The returned
// error is non-nil only when the walk itself fails or ctx is canceled.
func Scan(ctx context.Context, fsys fs.FS, opts Options) (*Result, error) {
	res := &Result{}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == "." {
				return err
			}
			res.Problems = append(res.Problems, Problem{Path: p, Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsMarkdown(p) {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			res.Problems = append(res.Problems, Problem{
				Path: p,
				Err:  errors.FileSystemError("failed to read document").WithCause(err).WithContext("document", p).Build(),
			})
			return nil
		}

		doc, err := content.Parse(p, data, opts.Parse)
		if err != nil {
			slog.Warn("Skipping unreadable document", logfields.Document(p), logfields.Error(err))
			res.Problems = append(res.Problems, Problem{Path: p, Err: err})
			return nil
		}
		res.Documents = append(res.Documents, doc)
		return nil
	})
	if err != nil {
		return nil, errors.FileSystemError("failed to scan content").WithCause(err).Build()
	}

	sort.Slice(res.Documents, func(i, j int) bool { return res.Documents[i].Path < res.Documents[j].Path })
	sort.Slice(res.Problems, func(i, j int) bool { return res.Problems[i].Path < res.Problems[j].Path })

	slog.Debug("Content scanned",
		logfields.Count(len(res.Documents)),
		slog.Int("problems", len(res.Problems)))
	return res, nil
}

// Dir scans the content directory at root. A missing directory is an empty
// site, not an error.
func Dir(ctx context.Context, root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		slog.Warn("Content directory does not exist", logfields.Path(root))
		return &Result{}, nil
	}
	if err != nil {
		return nil, errors.FileSystemError("failed to stat content directory").WithCause(err).WithContext("path", root).Build()
	}
	if !info.IsDir() {
		return nil, errors.ConfigError("content path is not a directory").WithContext("path", root).Build()
	}
	return Scan(ctx, os.DirFS(root), opts)
}
