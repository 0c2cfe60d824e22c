package git

import (
	stderrors "errors"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Revision identifies the commit a build was made from.
type Revision struct {
	Hash    string    `json:"hash"`
	Branch  string    `json:"branch,omitempty"` // empty on a detached HEAD
	Time    time.Time `json:"time"`
	Author  string    `json:"author,omitempty"`
	Subject string    `json:"subject,omitempty"`
	// Tree is the hash of the committed content directory, when one was
	// asked for and exists at HEAD.
	Tree string `json:"tree,omitempty"`
}

// Short is the abbreviated commit hash.
func (r Revision) Short() string {
	if len(r.Hash) > 12 {
		return r.Hash[:12]
	}
	return r.Hash
}

// HeadRevision resolves HEAD of the repository enclosing path.
func HeadRevision(path string) (Revision, error) {
	return HeadRevisionOf(path, "")
}

// HeadRevisionOf resolves HEAD like HeadRevision and also records the tree
// hash of contentDir, which may be absolute or relative to the working
// directory and must lie inside the repository.
func HeadRevisionOf(path, contentDir string) (Revision, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if stderrors.Is(err, gogit.ErrRepositoryNotExists) {
			return Revision{}, ErrNotRepository
		}
		return Revision{}, classify(err, "open", path)
	}

	head, err := repo.Head()
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return Revision{}, ErrNoCommits
		}
		return Revision{}, classify(err, "head", path)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Revision{}, classify(err, "commit", path)
	}

	rev := Revision{
		Hash:    commit.Hash.String(),
		Time:    commit.Committer.When,
		Author:  commit.Author.Name,
		Subject: subject(commit.Message),
	}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	if contentDir != "" {
		rel, ok := relativeToWorktree(repo, contentDir)
		if ok {
			if tree, err := subtree(commit, rel); err == nil {
				rev.Tree = tree
			}
		}
	}
	return rev, nil
}

func subject(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	return strings.TrimSpace(line)
}

func relativeToWorktree(repo *gogit.Repository, dir string) (string, bool) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		root = wt.Filesystem.Root()
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func subtree(commit *object.Commit, rel string) (string, error) {
	tree, err := commit.Tree()
	if err != nil {
		return "", err
	}
	if rel == "." || rel == "" {
		return tree.Hash.String(), nil
	}
	sub, err := tree.Tree(rel)
	if err != nil {
		return "", err
	}
	return sub.Hash.String(), nil
}
