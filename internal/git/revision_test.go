package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var commitTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// addCommit writes a file and commits it, returning the commit hash.
func addCommit(t *testing.T, repo *gogit.Repository, repoPath, filename, content, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)

	full := filepath.Join(repoPath, filepath.FromSlash(filename))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
	_, err = wt.Add(filename)
	require.NoError(t, err)

	sig := &object.Signature{Name: "tester", Email: "t@example.com", When: commitTime}
	hash, err := wt.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return hash
}

func TestHeadRevision(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	addCommit(t, repo, dir, "content/a.md", "a", "first")
	hash := addCommit(t, repo, dir, "content/posts/b.md", "b", "Add post b\n\nlonger body")

	rev, err := HeadRevision(filepath.Join(dir, "content"))
	require.NoError(t, err)

	assert.Equal(t, hash.String(), rev.Hash)
	assert.Equal(t, "master", rev.Branch)
	assert.True(t, commitTime.Equal(rev.Time))
	assert.Equal(t, "tester", rev.Author)
	assert.Equal(t, "Add post b", rev.Subject)
	assert.Len(t, rev.Short(), 12)
	assert.Empty(t, rev.Tree)
}

func TestHeadRevisionOf_ContentTree(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	addCommit(t, repo, dir, "content/a.md", "a", "first")
	first, err := HeadRevisionOf(dir, filepath.Join(dir, "content"))
	require.NoError(t, err)
	require.NotEmpty(t, first.Tree)

	addCommit(t, repo, dir, "README.md", "readme", "docs only")
	second, err := HeadRevisionOf(dir, filepath.Join(dir, "content"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, second.Hash)
	assert.Equal(t, first.Tree, second.Tree, "content tree unchanged by unrelated commits")

	addCommit(t, repo, dir, "content/a.md", "a2", "edit")
	third, err := HeadRevisionOf(dir, filepath.Join(dir, "content"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Tree, third.Tree)

	outside, err := HeadRevisionOf(dir, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, outside.Tree)
}

func TestHeadRevision_NotRepository(t *testing.T) {
	_, err := HeadRevision(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestHeadRevision_NoCommits(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = HeadRevision(dir)
	assert.ErrorIs(t, err, ErrNoCommits)
}

func TestRevisionShort(t *testing.T) {
	assert.Equal(t, "abc", Revision{Hash: "abc"}.Short())
}
