package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/publish"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var (
	t0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func TestRecordAndReadBuild(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()

	entries := []Entry{
		{Path: "b.md", Title: "B", Publishable: false, Blocked: []publish.GateName{publish.GateDraft, publish.GateFuture}},
		{Path: "a.md", Title: "A", Publishable: true, Fingerprint: "fp-a"},
	}
	b, err := s.RecordBuild(ctx, Build{
		StartedAt: t0, EvalTime: t0, Trigger: "cli", Revision: "abc123",
		Config: publish.BuildConfig{BuildExpired: true}, Problems: 2,
	}, entries)
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)
	assert.Equal(t, 1, b.Published)
	assert.Equal(t, 1, b.Skipped)

	latest, err := s.LatestBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, latest)

	got, err := s.Entries(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.md", got[0].Path)
	assert.Nil(t, got[0].Blocked)
	assert.Equal(t, []publish.GateName{publish.GateDraft, publish.GateFuture}, got[1].Blocked)
}

func TestLatestBuild_Empty(t *testing.T) {
	_, err := openMemory(t).LatestBuild(t.Context())
	assert.ErrorIs(t, err, ErrNoBuilds)
}

func TestGetBuild_NotFound(t *testing.T) {
	_, err := openMemory(t).GetBuild(t.Context(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
}

func TestListBuildsNewestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()

	var ids []string
	for i := range 3 {
		b, err := s.RecordBuild(ctx, Build{StartedAt: t0.Add(time.Duration(i) * time.Minute), EvalTime: t0}, nil)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	all, err := s.ListBuilds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	two, err := s.ListBuilds(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	one, err := s.GetBuild(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, ids[1], one.ID)
}

func TestRecordBuild_DuplicateIDRollsBack(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()

	_, err := s.RecordBuild(ctx, Build{ID: "fixed", StartedAt: t0, EvalTime: t0}, []Entry{{Path: "a.md", Publishable: true}})
	require.NoError(t, err)

	_, err = s.RecordBuild(ctx, Build{ID: "fixed", StartedAt: t1, EvalTime: t1}, []Entry{{Path: "b.md"}})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryLedger, errors.GetCategory(err))

	entries, err := s.Entries(ctx, "fixed")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.md", entries[0].Path)
}

func TestPrune(t *testing.T) {
	s := openMemory(t)
	ctx := t.Context()

	var last Build
	for range 4 {
		b, err := s.RecordBuild(ctx, Build{StartedAt: t0, EvalTime: t0}, []Entry{{Path: "a.md", Publishable: true}})
		require.NoError(t, err)
		last = b
	}

	n, err := s.Prune(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	builds, err := s.ListBuilds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, last.ID, builds[0].ID)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	b, err := s.RecordBuild(t.Context(), Build{StartedAt: t0, EvalTime: t0}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	latest, err := reopened.LatestBuild(t.Context())
	require.NoError(t, err)
	assert.Equal(t, b.ID, latest.ID)
}
