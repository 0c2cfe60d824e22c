package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/ledger"
	"git.home.luguber.info/inful/pubgate/internal/runner"
)

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"hugo.yaml":              "title: CLI Blog\n",
		"content/posts/live.md":  "---\ntitle: Live\ndate: 2024-01-01\n---\nLive post.",
		"content/posts/draft.md": "---\ntitle: Draft\ndraft: true\n---\nNot yet.",
		"content/posts/later.md": "---\ntitle: Later\ndate: 2024-06-15T12:00:00Z\n---\nScheduled.",
	}
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return dir
}

// run parses args like the binary does and runs the selected command.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("pubgate"),
		kong.Vars{"version": "test"},
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)

	ctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = ctx.Run(&Global{Out: &out}, cli)
	return out.String(), err
}

func TestCheck_Text(t *testing.T) {
	site := writeSite(t)

	out, err := run(t, "--site", site, "check", "--now", "2024-06-01T00:00:00Z")
	require.NoError(t, err)

	assert.Regexp(t, `published\s+posts/live.md\s+Live\s+-`, out)
	assert.Regexp(t, `skipped\s+posts/draft.md\s+Draft\s+draft`, out)
	assert.Regexp(t, `skipped\s+posts/later.md\s+Later\s+future`, out)
	assert.Contains(t, out, "1 published, 2 skipped, 0 problems (as of 2024-06-01T00:00:00Z)")
	assert.Contains(t, out, "Next change: 2024-06-15T12:00:00Z")
}

func TestCheck_FlagsOnlyRelax(t *testing.T) {
	site := writeSite(t)

	out, err := run(t, "--site", site, "check", "--now", "2024-06-01T00:00:00Z", "-D", "-F")
	require.NoError(t, err)
	assert.Contains(t, out, "3 published, 0 skipped")
}

func TestCheck_JSON(t *testing.T) {
	site := writeSite(t)

	out, err := run(t, "--site", site, "check", "--format", "json", "--now", "2024-07-01T00:00:00Z")
	require.NoError(t, err)

	var sum runner.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 2, sum.Published)
	assert.Equal(t, 1, sum.Skipped)
	assert.Len(t, sum.Decisions, 3)
	assert.Nil(t, sum.NextTransition)
}

func TestCheck_InvalidNow(t *testing.T) {
	site := writeSite(t)

	_, err := run(t, "--site", site, "check", "--now", "tomorrow")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, 2, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestCheck_MissingConfigFile(t *testing.T) {
	site := writeSite(t)

	_, err := run(t, "--site", site, "--config", filepath.Join(site, "nope.yaml"), "check")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestBuildAndHistory(t *testing.T) {
	site := writeSite(t)
	out := filepath.Join(t.TempDir(), "public")
	db := filepath.Join(t.TempDir(), "ledger.db")

	stdout, err := run(t, "--site", site, "build", "-o", out, "--ledger", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 published, 1 skipped, 0 problems")
	assert.Contains(t, stdout, "Changes: 2 newly published, 0 withdrawn, 0 changed")
	assert.Contains(t, stdout, "Rendered")
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "posts", "live", "index.html"))

	stdout, err = run(t, "history", "--ledger", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "BUILD")
	assert.Regexp(t, `build\s+.*\s+2\s+1\s+0`, stdout)

	store, err := ledger.Open(db)
	require.NoError(t, err)
	latest, err := store.LatestBuild(t.Context())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	stdout, err = run(t, "history", "--ledger", db, latest.ID)
	require.NoError(t, err)
	assert.Regexp(t, `skipped\s+posts/draft.md\s+Draft\s+draft`, stdout)

	stdout, err = run(t, "history", "--ledger", db, "--format", "json")
	require.NoError(t, err)
	var builds []ledger.Build
	require.NoError(t, json.Unmarshal([]byte(stdout), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, latest.ID, builds[0].ID)
}

func TestBuild_NoRender(t *testing.T) {
	site := writeSite(t)
	out := filepath.Join(t.TempDir(), "public")

	stdout, err := run(t, "--site", site, "build", "-o", out, "--no-render")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Rendered")
	assert.NoDirExists(t, out)
}

func TestHistory_UnknownBuild(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	stdout, err := run(t, "history", "--ledger", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No builds recorded")

	_, err = run(t, "history", "--ledger", db, "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestHistory_Prune(t *testing.T) {
	site := writeSite(t)
	db := filepath.Join(t.TempDir(), "ledger.db")

	for range 3 {
		_, err := run(t, "--site", site, "build", "--ledger", db, "--no-render")
		require.NoError(t, err)
	}

	stdout, err := run(t, "history", "--ledger", db, "--prune", "1", "--format", "json")
	require.NoError(t, err)
	var builds []ledger.Build
	require.NoError(t, json.Unmarshal([]byte(stdout), &builds))
	assert.Len(t, builds, 1)
}

func TestSinkFlags_DefaultStateBucket(t *testing.T) {
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"})
	require.NoError(t, err)

	_, err = parser.Parse([]string{"build", "--nats", "nats://localhost:4222"})
	require.NoError(t, err)
	assert.Equal(t, "pubgate-state", cli.Build.NATSBucket)

	_, err = parser.Parse([]string{"daemon", "--nats-bucket", "site-a"})
	require.NoError(t, err)
	assert.Equal(t, "site-a", cli.Daemon.NATSBucket)
}
