package ledger

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
	"git.home.luguber.info/inful/pubgate/internal/publish"
)

// ErrNoBuilds is returned by LatestBuild on an empty ledger.
var ErrNoBuilds = stderrors.New("no builds recorded")

// Build is one recorded evaluation run.
type Build struct {
	ID        string              `json:"id"`
	StartedAt time.Time           `json:"started_at"`
	EvalTime  time.Time           `json:"eval_time"` // the "now" the gates were evaluated against
	Trigger   string              `json:"trigger,omitempty"`
	Revision  string              `json:"revision,omitempty"`
	Config    publish.BuildConfig `json:"config"`
	Published int                 `json:"published"`
	Skipped   int                 `json:"skipped"`
	Problems  int                 `json:"problems"`
}

// Entry is the decision recorded for one document in a build.
type Entry struct {
	Path        string             `json:"path"`
	Title       string             `json:"title,omitempty"`
	Publishable bool               `json:"publishable"`
	Blocked     []publish.GateName `json:"blocked,omitempty"`
	Fingerprint string             `json:"fingerprint,omitempty"`
}

// Store is a SQLite-backed ledger.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the ledger at path. ":memory:" gives a private
// in-memory ledger.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.LedgerError("open ledger database").WithCause(err).WithContext("path", path).Build()
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.LedgerError("initialize ledger schema").WithCause(err).WithContext("path", path).Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		eval_time INTEGER NOT NULL,
		trigger_name TEXT NOT NULL DEFAULT '',
		revision TEXT NOT NULL DEFAULT '',
		build_drafts INTEGER NOT NULL,
		build_future INTEGER NOT NULL,
		build_expired INTEGER NOT NULL,
		published INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		problems INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS decisions (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		publishable INTEGER NOT NULL,
		blocked TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (build_id, path)
	);
	CREATE INDEX IF NOT EXISTS idx_builds_seq ON builds(seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordBuild stores a build and its entries atomically and returns the build
// as stored. A missing ID is filled with a new UUID; Published and Skipped are
// derived from the entries.
func (s *Store) RecordBuild(ctx context.Context, b Build, entries []Entry) (Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Published, b.Skipped = 0, 0
	for _, e := range entries {
		if e.Publishable {
			b.Published++
		} else {
			b.Skipped++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, s.fail("begin transaction", err, b.ID)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds (id, seq, started_at, eval_time, trigger_name, revision,
			build_drafts, build_future, build_expired, published, skipped, problems)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM builds), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.StartedAt.UnixMilli(), b.EvalTime.UnixMilli(), b.Trigger, b.Revision,
		b.Config.BuildDrafts, b.Config.BuildFuture, b.Config.BuildExpired,
		b.Published, b.Skipped, b.Problems,
	)
	if err != nil {
		return Build{}, s.fail("insert build", err, b.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO decisions (build_id, path, title, publishable, blocked, fingerprint) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return Build{}, s.fail("prepare decision insert", err, b.ID)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, b.ID, e.Path, e.Title, e.Publishable, joinGates(e.Blocked), e.Fingerprint); err != nil {
			return Build{}, s.fail("insert decision", err, b.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return Build{}, s.fail("commit build", err, b.ID)
	}
	return b, nil
}

const buildColumns = `id, started_at, eval_time, trigger_name, revision,
	build_drafts, build_future, build_expired, published, skipped, problems`

// LatestBuild returns the most recently recorded build.
func (s *Store) LatestBuild(ctx context.Context) (Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+buildColumns+" FROM builds ORDER BY seq DESC LIMIT 1")
	b, err := scanBuild(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Build{}, ErrNoBuilds
	}
	if err != nil {
		return Build{}, s.fail("query latest build", err, "")
	}
	return b, nil
}

// GetBuild returns a single build by ID.
func (s *Store) GetBuild(ctx context.Context, id string) (Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+buildColumns+" FROM builds WHERE id = ?", id)
	b, err := scanBuild(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Build{}, errors.NewError(errors.CategoryNotFound, "build not found").WithContext("build_id", id).Build()
	}
	if err != nil {
		return Build{}, s.fail("query build", err, id)
	}
	return b, nil
}

// ListBuilds returns up to limit builds, newest first. A limit of zero or
// less returns all of them.
func (s *Store) ListBuilds(ctx context.Context, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + buildColumns + " FROM builds ORDER BY seq DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail("query builds", err, "")
	}
	defer func() { _ = rows.Close() }()

	var builds []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, s.fail("scan build", err, "")
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate builds", err, "")
	}
	return builds, nil
}

// Entries returns the decisions of a build sorted by path.
func (s *Store) Entries(ctx context.Context, buildID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, title, publishable, blocked, fingerprint FROM decisions WHERE build_id = ? ORDER BY path",
		buildID,
	)
	if err != nil {
		return nil, s.fail("query decisions", err, buildID)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var blocked string
		if err := rows.Scan(&e.Path, &e.Title, &e.Publishable, &blocked, &e.Fingerprint); err != nil {
			return nil, s.fail("scan decision", err, buildID)
		}
		e.Blocked = splitGates(blocked)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate decisions", err, buildID)
	}
	return entries, nil
}

// Prune deletes all but the newest keep builds and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.fail("begin transaction", err, "")
	}
	defer func() { _ = tx.Rollback() }()

	const stale = "SELECT id FROM builds ORDER BY seq DESC LIMIT -1 OFFSET ?"
	if _, err := tx.ExecContext(ctx, "DELETE FROM decisions WHERE build_id IN ("+stale+")", keep); err != nil {
		return 0, s.fail("prune decisions", err, "")
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM builds WHERE id IN ("+stale+")", keep)
	if err != nil {
		return 0, s.fail("prune builds", err, "")
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, s.fail("commit prune", err, "")
	}
	return int(n), nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) fail(op string, err error, buildID string) error {
	b := errors.LedgerError("ledger " + op + " failed").WithCause(err)
	if buildID != "" {
		b.WithContext("build_id", buildID)
	}
	return b.Build()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(r rowScanner) (Build, error) {
	var b Build
	var started, eval int64
	err := r.Scan(&b.ID, &started, &eval, &b.Trigger, &b.Revision,
		&b.Config.BuildDrafts, &b.Config.BuildFuture, &b.Config.BuildExpired,
		&b.Published, &b.Skipped, &b.Problems)
	if err != nil {
		return Build{}, err
	}
	b.StartedAt = time.UnixMilli(started).UTC()
	b.EvalTime = time.UnixMilli(eval).UTC()
	return b, nil
}

func joinGates(gates []publish.GateName) string {
	parts := make([]string, len(gates))
	for i, g := range gates {
		parts[i] = string(g)
	}
	return strings.Join(parts, ",")
}

func splitGates(s string) []publish.GateName {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	gates := make([]publish.GateName, len(parts))
	for i, p := range parts {
		gates[i] = publish.GateName(p)
	}
	return gates
}
