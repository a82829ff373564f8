package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/registry"
)

//go:embed schema.sql
var schemaSQL string

// Schema version history (stored in PRAGMA user_version):
//
//	 7 - oldest version with a supported upgrade path
//	 8 - status bar / navigation bar capability columns
//	 9 - present_as_theme recomputed under the current rule
//	10 - selection previous-value and update-time columns
//	11 - live lock screen capability column and selection row
//	12 - stale default-package identifier rewritten to "system"
//
// Anything outside [7, 12] is unknown and triggers drop-and-recreate.
const (
	CurrentVersion  = 12
	baselineVersion = 7
)

// Hooks are the collaborator callbacks the store needs during
// migrations and seeding. Backfills re-derive data through these
// instead of hand-rolling SQL heuristics.
type Hooks struct {
	// Capabilities re-resolves the capability map for a package. May be
	// nil, in which case capability backfills leave rows unchanged.
	Capabilities func(pkg string) registry.CapabilityMap

	// RegenPreviews requests preview regeneration for a package. Called
	// only after the surrounding migration or seed transaction has
	// committed. May be nil.
	RegenPreviews func(pkg string)
}

// Store provides durable storage for the theme registry.
//
// A Store is either the root handle (owning the *sql.DB) or a
// transaction-bound view created by InTx; both expose the same reads
// and writes.
type Store struct {
	db     *sql.DB // nil on transaction-bound views
	q      queryer
	policy *policy.Policy
	hooks  Hooks
	now    func() int64
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Option configures a Store at open time.
type Option func(*Store)

// WithClock overrides the wall clock used for created/update stamps.
// Tests use this for deterministic timestamps.
func WithClock(now func() int64) Option {
	return func(s *Store) { s.now = now }
}

// Open creates or opens the registry database at path and brings its
// schema to CurrentVersion.
//
// A fresh database is created at CurrentVersion and seeded with the
// synthetic system theme row and the default selection rows. An older
// database within the supported range is migrated forward one version
// at a time inside a single transaction. An unknown version or a
// storage error during migration drops and recreates the store.
func Open(path string, pol *policy.Policy, hooks Hooks, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Single writer. SQLite allows one writer at a time; one connection
	// avoids SQLITE_BUSY instead of retrying around it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	s := &Store{
		db:     db,
		q:      db,
		policy: pol,
		hooks:  hooks,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	if err := s.prepareSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.ensureConfig(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database. No-op on transaction views.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Now returns the store's current clock reading in unix millis.
func (s *Store) Now() int64 { return s.now() }

// Policy returns the theming policy the store was opened with.
func (s *Store) Policy() *policy.Policy { return s.policy }

// InTx runs fn against a transaction-bound view of the store. If s is
// already transaction-bound the call nests flat: fn runs in the same
// transaction and commit/rollback stay with the outermost caller.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	view := &Store{q: tx, policy: s.policy, hooks: s.hooks, now: s.now}
	if err := fn(view); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// prepareSchema inspects the stored version and creates, migrates, or
// recreates the schema as needed.
func (s *Store) prepareSchema(ctx context.Context) error {
	version, err := s.userVersion(ctx)
	if err != nil {
		return err
	}

	switch {
	case version == 0:
		// Either a fresh file or a pre-versioning database. A fresh
		// file has no tables; anything else is unknown and rebuilt.
		fresh, err := s.isFresh(ctx)
		if err != nil {
			return err
		}
		if !fresh {
			slog.Warn("unversioned registry database, recreating")
		}
		return s.recreate(ctx)

	case version == CurrentVersion:
		return nil

	case version >= baselineVersion && version < CurrentVersion:
		if err := s.migrate(ctx, version); err != nil {
			slog.Error("migration failed, recreating registry",
				"from_version", version, "error", err)
			return s.recreate(ctx)
		}
		return nil

	default:
		slog.Warn("unknown registry schema version, recreating",
			"stored_version", version)
		return s.recreate(ctx)
	}
}

// isFresh reports whether the database contains none of our tables.
func (s *Store) isFresh(ctx context.Context) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('themes', 'selections', 'previews')
	`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect schema: %w", err)
	}
	return n == 0, nil
}

// recreate drops all registry tables and rebuilds the schema at
// CurrentVersion, reseeding defaults. Data loss is deliberate: the
// registry is reconstructible from the package inventory.
func (s *Store) recreate(ctx context.Context) error {
	var regen []string
	err := s.InTx(ctx, func(tx *Store) error {
		for _, table := range []string{"previews", "selections", "themes", "config"} {
			if _, err := tx.q.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("drop %s: %w", table, err)
			}
		}
		if _, err := tx.q.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		seeded, err := tx.seedDefaults(ctx)
		if err != nil {
			return err
		}
		regen = seeded
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.setUserVersion(ctx, CurrentVersion); err != nil {
		return err
	}
	s.dispatchRegen(regen)
	return nil
}

// dispatchRegen forwards queued regeneration requests to the hook.
// Callers invoke this only after the owning transaction committed.
func (s *Store) dispatchRegen(pkgs []string) {
	if s.hooks.RegenPreviews == nil {
		return
	}
	for _, pkg := range pkgs {
		s.hooks.RegenPreviews(pkg)
	}
}

func (s *Store) userVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

func (s *Store) setUserVersion(ctx context.Context, v int) error {
	if _, err := s.q.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
