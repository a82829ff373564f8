// Package store owns the on-disk theme registry: a single-writer
// SQLite database holding the themes, selections, and previews tables,
// the stored schema version, and the forward migration chain.
//
// ARCHITECTURE:
//
// Single writer: the database is opened with one connection, so all
// writes serialize at the pool. Multi-statement operations that must be
// observed atomically run through InTx; a Store bound to a transaction
// exposes the same method set as the root Store.
//
// Versioning: the schema version lives in PRAGMA user_version.
// Migrations apply strictly in increasing order, one version at a time,
// inside one transaction. A stored version outside the known range, or
// a storage error mid-migration, drops every table and recreates the
// store from scratch: the registry is a derived cache, and rebuilding
// from the package inventory is the accepted recovery policy.
//
// Backfills: migrations that must recompute derived data (capability
// flags, presentability) call back through Hooks rather than guessing
// with SQL, so the capability resolver stays the single source of that
// logic. Preview regeneration requests collected during a migration are
// dispatched only after the migration transaction commits.
package store
