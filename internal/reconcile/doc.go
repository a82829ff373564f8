// Package reconcile aligns the theme registry with the authoritative
// package inventory.
//
// A pass classifies every registry row against the inventory into
// deletes, updates, and inserts, reverts selections pointing at doomed
// packages before any delete lands, and applies the whole result in
// one transaction. Running a second pass against an unchanged
// inventory is a no-op.
package reconcile
