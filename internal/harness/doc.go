// Package harness runs end-to-end registry scenarios from YAML
// fixtures and compares the resulting registry state against golden
// snapshots.
//
// A scenario declares a package inventory fixture and a sequence of
// lifecycle events: package added, updated, removed, processing
// completed, a selection change, or a reconciliation pass. The runner
// wires a real store (backed by a throwaway SQLite file) to the fake
// collaborators from testutil, drives the events through the lifecycle
// machine, and snapshots themes, selections, observer events, apply
// calls, and preview dispatches as canonical JSON.
//
// Regenerate goldens with: go test ./internal/harness -update
package harness
