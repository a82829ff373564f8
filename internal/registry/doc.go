// Package registry defines the domain model for the theme registry:
// theme rows, per-component selections, derived preview entries, and the
// install-state lifecycle constants shared by the store, the provider,
// and the install-state machine.
//
// The registry is a derived cache. The authoritative source of truth is
// the platform package inventory; every row here can be rebuilt from it
// (see internal/reconcile). Types in this package carry no behavior
// beyond validation and classification helpers so that the persistence
// layer and the state machine stay independently testable.
package registry
