// Package lifecycle drives the install-state machine for theme
// packages: package added, package updated, package removed, and the
// asynchronous processing-completed signal.
//
// The machine owns the set of packages currently in a processing state.
// A completion signal for a package outside that set is ignored; a
// failed completion leaves the row in its processing state, with a
// later update or reinstall as the natural retry.
package lifecycle
