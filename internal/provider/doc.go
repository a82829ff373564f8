// Package provider is the registry's query surface: every read and
// mutation of the theme store flows through it.
//
// Mutations are serialized and transactional. Externally visible side
// effects, observer notifications and preview-generation dispatches,
// are queued while the transaction is open and flushed only after it
// commits, so observers never see state that later rolled back.
//
// The provider also hosts the feedback-loop guard between the registry
// and its async preview generator. The generator's writeback path can
// only touch preview-artifact columns and never re-triggers
// generation; a mutation that moves a theme's install state to
// INSTALLED dispatches generation exactly once per package per commit.
// Without the guard every generator writeback would schedule another
// generation of the same package, indefinitely.
package provider
