// Package apply defines the interface to the external theming apply
// service and the builder for its batched change requests.
//
// The registry core never applies theme resources itself. When a
// selection must change because its package was removed, or an applied
// component must be re-signaled because its package updated on disk,
// the core builds one batched ChangeRequest per event and hands it to
// the Applier, fire and forget.
package apply
