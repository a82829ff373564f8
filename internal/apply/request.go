package apply

import (
	"context"

	"github.com/kaleidos/themestore/internal/registry"
)

// RequestType tags why a change request was issued.
type RequestType int

const (
	// RequestThemeRemoved reverts components of an uninstalled package.
	RequestThemeRemoved RequestType = iota + 1
	// RequestThemeUpdated reapplies components whose package changed on disk.
	RequestThemeUpdated
)

// String returns the tag name used in logs.
func (t RequestType) String() string {
	switch t {
	case RequestThemeRemoved:
		return "theme-removed"
	case RequestThemeUpdated:
		return "theme-updated"
	default:
		return "unknown"
	}
}

// Assignment is one (component kind, optional sub-target) -> package
// assignment inside a change request. Target is empty for the global
// component slot; per-app overlay assignments carry the app package.
type Assignment struct {
	Kind    registry.ComponentKind
	Target  string
	PkgName string
}

// ChangeRequest is a batch of component assignments issued as one call
// to the theming apply service.
type ChangeRequest struct {
	Type        RequestType
	Assignments []Assignment
}

// Len returns the number of assignments in the request.
func (r *ChangeRequest) Len() int { return len(r.Assignments) }

// Builder accumulates assignments for one change request. The zero
// value is not usable; use NewBuilder.
type Builder struct {
	req ChangeRequest
}

// NewBuilder creates a builder for a request of the given type.
func NewBuilder(t RequestType) *Builder {
	return &Builder{req: ChangeRequest{Type: t}}
}

// Set adds a global assignment for a component kind.
func (b *Builder) Set(kind registry.ComponentKind, pkg string) *Builder {
	return b.SetTarget(kind, "", pkg)
}

// SetTarget adds an assignment scoped to a sub-target.
func (b *Builder) SetTarget(kind registry.ComponentKind, target, pkg string) *Builder {
	b.req.Assignments = append(b.req.Assignments, Assignment{
		Kind:    kind,
		Target:  target,
		PkgName: pkg,
	})
	return b
}

// Empty reports whether no assignments were added.
func (b *Builder) Empty() bool { return len(b.req.Assignments) == 0 }

// Build returns the accumulated request.
func (b *Builder) Build() ChangeRequest { return b.req }

// Applier is the external theming apply service.
type Applier interface {
	// ApplyChange submits a batched change request. The call is fire
	// and forget from the registry's perspective; errors are logged by
	// implementations, never propagated into registry state.
	ApplyChange(ctx context.Context, req ChangeRequest)
}
