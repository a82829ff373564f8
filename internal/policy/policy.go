package policy

import (
	"sort"

	"github.com/kaleidos/themestore/internal/registry"
)

// Policy is the decoded theming policy document. Instances are
// immutable after load; callers share one Policy across the store, the
// state machine, and the reconciliation engine.
type Policy struct {
	// DefaultPackage is the platform default theme package name.
	DefaultPackage string

	// FolderNames maps each known component kind to the asset folder a
	// modern theme package uses to declare support for it.
	FolderNames map[registry.ComponentKind]string

	// PreviewKeys lists the semantic preview keys each component
	// contributes to the applied-previews composite read.
	PreviewKeys map[registry.ComponentKind][]string

	// ExtraPreviewKeys are valid pivot keys outside any component set.
	ExtraPreviewKeys []string

	// Reappliable lists the component kinds that must be re-signaled to
	// the theming subsystem when their supplying package updates.
	Reappliable []registry.ComponentKind

	// NoDefaultSelection lists kinds seeded with an empty selection.
	NoDefaultSelection []registry.ComponentKind
}

// Kinds returns every known component kind in stable sorted order.
// Stable order matters: selection seeding and snapshot tests depend on it.
func (p *Policy) Kinds() []registry.ComponentKind {
	kinds := make([]registry.ComponentKind, 0, len(p.FolderNames))
	for k := range p.FolderNames {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// FolderName returns the asset folder for a kind, or "" if unknown.
func (p *Policy) FolderName(kind registry.ComponentKind) string {
	return p.FolderNames[kind]
}

// PreviewKeysFor returns the semantic preview keys for a kind. The
// returned slice is shared; callers must not mutate it.
func (p *Policy) PreviewKeysFor(kind registry.ComponentKind) []string {
	return p.PreviewKeys[kind]
}

// ValidPreviewKeys returns the full set of semantic keys that the query
// surface treats as pivotable columns.
func (p *Policy) ValidPreviewKeys() map[string]bool {
	valid := make(map[string]bool)
	for _, keys := range p.PreviewKeys {
		for _, k := range keys {
			valid[k] = true
		}
	}
	for _, k := range p.ExtraPreviewKeys {
		valid[k] = true
	}
	return valid
}

// IsReappliable reports whether a kind is in the reapply-on-update set.
func (p *Policy) IsReappliable(kind registry.ComponentKind) bool {
	for _, k := range p.Reappliable {
		if k == kind {
			return true
		}
	}
	return false
}

// DefaultSelectionValue returns the value a selection row for kind is
// seeded with: the platform default package, or "" for kinds that have
// no system default.
func (p *Policy) DefaultSelectionValue(kind registry.ComponentKind) string {
	for _, k := range p.NoDefaultSelection {
		if k == kind {
			return ""
		}
	}
	return p.DefaultPackage
}
