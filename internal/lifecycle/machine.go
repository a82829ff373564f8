package lifecycle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kaleidos/themestore/internal/apply"
	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/provider"
	"github.com/kaleidos/themestore/internal/registry"
)

// Machine reacts to package lifecycle events and moves theme rows
// through their install states.
type Machine struct {
	provider  *provider.Provider
	inventory inventory.Inventory
	resolver  *capability.Resolver
	applier   apply.Applier
	policy    *policy.Policy

	// NeedsProcessing decides whether a package requires asynchronous
	// resource processing before it counts as installed. Nil means no
	// package does.
	NeedsProcessing func(inventory.Descriptor) bool

	mu         sync.Mutex
	processing map[string]bool
}

// New creates a Machine. applier may be nil when no theming subsystem
// is attached; reapply and revert calls are then dropped.
func New(p *provider.Provider, inv inventory.Inventory, res *capability.Resolver, applier apply.Applier, pol *policy.Policy) *Machine {
	return &Machine{
		provider:   p,
		inventory:  inv,
		resolver:   res,
		applier:    applier,
		policy:     pol,
		processing: make(map[string]bool),
	}
}

// Processing reports whether a package is currently awaiting a
// completion signal.
func (m *Machine) Processing(pkg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processing[pkg]
}

func (m *Machine) markProcessing(pkg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processing[pkg] = true
}

func (m *Machine) clearProcessing(pkg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.processing[pkg]
	delete(m.processing, pkg)
	return was
}

// HandlePackageAdded processes an install observation. Packages without
// theme content are ignored. A package already known to the registry is
// treated as an update.
func (m *Machine) HandlePackageAdded(ctx context.Context, pkg string) error {
	desc, err := m.inventory.PackageInfo(ctx, pkg)
	if registry.IsNotFound(err) {
		slog.Warn("added package not in inventory, skipping", "pkg", pkg)
		return nil
	}
	if err != nil {
		return err
	}
	if !desc.ThemeCapable() {
		return nil
	}

	known, err := m.provider.Store().ThemeExists(ctx, pkg)
	if err != nil {
		return err
	}
	if known {
		return m.updateKnown(ctx, desc)
	}
	return m.insertFresh(ctx, desc)
}

// HandlePackageUpdated processes an update observation. A package never
// seen as a theme before (it became one in this version) is inserted
// fresh.
func (m *Machine) HandlePackageUpdated(ctx context.Context, pkg string) error {
	desc, err := m.inventory.PackageInfo(ctx, pkg)
	if registry.IsNotFound(err) {
		slog.Warn("updated package not in inventory, skipping", "pkg", pkg)
		return nil
	}
	if err != nil {
		return err
	}
	if !desc.ThemeCapable() {
		return nil
	}

	known, err := m.provider.Store().ThemeExists(ctx, pkg)
	if err != nil {
		return err
	}
	if !known {
		return m.insertFresh(ctx, desc)
	}
	return m.updateKnown(ctx, desc)
}

func (m *Machine) insertFresh(ctx context.Context, desc inventory.Descriptor) error {
	theme := m.buildTheme(ctx, desc)
	if m.needsProcessing(desc) {
		theme.InstallState = registry.StateInstalling
	} else {
		theme.InstallState = registry.StateInstalled
	}

	err := m.provider.Mutate(ctx, func(b *provider.Batch) error {
		_, err := b.InsertTheme(ctx, theme)
		return err
	})
	if err != nil {
		return err
	}
	if theme.InstallState == registry.StateInstalling {
		m.markProcessing(desc.PkgName)
	}
	slog.Info("theme package added", "pkg", desc.PkgName,
		"state", theme.InstallState.String())
	return nil
}

func (m *Machine) updateKnown(ctx context.Context, desc inventory.Descriptor) error {
	theme := m.buildTheme(ctx, desc)
	if m.needsProcessing(desc) {
		theme.InstallState = registry.StateUpdating
	} else {
		theme.InstallState = registry.StateInstalled
	}

	err := m.provider.Mutate(ctx, func(b *provider.Batch) error {
		return b.UpdateTheme(ctx, theme)
	})
	if registry.IsNotFound(err) {
		slog.Warn("theme vanished during update, skipping", "pkg", desc.PkgName)
		return nil
	}
	if err != nil {
		return err
	}

	if theme.InstallState == registry.StateUpdating {
		m.markProcessing(desc.PkgName)
	} else {
		// Update finished synchronously: resources changed on disk, so
		// any currently selected component this package supplies must
		// be re-signaled.
		m.reapply(ctx, desc.PkgName)
	}
	slog.Info("theme package updated", "pkg", desc.PkgName,
		"state", theme.InstallState.String())
	return nil
}

// ProcessingCompleted handles the asynchronous completion signal from
// the resource processor. code 0 is success; anything else leaves the
// install state untouched.
func (m *Machine) ProcessingCompleted(ctx context.Context, pkg string, code int) error {
	if !m.clearProcessing(pkg) {
		slog.Warn("completion signal for package not processing, ignoring",
			"pkg", pkg, "code", code)
		return nil
	}
	if code != 0 {
		slog.Warn("theme processing failed, state unchanged",
			"pkg", pkg, "code", code)
		return nil
	}

	var prev registry.InstallState
	err := m.provider.Mutate(ctx, func(b *provider.Batch) error {
		var err error
		prev, err = b.SetInstallState(ctx, pkg, registry.StateInstalled)
		return err
	})
	if registry.IsNotFound(err) {
		slog.Warn("theme vanished before completion, skipping", "pkg", pkg)
		return nil
	}
	if err != nil {
		return err
	}

	if prev == registry.StateUpdating {
		m.reapply(ctx, pkg)
	}
	slog.Info("theme processing completed", "pkg", pkg,
		"from", prev.String())
	return nil
}

// HandlePackageRemoved processes an uninstall observation: every
// selection pointing at the package reverts to the policy default (the
// previous value recording the removed package), per-target overrides
// included, then the row and its previews are deleted. The reverts go
// to the theming subsystem as one batched call.
func (m *Machine) HandlePackageRemoved(ctx context.Context, pkg string) error {
	builder := apply.NewBuilder(apply.RequestThemeRemoved)

	err := m.provider.Mutate(ctx, func(b *provider.Batch) error {
		sels, err := b.Store().SelectionsPointingAt(ctx, pkg)
		if err != nil {
			return err
		}
		for _, sel := range sels {
			fallback := m.policy.DefaultSelectionValue(sel.Key)
			if sel.Target != "" {
				// Per-target override: clearing it reverts the target
				// to whatever the global slot supplies.
				fallback = ""
			}
			if err := b.SetSelection(ctx, sel.Key, sel.Target, fallback); err != nil {
				return err
			}
			builder.SetTarget(sel.Key, sel.Target, fallback)
		}

		current, err := b.Store().CurrentTheme(ctx)
		if err != nil {
			return err
		}
		if current == pkg {
			if err := b.Store().SetCurrentTheme(ctx, m.policy.DefaultPackage); err != nil {
				return err
			}
		}

		_, err = b.DeleteTheme(ctx, pkg)
		return err
	})
	if err != nil {
		return err
	}
	m.clearProcessing(pkg)

	if m.applier != nil && !builder.Empty() {
		m.applier.ApplyChange(ctx, builder.Build())
	}
	slog.Info("theme package removed", "pkg", pkg)
	return nil
}

// reapply re-signals every currently selected, reappliable component
// supplied by pkg, per-target overrides included, as one batched call.
func (m *Machine) reapply(ctx context.Context, pkg string) {
	if m.applier == nil {
		return
	}
	sels, err := m.provider.Store().SelectionsPointingAt(ctx, pkg)
	if err != nil {
		slog.Error("reapply scan failed", "pkg", pkg, "error", err)
		return
	}

	builder := apply.NewBuilder(apply.RequestThemeUpdated)
	for _, sel := range sels {
		if !m.policy.IsReappliable(sel.Key) {
			continue
		}
		builder.SetTarget(sel.Key, sel.Target, pkg)
	}
	if builder.Empty() {
		return
	}
	m.applier.ApplyChange(ctx, builder.Build())
}

func (m *Machine) needsProcessing(desc inventory.Descriptor) bool {
	return m.NeedsProcessing != nil && m.NeedsProcessing(desc)
}

// buildTheme assembles the registry row for a descriptor: capabilities
// from the resolver, presentability under the fixed rule, and the
// default flag from the platform's current setting.
func (m *Machine) buildTheme(ctx context.Context, desc inventory.Descriptor) *registry.Theme {
	return capability.BuildTheme(
		desc,
		m.resolver.Resolve(desc),
		m.provider.Store().Now(),
		m.inventory.DefaultThemePackage(ctx),
	)
}
