package reconcile

import (
	"context"
	"log/slog"

	"github.com/kaleidos/themestore/internal/apply"
	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/provider"
	"github.com/kaleidos/themestore/internal/registry"
)

// Engine runs reconciliation passes. It is constructed inert; the
// owning process decides when the first pass runs via Start.
type Engine struct {
	provider  *provider.Provider
	inventory inventory.Inventory
	resolver  *capability.Resolver
	applier   apply.Applier
	policy    *policy.Policy
}

// New creates an Engine. applier may be nil; selection reverts are then
// recorded in the store without signaling the theming subsystem.
func New(p *provider.Provider, inv inventory.Inventory, res *capability.Resolver, applier apply.Applier, pol *policy.Policy) *Engine {
	return &Engine{
		provider:  p,
		inventory: inv,
		resolver:  res,
		applier:   applier,
		policy:    pol,
	}
}

// Delta reports what one pass changed, by package name.
type Delta struct {
	Inserted []string
	Updated  []string
	Deleted  []string
}

// Empty reports whether the pass changed nothing.
func (d Delta) Empty() bool {
	return len(d.Inserted) == 0 && len(d.Updated) == 0 && len(d.Deleted) == 0
}

// Start runs the initial reconciliation pass. Callers invoke it once
// from their startup sequence after the store and collaborators are up.
func (e *Engine) Start(ctx context.Context) error {
	delta, err := e.Reconcile(ctx)
	if err != nil {
		return err
	}
	slog.Info("startup reconciliation finished",
		"inserted", len(delta.Inserted),
		"updated", len(delta.Updated),
		"deleted", len(delta.Deleted))
	return nil
}

// Reconcile aligns the registry with the package inventory in one
// transaction and returns the resulting delta.
func (e *Engine) Reconcile(ctx context.Context) (Delta, error) {
	installed, err := e.inventory.InstalledThemePackages(ctx)
	if err != nil {
		return Delta{}, err
	}
	defaultPkg := e.inventory.DefaultThemePackage(ctx)

	// Working set of inventory packages not yet matched to a row.
	working := make(map[string]inventory.Descriptor, len(installed))
	order := make([]string, 0, len(installed))
	for _, d := range installed {
		working[d.PkgName] = d
		order = append(order, d.PkgName)
	}

	rows, err := e.provider.Store().Themes(ctx)
	if err != nil {
		return Delta{}, err
	}

	var (
		deletes []string
		updates []inventory.Descriptor
		delta   Delta
	)
	systemIsDefault := defaultPkg == registry.SystemDefault
	for _, row := range rows {
		if row.PkgName == registry.SystemDefault {
			// The synthetic row has no inventory counterpart; only its
			// default flag can drift.
			if row.IsDefaultTheme != systemIsDefault {
				updates = append(updates, inventory.Descriptor{PkgName: registry.SystemDefault})
			}
			continue
		}

		desc, present := working[row.PkgName]
		if !present {
			deletes = append(deletes, row.PkgName)
			continue
		}
		delete(working, row.PkgName)

		if desc.UpdateTimestamp() != row.LastUpdateTime ||
			row.IsDefaultTheme != (row.PkgName == defaultPkg) {
			updates = append(updates, desc)
		}
	}

	var inserts []inventory.Descriptor
	for _, pkg := range order {
		if desc, left := working[pkg]; left {
			inserts = append(inserts, desc)
		}
	}

	revert := apply.NewBuilder(apply.RequestThemeRemoved)
	err = e.provider.Mutate(ctx, func(b *provider.Batch) error {
		if err := e.revertDoomedSelections(ctx, b, deletes, revert); err != nil {
			return err
		}

		for _, pkg := range deletes {
			if _, err := b.DeleteTheme(ctx, pkg); err != nil {
				if registry.IsNotFound(err) {
					slog.Warn("row vanished mid-pass, skipping delete", "pkg", pkg)
					continue
				}
				return err
			}
			delta.Deleted = append(delta.Deleted, pkg)
		}

		for _, desc := range inserts {
			theme := e.buildTheme(ctx, desc, defaultPkg)
			theme.InstallState = registry.StateInstalled
			if _, err := b.InsertTheme(ctx, theme); err != nil {
				if registry.IsConflict(err) {
					slog.Warn("row appeared mid-pass, skipping insert", "pkg", desc.PkgName)
					continue
				}
				return err
			}
			delta.Inserted = append(delta.Inserted, desc.PkgName)
		}

		for _, desc := range updates {
			if desc.PkgName == registry.SystemDefault {
				if err := b.SetDefaultFlag(ctx, registry.SystemDefault, systemIsDefault); err != nil {
					return err
				}
				delta.Updated = append(delta.Updated, registry.SystemDefault)
				continue
			}
			theme := e.buildTheme(ctx, desc, defaultPkg)
			theme.InstallState = registry.StateInstalled
			if err := b.UpdateTheme(ctx, theme); err != nil {
				if registry.IsNotFound(err) {
					slog.Warn("row vanished mid-pass, skipping update", "pkg", desc.PkgName)
					continue
				}
				return err
			}
			delta.Updated = append(delta.Updated, desc.PkgName)
		}
		return nil
	})
	if err != nil {
		return Delta{}, err
	}

	// The batched revert goes out once, and only for a committed pass.
	if e.applier != nil && !revert.Empty() {
		e.applier.ApplyChange(ctx, revert.Build())
	}
	return delta, nil
}

// revertDoomedSelections redirects every selection pointing at a
// package slated for deletion back to the policy default, recording
// the assignments on the shared revert request.
func (e *Engine) revertDoomedSelections(ctx context.Context, b *provider.Batch, deletes []string, revert *apply.Builder) error {
	for _, pkg := range deletes {
		sels, err := b.Store().SelectionsPointingAt(ctx, pkg)
		if err != nil {
			return err
		}
		for _, sel := range sels {
			fallback := e.policy.DefaultSelectionValue(sel.Key)
			if sel.Target != "" {
				fallback = ""
			}
			if err := b.SetSelection(ctx, sel.Key, sel.Target, fallback); err != nil {
				return err
			}
			revert.SetTarget(sel.Key, sel.Target, fallback)
		}

		current, err := b.Store().CurrentTheme(ctx)
		if err != nil {
			return err
		}
		if current == pkg {
			if err := b.Store().SetCurrentTheme(ctx, e.policy.DefaultPackage); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) buildTheme(ctx context.Context, desc inventory.Descriptor, defaultPkg string) *registry.Theme {
	return capability.BuildTheme(
		desc,
		e.resolver.Resolve(desc),
		e.provider.Store().Now(),
		defaultPkg,
	)
}
