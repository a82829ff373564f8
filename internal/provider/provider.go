package provider

import (
	"context"
	"sync"

	"github.com/kaleidos/themestore/internal/preview"
	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/store"
)

// Provider serializes mutations of the theme store and delivers change
// notifications and preview dispatches after commit.
type Provider struct {
	mu         sync.Mutex
	store      *store.Store
	dispatcher preview.Dispatcher

	obsMu     sync.RWMutex
	observers []Observer
}

// New creates a Provider over the store. dispatcher may be nil, in
// which case preview dispatches are dropped.
func New(st *store.Store, dispatcher preview.Dispatcher) *Provider {
	return &Provider{store: st, dispatcher: dispatcher}
}

// Store exposes the underlying store for read-only access.
func (p *Provider) Store() *store.Store { return p.store }

// Subscribe registers an observer for registry change events.
func (p *Provider) Subscribe(o Observer) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	p.observers = append(p.observers, o)
}

// Mutate runs fn inside one transaction holding the mutation lock. The
// notifications and preview dispatches fn queues on the batch are
// delivered only if the transaction commits. Bulk passes (lifecycle
// events, reconciliation) use this to make many row changes atomic
// with one set of side effects.
func (p *Provider) Mutate(ctx context.Context, fn func(b *Batch) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := &Batch{dispatch: make(map[string]preview.Op)}
	err := p.store.InTx(ctx, func(tx *store.Store) error {
		b.tx = tx
		return fn(b)
	})
	if err != nil {
		return err
	}
	p.flush(b)
	return nil
}

func (p *Provider) flush(b *Batch) {
	p.obsMu.RLock()
	observers := p.observers
	p.obsMu.RUnlock()
	for _, e := range b.events {
		for _, o := range observers {
			o.RegistryChanged(e)
		}
	}

	if p.dispatcher == nil {
		return
	}
	for _, pkg := range b.dispatchOrder {
		p.dispatcher.Dispatch(pkg, b.dispatch[pkg])
	}
}

// Batch is the mutation surface inside one Mutate transaction. All row
// changes go through it so their side effects queue instead of firing
// mid-transaction.
type Batch struct {
	tx     *store.Store
	events []Event

	// dispatch dedupes preview generation to once per package per
	// commit. An insert op is never downgraded by a later update.
	dispatch      map[string]preview.Op
	dispatchOrder []string
}

// Store returns the transaction-bound store view for reads that must
// see the batch's own uncommitted writes.
func (b *Batch) Store() *store.Store { return b.tx }

// Notify queues a change event for delivery after commit.
func (b *Batch) Notify(kind EventKind, pkg string) {
	b.events = append(b.events, Event{Kind: kind, Pkg: pkg})
}

func (b *Batch) queueDispatch(pkg string, op preview.Op) {
	if _, ok := b.dispatch[pkg]; ok {
		return
	}
	b.dispatch[pkg] = op
	b.dispatchOrder = append(b.dispatchOrder, pkg)
}

// InsertTheme inserts a theme row and queues a ThemeInstalled event. A
// row inserted directly at INSTALLED (no async processing needed)
// queues one preview generation.
func (b *Batch) InsertTheme(ctx context.Context, t *registry.Theme) (int64, error) {
	id, err := b.tx.InsertTheme(ctx, t)
	if err != nil {
		return 0, err
	}
	b.Notify(ThemeInstalled, t.PkgName)
	if t.InstallState == registry.StateInstalled {
		b.queueDispatch(t.PkgName, preview.OpInsert)
	}
	return id, nil
}

// UpdateTheme rewrites a theme row and queues a ThemeUpdated event. A
// write that carries install state INSTALLED queues one preview
// generation; a write leaving the row in a processing state does not,
// the generation belongs to the later completion signal.
func (b *Batch) UpdateTheme(ctx context.Context, t *registry.Theme) error {
	if err := b.tx.UpdateTheme(ctx, t); err != nil {
		return err
	}
	b.Notify(ThemeUpdated, t.PkgName)
	if t.InstallState == registry.StateInstalled {
		b.queueDispatch(t.PkgName, preview.OpUpdate)
	}
	return nil
}

// SetInstallState transitions a theme's install state, returning the
// previous state. Arriving at INSTALLED queues preview generation: as
// an insert when completing a fresh install, as an update otherwise.
func (b *Batch) SetInstallState(ctx context.Context, pkg string, state registry.InstallState) (registry.InstallState, error) {
	prev, err := b.tx.SetInstallState(ctx, pkg, state)
	if err != nil {
		return prev, err
	}
	b.Notify(ThemeUpdated, pkg)
	if state == registry.StateInstalled {
		op := preview.OpUpdate
		if prev == registry.StateInstalling {
			op = preview.OpInsert
		}
		b.queueDispatch(pkg, op)
	}
	return prev, nil
}

// SetDefaultFlag rewrites the default-theme flag.
func (b *Batch) SetDefaultFlag(ctx context.Context, pkg string, isDefault bool) error {
	if err := b.tx.SetDefaultFlag(ctx, pkg, isDefault); err != nil {
		return err
	}
	b.Notify(ThemeUpdated, pkg)
	return nil
}

// DeleteTheme removes a theme row and its previews. The ThemeRemoved
// event queues only when a row was actually deleted.
func (b *Batch) DeleteTheme(ctx context.Context, pkg string) (int64, error) {
	_, deleted, err := b.tx.DeleteTheme(ctx, pkg)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		b.Notify(ThemeRemoved, pkg)
	}
	return deleted, nil
}

// SetSelection points a component selection at a new package.
// Re-asserting the current value leaves the row untouched but still
// notifies observers: consumers treat the signal as "re-render what is
// applied", so a re-apply has to wake them even without a row change.
func (b *Batch) SetSelection(ctx context.Context, kind registry.ComponentKind, target, value string) error {
	if err := b.tx.SetSelection(ctx, kind, target, value); err != nil {
		return err
	}
	b.Notify(ResourcesChanged, "")
	return nil
}

// WritePreviewArtifacts is the generator writeback for theme-level
// artifact columns. The store rejects any column outside the artifact
// set, so this path cannot alter install state and never queues a
// dispatch. Observers still hear about the change.
func (b *Batch) WritePreviewArtifacts(ctx context.Context, pkg string, uris map[string]string) error {
	if err := b.tx.SetPreviewURIs(ctx, pkg, uris); err != nil {
		return err
	}
	b.Notify(ResourcesChanged, pkg)
	return nil
}

// ReplacePreviews is the generator writeback for per-component preview
// entries. Same guard semantics as WritePreviewArtifacts.
func (b *Batch) ReplacePreviews(ctx context.Context, themeID int64, componentID int, entries map[string]string) error {
	if err := b.tx.ReplacePreviews(ctx, themeID, componentID, entries); err != nil {
		return err
	}
	return nil
}

// Single-mutation conveniences. Each runs one Mutate transaction.

func (p *Provider) InsertTheme(ctx context.Context, t *registry.Theme) (int64, error) {
	var id int64
	err := p.Mutate(ctx, func(b *Batch) error {
		var err error
		id, err = b.InsertTheme(ctx, t)
		return err
	})
	return id, err
}

func (p *Provider) UpdateTheme(ctx context.Context, t *registry.Theme) error {
	return p.Mutate(ctx, func(b *Batch) error {
		return b.UpdateTheme(ctx, t)
	})
}

func (p *Provider) DeleteTheme(ctx context.Context, pkg string) (int64, error) {
	var deleted int64
	err := p.Mutate(ctx, func(b *Batch) error {
		var err error
		deleted, err = b.DeleteTheme(ctx, pkg)
		return err
	})
	return deleted, err
}

func (p *Provider) SetSelection(ctx context.Context, kind registry.ComponentKind, target, value string) error {
	return p.Mutate(ctx, func(b *Batch) error {
		return b.SetSelection(ctx, kind, target, value)
	})
}

// WritePreviewArtifacts implements the writeback interface the preview
// service expects.
func (p *Provider) WritePreviewArtifacts(ctx context.Context, pkg string, uris map[string]string) error {
	return p.Mutate(ctx, func(b *Batch) error {
		return b.WritePreviewArtifacts(ctx, pkg, uris)
	})
}

// ReplacePreviews implements the per-component half of the writeback
// interface. The ResourcesChanged event fires once for the batch.
func (p *Provider) ReplacePreviews(ctx context.Context, pkg string, componentID int, entries map[string]string) error {
	return p.Mutate(ctx, func(b *Batch) error {
		t, err := b.Store().ThemeByPkg(ctx, pkg)
		if err != nil {
			return err
		}
		if err := b.ReplacePreviews(ctx, t.ID, componentID, entries); err != nil {
			return err
		}
		b.Notify(ResourcesChanged, pkg)
		return nil
	})
}

// ThemeByPkg reads a theme row outside any batch.
func (p *Provider) ThemeByPkg(ctx context.Context, pkg string) (*registry.Theme, error) {
	return p.store.ThemeByPkg(ctx, pkg)
}
