package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/lifecycle"
	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/provider"
	"github.com/kaleidos/themestore/internal/reconcile"
	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/store"
	"github.com/kaleidos/themestore/internal/testutil"
)

// clockStart keeps scenario timestamps stable across runs.
const clockStart = 1_000_000

// Runner wires a real store to fake collaborators and drives scenario
// steps through the lifecycle machine and reconciliation engine.
type Runner struct {
	Policy     *policy.Policy
	Store      *store.Store
	Provider   *provider.Provider
	Machine    *lifecycle.Machine
	Engine     *reconcile.Engine
	Inventory  *testutil.FakeInventory
	Assets     *testutil.FakeAssets
	Applier    *testutil.RecordingApplier
	Dispatcher *testutil.RecordingDispatcher
	Clock      *testutil.Clock

	events     []string
	processing map[string]bool
}

// NewRunner builds a Runner over a throwaway database.
func NewRunner(t *testing.T) *Runner {
	t.Helper()

	r := &Runner{
		Policy:     policy.Default(),
		Inventory:  testutil.NewFakeInventory(),
		Assets:     testutil.NewFakeAssets(),
		Applier:    testutil.NewRecordingApplier(),
		Dispatcher: testutil.NewRecordingDispatcher(),
		Clock:      testutil.NewClock(clockStart),
		processing: make(map[string]bool),
	}

	st, err := store.Open(
		filepath.Join(t.TempDir(), "registry.db"),
		r.Policy,
		store.Hooks{},
		store.WithClock(r.Clock.Now),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	r.Store = st

	r.Provider = provider.New(st, r.Dispatcher)
	r.Provider.Subscribe(provider.ObserverFunc(func(e provider.Event) {
		s := e.Kind.String()
		if e.Pkg != "" {
			s += ":" + e.Pkg
		}
		r.events = append(r.events, s)
	}))

	resolver := capability.NewResolver(r.Policy, r.Assets)
	r.Machine = lifecycle.New(r.Provider, r.Inventory, resolver, r.Applier, r.Policy)
	r.Machine.NeedsProcessing = func(d inventory.Descriptor) bool {
		return r.processing[d.PkgName]
	}
	r.Engine = reconcile.New(r.Provider, r.Inventory, resolver, r.Applier, r.Policy)
	return r
}

// Run executes a scenario and returns the final snapshot.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Snapshot, error) {
	for _, p := range sc.Packages {
		r.installFixture(p)
	}

	for i, step := range sc.Steps {
		r.Clock.Advance(1000)
		if err := r.runStep(ctx, step); err != nil {
			return nil, fmt.Errorf("scenario %s step %d (%s): %w",
				sc.Name, i, step.Event, err)
		}
	}
	return r.snapshot(ctx)
}

func (r *Runner) installFixture(p PackageFixture) {
	desc := inventory.Descriptor{
		PkgName:     p.Pkg,
		Title:       p.Title,
		Author:      p.Author,
		AppLabel:    p.Label,
		InstallTime: p.InstallTime,
		UpdateTime:  p.UpdateTime,
		TargetAPI:   p.TargetAPI,
	}
	switch p.Format {
	case "", "theme":
		desc.IsTheme = true
	case "legacy-theme":
		desc.IsTheme = true
		desc.IsLegacyTheme = true
	case "legacy-iconpack":
		desc.IsLegacyIconPack = true
	}
	r.Inventory.Add(desc)

	for _, comp := range p.Components {
		folder := r.Policy.FolderName(registry.ComponentKind(comp))
		if folder != "" {
			r.Assets.Put(p.Pkg, folder, "content")
		}
	}
	if p.Processing {
		r.processing[p.Pkg] = true
	}
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	switch step.Event {
	case "added":
		return r.Machine.HandlePackageAdded(ctx, step.Pkg)
	case "updated":
		r.Inventory.Touch(step.Pkg, r.Clock.Now())
		return r.Machine.HandlePackageUpdated(ctx, step.Pkg)
	case "removed":
		if step.Uninstall == nil || *step.Uninstall {
			r.Inventory.Remove(step.Pkg)
		}
		return r.Machine.HandlePackageRemoved(ctx, step.Pkg)
	case "completed":
		return r.Machine.ProcessingCompleted(ctx, step.Pkg, step.Code)
	case "select":
		return r.Provider.SetSelection(ctx,
			registry.ComponentKind(step.Component), step.Target, step.Value)
	case "reconcile":
		_, err := r.Engine.Reconcile(ctx)
		return err
	default:
		return fmt.Errorf("unknown event %q", step.Event)
	}
}

func (r *Runner) snapshot(ctx context.Context) (*Snapshot, error) {
	themes, err := r.Store.Themes(ctx)
	if err != nil {
		return nil, err
	}
	sels, err := r.Store.Selections(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Events:     append([]string{}, r.events...),
		Applies:    []string{},
		Dispatches: []string{},
	}
	for _, t := range themes {
		snap.Themes = append(snap.Themes, themeRow(t))
	}
	for _, s := range sels {
		snap.Selections = append(snap.Selections, SelectionRow{
			Key:       string(s.Key),
			Target:    s.Target,
			Value:     s.Value,
			PrevValue: s.PrevValue,
			Changed:   s.UpdateTime > clockStart,
		})
	}
	for _, req := range r.Applier.Recorded() {
		parts := make([]string, 0, len(req.Assignments))
		for _, a := range req.Assignments {
			key := string(a.Kind)
			if a.Target != "" {
				key += "@" + a.Target
			}
			parts = append(parts, key+"="+a.PkgName)
		}
		snap.Applies = append(snap.Applies,
			req.Type.String()+" "+strings.Join(parts, ","))
	}
	for _, d := range r.Dispatcher.Recorded() {
		snap.Dispatches = append(snap.Dispatches, d.Pkg+":"+d.Op.String())
	}
	return snap, nil
}

func themeRow(t registry.Theme) ThemeRow {
	row := ThemeRow{
		Pkg:         t.PkgName,
		Title:       t.Title,
		State:       t.InstallState.String(),
		Presentable: t.Presentable,
		Default:     t.IsDefaultTheme,
		Components:  []string{},
	}
	for _, kind := range sortedKinds(t.Capabilities) {
		row.Components = append(row.Components, string(kind))
	}
	return row
}

func sortedKinds(caps registry.CapabilityMap) []registry.ComponentKind {
	var kinds []registry.ComponentKind
	for k, ok := range caps {
		if ok {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
