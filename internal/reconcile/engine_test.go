package reconcile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaleidos/themestore/internal/apply"
	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/provider"
	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/store"
	"github.com/kaleidos/themestore/internal/testutil"
)

type rig struct {
	engine    *Engine
	provider  *provider.Provider
	store     *store.Store
	inventory *testutil.FakeInventory
	assets    *testutil.FakeAssets
	applier   *testutil.RecordingApplier
	policy    *policy.Policy
	clock     *testutil.Clock
}

func newRig(t *testing.T) *rig {
	t.Helper()
	pol := policy.Default()
	clock := testutil.NewClock(1000)

	st, err := store.Open(filepath.Join(t.TempDir(), "registry.db"),
		pol, store.Hooks{}, store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r := &rig{
		store:     st,
		inventory: testutil.NewFakeInventory(),
		assets:    testutil.NewFakeAssets(),
		applier:   testutil.NewRecordingApplier(),
		policy:    pol,
		clock:     clock,
	}
	r.provider = provider.New(st, testutil.NewRecordingDispatcher())
	resolver := capability.NewResolver(pol, r.assets)
	r.engine = New(r.provider, r.inventory, resolver, r.applier, pol)
	return r
}

func (r *rig) addTheme(pkg string, installTime int64) {
	r.inventory.Add(inventory.Descriptor{
		PkgName:     pkg,
		Title:       "Fixture",
		InstallTime: installTime,
		IsTheme:     true,
	})
	r.assets.Put(pkg, r.policy.FolderName(registry.ComponentLauncher), "content")
	r.assets.Put(pkg, r.policy.FolderName(registry.ComponentOverlays), "content")
}

func TestReconcile_InsertsNewPackages(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.addTheme("com.a", 100)
	r.addTheme("com.b", 200)

	delta, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a", "com.b"}, delta.Inserted)
	assert.Empty(t, delta.Updated)
	assert.Empty(t, delta.Deleted)

	theme, err := r.store.ThemeByPkg(ctx, "com.a")
	require.NoError(t, err)
	assert.Equal(t, registry.StateInstalled, theme.InstallState)
	assert.True(t, theme.Presentable)
}

func TestReconcile_SecondRunIsNoOp(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.addTheme("com.a", 100)
	r.addTheme("com.b", 200)

	_, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)

	delta, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, delta.Empty(), "unchanged inventory must reconcile to nothing")
}

func TestReconcile_DeletesUninstalledAndRevertsSelections(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.addTheme("com.a", 100)

	_, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)
	require.NoError(t, r.provider.SetSelection(ctx, registry.ComponentOverlays, "", "com.a"))
	r.applier.Reset()

	r.inventory.Remove("com.a")
	delta, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a"}, delta.Deleted)

	_, err = r.store.ThemeByPkg(ctx, "com.a")
	assert.True(t, registry.IsNotFound(err))

	sel, err := r.store.Selection(ctx, registry.ComponentOverlays, "")
	require.NoError(t, err)
	assert.Equal(t, registry.SystemDefault, sel.Value)
	assert.Equal(t, "com.a", sel.PrevValue)

	reqs := r.applier.Recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, apply.RequestThemeRemoved, reqs[0].Type)
}

func TestReconcile_UpdatesWhenTimestampDrifts(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.addTheme("com.a", 100)

	_, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)

	r.inventory.Touch("com.a", 500)
	delta, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.a"}, delta.Updated)

	theme, err := r.store.ThemeByPkg(ctx, "com.a")
	require.NoError(t, err)
	assert.Equal(t, int64(500), theme.LastUpdateTime)
}

func TestReconcile_DefaultFlagDrift(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.addTheme("com.a", 100)

	_, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)

	// The platform default moves to com.a: its row gains the flag, the
	// synthetic system row loses it.
	r.inventory.SetDefault("com.a")
	delta, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"com.a", registry.SystemDefault}, delta.Updated)

	theme, err := r.store.ThemeByPkg(ctx, "com.a")
	require.NoError(t, err)
	assert.True(t, theme.IsDefaultTheme)

	system, err := r.store.ThemeByPkg(ctx, registry.SystemDefault)
	require.NoError(t, err)
	assert.False(t, system.IsDefaultTheme)

	// And the pass after that settles.
	delta, err = r.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, delta.Empty())
}

func TestReconcile_CurrentThemeResetWhenPackageVanishes(t *testing.T) {
	ctx := context.Background()
	r := newRig(t)
	r.addTheme("com.a", 100)

	_, err := r.engine.Reconcile(ctx)
	require.NoError(t, err)
	require.NoError(t, r.store.SetCurrentTheme(ctx, "com.a"))

	r.inventory.Remove("com.a")
	_, err = r.engine.Reconcile(ctx)
	require.NoError(t, err)

	current, err := r.store.CurrentTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.SystemDefault, current)
}
