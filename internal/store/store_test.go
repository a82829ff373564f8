package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/registry"
)

func openTestStore(t *testing.T, hooks Hooks) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "registry.db"),
		policy.Default(), hooks, WithClock(fixedClock(1000)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock(at int64) func() int64 {
	return func() int64 { return at }
}

func TestOpen_FreshStoreSeedsDefaults(t *testing.T) {
	ctx := context.Background()
	var regen []string
	s := openTestStore(t, Hooks{RegenPreviews: func(pkg string) {
		regen = append(regen, pkg)
	}})

	version, err := s.userVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, version)

	system, err := s.ThemeByPkg(ctx, registry.SystemDefault)
	require.NoError(t, err)
	assert.True(t, system.Presentable)
	assert.True(t, system.IsDefaultTheme)
	assert.Equal(t, registry.StateInstalled, system.InstallState)
	assert.True(t, system.Capabilities.Has(registry.ComponentLauncher))
	assert.False(t, system.Capabilities.Has(registry.ComponentLockscreen))
	assert.False(t, system.Capabilities.Has(registry.ComponentLiveLockscreen))

	sels, err := s.Selections(ctx)
	require.NoError(t, err)
	assert.Len(t, sels, len(policy.Default().Kinds()))
	for _, sel := range sels {
		switch sel.Key {
		case registry.ComponentLockscreen, registry.ComponentLiveLockscreen:
			assert.Empty(t, sel.Value)
		default:
			assert.Equal(t, registry.SystemDefault, sel.Value)
		}
	}

	// Seeding a fresh store queues exactly one regeneration, for the
	// system theme, after the seed transaction committed.
	assert.Equal(t, []string{registry.SystemDefault}, regen)

	current, err := s.CurrentTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.SystemDefault, current)
}

func TestInsertTheme_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	theme := testTheme("com.example.red")
	_, err := s.InsertTheme(ctx, theme)
	require.NoError(t, err)

	_, err = s.InsertTheme(ctx, theme)
	require.Error(t, err)
	assert.True(t, registry.IsConflict(err))
}

func TestUpdateTheme_AbsentIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	err := s.UpdateTheme(ctx, testTheme("com.example.ghost"))
	require.Error(t, err)
	assert.True(t, registry.IsNotFound(err))
}

func TestUpdateTheme_LeavesPreviewColumnsAlone(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	theme := testTheme("com.example.red")
	_, err := s.InsertTheme(ctx, theme)
	require.NoError(t, err)
	require.NoError(t, s.SetPreviewURIs(ctx, theme.PkgName,
		map[string]string{"wallpaper_uri": "blob://wall"}))

	theme.Title = "Renamed"
	require.NoError(t, s.UpdateTheme(ctx, theme))

	got, err := s.ThemeByPkg(ctx, theme.PkgName)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "blob://wall", got.WallpaperURI)
}

func TestSetPreviewURIs_RejectsNonArtifactColumn(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	_, err := s.InsertTheme(ctx, testTheme("com.example.red"))
	require.NoError(t, err)

	err = s.SetPreviewURIs(ctx, "com.example.red",
		map[string]string{"install_state": "3"})
	require.Error(t, err)
	assert.True(t, registry.IsUnsupported(err))
}

func TestSetInstallState_ReturnsPrevious(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	theme := testTheme("com.example.red")
	theme.InstallState = registry.StateInstalling
	_, err := s.InsertTheme(ctx, theme)
	require.NoError(t, err)

	prev, err := s.SetInstallState(ctx, theme.PkgName, registry.StateInstalled)
	require.NoError(t, err)
	assert.Equal(t, registry.StateInstalling, prev)

	state, err := s.InstallStateFor(ctx, theme.PkgName)
	require.NoError(t, err)
	assert.Equal(t, registry.StateInstalled, state)
}

func TestSetSelection_History(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	require.NoError(t, s.SetSelection(ctx, registry.ComponentOverlays, "", "com.a"))
	sel, err := s.Selection(ctx, registry.ComponentOverlays, "")
	require.NoError(t, err)
	assert.Equal(t, "com.a", sel.Value)
	assert.Equal(t, registry.SystemDefault, sel.PrevValue)
	firstStamp := sel.UpdateTime

	require.NoError(t, s.SetSelection(ctx, registry.ComponentOverlays, "", "com.b"))
	sel, err = s.Selection(ctx, registry.ComponentOverlays, "")
	require.NoError(t, err)
	assert.Equal(t, "com.b", sel.Value)
	assert.Equal(t, "com.a", sel.PrevValue)

	// Re-asserting the same value is a full no-op.
	require.NoError(t, s.SetSelection(ctx, registry.ComponentOverlays, "", "com.b"))
	again, err := s.Selection(ctx, registry.ComponentOverlays, "")
	require.NoError(t, err)
	assert.Equal(t, *sel, *again)
	assert.Equal(t, firstStamp, again.UpdateTime)
}

func TestSetSelection_UnknownGlobalSlotIsUnsupported(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	err := s.SetSelection(ctx, registry.ComponentKind("widgets"), "", "com.a")
	require.Error(t, err)
	assert.True(t, registry.IsUnsupported(err))
}

func TestSetSelection_TargetRowCreatedOnFirstWrite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	require.NoError(t, s.SetSelection(ctx,
		registry.ComponentOverlays, "com.android.systemui", "com.a"))

	sel, err := s.Selection(ctx, registry.ComponentOverlays, "com.android.systemui")
	require.NoError(t, err)
	assert.Equal(t, "com.a", sel.Value)
	assert.Empty(t, sel.PrevValue)
}

func TestDeleteTheme_CascadesPreviews(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	id, err := s.InsertTheme(ctx, testTheme("com.example.red"))
	require.NoError(t, err)
	require.NoError(t, s.ReplacePreviews(ctx, id, 0,
		map[string]string{"icon_preview_1": "blob://i1"}))

	themeID, deleted, err := s.DeleteTheme(ctx, "com.example.red")
	require.NoError(t, err)
	assert.Equal(t, id, themeID)
	assert.Equal(t, int64(1), deleted)

	rows, err := s.PivotPreviews(ctx, id, 0, []string{"icon_preview_1"})
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Deleting again reports nothing removed, without error.
	_, deleted, err = s.DeleteTheme(ctx, "com.example.red")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestPivotPreviews_MissingKeyIsNull(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	id, err := s.InsertTheme(ctx, testTheme("com.example.red"))
	require.NoError(t, err)
	require.NoError(t, s.ReplacePreviews(ctx, id, 0,
		map[string]string{"icon_preview_1": "blob://i1"}))

	rows, err := s.PivotPreviews(ctx, id, 0,
		[]string{"icon_preview_1", "icon_preview_2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "blob://i1", rows[0]["icon_preview_1"])
	assert.Equal(t, "", rows[0]["icon_preview_2"])
}

func TestReplacePreviews_OverwritesByKey(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	id, err := s.InsertTheme(ctx, testTheme("com.example.red"))
	require.NoError(t, err)
	require.NoError(t, s.ReplacePreviews(ctx, id, 0,
		map[string]string{"icon_preview_1": "blob://old", "icon_preview_2": "blob://keep"}))
	require.NoError(t, s.ReplacePreviews(ctx, id, 0,
		map[string]string{"icon_preview_1": "blob://new"}))

	entries, err := s.Previews(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "blob://new", entries[0].Value)
	assert.Equal(t, "blob://keep", entries[1].Value)
}

func TestSelectionsJoined_ExcludesDangling(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	require.NoError(t, s.SetSelection(ctx, registry.ComponentOverlays, "", "com.gone"))

	joined, err := s.SelectionsJoined(ctx)
	require.NoError(t, err)
	for _, st := range joined {
		assert.NotEqual(t, registry.ComponentOverlays, st.Key,
			"dangling selection must be excluded, not nulled")
	}
}

func TestAppliedPreviews_ReadsSelectedThemes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	theme := testTheme("com.example.red")
	id, err := s.InsertTheme(ctx, theme)
	require.NoError(t, err)
	require.NoError(t, s.ReplacePreviews(ctx, id, 0,
		map[string]string{"style_preview": "blob://style"}))
	require.NoError(t, s.SetSelection(ctx, registry.ComponentOverlays, "", theme.PkgName))

	applied, err := s.AppliedPreviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, "blob://style", applied["style_preview"])
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	err := s.InTx(ctx, func(tx *Store) error {
		if _, err := tx.InsertTheme(ctx, testTheme("com.example.red")); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = s.ThemeByPkg(ctx, "com.example.red")
	assert.True(t, registry.IsNotFound(err))
}

func TestCurrentTheme_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Hooks{})

	require.NoError(t, s.SetCurrentTheme(ctx, "com.example.red"))
	current, err := s.CurrentTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "com.example.red", current)
}

func testTheme(pkg string) *registry.Theme {
	return &registry.Theme{
		PkgName: pkg,
		Title:   "Test Theme",
		Author:  "Tester",
		Capabilities: registry.CapabilityMap{
			registry.ComponentLauncher: true,
			registry.ComponentOverlays: true,
		},
		Presentable:    true,
		LastUpdateTime: 100,
		InstallTime:    100,
		TargetAPI:      25,
		InstallState:   registry.StateInstalled,
	}
}
