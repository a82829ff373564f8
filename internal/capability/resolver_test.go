package capability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/testutil"
)

func modernDesc(pkg string) inventory.Descriptor {
	return inventory.Descriptor{PkgName: pkg, IsTheme: true}
}

func TestResolve_ModernProbesAssetFolders(t *testing.T) {
	pol := policy.Default()
	assets := testutil.NewFakeAssets()
	assets.Put("com.a", pol.FolderName(registry.ComponentLauncher), "wall.jpg")
	assets.Put("com.a", pol.FolderName(registry.ComponentOverlays), "android")
	assets.Put("com.a", pol.FolderName(registry.ComponentStatusBar), "res")

	caps := capability.NewResolver(pol, assets).Resolve(modernDesc("com.a"))

	assert.True(t, caps.Has(registry.ComponentLauncher))
	assert.True(t, caps.Has(registry.ComponentOverlays))
	assert.True(t, caps.Has(registry.ComponentStatusBar))
	assert.False(t, caps.Has(registry.ComponentFonts))
	assert.False(t, caps.Has(registry.ComponentIcons))
}

func TestResolve_EmptyFolderIsNoCapability(t *testing.T) {
	pol := policy.Default()
	assets := testutil.NewFakeAssets()
	assets.Put("com.a", pol.FolderName(registry.ComponentFonts)) // folder exists, empty

	caps := capability.NewResolver(pol, assets).Resolve(modernDesc("com.a"))
	assert.False(t, caps.Has(registry.ComponentFonts))
}

func TestResolve_IconPackIsIconsOnly(t *testing.T) {
	pol := policy.Default()
	caps := capability.NewResolver(pol, testutil.NewFakeAssets()).Resolve(inventory.Descriptor{
		PkgName:          "com.icons",
		IsLegacyIconPack: true,
	})
	require.Equal(t, registry.CapabilityMap{registry.ComponentIcons: true}, caps)
}

func TestResolve_UnknownPackageYieldsEmptyMap(t *testing.T) {
	pol := policy.Default()
	caps := capability.NewResolver(pol, testutil.NewFakeAssets()).Resolve(modernDesc("com.ghost"))

	for _, kind := range pol.Kinds() {
		assert.False(t, caps.Has(kind))
	}
}

func TestIsPresentable(t *testing.T) {
	launcherOverlays := registry.CapabilityMap{
		registry.ComponentLauncher: true,
		registry.ComponentOverlays: true,
	}
	launcherOnly := registry.CapabilityMap{
		registry.ComponentLauncher: true,
		registry.ComponentFonts:    true,
		registry.ComponentIcons:    true,
	}

	assert.True(t, capability.IsPresentable(launcherOverlays, inventory.FormatModernTheme))
	assert.False(t, capability.IsPresentable(launcherOnly, inventory.FormatModernTheme),
		"capability count alone never makes a theme presentable")
	assert.False(t, capability.IsPresentable(nil, inventory.FormatModernTheme))
	assert.True(t, capability.IsPresentable(nil, inventory.FormatLegacyIconPack))
}

func TestIsPresentable_Deterministic(t *testing.T) {
	caps := registry.CapabilityMap{
		registry.ComponentLauncher: true,
		registry.ComponentOverlays: true,
	}
	first := capability.IsPresentable(caps, inventory.FormatModernTheme)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, capability.IsPresentable(caps.Clone(), inventory.FormatModernTheme))
	}
}

func TestBuildTheme_IconPackTitleFromLabel(t *testing.T) {
	theme := capability.BuildTheme(inventory.Descriptor{
		PkgName:          "com.icons",
		AppLabel:         "Icon Pack",
		InstallTime:      100,
		IsLegacyIconPack: true,
	}, registry.CapabilityMap{registry.ComponentIcons: true}, 1000, registry.SystemDefault)

	assert.Equal(t, "Icon Pack", theme.Title)
	assert.True(t, theme.IsLegacyIconPack)
	assert.True(t, theme.Presentable)
	assert.False(t, theme.IsDefaultTheme)
	assert.Equal(t, int64(100), theme.LastUpdateTime)
}

func TestBuildTheme_MetadataNormalizedNFC(t *testing.T) {
	// "é" as combining sequence (U+0065 U+0301) folds to precomposed U+00E9.
	theme := capability.BuildTheme(inventory.Descriptor{
		PkgName: "com.example.cafe",
		Title:   "Café Noir",
		Author:  "René",
		IsTheme: true,
	}, nil, 1000, registry.SystemDefault)

	assert.Equal(t, "Café Noir", theme.Title)
	assert.Equal(t, "René", theme.Author)
}

func TestResolve_LegacyProbesMarkerFiles(t *testing.T) {
	pol := policy.Default()
	assets := testutil.NewFakeAssets()
	// Markers are files inside res/ folders; the folder listing has to
	// contain the marker name, not merely exist.
	assets.Put("com.legacy", "res/drawable", "wallpaper.jpg", "icon.png")
	assets.Put("com.legacy", "res/values", "styles.xml")
	assets.Put("com.legacy", "res/raw") // folder present, bootanimation.zip absent

	caps := capability.NewResolver(pol, assets).Resolve(inventory.Descriptor{
		PkgName:       "com.legacy",
		IsTheme:       true,
		IsLegacyTheme: true,
	})

	assert.True(t, caps.Has(registry.ComponentLauncher))
	assert.True(t, caps.Has(registry.ComponentOverlays))
	assert.False(t, caps.Has(registry.ComponentBootAnim))
	assert.False(t, caps.Has(registry.ComponentStatusBar))
	assert.False(t, caps.Has(registry.ComponentIcons))
	assert.True(t, capability.IsPresentable(caps, inventory.FormatLegacyTheme))
}

func TestResolve_LegacySharedStatusBarMarker(t *testing.T) {
	pol := policy.Default()
	assets := testutil.NewFakeAssets()
	assets.Put("com.legacy", "res/drawable", "status_bar_background.png")

	caps := capability.NewResolver(pol, assets).Resolve(inventory.Descriptor{
		PkgName:       "com.legacy",
		IsTheme:       true,
		IsLegacyTheme: true,
	})

	// One marker file declares both bar components.
	assert.True(t, caps.Has(registry.ComponentStatusBar))
	assert.True(t, caps.Has(registry.ComponentNavigationBar))
	assert.False(t, caps.Has(registry.ComponentLauncher))
}
