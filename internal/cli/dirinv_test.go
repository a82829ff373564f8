package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/registry"
)

// writePackage lays out one package directory: a manifest plus asset
// folders each containing a single entry.
func writePackage(t *testing.T, root, pkg, manifest string, folders ...string) {
	t.Helper()
	dir := filepath.Join(root, pkg)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), []byte(manifest), 0o644))
	for _, folder := range folders {
		sub := filepath.Join(dir, filepath.FromSlash(folder))
		require.NoError(t, os.MkdirAll(sub, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, "content"), []byte("x"), 0o644))
	}
}

func TestDirInventory_ListsManifestedPackages(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "com.example.red", "title: Red Theme\nformat: theme\n", "wallpapers", "overlays")
	writePackage(t, root, "com.example.icons", "label: Dots\nformat: legacy-iconpack\n", "icons")
	// A directory without a manifest is not a package.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lost+found"), 0o755))

	inv := NewDirInventory(root, registry.SystemDefault)
	installed, err := inv.InstalledThemePackages(context.Background())
	require.NoError(t, err)

	require.Len(t, installed, 2)
	assert.Equal(t, "com.example.icons", installed[0].PkgName)
	assert.Equal(t, inventory.FormatLegacyIconPack, installed[0].Format())
	assert.Equal(t, "Dots", installed[0].AppLabel)
	assert.Equal(t, "com.example.red", installed[1].PkgName)
	assert.Equal(t, inventory.FormatModernTheme, installed[1].Format())
	assert.Equal(t, "Red Theme", installed[1].Title)
	assert.NotZero(t, installed[1].InstallTime)
}

func TestDirInventory_PackageInfoNotFound(t *testing.T) {
	inv := NewDirInventory(t.TempDir(), registry.SystemDefault)
	_, err := inv.PackageInfo(context.Background(), "com.example.absent")
	assert.True(t, registry.IsNotFound(err))
}

func TestDirInventory_RejectsUnknownFormat(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "com.example.odd", "title: Odd\nformat: hologram\n")

	inv := NewDirInventory(root, registry.SystemDefault)
	_, err := inv.InstalledThemePackages(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hologram")
}

func TestDirInventory_RejectsMalformedManifest(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "com.example.bad", "title: [unclosed\n")

	inv := NewDirInventory(root, registry.SystemDefault)
	_, err := inv.PackageInfo(context.Background(), "com.example.bad")
	require.Error(t, err)
	assert.False(t, registry.IsNotFound(err), "parse failures must surface, not read as uninstalled")
}

func TestDirAssets_List(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "com.example.red", "title: Red\nformat: theme\n", "wallpapers", "overlays/com.android.systemui")

	inv := NewDirInventory(root, registry.SystemDefault)
	assets, err := inv.OpenAssets("com.example.red")
	require.NoError(t, err)

	names, err := assets.List("wallpapers")
	require.NoError(t, err)
	assert.Equal(t, []string{"content"}, names)

	// Nested folders use slash paths like the policy folder table.
	names, err = assets.List("overlays/com.android.systemui")
	require.NoError(t, err)
	assert.Len(t, names, 1)

	names, err = assets.List("fonts")
	require.NoError(t, err)
	assert.Empty(t, names, "a folder the package does not ship is empty, not an error")

	_, err = inv.OpenAssets("com.example.gone")
	assert.True(t, registry.IsNotFound(err))
}

func TestDirInventory_LegacyThemeResolvesMarkerFiles(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "com.example.classic", "title: Classic\nformat: legacy-theme\n")
	dir := filepath.Join(root, "com.example.classic")
	for _, marker := range []string{"res/drawable/wallpaper.jpg", "res/values/styles.xml"} {
		full := filepath.Join(dir, filepath.FromSlash(marker))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}

	inv := NewDirInventory(root, registry.SystemDefault)
	desc, err := inv.PackageInfo(context.Background(), "com.example.classic")
	require.NoError(t, err)
	require.Equal(t, inventory.FormatLegacyTheme, desc.Format())

	caps := capability.NewResolver(policy.Default(), inv).Resolve(desc)

	assert.True(t, caps.Has(registry.ComponentLauncher))
	assert.True(t, caps.Has(registry.ComponentOverlays))
	assert.False(t, caps.Has(registry.ComponentBootAnim), "marker file absent")
	assert.False(t, caps.Has(registry.ComponentStatusBar))
	assert.True(t, capability.IsPresentable(caps, desc.Format()))
}
