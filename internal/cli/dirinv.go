package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/registry"
)

// manifestName is the per-package manifest file a directory inventory
// package must carry.
const manifestName = "theme.yaml"

// packageManifest is the on-disk manifest for one package directory.
type packageManifest struct {
	Title     string `yaml:"title"`
	Author    string `yaml:"author"`
	Label     string `yaml:"label"` // application label, used by icon packs
	TargetAPI int    `yaml:"targetApi"`
	Format    string `yaml:"format"` // theme | legacy-theme | legacy-iconpack
}

// DirInventory is a package inventory backed by a directory tree:
// every subdirectory carrying a theme.yaml manifest is one installed
// package, and its subfolders are the package's bundled assets. The
// verify command uses it to reconcile a registry offline.
type DirInventory struct {
	root       string
	defaultPkg string
}

// NewDirInventory creates a directory inventory rooted at root.
func NewDirInventory(root, defaultPkg string) *DirInventory {
	return &DirInventory{root: root, defaultPkg: defaultPkg}
}

// InstalledThemePackages lists every package directory with a valid
// manifest, in name order. Directories without a manifest are skipped;
// a malformed manifest is an error, not silence.
func (d *DirInventory) InstalledThemePackages(ctx context.Context) ([]inventory.Descriptor, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read inventory root: %w", err)
	}
	var out []inventory.Descriptor
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		desc, err := d.describe(e.Name())
		if registry.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

// PackageInfo returns the descriptor for one package directory.
func (d *DirInventory) PackageInfo(ctx context.Context, pkg string) (inventory.Descriptor, error) {
	return d.describe(pkg)
}

// DefaultThemePackage returns the configured platform default.
func (d *DirInventory) DefaultThemePackage(ctx context.Context) string {
	return d.defaultPkg
}

// OpenAssets opens the asset view rooted at the package directory.
func (d *DirInventory) OpenAssets(pkg string) (capability.Assets, error) {
	dir := filepath.Join(d.root, pkg)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, registry.NewNotFound(pkg)
	}
	return dirAssets{dir: dir}, nil
}

func (d *DirInventory) describe(pkg string) (inventory.Descriptor, error) {
	dir := filepath.Join(d.root, pkg)
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return inventory.Descriptor{}, registry.NewNotFound(pkg)
	}
	var m packageManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return inventory.Descriptor{}, fmt.Errorf("package %s: parse %s: %w", pkg, manifestName, err)
	}

	desc := inventory.Descriptor{
		PkgName:   pkg,
		Title:     m.Title,
		Author:    m.Author,
		AppLabel:  m.Label,
		TargetAPI: m.TargetAPI,
	}
	switch m.Format {
	case "theme":
		desc.IsTheme = true
	case "legacy-theme":
		desc.IsTheme = true
		desc.IsLegacyTheme = true
	case "legacy-iconpack":
		desc.IsLegacyIconPack = true
	default:
		return inventory.Descriptor{}, fmt.Errorf("package %s: unknown format %q", pkg, m.Format)
	}

	// File times stand in for the package manager's install and update
	// stamps: directory creation is not portable, so both come from
	// modification times.
	if info, err := os.Stat(dir); err == nil {
		desc.InstallTime = info.ModTime().UnixMilli()
	}
	if info, err := os.Stat(filepath.Join(dir, manifestName)); err == nil {
		desc.UpdateTime = info.ModTime().UnixMilli()
	}
	return desc, nil
}

// dirAssets lists bundled asset entries under one package directory.
type dirAssets struct {
	dir string
}

func (a dirAssets) List(folder string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.dir, filepath.FromSlash(folder)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
