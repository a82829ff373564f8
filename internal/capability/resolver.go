package capability

import (
	"log/slog"
	"path"

	"golang.org/x/text/unicode/norm"

	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/registry"
)

// Assets is a read-only view of a package's bundled assets.
type Assets interface {
	// List returns the entry names directly under a folder. A missing
	// folder returns an empty list, not an error.
	List(folder string) ([]string, error)
}

// AssetOpener opens the asset view for an installed package.
type AssetOpener interface {
	OpenAssets(pkg string) (Assets, error)
}

// legacyMarkers maps component kinds to the resource file whose
// presence declares support in legacy theme packages.
var legacyMarkers = map[registry.ComponentKind]string{
	registry.ComponentLauncher:      "res/drawable/wallpaper.jpg",
	registry.ComponentOverlays:      "res/values/styles.xml",
	registry.ComponentStatusBar:     "res/drawable/status_bar_background.png",
	registry.ComponentNavigationBar: "res/drawable/status_bar_background.png",
	registry.ComponentIcons:         "res/xml/appfilter.xml",
	registry.ComponentBootAnim:      "res/raw/bootanimation.zip",
}

// Resolver derives capability maps from package assets using the
// policy's component folder table.
type Resolver struct {
	policy *policy.Policy
	assets AssetOpener
}

// NewResolver creates a Resolver over the given asset source.
func NewResolver(p *policy.Policy, assets AssetOpener) *Resolver {
	return &Resolver{policy: p, assets: assets}
}

// Resolve returns the capability map for a package, switching on its
// format variant. Errors opening or probing the package log a warning
// and yield an empty map.
func (r *Resolver) Resolve(desc inventory.Descriptor) registry.CapabilityMap {
	switch desc.Format() {
	case inventory.FormatModernTheme:
		return r.resolveModern(desc.PkgName)
	case inventory.FormatLegacyTheme:
		return r.resolveLegacy(desc.PkgName)
	case inventory.FormatLegacyIconPack:
		return registry.CapabilityMap{registry.ComponentIcons: true}
	default:
		return registry.CapabilityMap{}
	}
}

// resolveModern probes each component's asset folder for content.
func (r *Resolver) resolveModern(pkg string) registry.CapabilityMap {
	assets, err := r.assets.OpenAssets(pkg)
	if err != nil {
		slog.Warn("capability resolution failed, assuming none",
			"pkg", pkg, "error", err)
		return registry.CapabilityMap{}
	}

	caps := make(registry.CapabilityMap, len(r.policy.FolderNames))
	for kind, folder := range r.policy.FolderNames {
		caps[kind] = hasAssetContent(assets, folder, pkg)
	}
	return caps
}

// resolveLegacy probes for the well-known legacy resource markers.
// Markers are files, not folders, so the probe lists the marker's
// parent folder and looks for the file name among the entries.
func (r *Resolver) resolveLegacy(pkg string) registry.CapabilityMap {
	assets, err := r.assets.OpenAssets(pkg)
	if err != nil {
		slog.Warn("capability resolution failed, assuming none",
			"pkg", pkg, "error", err)
		return registry.CapabilityMap{}
	}

	caps := make(registry.CapabilityMap, len(legacyMarkers))
	for kind, marker := range legacyMarkers {
		entries, err := assets.List(path.Dir(marker))
		if err != nil {
			slog.Warn("legacy marker probe failed",
				"pkg", pkg, "marker", marker, "error", err)
			caps[kind] = false
			continue
		}
		caps[kind] = containsEntry(entries, path.Base(marker))
	}
	return caps
}

func containsEntry(entries []string, name string) bool {
	for _, e := range entries {
		if e == name {
			return true
		}
	}
	return false
}

func hasAssetContent(assets Assets, folder, pkg string) bool {
	entries, err := assets.List(folder)
	if err != nil {
		slog.Warn("asset folder probe failed",
			"pkg", pkg, "folder", folder, "error", err)
		return false
	}
	return len(entries) > 0
}

// BuildTheme assembles a registry row from an inventory descriptor and
// its resolved capabilities. Legacy icon packs take their title from
// the application label.
func BuildTheme(desc inventory.Descriptor, caps registry.CapabilityMap, now int64, defaultPkg string) *registry.Theme {
	title := desc.Title
	if desc.Format() == inventory.FormatLegacyIconPack {
		title = desc.AppLabel
	}
	// Manifest strings arrive in whatever Unicode form the build system
	// produced; the registry stores NFC so equal titles compare equal.
	return &registry.Theme{
		PkgName:          desc.PkgName,
		Title:            norm.NFC.String(title),
		Author:           norm.NFC.String(desc.Author),
		DateCreated:      now,
		Capabilities:     caps,
		Presentable:      IsPresentable(caps, desc.Format()),
		IsLegacyTheme:    desc.IsLegacyTheme,
		IsLegacyIconPack: desc.Format() == inventory.FormatLegacyIconPack,
		IsDefaultTheme:   desc.PkgName == defaultPkg,
		LastUpdateTime:   desc.UpdateTimestamp(),
		InstallTime:      desc.InstallTime,
		TargetAPI:        desc.TargetAPI,
	}
}

// IsPresentable applies the fixed presentability rule: a theme is shown
// to end users if it supplies both launcher and overlays content. A
// legacy icon pack is presentable unconditionally; an icon pack exists
// only to be presented.
func IsPresentable(caps registry.CapabilityMap, format inventory.Format) bool {
	if format == inventory.FormatLegacyIconPack {
		return true
	}
	return caps.Has(registry.ComponentLauncher) && caps.Has(registry.ComponentOverlays)
}
