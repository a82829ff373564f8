package inventory

import "context"

// Format is the closed set of theme package format variants.
type Format int

const (
	// FormatNone marks a package that supplies no theme content.
	FormatNone Format = iota
	// FormatModernTheme declares capabilities through asset folders.
	FormatModernTheme
	// FormatLegacyTheme declares capabilities through named resources.
	FormatLegacyTheme
	// FormatLegacyIconPack supplies icons only.
	FormatLegacyIconPack
)

// String returns the format name used in logs.
func (f Format) String() string {
	switch f {
	case FormatModernTheme:
		return "theme"
	case FormatLegacyTheme:
		return "legacy-theme"
	case FormatLegacyIconPack:
		return "legacy-iconpack"
	default:
		return "none"
	}
}

// Descriptor is what the package inventory reports about one package.
type Descriptor struct {
	PkgName string

	// Theme metadata. Title/Author are set for theme packages; AppLabel
	// is the application label used as the title for legacy icon packs.
	Title    string
	Author   string
	AppLabel string

	InstallTime int64 // unix millis of first install
	UpdateTime  int64 // unix millis of last update, 0 if never updated
	TargetAPI   int

	IsTheme          bool
	IsLegacyTheme    bool
	IsLegacyIconPack bool
}

// Format classifies the descriptor into its package format variant.
func (d Descriptor) Format() Format {
	switch {
	case d.IsTheme && !d.IsLegacyTheme:
		return FormatModernTheme
	case d.IsLegacyTheme:
		return FormatLegacyTheme
	case d.IsLegacyIconPack:
		return FormatLegacyIconPack
	default:
		return FormatNone
	}
}

// ThemeCapable reports whether the package belongs in the registry.
func (d Descriptor) ThemeCapable() bool {
	return d.Format() != FormatNone
}

// UpdateTimestamp returns the timestamp the reconciliation engine
// compares against the registry row: the last update time, falling back
// to the install time for packages never updated.
func (d Descriptor) UpdateTimestamp() int64 {
	if d.UpdateTime == 0 {
		return d.InstallTime
	}
	return d.UpdateTime
}

// Inventory is the authoritative package inventory service.
type Inventory interface {
	// InstalledThemePackages lists every installed package that is
	// theme-capable in any format.
	InstalledThemePackages(ctx context.Context) ([]Descriptor, error)

	// PackageInfo returns the descriptor for one package, or a
	// registry NOT_FOUND error if it is not installed.
	PackageInfo(ctx context.Context, pkg string) (Descriptor, error)

	// DefaultThemePackage returns the platform's current default theme
	// package setting.
	DefaultThemePackage(ctx context.Context) string
}
