package registry

// SystemDefault is the package name of the synthetic system theme row.
// It always exists in the registry and is the fallback target whenever a
// selection points at a package that is no longer installed.
const SystemDefault = "system"

// InstallState tracks where a theme row is in its install lifecycle.
//
// Transitions:
//
//	UNKNOWN → INSTALLING → INSTALLED
//	INSTALLED → UPDATING → INSTALLED
//	any → (row deleted)
//
// The numeric values are part of the on-disk format and must not change.
type InstallState int

const (
	StateUnknown    InstallState = 0
	StateInstalling InstallState = 1
	StateInstalled  InstallState = 3
	StateUpdating   InstallState = 5
)

// String returns the lowercase state name used in logs and JSON output.
func (s InstallState) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateUpdating:
		return "updating"
	default:
		return "unknown"
	}
}

// Processing reports whether the state is a transient processing state.
func (s InstallState) Processing() bool {
	return s == StateInstalling || s == StateUpdating
}

// ComponentKind identifies one themeable component. The set is
// open-ended: the policy document enumerates the kinds a deployment
// knows about, and unknown kinds round-trip through the store untouched.
type ComponentKind string

const (
	ComponentLauncher       ComponentKind = "launcher"
	ComponentLockscreen     ComponentKind = "lockscreen"
	ComponentLiveLockscreen ComponentKind = "live_lock_screen"
	ComponentIcons          ComponentKind = "icons"
	ComponentFonts          ComponentKind = "fonts"
	ComponentRingtones      ComponentKind = "ringtones"
	ComponentNotifications  ComponentKind = "notifications"
	ComponentAlarms         ComponentKind = "alarms"
	ComponentBootAnim       ComponentKind = "boot_anim"
	ComponentOverlays       ComponentKind = "overlays"
	ComponentStatusBar      ComponentKind = "status_bar"
	ComponentNavigationBar  ComponentKind = "navigation_bar"
)

// CapabilityMap records, per component kind, whether a package can
// supply that component. Absent keys are treated as false.
type CapabilityMap map[ComponentKind]bool

// Has reports whether the map affirmatively contains the kind.
func (m CapabilityMap) Has(kind ComponentKind) bool {
	return m != nil && m[kind]
}

// Clone returns an independent copy of the map. A nil map clones to nil.
func (m CapabilityMap) Clone() CapabilityMap {
	if m == nil {
		return nil
	}
	out := make(CapabilityMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Theme is one registry row: a single installed theme or icon-pack
// package plus the derived flags computed at insert/update time.
type Theme struct {
	ID          int64
	PkgName     string
	Title       string
	Author      string
	DateCreated int64 // unix millis, stamped by the registry clock

	// Preview artifact columns. Written only by the preview-generation
	// writeback path; the provider's feedback guard keys off them.
	HomescreenURI string
	LockscreenURI string
	StyleURI      string
	WallpaperURI  string
	IconURI       string

	Capabilities CapabilityMap

	Presentable      bool
	IsLegacyTheme    bool
	IsDefaultTheme   bool
	IsLegacyIconPack bool

	LastUpdateTime int64 // from the package inventory
	InstallTime    int64 // from the package inventory
	TargetAPI      int

	InstallState InstallState
}

// Selection is one mix-and-match row: which package currently supplies a
// component kind, optionally scoped to a sub-target (for example a
// per-app overlay target). Target is empty for the global slot.
type Selection struct {
	Key        ComponentKind
	Target     string
	Value      string
	PrevValue  string
	UpdateTime int64
}

// SelectionTheme is a selection row inner-joined to the theme metadata
// of its currently selected package. Dangling selections do not appear.
type SelectionTheme struct {
	Selection
	Theme Theme
}

// PreviewEntry is one derived preview artifact: a semantic key mapped to
// either inline bytes (stored as text today) or a blob path.
type PreviewEntry struct {
	ID          int64
	ThemeID     int64
	ComponentID int
	Key         string
	Value       string
}
