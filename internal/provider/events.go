package provider

// EventKind classifies a registry change notification.
type EventKind int

const (
	// ThemeInstalled fires when a new theme row appears.
	ThemeInstalled EventKind = iota

	// ThemeUpdated fires when an existing theme row's metadata,
	// capabilities, or install state change.
	ThemeUpdated

	// ThemeRemoved fires when a theme row is deleted.
	ThemeRemoved

	// ResourcesChanged fires when derived artifacts (preview URIs or
	// preview entries) change without any metadata change, and when a
	// selection moves.
	ResourcesChanged
)

func (k EventKind) String() string {
	switch k {
	case ThemeInstalled:
		return "theme_installed"
	case ThemeUpdated:
		return "theme_updated"
	case ThemeRemoved:
		return "theme_removed"
	case ResourcesChanged:
		return "resources_changed"
	default:
		return "unknown"
	}
}

// Event is one registry change notification. Pkg is empty for changes
// not scoped to a single package (selection moves).
type Event struct {
	Kind EventKind
	Pkg  string
}

// Observer receives registry change events after the originating
// transaction has committed. Callbacks run on the mutating goroutine
// and must not call back into the provider's mutation surface.
type Observer interface {
	RegistryChanged(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) RegistryChanged(e Event) { f(e) }
