// Package inventory defines the interface to the authoritative package
// inventory (the OS package manager). The registry never owns this
// data: it caches what the inventory reports and repairs drift against
// it during reconciliation.
//
// A Descriptor classifies into exactly one theme format variant
// (modern theme, legacy theme, legacy icon pack) at the time it is
// first observed; all format-specific behavior downstream switches on
// that closed classification rather than re-sniffing the package.
package inventory
