// Package capability derives, for a theme package, the map of component
// kinds it can supply, and computes the presentability flag from that
// map.
//
// Modern theme packages declare a component by shipping a non-empty
// asset folder under the path the policy's folder table names for that
// component. Legacy formats use per-format heuristics: a legacy theme
// is probed for well-known resource files, and a legacy icon pack
// always supplies exactly the icons component.
//
// Resolution failures (package gone, asset source unavailable) yield an
// empty map, never an error: "no capabilities known" must not fail the
// surrounding insert or update.
package capability
