// Package testutil provides deterministic fakes for every external
// collaborator of the registry: the package inventory, the asset
// source, the theming apply service, and the preview dispatcher.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/kaleidos/themestore/internal/apply"
	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/inventory"
	"github.com/kaleidos/themestore/internal/preview"
	"github.com/kaleidos/themestore/internal/registry"
)

// Clock is a fixed, manually advanced wall clock in unix millis.
type Clock struct {
	mu  sync.Mutex
	now int64
}

// NewClock creates a clock starting at the given millis value.
func NewClock(start int64) *Clock {
	return &Clock{now: start}
}

// Now returns the current reading. Passed as store.WithClock.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and returns the new reading.
func (c *Clock) Advance(millis int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += millis
	return c.now
}

// FakeInventory is an in-memory package inventory.
type FakeInventory struct {
	mu         sync.Mutex
	packages   map[string]inventory.Descriptor
	defaultPkg string
}

// NewFakeInventory creates an empty inventory with the system package
// as the platform default.
func NewFakeInventory() *FakeInventory {
	return &FakeInventory{
		packages:   make(map[string]inventory.Descriptor),
		defaultPkg: registry.SystemDefault,
	}
}

// Add installs or replaces a package descriptor.
func (f *FakeInventory) Add(d inventory.Descriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages[d.PkgName] = d
}

// Remove uninstalls a package.
func (f *FakeInventory) Remove(pkg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.packages, pkg)
}

// Touch bumps a package's update time, simulating a package update.
func (f *FakeInventory) Touch(pkg string, updateTime int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.packages[pkg]
	if !ok {
		return
	}
	d.UpdateTime = updateTime
	f.packages[pkg] = d
}

// SetDefault changes the platform default theme package.
func (f *FakeInventory) SetDefault(pkg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultPkg = pkg
}

func (f *FakeInventory) InstalledThemePackages(ctx context.Context) ([]inventory.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []inventory.Descriptor{}
	for _, d := range f.packages {
		if d.ThemeCapable() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PkgName < out[j].PkgName })
	return out, nil
}

func (f *FakeInventory) PackageInfo(ctx context.Context, pkg string) (inventory.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.packages[pkg]
	if !ok {
		return inventory.Descriptor{}, registry.NewNotFound(pkg)
	}
	return d, nil
}

func (f *FakeInventory) DefaultThemePackage(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defaultPkg
}

// FakeAssets is an in-memory asset source: package -> folder -> entries.
type FakeAssets struct {
	mu       sync.Mutex
	packages map[string]map[string][]string
}

// NewFakeAssets creates an empty asset source.
func NewFakeAssets() *FakeAssets {
	return &FakeAssets{packages: make(map[string]map[string][]string)}
}

// Put registers asset entries under a package folder. The capability
// resolver treats any non-empty folder as declaring support.
func (f *FakeAssets) Put(pkg, folder string, entries ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.packages[pkg] == nil {
		f.packages[pkg] = make(map[string][]string)
	}
	f.packages[pkg][folder] = entries
}

// OpenAssets implements capability.AssetOpener. Unknown packages still
// open; every folder probe just comes back empty.
func (f *FakeAssets) OpenAssets(pkg string) (capability.Assets, error) {
	return assetView{source: f, pkg: pkg}, nil
}

type assetView struct {
	source *FakeAssets
	pkg    string
}

func (v assetView) List(folder string) ([]string, error) {
	v.source.mu.Lock()
	defer v.source.mu.Unlock()
	return v.source.packages[v.pkg][folder], nil
}

// RecordingApplier records every change request sent to the theming
// apply service.
type RecordingApplier struct {
	mu       sync.Mutex
	Requests []apply.ChangeRequest
}

// NewRecordingApplier creates an empty recorder.
func NewRecordingApplier() *RecordingApplier {
	return &RecordingApplier{}
}

func (a *RecordingApplier) ApplyChange(ctx context.Context, req apply.ChangeRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Requests = append(a.Requests, req)
}

// Recorded returns a copy of the requests seen so far.
func (a *RecordingApplier) Recorded() []apply.ChangeRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]apply.ChangeRequest(nil), a.Requests...)
}

// Reset discards recorded requests.
func (a *RecordingApplier) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Requests = nil
}

// Dispatch is one recorded preview-generation request.
type Dispatch struct {
	Pkg string
	Op  preview.Op
}

// RecordingDispatcher records preview dispatches instead of generating.
type RecordingDispatcher struct {
	mu         sync.Mutex
	Dispatches []Dispatch
}

// NewRecordingDispatcher creates an empty recorder.
func NewRecordingDispatcher() *RecordingDispatcher {
	return &RecordingDispatcher{}
}

func (d *RecordingDispatcher) Dispatch(pkg string, op preview.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dispatches = append(d.Dispatches, Dispatch{Pkg: pkg, Op: op})
}

// Recorded returns a copy of the dispatches seen so far.
func (d *RecordingDispatcher) Recorded() []Dispatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Dispatch(nil), d.Dispatches...)
}

// Reset discards recorded dispatches.
func (d *RecordingDispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dispatches = nil
}
