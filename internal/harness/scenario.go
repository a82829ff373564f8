package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML-defined registry scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description,omitempty"`

	// Packages is the inventory fixture available to the steps.
	Packages []PackageFixture `yaml:"packages,omitempty"`

	// Steps run in order against the lifecycle machine.
	Steps []Step `yaml:"steps"`
}

// PackageFixture describes one installable package.
type PackageFixture struct {
	Pkg    string `yaml:"pkg"`
	Title  string `yaml:"title,omitempty"`
	Author string `yaml:"author,omitempty"`
	Label  string `yaml:"label,omitempty"`

	InstallTime int64 `yaml:"install_time,omitempty"`
	UpdateTime  int64 `yaml:"update_time,omitempty"`
	TargetAPI   int   `yaml:"target_api,omitempty"`

	// Format: "theme" (default), "legacy-theme", or "legacy-iconpack".
	Format string `yaml:"format,omitempty"`

	// Components lists the component kinds whose asset folders the
	// package populates. Capability resolution probes these.
	Components []string `yaml:"components,omitempty"`

	// Processing marks the package as requiring asynchronous resource
	// processing before it counts as installed.
	Processing bool `yaml:"processing,omitempty"`
}

// Step is one scenario event.
type Step struct {
	// Event: added | updated | removed | completed | select | reconcile.
	Event string `yaml:"event"`

	Pkg  string `yaml:"pkg,omitempty"`
	Code int    `yaml:"code,omitempty"` // completed result code

	// Selection fields for the select event.
	Component string `yaml:"component,omitempty"`
	Target    string `yaml:"target,omitempty"`
	Value     string `yaml:"value,omitempty"`

	// Uninstall removes the package from the inventory fixture before
	// the event runs. Defaults to true for removed events.
	Uninstall *bool `yaml:"uninstall,omitempty"`
}

// Load reads and validates one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	for i, step := range sc.Steps {
		switch step.Event {
		case "added", "updated", "removed", "completed":
			if step.Pkg == "" {
				return nil, fmt.Errorf("scenario %s step %d: %s event needs pkg",
					sc.Name, i, step.Event)
			}
		case "select":
			if step.Component == "" {
				return nil, fmt.Errorf("scenario %s step %d: select needs component",
					sc.Name, i)
			}
		case "reconcile":
		default:
			return nil, fmt.Errorf("scenario %s step %d: unknown event %q",
				sc.Name, i, step.Event)
		}
	}
	return &sc, nil
}

// LoadDir loads every scenario under dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".yaml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		sc, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
