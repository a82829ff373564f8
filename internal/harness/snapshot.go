package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the canonical final state of a scenario run. Field order
// is part of the golden format.
type Snapshot struct {
	Themes     []ThemeRow     `json:"themes"`
	Selections []SelectionRow `json:"selections"`
	Events     []string       `json:"events"`
	Applies    []string       `json:"applies"`
	Dispatches []string       `json:"dispatches"`
}

// ThemeRow is a theme's snapshot view. Timestamps are deliberately
// excluded; the clock fixture already pins them, and the snapshot reads
// better without them.
type ThemeRow struct {
	Pkg         string   `json:"pkg"`
	Title       string   `json:"title"`
	State       string   `json:"state"`
	Presentable bool     `json:"presentable"`
	Default     bool     `json:"default"`
	Components  []string `json:"components"`
}

// SelectionRow is a selection's snapshot view. Changed reports whether
// the row moved after bootstrap seeding.
type SelectionRow struct {
	Key       string `json:"key"`
	Target    string `json:"target,omitempty"`
	Value     string `json:"value"`
	PrevValue string `json:"prev_value"`
	Changed   bool   `json:"changed"`
}

// Marshal renders the snapshot as indented canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// AssertGolden compares the snapshot against testdata/<name>.golden.
func AssertGolden(t *testing.T, name string, snap *Snapshot) {
	t.Helper()
	data, err := snap.Marshal()
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	g := goldie.New(t)
	g.Assert(t, name, data)
}
