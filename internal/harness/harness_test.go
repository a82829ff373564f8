package harness

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			r := NewRunner(t)
			snap, err := r.Run(context.Background(), sc)
			require.NoError(t, err)
			AssertGolden(t, sc.Name, snap)
		})
	}
}

func TestLoad_RejectsUnknownEvent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.yaml"
	writeFile(t, path, `
name: bad
steps:
  - event: explode
    pkg: com.example.a
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event")
}

func TestLoad_RequiresPkgForLifecycleEvents(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.yaml"
	writeFile(t, path, `
name: bad
steps:
  - event: removed
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs pkg")
}
