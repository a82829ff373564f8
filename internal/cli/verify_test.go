package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_FreshDatabaseThenInSync(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "themes.db")
	writePackage(t, root, "com.example.red", "title: Red Theme\nformat: theme\n", "wallpapers", "overlays")

	// First pass seeds the database and pulls the package in.
	out, _, err := execute(t, "--db", dbPath, "--format", "json", "verify", "--packages", root)
	require.Error(t, err, "drift exits nonzero")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["in_sync"])
	assert.Equal(t, []any{"com.example.red"}, data["inserted"])

	// Second pass changes nothing.
	out, _, err = execute(t, "--db", dbPath, "--format", "json", "verify", "--packages", root)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data = resp.Data.(map[string]any)
	assert.Equal(t, true, data["in_sync"])
}

func TestVerify_TextReportsDelta(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "themes.db")
	writePackage(t, root, "com.example.red", "title: Red Theme\nformat: theme\n", "wallpapers")

	out, _, err := execute(t, "--db", dbPath, "verify", "--packages", root)
	require.Error(t, err)
	assert.Contains(t, out, "registry drifted")
	assert.Contains(t, out, "+ com.example.red")
}

func TestThemes_ListsSeededRegistry(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "themes.db")
	writePackage(t, root, "com.example.red", "title: Red Theme\nformat: theme\n", "wallpapers", "overlays")
	_, _, err := execute(t, "--db", dbPath, "verify", "--packages", root)
	require.Error(t, err) // drift on first pass

	out, _, err := execute(t, "--db", dbPath, "--format", "json", "themes")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	rows := resp.Data.([]any)
	require.Len(t, rows, 2)

	pkgs := make([]string, 0, len(rows))
	for _, r := range rows {
		pkgs = append(pkgs, r.(map[string]any)["pkg"].(string))
	}
	assert.Equal(t, []string{"com.example.red", "system"}, pkgs)
}

func TestThemes_PresentableFilter(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "themes.db")
	// Wallpapers only: not presentable.
	writePackage(t, root, "com.example.wall", "title: Walls\nformat: theme\n", "wallpapers")
	_, _, err := execute(t, "--db", dbPath, "verify", "--packages", root)
	require.Error(t, err)

	out, _, err := execute(t, "--db", dbPath, "--format", "json", "themes", "--presentable")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	for _, r := range resp.Data.([]any) {
		assert.NotEqual(t, "com.example.wall", r.(map[string]any)["pkg"])
	}
}

func TestThemes_MissingDatabase(t *testing.T) {
	_, _, err := execute(t, "--db", filepath.Join(t.TempDir(), "absent.db"), "themes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSelections_JoinedOutput(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "themes.db")
	_, _, err := execute(t, "--db", dbPath, "verify", "--packages", root)
	require.NoError(t, err) // empty inventory, fresh seed is already in sync

	out, _, err := execute(t, "--db", dbPath, "selections")
	require.NoError(t, err)
	// Every seeded global slot points at the system theme except the
	// lock screen kinds, which have no default and join to nothing.
	assert.Contains(t, out, "overlays")
	assert.Contains(t, out, "system")
	assert.Contains(t, out, "10 selection(s)")
}

func TestPreviews_EmptyResult(t *testing.T) {
	root := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "themes.db")
	_, _, err := execute(t, "--db", dbPath, "verify", "--packages", root)
	require.NoError(t, err)

	out, _, err := execute(t, "--db", dbPath, "previews",
		"--theme", "1", "--component", "icons", "--keys", "icon_preview_1")
	require.NoError(t, err)
	assert.Contains(t, out, "no previews")
}

func TestPreviews_UnknownComponent(t *testing.T) {
	_, _, err := execute(t, "--db", filepath.Join(t.TempDir(), "themes.db"), "previews",
		"--theme", "1", "--component", "dashboard", "--keys", "k")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
