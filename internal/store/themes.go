package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kaleidos/themestore/internal/registry"
)

// capabilityColumns pairs each component kind with its themes-table
// column, in a fixed order so generated SQL is deterministic.
var capabilityColumns = []struct {
	kind registry.ComponentKind
	col  string
}{
	{registry.ComponentLauncher, "modifies_launcher"},
	{registry.ComponentLockscreen, "modifies_lockscreen"},
	{registry.ComponentIcons, "modifies_icons"},
	{registry.ComponentBootAnim, "modifies_boot_anim"},
	{registry.ComponentFonts, "modifies_fonts"},
	{registry.ComponentRingtones, "modifies_ringtones"},
	{registry.ComponentNotifications, "modifies_notifications"},
	{registry.ComponentAlarms, "modifies_alarms"},
	{registry.ComponentOverlays, "modifies_overlays"},
	{registry.ComponentStatusBar, "modifies_status_bar"},
	{registry.ComponentNavigationBar, "modifies_navigation_bar"},
	{registry.ComponentLiveLockscreen, "modifies_live_lock_screen"},
}

// PreviewArtifactColumns are the themes-table columns written only by
// the preview-generation writeback. The provider's feedback guard
// classifies a mutation as generator-originated when its column set is
// a subset of these.
var PreviewArtifactColumns = map[string]bool{
	"homescreen_uri": true,
	"lockscreen_uri": true,
	"style_uri":      true,
	"wallpaper_uri":  true,
	"icon_uri":       true,
}

const themeColumns = `id, title, author, pkg_name, date_created,
	homescreen_uri, lockscreen_uri, style_uri, wallpaper_uri, icon_uri,
	modifies_launcher, modifies_lockscreen, modifies_icons, modifies_boot_anim,
	modifies_fonts, modifies_ringtones, modifies_notifications, modifies_alarms,
	modifies_overlays, modifies_status_bar, modifies_navigation_bar,
	modifies_live_lock_screen,
	present_as_theme, is_legacy_theme, is_default_theme, is_legacy_iconpack,
	last_update_time, install_time, target_api, install_state`

// InsertTheme inserts a new theme row and returns its id. A row with
// the same package name already present is a CONFLICT: duplicate
// inserts are a collaborator error, never silently ignored.
func (s *Store) InsertTheme(ctx context.Context, t *registry.Theme) (int64, error) {
	exists, err := s.themeExists(ctx, t.PkgName)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, registry.NewConflict(t.PkgName)
	}

	cols := []string{
		"title", "author", "pkg_name", "date_created",
		"homescreen_uri", "lockscreen_uri", "style_uri", "wallpaper_uri", "icon_uri",
		"present_as_theme", "is_legacy_theme", "is_default_theme", "is_legacy_iconpack",
		"last_update_time", "install_time", "target_api", "install_state",
	}
	args := []any{
		t.Title, t.Author, t.PkgName, t.DateCreated,
		t.HomescreenURI, t.LockscreenURI, t.StyleURI, t.WallpaperURI, t.IconURI,
		boolInt(t.Presentable), boolInt(t.IsLegacyTheme),
		boolInt(t.IsDefaultTheme), boolInt(t.IsLegacyIconPack),
		t.LastUpdateTime, t.InstallTime, t.TargetAPI, int(t.InstallState),
	}
	for _, cc := range capabilityColumns {
		cols = append(cols, cc.col)
		args = append(args, boolInt(t.Capabilities.Has(cc.kind)))
	}

	query := fmt.Sprintf("INSERT INTO themes (%s) VALUES (%s)",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert theme %s: %w", t.PkgName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert theme %s: last insert id: %w", t.PkgName, err)
	}
	return id, nil
}

// UpdateTheme rewrites the metadata, capability, derived-flag, and
// install-state columns of an existing row. Preview artifact columns
// are left untouched; they belong to the generator writeback. An
// absent package is NOT_FOUND.
func (s *Store) UpdateTheme(ctx context.Context, t *registry.Theme) error {
	sets := []string{
		"title = ?", "author = ?", "date_created = ?",
		"present_as_theme = ?", "is_legacy_theme = ?",
		"is_default_theme = ?", "is_legacy_iconpack = ?",
		"last_update_time = ?", "install_time = ?", "target_api = ?",
		"install_state = ?",
	}
	args := []any{
		t.Title, t.Author, t.DateCreated,
		boolInt(t.Presentable), boolInt(t.IsLegacyTheme),
		boolInt(t.IsDefaultTheme), boolInt(t.IsLegacyIconPack),
		t.LastUpdateTime, t.InstallTime, t.TargetAPI,
		int(t.InstallState),
	}
	for _, cc := range capabilityColumns {
		sets = append(sets, cc.col+" = ?")
		args = append(args, boolInt(t.Capabilities.Has(cc.kind)))
	}
	args = append(args, t.PkgName)

	res, err := s.q.ExecContext(ctx,
		"UPDATE themes SET "+strings.Join(sets, ", ")+" WHERE pkg_name = ?", args...)
	if err != nil {
		return fmt.Errorf("update theme %s: %w", t.PkgName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update theme %s: rows affected: %w", t.PkgName, err)
	}
	if n == 0 {
		return registry.NewNotFound(t.PkgName)
	}
	return nil
}

// SetInstallState moves a theme to a new install state and returns the
// previous state. An absent package is NOT_FOUND.
func (s *Store) SetInstallState(ctx context.Context, pkg string, state registry.InstallState) (registry.InstallState, error) {
	prev, err := s.InstallStateFor(ctx, pkg)
	if err != nil {
		return registry.StateUnknown, err
	}
	if _, err := s.q.ExecContext(ctx,
		"UPDATE themes SET install_state = ? WHERE pkg_name = ?",
		int(state), pkg); err != nil {
		return registry.StateUnknown, fmt.Errorf("set install state %s: %w", pkg, err)
	}
	return prev, nil
}

// SetDefaultFlag rewrites the is_default_theme flag for a package.
func (s *Store) SetDefaultFlag(ctx context.Context, pkg string, isDefault bool) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE themes SET is_default_theme = ? WHERE pkg_name = ?",
		boolInt(isDefault), pkg)
	if err != nil {
		return fmt.Errorf("set default flag %s: %w", pkg, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return registry.NewNotFound(pkg)
	}
	return nil
}

// SetPreviewURIs writes preview artifact columns for a package. Every
// column must be a member of PreviewArtifactColumns; anything else is
// an UNSUPPORTED mutation, keeping this path unable to touch state the
// feedback guard depends on.
func (s *Store) SetPreviewURIs(ctx context.Context, pkg string, uris map[string]string) error {
	if len(uris) == 0 {
		return nil
	}
	sets := make([]string, 0, len(uris))
	args := make([]any, 0, len(uris)+1)
	for _, col := range sortedKeys(uris) {
		if !PreviewArtifactColumns[col] {
			return registry.NewUnsupported(
				fmt.Sprintf("column %q is not a preview artifact column", col))
		}
		sets = append(sets, col+" = ?")
		args = append(args, uris[col])
	}
	args = append(args, pkg)

	res, err := s.q.ExecContext(ctx,
		"UPDATE themes SET "+strings.Join(sets, ", ")+" WHERE pkg_name = ?", args...)
	if err != nil {
		return fmt.Errorf("set preview uris %s: %w", pkg, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return registry.NewNotFound(pkg)
	}
	return nil
}

// DeleteTheme removes a theme row and every preview row referencing it.
// Returns the theme id and the number of theme rows deleted (0 or 1) so
// callers can decide whether a removal notification is due.
func (s *Store) DeleteTheme(ctx context.Context, pkg string) (themeID int64, deleted int64, err error) {
	err = s.q.QueryRowContext(ctx,
		"SELECT id FROM themes WHERE pkg_name = ?", pkg).Scan(&themeID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("delete theme %s: lookup: %w", pkg, err)
	}

	if _, err := s.q.ExecContext(ctx,
		"DELETE FROM previews WHERE theme_id = ?", themeID); err != nil {
		return 0, 0, fmt.Errorf("delete theme %s: previews: %w", pkg, err)
	}
	res, err := s.q.ExecContext(ctx, "DELETE FROM themes WHERE id = ?", themeID)
	if err != nil {
		return 0, 0, fmt.Errorf("delete theme %s: %w", pkg, err)
	}
	deleted, err = res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("delete theme %s: rows affected: %w", pkg, err)
	}
	return themeID, deleted, nil
}

// ThemeByPkg returns the theme row for a package name, or NOT_FOUND.
func (s *Store) ThemeByPkg(ctx context.Context, pkg string) (*registry.Theme, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+themeColumns+" FROM themes WHERE pkg_name = ?", pkg)
	t, err := scanTheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, registry.NewNotFound(pkg)
	}
	if err != nil {
		return nil, fmt.Errorf("theme by pkg %s: %w", pkg, err)
	}
	return t, nil
}

// ThemeByID returns the theme row for a registry id, or NOT_FOUND.
func (s *Store) ThemeByID(ctx context.Context, id int64) (*registry.Theme, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+themeColumns+" FROM themes WHERE id = ?", id)
	t, err := scanTheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &registry.Error{Code: registry.ErrCodeNotFound,
			Message: fmt.Sprintf("no theme with id %d", id)}
	}
	if err != nil {
		return nil, fmt.Errorf("theme by id %d: %w", id, err)
	}
	return t, nil
}

// Themes returns every theme row ordered by package name. The order is
// deterministic so scans and snapshots compare stably.
func (s *Store) Themes(ctx context.Context) ([]registry.Theme, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+themeColumns+" FROM themes ORDER BY pkg_name COLLATE BINARY ASC")
	if err != nil {
		return nil, fmt.Errorf("query themes: %w", err)
	}
	defer rows.Close()

	themes := []registry.Theme{}
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		themes = append(themes, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate themes: %w", err)
	}
	return themes, nil
}

// InstallStateFor returns the install state for a package, or
// NOT_FOUND if no row exists.
func (s *Store) InstallStateFor(ctx context.Context, pkg string) (registry.InstallState, error) {
	var state int
	err := s.q.QueryRowContext(ctx,
		"SELECT install_state FROM themes WHERE pkg_name = ?", pkg).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.StateUnknown, registry.NewNotFound(pkg)
	}
	if err != nil {
		return registry.StateUnknown, fmt.Errorf("install state %s: %w", pkg, err)
	}
	return registry.InstallState(state), nil
}

// ThemeExists reports whether a row exists for the package name.
func (s *Store) ThemeExists(ctx context.Context, pkg string) (bool, error) {
	return s.themeExists(ctx, pkg)
}

func (s *Store) themeExists(ctx context.Context, pkg string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM themes WHERE pkg_name = ?", pkg).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("theme exists %s: %w", pkg, err)
	}
	return n > 0, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanTheme.
type scanner interface {
	Scan(dest ...any) error
}

func scanTheme(sc scanner) (*registry.Theme, error) {
	var (
		t     registry.Theme
		caps  [12]int
		flags [4]int
		state int
	)
	err := sc.Scan(
		&t.ID, &t.Title, &t.Author, &t.PkgName, &t.DateCreated,
		&t.HomescreenURI, &t.LockscreenURI, &t.StyleURI, &t.WallpaperURI, &t.IconURI,
		&caps[0], &caps[1], &caps[2], &caps[3], &caps[4], &caps[5],
		&caps[6], &caps[7], &caps[8], &caps[9], &caps[10], &caps[11],
		&flags[0], &flags[1], &flags[2], &flags[3],
		&t.LastUpdateTime, &t.InstallTime, &t.TargetAPI, &state,
	)
	if err != nil {
		return nil, err
	}

	t.Capabilities = capsFromColumns(caps)
	t.Presentable = flags[0] == 1
	t.IsLegacyTheme = flags[1] == 1
	t.IsDefaultTheme = flags[2] == 1
	t.IsLegacyIconPack = flags[3] == 1
	t.InstallState = registry.InstallState(state)
	return &t, nil
}

// capsFromColumns maps scanned capability columns back to a
// CapabilityMap. The index order follows themeColumns, which is not
// the capabilityColumns order.
func capsFromColumns(caps [12]int) registry.CapabilityMap {
	return registry.CapabilityMap{
		registry.ComponentLauncher:       caps[0] == 1,
		registry.ComponentLockscreen:     caps[1] == 1,
		registry.ComponentIcons:          caps[2] == 1,
		registry.ComponentBootAnim:       caps[3] == 1,
		registry.ComponentFonts:          caps[4] == 1,
		registry.ComponentRingtones:      caps[5] == 1,
		registry.ComponentNotifications:  caps[6] == 1,
		registry.ComponentAlarms:         caps[7] == 1,
		registry.ComponentOverlays:       caps[8] == 1,
		registry.ComponentStatusBar:      caps[9] == 1,
		registry.ComponentNavigationBar:  caps[10] == 1,
		registry.ComponentLiveLockscreen: caps[11] == 1,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
