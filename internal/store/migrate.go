package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kaleidos/themestore/internal/registry"
)

// legacyDefaultPkg is the identifier the system row carried before the
// v12 rename.
const legacyDefaultPkg = "default"

// migration moves the schema from version-1 to version. Returning the
// packages whose previews must regenerate once the chain commits.
type migration struct {
	version int
	apply   func(ctx context.Context, tx *Store) (regen []string, err error)
}

// Migrations run in ascending version order inside one transaction.
// Each step sees the schema as the previous step left it.
var migrations = []migration{
	{8, migrateV8StatusNavColumns},
	{9, migrateV9RecomputePresentable},
	{10, migrateV10SelectionHistory},
	{11, migrateV11LiveLockscreen},
	{12, migrateV12SystemIdentifier},
}

// migrate runs the chain from the stored version up to CurrentVersion.
// Any step failing aborts the whole transaction; the caller falls back
// to drop-and-recreate.
func (s *Store) migrate(ctx context.Context, from int) error {
	var regen []string
	err := s.InTx(ctx, func(tx *Store) error {
		for _, m := range migrations {
			if m.version <= from {
				continue
			}
			slog.Info("migrating registry schema", "to_version", m.version)
			pkgs, err := m.apply(ctx, tx)
			if err != nil {
				return fmt.Errorf("migrate to v%d: %w", m.version, err)
			}
			regen = append(regen, pkgs...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.setUserVersion(ctx, CurrentVersion); err != nil {
		return err
	}
	s.dispatchRegen(regen)
	return nil
}

// v8: status bar and navigation bar become themeable. The columns are
// added and every non-system row has its capabilities re-resolved, so
// already-installed themes that ship system UI overlays pick up the new
// capability bits. Themes found to support status bar theming need new
// preview artifacts.
func migrateV8StatusNavColumns(ctx context.Context, tx *Store) ([]string, error) {
	for _, col := range []string{"modifies_status_bar", "modifies_navigation_bar"} {
		if _, err := tx.q.ExecContext(ctx,
			"ALTER TABLE themes ADD COLUMN "+col+" INTEGER DEFAULT 0"); err != nil {
			return nil, fmt.Errorf("add column %s: %w", col, err)
		}
	}
	if tx.hooks.Capabilities == nil {
		return nil, nil
	}

	pkgs, err := tx.packageNames(ctx)
	if err != nil {
		return nil, err
	}
	var regen []string
	for _, pkg := range pkgs {
		// The system row still carries its pre-v12 identifier here.
		if pkg == registry.SystemDefault || pkg == legacyDefaultPkg {
			continue
		}
		caps := tx.hooks.Capabilities(pkg)
		if caps == nil {
			continue
		}
		_, err := tx.q.ExecContext(ctx, `
			UPDATE themes SET modifies_status_bar = ?, modifies_navigation_bar = ?
			WHERE pkg_name = ?
		`, boolInt(caps.Has(registry.ComponentStatusBar)),
			boolInt(caps.Has(registry.ComponentNavigationBar)), pkg)
		if err != nil {
			return nil, fmt.Errorf("backfill capabilities %s: %w", pkg, err)
		}
		if caps.Has(registry.ComponentStatusBar) {
			regen = append(regen, pkg)
		}
	}
	return regen, nil
}

// v9: recompute present_as_theme for every row under the current rule,
// launcher AND overlays with icon packs presentable unconditionally.
// Expressed in SQL because the full row scan is not available at this
// point in the chain; must stay in step with capability.IsPresentable.
func migrateV9RecomputePresentable(ctx context.Context, tx *Store) ([]string, error) {
	_, err := tx.q.ExecContext(ctx, `
		UPDATE themes SET present_as_theme =
			CASE WHEN is_legacy_iconpack = 1
				OR (modifies_launcher = 1 AND modifies_overlays = 1)
			THEN 1 ELSE 0 END
	`)
	if err != nil {
		return nil, fmt.Errorf("recompute presentable: %w", err)
	}
	return nil, nil
}

// v10: selections gain change history.
func migrateV10SelectionHistory(ctx context.Context, tx *Store) ([]string, error) {
	stmts := []string{
		"ALTER TABLE selections ADD COLUMN prev_value TEXT",
		"ALTER TABLE selections ADD COLUMN update_time INTEGER DEFAULT 0",
		"UPDATE selections SET prev_value = ''",
	}
	for _, stmt := range stmts {
		if _, err := tx.q.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("selection history: %w", err)
		}
	}
	return nil, nil
}

// v11: live lock screen support. Adds the capability column and seeds
// the selection slot empty; there is no system default live lock screen.
func migrateV11LiveLockscreen(ctx context.Context, tx *Store) ([]string, error) {
	if _, err := tx.q.ExecContext(ctx,
		"ALTER TABLE themes ADD COLUMN modifies_live_lock_screen INTEGER DEFAULT 0"); err != nil {
		return nil, fmt.Errorf("add live lock screen column: %w", err)
	}
	_, err := tx.q.ExecContext(ctx, `
		INSERT OR IGNORE INTO selections (key, target, value, prev_value, update_time)
		VALUES (?, '', '', '', 0)
	`, string(registry.ComponentLiveLockscreen))
	if err != nil {
		return nil, fmt.Errorf("seed live lock screen selection: %w", err)
	}
	return nil, nil
}

// v12: older databases recorded the synthetic default row under the
// identifier "default". Rewrite it everywhere and clear the lock screen
// capabilities on the system row, which never supplies them.
func migrateV12SystemIdentifier(ctx context.Context, tx *Store) ([]string, error) {
	stmts := []struct {
		query string
		args  []any
	}{
		{"UPDATE themes SET pkg_name = ? WHERE pkg_name = ?",
			[]any{registry.SystemDefault, legacyDefaultPkg}},
		{"UPDATE selections SET value = ? WHERE value = ?",
			[]any{registry.SystemDefault, legacyDefaultPkg}},
		{"UPDATE selections SET prev_value = ? WHERE prev_value = ?",
			[]any{registry.SystemDefault, legacyDefaultPkg}},
		{"UPDATE themes SET modifies_lockscreen = 0, modifies_live_lock_screen = 0 WHERE pkg_name = ?",
			[]any{registry.SystemDefault}},
	}
	for _, st := range stmts {
		if _, err := tx.q.ExecContext(ctx, st.query, st.args...); err != nil {
			return nil, fmt.Errorf("system identifier rewrite: %w", err)
		}
	}
	return nil, nil
}

func (s *Store) packageNames(ctx context.Context) ([]string, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT pkg_name FROM themes ORDER BY pkg_name ASC")
	if err != nil {
		return nil, fmt.Errorf("query package names: %w", err)
	}
	defer rows.Close()

	var pkgs []string
	for rows.Next() {
		var pkg string
		if err := rows.Scan(&pkg); err != nil {
			return nil, fmt.Errorf("scan package name: %w", err)
		}
		pkgs = append(pkgs, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate package names: %w", err)
	}
	return pkgs, nil
}
