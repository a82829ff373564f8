package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kaleidos/themestore/internal/registry"
)

// Selections returns every selection row, ordered by key then target.
func (s *Store) Selections(ctx context.Context) ([]registry.Selection, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT key, target, value, prev_value, update_time
		FROM selections
		ORDER BY key ASC, target ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	sels := []registry.Selection{}
	for rows.Next() {
		var sel registry.Selection
		var key string
		if err := rows.Scan(&key, &sel.Target, &sel.Value, &sel.PrevValue, &sel.UpdateTime); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sel.Key = registry.ComponentKind(key)
		sels = append(sels, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return sels, nil
}

// Selection returns the row for a kind and sub-target, or NOT_FOUND.
func (s *Store) Selection(ctx context.Context, kind registry.ComponentKind, target string) (*registry.Selection, error) {
	sel := registry.Selection{Key: kind, Target: target}
	err := s.q.QueryRowContext(ctx, `
		SELECT value, prev_value, update_time
		FROM selections WHERE key = ? AND target = ?
	`, string(kind), target).Scan(&sel.Value, &sel.PrevValue, &sel.UpdateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &registry.Error{Code: registry.ErrCodeNotFound,
			Message: fmt.Sprintf("no selection row for %s/%q", kind, target)}
	}
	if err != nil {
		return nil, fmt.Errorf("selection %s/%q: %w", kind, target, err)
	}
	return &sel, nil
}

// SetSelection points a selection row at a new package value.
//
// The previous value moves to prev_value and update_time is stamped
// with the store clock. Re-asserting the value already in place is a
// no-op: prev_value and update_time stay untouched, so history reads
// cannot mistake a reapply for a change.
//
// Rows exist only for (kind, "") slots seeded at bootstrap; writing a
// nonexistent global slot is UNSUPPORTED. Sub-target rows (for example
// per-app overlays) are created on first write.
func (s *Store) SetSelection(ctx context.Context, kind registry.ComponentKind, target, value string) error {
	prev, err := s.Selection(ctx, kind, target)
	if registry.IsNotFound(err) {
		if target == "" {
			return registry.NewUnsupported(
				fmt.Sprintf("no selection slot for component %q", kind))
		}
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO selections (key, target, value, prev_value, update_time)
			VALUES (?, ?, ?, '', ?)
		`, string(kind), target, value, s.now())
		if err != nil {
			return fmt.Errorf("insert selection %s/%q: %w", kind, target, err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if prev.Value == value {
		return nil
	}

	_, err = s.q.ExecContext(ctx, `
		UPDATE selections SET value = ?, prev_value = ?, update_time = ?
		WHERE key = ? AND target = ?
	`, value, prev.Value, s.now(), string(kind), target)
	if err != nil {
		return fmt.Errorf("set selection %s/%q: %w", kind, target, err)
	}
	return nil
}

// SelectionsPointingAt returns the selection rows whose current value is
// the given package. Used when a package disappears and its selections
// must revert.
func (s *Store) SelectionsPointingAt(ctx context.Context, pkg string) ([]registry.Selection, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT key, target, value, prev_value, update_time
		FROM selections WHERE value = ?
		ORDER BY key ASC, target ASC
	`, pkg)
	if err != nil {
		return nil, fmt.Errorf("selections for %s: %w", pkg, err)
	}
	defer rows.Close()

	sels := []registry.Selection{}
	for rows.Next() {
		var sel registry.Selection
		var key string
		if err := rows.Scan(&key, &sel.Target, &sel.Value, &sel.PrevValue, &sel.UpdateTime); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sel.Key = registry.ComponentKind(key)
		sels = append(sels, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return sels, nil
}

// SelectionsJoined returns selection rows inner-joined to the theme
// metadata of their current package. Selections whose value has no
// matching theme row are omitted rather than surfaced with nulls.
func (s *Store) SelectionsJoined(ctx context.Context) ([]registry.SelectionTheme, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT s.key, s.target, s.value, s.prev_value, s.update_time, `+themeColumns+`
		FROM selections s
		INNER JOIN themes ON themes.pkg_name = s.value
		ORDER BY s.key ASC, s.target ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query joined selections: %w", err)
	}
	defer rows.Close()

	out := []registry.SelectionTheme{}
	for rows.Next() {
		var st registry.SelectionTheme
		var key string
		var t registry.Theme
		var caps [12]int
		var flags [4]int
		var state int
		err := rows.Scan(
			&key, &st.Target, &st.Value, &st.PrevValue, &st.UpdateTime,
			&t.ID, &t.Title, &t.Author, &t.PkgName, &t.DateCreated,
			&t.HomescreenURI, &t.LockscreenURI, &t.StyleURI, &t.WallpaperURI, &t.IconURI,
			&caps[0], &caps[1], &caps[2], &caps[3], &caps[4], &caps[5],
			&caps[6], &caps[7], &caps[8], &caps[9], &caps[10], &caps[11],
			&flags[0], &flags[1], &flags[2], &flags[3],
			&t.LastUpdateTime, &t.InstallTime, &t.TargetAPI, &state,
		)
		if err != nil {
			return nil, fmt.Errorf("scan joined selection: %w", err)
		}
		st.Key = registry.ComponentKind(key)
		t.Capabilities = capsFromColumns(caps)
		t.Presentable = flags[0] == 1
		t.IsLegacyTheme = flags[1] == 1
		t.IsDefaultTheme = flags[2] == 1
		t.IsLegacyIconPack = flags[3] == 1
		t.InstallState = registry.InstallState(state)
		st.Theme = t
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate joined selections: %w", err)
	}
	return out, nil
}
