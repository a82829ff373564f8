package store

import (
	"context"
	"fmt"

	"github.com/kaleidos/themestore/internal/querysql"
	"github.com/kaleidos/themestore/internal/registry"
)

// ReplacePreviews rewrites the preview entries for one theme and
// component. Existing keys are overwritten, new keys inserted; keys
// absent from entries survive, matching replace-by-key writeback.
func (s *Store) ReplacePreviews(ctx context.Context, themeID int64, componentID int, entries map[string]string) error {
	for _, key := range sortedKeys(entries) {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO previews (theme_id, component_id, key, value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (theme_id, component_id, key) DO UPDATE SET value = excluded.value
		`, themeID, componentID, key, entries[key])
		if err != nil {
			return fmt.Errorf("replace preview %d/%s: %w", themeID, key, err)
		}
	}
	return nil
}

// DeletePreviews removes every preview entry for a theme. Returns the
// number of rows removed.
func (s *Store) DeletePreviews(ctx context.Context, themeID int64) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM previews WHERE theme_id = ?", themeID)
	if err != nil {
		return 0, fmt.Errorf("delete previews %d: %w", themeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete previews %d: rows affected: %w", themeID, err)
	}
	return n, nil
}

// Previews returns the raw preview entries for a theme ordered by
// component then key.
func (s *Store) Previews(ctx context.Context, themeID int64) ([]registry.PreviewEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, theme_id, component_id, key, value
		FROM previews WHERE theme_id = ?
		ORDER BY component_id ASC, key ASC
	`, themeID)
	if err != nil {
		return nil, fmt.Errorf("query previews %d: %w", themeID, err)
	}
	defer rows.Close()

	entries := []registry.PreviewEntry{}
	for rows.Next() {
		var e registry.PreviewEntry
		if err := rows.Scan(&e.ID, &e.ThemeID, &e.ComponentID, &e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan preview: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate previews: %w", err)
	}
	return entries, nil
}

// PivotPreviews runs a pivoted preview read: the requested semantic
// keys come back as columns of a single row per (theme, component)
// group. Keys the policy does not know are assumed to be ordinary
// columns and projected as-is.
func (s *Store) PivotPreviews(ctx context.Context, themeID int64, componentID int, keys []string) ([]map[string]string, error) {
	q, args, err := querysql.Pivot(querysql.PivotSpec{
		ThemeID:     themeID,
		ComponentID: componentID,
		Keys:        keys,
		ValidKeys:   s.policy.ValidPreviewKeys(),
	})
	if err != nil {
		return nil, err
	}
	return s.queryToMaps(ctx, q, args)
}

// AppliedPreviews runs the composite applied-previews read: one
// flattened row holding, for every current selection, the preview
// values of that selection's theme. Read-only.
func (s *Store) AppliedPreviews(ctx context.Context) (map[string]string, error) {
	sels, err := s.SelectionsJoined(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]querysql.AppliedKeys, 0, len(sels))
	for _, st := range sels {
		keys := s.policy.PreviewKeysFor(st.Key)
		if len(keys) == 0 {
			continue
		}
		groups = append(groups, querysql.AppliedKeys{ThemeID: st.Theme.ID, Keys: keys})
	}
	q, args := querysql.Applied(groups)
	if q == "" {
		return map[string]string{}, nil
	}

	rows, err := s.queryToMaps(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]string{}, nil
	}
	return rows[0], nil
}

// queryToMaps executes a query whose column set is only known at run
// time and returns each row as a column→value map. NULLs map to "".
func (s *Store) queryToMaps(ctx context.Context, query string, args []any) ([]map[string]string, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pivot query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("pivot columns: %w", err)
	}

	out := []map[string]string{}
	for rows.Next() {
		vals := make([]*string, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan pivot row: %w", err)
		}
		row := make(map[string]string, len(cols))
		for i, col := range cols {
			if vals[i] != nil {
				row[col] = *vals[i]
			} else {
				row[col] = ""
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pivot rows: %w", err)
	}
	return out, nil
}
