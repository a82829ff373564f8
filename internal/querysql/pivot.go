// Package querysql compiles structured query descriptions to
// parameterized SQLite SQL.
//
// Two shapes exist: the preview pivot, which turns sparse key/value
// preview rows into one row with the requested keys as columns, and the
// applied-previews composite, which flattens the preview values of every
// current selection into a single row of scalar subqueries.
//
// All values are parameterized, never interpolated. Key names become
// column aliases and are therefore validated as identifiers before they
// reach the SQL text.
package querysql

import (
	"fmt"
	"strings"
)

// PivotSpec describes one pivoted preview read.
type PivotSpec struct {
	ThemeID     int64
	ComponentID int

	// Keys are the semantic keys the caller wants back as columns.
	Keys []string

	// ValidKeys is the set of keys known to be preview keys. Requested
	// keys outside the set are assumed to be ordinary columns of the
	// previews table and are projected as-is.
	ValidKeys map[string]bool
}

// Pivot compiles a PivotSpec to SQL and its argument list.
//
// Each known key becomes a MAX(CASE key WHEN ? THEN value END)
// projection; grouping by (theme_id, component_id) collapses the sparse
// rows into one. The WHERE terms restricting the scan to the requested
// theme, component, and key set are appended automatically so a caller
// cannot request unpivoted raw rows by accident.
func Pivot(spec PivotSpec) (string, []any, error) {
	if len(spec.Keys) == 0 {
		return "", nil, fmt.Errorf("pivot: no keys requested")
	}

	var (
		projections []string
		args        []any
		pivoted     []string
	)
	for _, key := range spec.Keys {
		if err := validIdentifier(key); err != nil {
			return "", nil, fmt.Errorf("pivot: %w", err)
		}
		if spec.ValidKeys[key] {
			projections = append(projections,
				fmt.Sprintf("MAX(CASE key WHEN ? THEN value END) AS %s", key))
			args = append(args, key)
			pivoted = append(pivoted, key)
		} else {
			projections = append(projections, key)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(projections, ", "))
	b.WriteString(" FROM previews WHERE theme_id = ? AND component_id = ?")
	args = append(args, spec.ThemeID, spec.ComponentID)

	if len(pivoted) > 0 {
		b.WriteString(" AND key IN (")
		b.WriteString(placeholders(len(pivoted)))
		b.WriteString(")")
		for _, key := range pivoted {
			args = append(args, key)
		}
	}

	b.WriteString(" GROUP BY theme_id, component_id")
	b.WriteString(" ORDER BY theme_id ASC, component_id ASC")
	return b.String(), args, nil
}

// AppliedKeys names the preview keys to read for one selected theme.
type AppliedKeys struct {
	ThemeID int64
	Keys    []string
}

// Applied compiles the applied-previews composite read: one scalar
// subquery per (theme, key) pair, comma-joined into a single-row
// SELECT. Returns empty SQL when there is nothing to read.
func Applied(groups []AppliedKeys) (string, []any) {
	var (
		subqueries []string
		args       []any
	)
	for _, g := range groups {
		for _, key := range g.Keys {
			if validIdentifier(key) != nil {
				continue
			}
			subqueries = append(subqueries, fmt.Sprintf(
				"(SELECT value FROM previews WHERE theme_id = ? AND key = ?) AS %s", key))
			args = append(args, g.ThemeID, key)
		}
	}
	if len(subqueries) == 0 {
		return "", nil
	}
	return "SELECT " + strings.Join(subqueries, ", "), args
}

// validIdentifier rejects key names that cannot serve as bare SQL
// column aliases.
func validIdentifier(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("key %q starts with a digit", key)
			}
		default:
			return fmt.Errorf("key %q contains %q", key, r)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
