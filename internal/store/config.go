package store

import (
	"context"
	"fmt"

	"github.com/kaleidos/themestore/internal/registry"
)

// CurrentTheme returns the package currently applied as the whole
// theme. Defaults to the system package on a fresh store.
func (s *Store) CurrentTheme(ctx context.Context) (string, error) {
	var pkg string
	err := s.q.QueryRowContext(ctx,
		"SELECT current_theme FROM config WHERE id = 1").Scan(&pkg)
	if err != nil {
		return "", fmt.Errorf("read current theme: %w", err)
	}
	return pkg, nil
}

// SetCurrentTheme records the package applied as the whole theme.
func (s *Store) SetCurrentTheme(ctx context.Context, pkg string) error {
	if _, err := s.q.ExecContext(ctx,
		"UPDATE config SET current_theme = ? WHERE id = 1", pkg); err != nil {
		return fmt.Errorf("set current theme: %w", err)
	}
	return nil
}

// ensureConfig creates and seeds the config record. Runs on every open
// so databases migrated from before the record exists pick it up.
func (s *Store) ensureConfig(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			current_theme TEXT NOT NULL DEFAULT 'system'
		)`)
	if err != nil {
		return fmt.Errorf("ensure config: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		"INSERT OR IGNORE INTO config (id, current_theme) VALUES (1, ?)",
		registry.SystemDefault)
	if err != nil {
		return fmt.Errorf("seed config: %w", err)
	}
	return nil
}
