package store

import (
	"context"
	"fmt"

	"github.com/kaleidos/themestore/internal/registry"
)

// seedDefaults populates a freshly created schema: the synthetic system
// theme row and one selection row per component kind. Returns the
// packages whose previews must be generated once the transaction
// commits (the system theme).
func (s *Store) seedDefaults(ctx context.Context) ([]string, error) {
	if err := s.seedSystemTheme(ctx); err != nil {
		return nil, err
	}
	if err := s.seedSelections(ctx); err != nil {
		return nil, err
	}
	return []string{registry.SystemDefault}, nil
}

// seedSystemTheme inserts the system theme row. The system theme
// supplies every component except the lock screen variants, which have
// no system default.
func (s *Store) seedSystemTheme(ctx context.Context) error {
	caps := make(registry.CapabilityMap, len(s.policy.FolderNames))
	for _, kind := range s.policy.Kinds() {
		switch kind {
		case registry.ComponentLockscreen, registry.ComponentLiveLockscreen:
			caps[kind] = false
		default:
			caps[kind] = true
		}
	}

	theme := &registry.Theme{
		PkgName:        registry.SystemDefault,
		Title:          "System",
		Author:         "System",
		DateCreated:    s.now(),
		Capabilities:   caps,
		Presentable:    true,
		IsDefaultTheme: s.policy.DefaultPackage == registry.SystemDefault,
		TargetAPI:      0, // 0 marks the system theme, not a real API level
		InstallState:   registry.StateInstalled,
	}
	if _, err := s.InsertTheme(ctx, theme); err != nil {
		return fmt.Errorf("seed system theme: %w", err)
	}
	return nil
}

// seedSelections inserts one selection row per component kind, pointing
// at the policy's default value for that kind. Kinds without a system
// default are seeded empty with a zero update time.
func (s *Store) seedSelections(ctx context.Context) error {
	now := s.now()
	for _, kind := range s.policy.Kinds() {
		value := s.policy.DefaultSelectionValue(kind)
		updateTime := now
		if value == "" {
			updateTime = 0
		}
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO selections (key, target, value, prev_value, update_time)
			VALUES (?, '', ?, '', ?)
		`, string(kind), value, updateTime)
		if err != nil {
			return fmt.Errorf("seed selection %s: %w", kind, err)
		}
	}
	return nil
}
