package cli

import (
	"os"

	"github.com/kaleidos/themestore/internal/policy"
	"github.com/kaleidos/themestore/internal/store"
)

// loadPolicy resolves the effective policy: the file named by --policy,
// or the embedded default.
func loadPolicy(opts *RootOptions) (*policy.Policy, error) {
	if opts.PolicyPath == "" {
		return policy.Default(), nil
	}
	pol, err := policy.Load(opts.PolicyPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading policy", err)
	}
	return pol, nil
}

// openStore opens the registry database named by --db. Inspection
// commands refuse to create a database that is not there; a typoed
// path should fail, not silently seed a fresh registry.
func openStore(opts *RootOptions, pol *policy.Policy, hooks store.Hooks, mustExist bool) (*store.Store, error) {
	if mustExist {
		if _, err := os.Stat(opts.DBPath); err != nil {
			return nil, WrapExitError(ExitCommandError, "database not found", err)
		}
	}
	st, err := store.Open(opts.DBPath, pol, hooks)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening database", err)
	}
	return st, nil
}
