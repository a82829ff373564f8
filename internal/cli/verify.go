package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaleidos/themestore/internal/apply"
	"github.com/kaleidos/themestore/internal/capability"
	"github.com/kaleidos/themestore/internal/preview"
	"github.com/kaleidos/themestore/internal/provider"
	"github.com/kaleidos/themestore/internal/reconcile"
	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/store"
)

// VerifyResult is the delta of one reconciliation pass.
type VerifyResult struct {
	Inserted []string `json:"inserted,omitempty"`
	Updated  []string `json:"updated,omitempty"`
	Deleted  []string `json:"deleted,omitempty"`
	InSync   bool     `json:"in_sync"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var packagesDir string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Reconcile the registry against a package directory",
		Long: `Reconcile the registry database against a directory-based package
inventory and print the resulting delta.

Every subdirectory of --packages carrying a theme.yaml manifest counts
as one installed package; its subfolders declare component capabilities.
Exits 1 when the registry had drifted (the drift is repaired), 0 when it
was already in sync.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, packagesDir, cmd)
		},
	}

	cmd.Flags().StringVar(&packagesDir, "packages", "", "package inventory directory (required)")
	cmd.MarkFlagRequired("packages")

	return cmd
}

func runVerify(opts *RootOptions, packagesDir string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	pol, err := loadPolicy(opts)
	if err != nil {
		formatter.Error(ErrCodePolicy, err.Error())
		return err
	}

	inv := NewDirInventory(packagesDir, pol.DefaultPackage)
	resolver := capability.NewResolver(pol, inv)

	hooks := store.Hooks{
		Capabilities: func(pkg string) registry.CapabilityMap {
			desc, err := inv.PackageInfo(ctx, pkg)
			if err != nil {
				return nil
			}
			return resolver.Resolve(desc)
		},
		RegenPreviews: func(pkg string) {
			formatter.VerboseLog("preview regeneration queued: %s", pkg)
		},
	}

	st, err := openStore(opts, pol, hooks, false)
	if err != nil {
		formatter.Error(ErrCodeOpen, err.Error())
		return err
	}
	defer st.Close()

	prov := provider.New(st, preview.DispatcherFunc(func(pkg string, op preview.Op) {
		formatter.VerboseLog("preview generation requested: %s (%s)", pkg, op)
	}))
	prov.Subscribe(provider.ObserverFunc(func(ev provider.Event) {
		formatter.VerboseLog("event: %s %s", ev.Kind, ev.Pkg)
	}))

	engine := reconcile.New(prov, inv, resolver, verboseApplier{formatter}, pol)
	delta, err := engine.Reconcile(ctx)
	if err != nil {
		formatter.Error(ErrCodeQuery, err.Error())
		return WrapExitError(ExitCommandError, "reconciliation failed", err)
	}

	result := VerifyResult{
		Inserted: delta.Inserted,
		Updated:  delta.Updated,
		Deleted:  delta.Deleted,
		InSync:   delta.Empty(),
	}
	if err := formatter.Success(result); err != nil {
		return err
	}
	if delta.Empty() {
		formatter.Textf("registry in sync")
		return nil
	}
	formatter.Textf("registry drifted: %d inserted, %d updated, %d deleted",
		len(delta.Inserted), len(delta.Updated), len(delta.Deleted))
	for _, pkg := range delta.Inserted {
		formatter.Textf("  + %s", pkg)
	}
	for _, pkg := range delta.Updated {
		formatter.Textf("  ~ %s", pkg)
	}
	for _, pkg := range delta.Deleted {
		formatter.Textf("  - %s", pkg)
	}
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf(
		"registry drifted (%d change(s) applied)",
		len(delta.Inserted)+len(delta.Updated)+len(delta.Deleted))}
}

// verboseApplier logs change requests instead of submitting them; the
// CLI has no theming apply service to talk to.
type verboseApplier struct {
	f *OutputFormatter
}

func (a verboseApplier) ApplyChange(ctx context.Context, req apply.ChangeRequest) {
	for _, as := range req.Assignments {
		if as.Target != "" {
			a.f.VerboseLog("apply %s: %s@%s=%s", req.Type, as.Kind, as.Target, as.PkgName)
			continue
		}
		a.f.VerboseLog("apply %s: %s=%s", req.Type, as.Kind, as.PkgName)
	}
}
