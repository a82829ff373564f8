package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/store"
)

// NewPreviewsCommand creates the previews command.
func NewPreviewsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		themeID   int64
		component string
		keys      []string
	)

	cmd := &cobra.Command{
		Use:   "previews",
		Short: "Query pivoted preview entries for one theme component",
		Long: `Query the preview table for one theme and component, pivoting the
requested semantic keys into columns. Keys outside the policy's valid
set are rejected.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreviews(rootOpts, themeID, component, keys, cmd)
		},
	}

	cmd.Flags().Int64Var(&themeID, "theme", 0, "theme row id (required)")
	cmd.Flags().StringVar(&component, "component", "", "component kind, e.g. status_bar (required)")
	cmd.Flags().StringSliceVar(&keys, "keys", nil, "semantic preview keys to pivot (required)")
	cmd.MarkFlagRequired("theme")
	cmd.MarkFlagRequired("component")
	cmd.MarkFlagRequired("keys")

	return cmd
}

func runPreviews(opts *RootOptions, themeID int64, component string, keys []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	pol, err := loadPolicy(opts)
	if err != nil {
		formatter.Error(ErrCodePolicy, err.Error())
		return err
	}

	componentID := -1
	for i, kind := range pol.Kinds() {
		if kind == registry.ComponentKind(component) {
			componentID = i
			break
		}
	}
	if componentID < 0 {
		err := fmt.Errorf("unknown component %q", component)
		formatter.Error(ErrCodeArgs, err.Error())
		return WrapExitError(ExitCommandError, "bad component", err)
	}

	st, err := openStore(opts, pol, store.Hooks{}, true)
	if err != nil {
		formatter.Error(ErrCodeOpen, err.Error())
		return err
	}
	defer st.Close()

	rows, err := st.PivotPreviews(cmd.Context(), themeID, componentID, keys)
	if err != nil {
		formatter.Error(ErrCodeQuery, err.Error())
		return WrapExitError(ExitCommandError, "querying previews", err)
	}

	if err := formatter.Success(rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		formatter.Textf("no previews for theme %d component %s", themeID, component)
		return nil
	}
	for _, row := range rows {
		for _, key := range keys {
			formatter.Textf("%-32s %s", key, row[key])
		}
	}
	return nil
}
