package cli

import (
	"github.com/spf13/cobra"

	"github.com/kaleidos/themestore/internal/store"
)

// SelectionRow is one mix-and-match slot in list output, joined to the
// metadata of its currently selected theme.
type SelectionRow struct {
	Component string `json:"component"`
	Target    string `json:"target,omitempty"`
	Pkg       string `json:"pkg"`
	Title     string `json:"title"`
	PrevPkg   string `json:"prev_pkg,omitempty"`
}

// NewSelectionsCommand creates the selections command.
func NewSelectionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "selections",
		Short:         "List component selections joined to their themes",
		Long: `List the mix-and-match selection table joined to the theme metadata of
each selected package. Selections pointing at packages no longer in the
registry do not appear.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelections(rootOpts, cmd)
		},
	}
	return cmd
}

func runSelections(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	pol, err := loadPolicy(opts)
	if err != nil {
		formatter.Error(ErrCodePolicy, err.Error())
		return err
	}
	st, err := openStore(opts, pol, store.Hooks{}, true)
	if err != nil {
		formatter.Error(ErrCodeOpen, err.Error())
		return err
	}
	defer st.Close()

	joined, err := st.SelectionsJoined(cmd.Context())
	if err != nil {
		formatter.Error(ErrCodeQuery, err.Error())
		return WrapExitError(ExitCommandError, "listing selections", err)
	}

	rows := make([]SelectionRow, 0, len(joined))
	for _, j := range joined {
		rows = append(rows, SelectionRow{
			Component: string(j.Key),
			Target:    j.Target,
			Pkg:       j.Value,
			Title:     j.Theme.Title,
			PrevPkg:   j.PrevValue,
		})
	}

	if err := formatter.Success(rows); err != nil {
		return err
	}
	for _, r := range rows {
		slot := r.Component
		if r.Target != "" {
			slot += "@" + r.Target
		}
		formatter.Textf("%-30s %s (%q)", slot, r.Pkg, r.Title)
	}
	formatter.Textf("%d selection(s)", len(rows))
	return nil
}
