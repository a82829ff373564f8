package cli

import (
	"github.com/spf13/cobra"

	"github.com/kaleidos/themestore/internal/registry"
	"github.com/kaleidos/themestore/internal/store"
)

// ThemeRow is one theme in list output.
type ThemeRow struct {
	ID          int64  `json:"id"`
	Pkg         string `json:"pkg"`
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	State       string `json:"state"`
	Presentable bool   `json:"presentable"`
	Default     bool   `json:"default"`
	IconPack    bool   `json:"icon_pack,omitempty"`
	Components  int    `json:"components"`
}

// NewThemesCommand creates the themes command.
func NewThemesCommand(rootOpts *RootOptions) *cobra.Command {
	var presentableOnly bool

	cmd := &cobra.Command{
		Use:           "themes",
		Short:         "List registry themes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runThemes(rootOpts, presentableOnly, cmd)
		},
	}

	cmd.Flags().BoolVar(&presentableOnly, "presentable", false, "only themes shown to end users")

	return cmd
}

func runThemes(opts *RootOptions, presentableOnly bool, cmd *cobra.Command) error {
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

	themes, err := st.Themes(cmd.Context())
	if err != nil {
		formatter.Error(ErrCodeQuery, err.Error())
		return WrapExitError(ExitCommandError, "listing themes", err)
	}

	rows := make([]ThemeRow, 0, len(themes))
	for _, t := range themes {
		if presentableOnly && !t.Presentable {
			continue
		}
		rows = append(rows, themeRow(t))
	}

	if err := formatter.Success(rows); err != nil {
		return err
	}
	for _, r := range rows {
		marks := ""
		if r.Default {
			marks += " [default]"
		}
		if r.Presentable {
			marks += " [presentable]"
		}
		if r.IconPack {
			marks += " [icon-pack]"
		}
		formatter.Textf("%-6d %-40s %-10s %q%s", r.ID, r.Pkg, r.State, r.Title, marks)
	}
	formatter.Textf("%d theme(s)", len(rows))
	return nil
}

func themeRow(t registry.Theme) ThemeRow {
	components := 0
	for _, has := range t.Capabilities {
		if has {
			components++
		}
	}
	return ThemeRow{
		ID:          t.ID,
		Pkg:         t.PkgName,
		Title:       t.Title,
		Author:      t.Author,
		State:       t.InstallState.String(),
		Presentable: t.Presentable,
		Default:     t.IsDefaultTheme,
		IconPack:    t.IsLegacyIconPack,
		Components:  components,
	}
}
