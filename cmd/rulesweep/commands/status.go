package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
)

// NewStatusCmd creates the status command
func NewStatusCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the git state of every active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			projects, err := o.Store.ListActiveProjects(ctx)
			if err != nil {
				return err
			}

			puller := o.Puller()
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Project", "Root", "Branch", "Dirty", "Ahead", "Behind"})
			for _, p := range projects {
				if !puller.IsRepo(ctx, p.RootPath) {
					t.AppendRow(table.Row{p.Name, p.RootPath, "(not a repository)", "", "", ""})
					continue
				}
				st, err := puller.Status(ctx, p.RootPath)
				if err != nil {
					t.AppendRow(table.Row{p.Name, p.RootPath, "error: " + err.Error(), "", "", ""})
					continue
				}
				t.AppendRow(table.Row{p.Name, p.RootPath, st.Branch, st.Dirty, st.Ahead, st.Behind})
			}
			t.Render()
			return nil
		},
	}
}
