package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/store"
)

// NewProjectsCmd creates the projects command group
func NewProjectsCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage registered source trees",
	}

	cmd.AddCommand(
		newProjectsListCmd(o),
		newProjectsAddCmd(o),
		newProjectsRemoveCmd(o),
		newProjectsEnableCmd(o, true),
		newProjectsEnableCmd(o, false),
	)
	return cmd
}

func newProjectsListCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := o.Store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Name", "Root", "Branch", "Active"})
			for _, p := range projects {
				t.AppendRow(table.Row{p.ID, p.Name, p.RootPath, p.GitBranch, p.IsActive})
			}
			t.Render()
			return nil
		},
	}
}

func newProjectsAddCmd(o *opts.RootOpts) *cobra.Command {
	var branch, description string

	cmd := &cobra.Command{
		Use:   "add <name> <root-path>",
		Short: "Register a source tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := o.Store.CreateProject(cmd.Context(), store.Project{
				Name:        args[0],
				RootPath:    args[1],
				GitBranch:   branch,
				Description: description,
				IsActive:    true,
			})
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Registered project #%d: %s", id, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "main", "git branch the project tracks")
	cmd.Flags().StringVar(&description, "description", "", "project description")
	return cmd
}

func newProjectsRemoveCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a project registration (history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := o.Store.DeleteProject(cmd.Context(), id); err != nil {
				return err
			}
			pterm.Success.Printfln("Removed project #%d", id)
			return nil
		},
	}
}

func newProjectsEnableCmd(o *opts.RootOpts, enable bool) *cobra.Command {
	use, short := "enable <id>", "Include a project in scans and executions"
	if !enable {
		use, short = "disable <id>", "Exclude a project from scans and executions"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := o.Store.SetProjectActive(cmd.Context(), id, enable); err != nil {
				return err
			}
			pterm.Success.Printfln("Project #%d active=%v", id, enable)
			return nil
		},
	}
}
