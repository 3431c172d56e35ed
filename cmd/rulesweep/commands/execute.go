package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
)

// NewExecuteCmd creates the execute command
func NewExecuteCmd(o *opts.RootOpts) *cobra.Command {
	var (
		ruleIDs, projectIDs string
		files               []string
		yes                 bool
	)

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Apply the active rules and commit the changes",
		Long: `Execute applies the active rules across the active projects, or, with
--files, only to the listed files (the subset confirmed from a scan preview).
Every modified file is backed up first; every replacement lands in the
tracking ledger; the whole run can be rolled back by execution id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rids, err := parseIDList(ruleIDs)
			if err != nil {
				return err
			}

			rules, err := o.Store.RulesByIDs(ctx, rids)
			if err != nil {
				return err
			}

			if !yes {
				confirmed, _ := pterm.DefaultInteractiveConfirm.
					WithDefaultText("Apply changes to disk?").
					Show()
				if !confirmed {
					pterm.Info.Println("Aborted")
					return nil
				}
			}

			if len(files) > 0 {
				res, err := o.Engine().ExecuteFiles(ctx, rules, files)
				if err != nil {
					return err
				}
				o.Console.ExecutionResult(res)
				return nil
			}

			pids, err := parseIDList(projectIDs)
			if err != nil {
				return err
			}
			projects, err := o.ScanProjects(ctx, pids)
			if err != nil {
				return err
			}

			res, err := o.Engine().Execute(ctx, rules, projects)
			if err != nil {
				return err
			}
			o.Console.ExecutionResult(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleIDs, "rules", "", "comma-separated rule ids (default: all active)")
	cmd.Flags().StringVar(&projectIDs, "projects", "", "comma-separated project ids (default: all active)")
	cmd.Flags().StringSliceVar(&files, "files", nil, "only rewrite these files (paths from a scan preview)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
