package commands

import (
	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/gitops"
)

// NewAutoMergeCmd creates the auto-merge command
func NewAutoMergeCmd(o *opts.RootOpts) *cobra.Command {
	var ruleIDs, projectIDs string

	cmd := &cobra.Command{
		Use:   "auto-merge",
		Short: "Pull every project, then re-apply the active rules",
		Long: `Auto-merge fast-forwards each active project from its upstream and then
runs one execution per project, so freshly pulled code picks up the same
replacements and each project keeps its own replacement count. Projects
outside version control skip the pull but still get the re-apply.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rids, err := parseIDList(ruleIDs)
			if err != nil {
				return err
			}
			pids, err := parseIDList(projectIDs)
			if err != nil {
				return err
			}

			rules, err := o.Store.RulesByIDs(ctx, rids)
			if err != nil {
				return err
			}
			projects, err := o.ScanProjects(ctx, pids)
			if err != nil {
				return err
			}

			orch := gitops.NewOrchestrator(o.Puller(), o.Engine())
			res, err := orch.AutoMerge(ctx, rules, projects)
			if res != nil {
				o.Console.AutoMergeResult(res)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&ruleIDs, "rules", "", "comma-separated rule ids (default: all active)")
	cmd.Flags().StringVar(&projectIDs, "projects", "", "comma-separated project ids (default: all active)")
	return cmd
}
