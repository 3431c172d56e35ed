package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
)

// NewScanCmd creates the scan command
func NewScanCmd(o *opts.RootOpts) *cobra.Command {
	var (
		ruleIDs, projectIDs string
		showDiffs, asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Preview rule matches without writing anything",
		Long: `Scan runs the active rules across the active projects and reports every
match. Nothing on disk is modified; the same matches are what execute would
commit.`,
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

			events, err := o.Scanner().Scan(ctx, rules, projects)
			if err != nil {
				return err
			}

			if asJSON {
				// Line-delimited events for tooling.
				enc := json.NewEncoder(os.Stdout)
				for ev := range events {
					if err := enc.Encode(ev); err != nil {
						return err
					}
				}
				return nil
			}

			matches, scanErrs := o.Console.ScanProgress(events)
			o.Console.ScanSummary(matches, scanErrs)
			if showDiffs {
				o.Console.ShowDiffs(matches)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleIDs, "rules", "", "comma-separated rule ids (default: all active)")
	cmd.Flags().StringVar(&projectIDs, "projects", "", "comma-separated project ids (default: all active)")
	cmd.Flags().BoolVar(&showDiffs, "diff", false, "print a unified diff per matched file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit line-delimited JSON events")
	return cmd
}
