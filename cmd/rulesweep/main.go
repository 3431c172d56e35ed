package main

import (
	"context"
	"os"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/commands"
	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/spf13/cobra"
)

func main() {
	rootOpts := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "rulesweep",
		Short: "Find-replace rules across legacy codebases",
		Long: `rulesweep applies persistent find/replace rules across registered
source trees. Every committed change is backed up, recorded in a tracking
ledger, and reversible per execution.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, rootOpts)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardown(rootOpts)
		},
	}

	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewProjectsCmd(rootOpts),
		commands.NewRulesCmd(rootOpts),
		commands.NewScanCmd(rootOpts),
		commands.NewExecuteCmd(rootOpts),
		commands.NewRollbackCmd(rootOpts),
		commands.NewHistoryCmd(rootOpts),
		commands.NewTrackingCmd(rootOpts),
		commands.NewAutoMergeCmd(rootOpts),
		commands.NewDeepSearchCmd(rootOpts),
		commands.NewSQLAlterCmd(rootOpts),
		commands.NewStatusCmd(rootOpts),
	)

	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errLogger().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
