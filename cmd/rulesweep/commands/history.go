package commands

import (
	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd(o *opts.RootOpts) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past executions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			execs, err := o.Store.ListExecutions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			o.Console.ExecutionHistory(execs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of executions to show (0 = all)")
	cmd.AddCommand(newHistoryShowCmd(o))
	return cmd
}

func newHistoryShowCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show one execution with its modified files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			exec, err := o.Store.GetExecution(cmd.Context(), id)
			if err != nil {
				return err
			}
			files, err := o.Store.ListModifiedFiles(cmd.Context(), id)
			if err != nil {
				return err
			}
			o.Console.ExecutionDetail(exec, files)
			return nil
		},
	}
}
