package commands

import (
	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/rollback"
)

// NewRollbackCmd creates the rollback command
func NewRollbackCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <execution-id>",
		Short: "Restore every file an execution modified from its backups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			res, err := rollback.New(o.Store).Rollback(cmd.Context(), id)
			if err != nil {
				return err
			}
			o.Console.RollbackResult(res)
			return nil
		},
	}
}
