package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/sqlgen"
)

// NewSQLAlterCmd creates the sql-alter command
func NewSQLAlterCmd(o *opts.RootOpts) *cobra.Command {
	var (
		search, replace, output string
	)

	cmd := &cobra.Command{
		Use:   "sql-alter <file.sql>",
		Short: "Generate an ALTER/sp_rename script for a keyword rename",
		Long: `Sql-alter detects the SQL object type of a DDL file (table, table type,
view, stored procedure, function) and generates a script that carries a
keyword rename through the database: sp_rename for tables so data survives,
ALTER statements for programmable objects so permissions survive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Errorf("reading SQL file: %w", err)
			}

			script := sqlgen.Generate(string(data), sqlgen.Unknown, search, replace, args[0])

			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), script.SQL)
			} else if err := os.WriteFile(output, []byte(script.SQL+"\n"), 0o644); err != nil {
				return errors.Errorf("writing script: %w", err)
			}

			pterm.Info.Printfln("Detected type: %s", script.Type)
			for _, w := range script.Warnings {
				pterm.Warning.Println(w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "keyword to rename (required)")
	cmd.Flags().StringVar(&replace, "replace", "", "replacement keyword (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the script to a file instead of stdout")
	_ = cmd.MarkFlagRequired("search")
	_ = cmd.MarkFlagRequired("replace")
	return cmd
}
