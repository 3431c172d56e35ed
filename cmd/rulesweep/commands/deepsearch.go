package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/deepsearch"
)

// NewDeepSearchCmd creates the deep-search command
func NewDeepSearchCmd(o *opts.RootOpts) *cobra.Command {
	var (
		search, replace string
		fromRules, save bool
	)

	cmd := &cobra.Command{
		Use:   "deep-search",
		Short: "Expand keywords into naming-convention variant rules",
		Long: `Deep-search generates naming-convention variants from a keyword pair or
from the existing rules: case forms, snake_case, underscore prefixes, and the
usual hungarian prefixes (txt, lbl, col, sp, ...). With --save the variants
are stored as new rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var variants []deepsearch.Variant
			switch {
			case fromRules:
				rules, err := o.Store.ListActiveRules(ctx)
				if err != nil {
					return err
				}
				variants = deepsearch.GenerateFromRules(rules)
			case search != "" && replace != "":
				variants = deepsearch.GenerateVariants(search, replace)
			default:
				return errors.New("either --from-rules or both --search and --replace are required")
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Original", "Replacement", "Category", "Source rule"})
			for _, v := range variants {
				t.AppendRow(table.Row{v.Original, v.Replacement, v.Category, v.SourceRuleName})
			}
			t.Render()

			if !save {
				return nil
			}

			saved := 0
			for _, r := range deepsearch.AsRules(variants) {
				if _, err := o.Store.CreateRule(ctx, r); err != nil {
					return errors.Errorf("saving variant rule %q: %w", r.Name, err)
				}
				saved++
			}
			pterm.Success.Printfln("Saved %d variant rules", saved)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "keyword to expand")
	cmd.Flags().StringVar(&replace, "replace", "", "replacement keyword")
	cmd.Flags().BoolVar(&fromRules, "from-rules", false, "expand every active rule instead of a keyword pair")
	cmd.Flags().BoolVar(&save, "save", false, "store the variants as new rules")
	return cmd
}
