package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/rule"
)

// ruleFile is the import/export wire format.
type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description,omitempty"`
	SearchPattern    string `yaml:"search_pattern"`
	ReplacementText  string `yaml:"replacement_text"`
	IsRegex          bool   `yaml:"is_regex,omitempty"`
	CaseSensitive    bool   `yaml:"case_sensitive"`
	TargetExtensions string `yaml:"target_extensions,omitempty"`
	IsActive         bool   `yaml:"is_active"`
}

// NewRulesCmd creates the rules command group
func NewRulesCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage replacement rules",
	}

	cmd.AddCommand(
		newRulesListCmd(o),
		newRulesAddCmd(o),
		newRulesRemoveCmd(o),
		newRulesEnableCmd(o, true),
		newRulesEnableCmd(o, false),
		newRulesImportCmd(o),
		newRulesExportCmd(o),
	)
	return cmd
}

func newRulesListCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List replacement rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := o.Store.ListRules(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Name", "Search", "Replace", "Regex", "Case", "Extensions", "Active"})
			for _, r := range rules {
				t.AppendRow(table.Row{r.ID, r.Name, r.SearchPattern, r.ReplacementText,
					r.IsRegex, r.CaseSensitive, r.TargetExtensions, r.IsActive})
			}
			t.Render()
			return nil
		},
	}
}

func newRulesAddCmd(o *opts.RootOpts) *cobra.Command {
	var (
		search, replace, extensions, description string
		isRegex, ignoreCase                      bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a replacement rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rule.Rule{
				Name:             args[0],
				Description:      description,
				SearchPattern:    search,
				ReplacementText:  replace,
				IsRegex:          isRegex,
				CaseSensitive:    !ignoreCase,
				TargetExtensions: extensions,
				IsActive:         true,
			}

			// A broken pattern is rejected at definition time, not first use.
			if _, err := rule.Compile([]rule.Rule{r}); err != nil {
				return err
			}

			id, err := o.Store.CreateRule(cmd.Context(), r)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Added rule #%d: %s", id, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "search pattern (required)")
	cmd.Flags().StringVar(&replace, "replace", "", "replacement text")
	cmd.Flags().BoolVar(&isRegex, "regex", false, "treat the search pattern as a regular expression")
	cmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "match case-insensitively")
	cmd.Flags().StringVar(&extensions, "extensions", "", "comma-separated extension filter (e.g. .cs,.ts)")
	cmd.Flags().StringVar(&description, "description", "", "rule description")
	_ = cmd.MarkFlagRequired("search")
	return cmd
}

func newRulesRemoveCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a rule (its tracking history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := o.Store.DeleteRule(cmd.Context(), id); err != nil {
				return err
			}
			pterm.Success.Printfln("Removed rule #%d", id)
			return nil
		},
	}
}

func newRulesEnableCmd(o *opts.RootOpts, enable bool) *cobra.Command {
	use, short := "enable <id>", "Include a rule in scans and executions"
	if !enable {
		use, short = "disable <id>", "Exclude a rule from scans and executions"
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
			if err := o.Store.SetRuleActive(cmd.Context(), id, enable); err != nil {
				return err
			}
			pterm.Success.Printfln("Rule #%d active=%v", id, enable)
			return nil
		},
	}
}

func newRulesImportCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import rules from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Errorf("reading rules file: %w", err)
			}

			var rf ruleFile
			if err := yaml.Unmarshal(data, &rf); err != nil {
				return errors.Errorf("parsing rules file: %w", err)
			}

			imported := 0
			for _, e := range rf.Rules {
				_, err := o.Store.CreateRule(cmd.Context(), rule.Rule{
					Name:             e.Name,
					Description:      e.Description,
					SearchPattern:    e.SearchPattern,
					ReplacementText:  e.ReplacementText,
					IsRegex:          e.IsRegex,
					CaseSensitive:    e.CaseSensitive,
					TargetExtensions: e.TargetExtensions,
					IsActive:         e.IsActive,
				})
				if err != nil {
					return errors.Errorf("importing rule %q: %w", e.Name, err)
				}
				imported++
			}
			pterm.Success.Printfln("Imported %d rules", imported)
			return nil
		},
	}
}

func newRulesExportCmd(o *opts.RootOpts) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all rules to YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := o.Store.ListRules(cmd.Context())
			if err != nil {
				return err
			}

			rf := ruleFile{Rules: make([]ruleEntry, 0, len(rules))}
			for _, r := range rules {
				rf.Rules = append(rf.Rules, ruleEntry{
					Name:             r.Name,
					Description:      r.Description,
					SearchPattern:    r.SearchPattern,
					ReplacementText:  r.ReplacementText,
					IsRegex:          r.IsRegex,
					CaseSensitive:    r.CaseSensitive,
					TargetExtensions: r.TargetExtensions,
					IsActive:         r.IsActive,
				})
			}

			data, err := yaml.Marshal(&rf)
			if err != nil {
				return errors.Errorf("encoding rules: %w", err)
			}

			if output == "" {
				cmd.OutOrStdout().Write(data)
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Errorf("writing rules file: %w", err)
			}
			pterm.Success.Printfln("Exported %d rules to %s", len(rf.Rules), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
