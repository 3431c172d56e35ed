package commands

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rulesweep/rulesweep/cmd/rulesweep/opts"
	"github.com/rulesweep/rulesweep/pkg/store"
)

// NewTrackingCmd creates the tracking command
func NewTrackingCmd(o *opts.RootOpts) *cobra.Command {
	var (
		executionID, ruleID int64
		pathContains        string
		limit, offset       int
		asJSON              bool
	)

	cmd := &cobra.Command{
		Use:   "tracking",
		Short: "Query the replacement ledger",
		Long: `Tracking queries the append-only ledger of individual replacements.
Entries survive rule deletion and rollback, so the history of what was
changed, where, and by which rule is always available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := o.Store.QueryTracking(cmd.Context(), store.TrackingFilter{
				ExecutionID:  executionID,
				RuleID:       ruleID,
				PathContains: pathContains,
				Limit:        limit,
				Offset:       offset,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				for _, e := range entries {
					if err := enc.Encode(trackingLine{
						ID:          e.ID,
						ExecutionID: e.ExecutionID,
						RuleID:      e.RuleID,
						FilePath:    e.FilePath,
						LineNumber:  e.LineNumber,
						Original:    e.OriginalText,
						Replacement: e.ReplacementText,
						Context:     e.ContextSnippet,
						CreatedAt:   e.CreatedAt,
					}); err != nil {
						return err
					}
				}
				return nil
			}
			o.Console.TrackingEntries(entries)
			return nil
		},
	}

	cmd.Flags().Int64Var(&executionID, "execution", 0, "filter by execution id")
	cmd.Flags().Int64Var(&ruleID, "rule", 0, "filter by rule id")
	cmd.Flags().StringVar(&pathContains, "path", "", "filter by file path substring")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries to show (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit line-delimited JSON entries")
	return cmd
}

// trackingLine is the wire shape for --json exports.
type trackingLine struct {
	ID          int64     `json:"id"`
	ExecutionID int64     `json:"execution_id"`
	RuleID      int64     `json:"rule_id"`
	FilePath    string    `json:"file_path"`
	LineNumber  int       `json:"line_number"`
	Original    string    `json:"original_text"`
	Replacement string    `json:"replacement_text"`
	Context     string    `json:"context_snippet"`
	CreatedAt   time.Time `json:"created_at"`
}
