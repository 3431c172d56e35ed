// Package console renders scan and execution results for an interactive
// terminal, echoing everything to the structured log for debugging.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"github.com/rulesweep/rulesweep/pkg/engine"
	"github.com/rulesweep/rulesweep/pkg/gitops"
	"github.com/rulesweep/rulesweep/pkg/rollback"
	"github.com/rulesweep/rulesweep/pkg/scanner"
	"github.com/rulesweep/rulesweep/pkg/store"
)

// 📢 Console provides user-friendly terminal output for long-running
// operations.
type Console struct {
	log zerolog.Logger // for debug/error logging
	out io.Writer
}

// 🎯 New creates a Console writing to stdout.
func New(ctx context.Context) *Console {
	return &Console{
		log: *zerolog.Ctx(ctx),
		out: os.Stdout,
	}
}

// NewWithWriter creates a Console with a custom writer, for tests.
func NewWithWriter(ctx context.Context, out io.Writer) *Console {
	return &Console{log: *zerolog.Ctx(ctx), out: out}
}

// 📊 ScanProgress renders a live progress bar fed from scan events and
// returns the matches once the stream closes.
func (c *Console) ScanProgress(events <-chan scanner.Event) ([]scanner.FileMatch, []scanner.ScanError) {
	var matches []scanner.FileMatch
	var scanErrs []scanner.ScanError

	bar, err := pterm.DefaultProgressbar.WithTotal(0).WithWriter(c.out).Start("Scanning")
	if err != nil {
		bar = nil
		c.log.Debug().Err(err).Msg("progress bar unavailable, falling back to plain output")
	}

	for ev := range events {
		switch ev.Type {
		case scanner.EventProgress:
			if bar != nil {
				if bar.Total != ev.Progress.Total {
					bar = bar.WithTotal(ev.Progress.Total)
				}
				bar.UpdateTitle(ev.Progress.CurrentFile)
				bar.Increment()
			}
		case scanner.EventMatch:
			matches = append(matches, *ev.Match)
			c.log.Debug().
				Str("file", ev.Match.FilePath).
				Int("matches", ev.Match.MatchCount).
				Msg("match found")
		case scanner.EventError:
			scanErrs = append(scanErrs, *ev.Error)
			c.log.Debug().
				Str("file", ev.Error.FilePath).
				Str("message", ev.Error.Message).
				Msg("file skipped")
		}
	}

	if bar != nil {
		_, _ = bar.Stop()
	}
	return matches, scanErrs
}

// 📋 ScanSummary prints one table row per matched file plus totals.
func (c *Console) ScanSummary(matches []scanner.FileMatch, scanErrs []scanner.ScanError) {
	if len(matches) == 0 {
		pterm.Info.WithWriter(c.out).Println("No matches found")
	} else {
		t := table.NewWriter()
		t.SetOutputMirror(c.out)
		t.AppendHeader(table.Row{"File", "Matches"})
		total := 0
		for _, m := range matches {
			t.AppendRow(table.Row{m.RelativePath, m.MatchCount})
			total += m.MatchCount
		}
		t.AppendFooter(table.Row{"Total", total})
		t.Render()
	}

	for _, e := range scanErrs {
		pterm.Warning.WithWriter(c.out).Printfln("skipped %s: %s", e.FilePath, e.Message)
	}
	c.log.Info().Int("files_matched", len(matches)).Int("files_skipped", len(scanErrs)).Msg("scan finished")
}

// 🖼️ ShowDiffs prints each file's unified diff with colored +/- lines.
func (c *Console) ShowDiffs(matches []scanner.FileMatch) {
	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	header := color.New(color.FgCyan, color.Bold)

	for _, m := range matches {
		header.Fprintf(c.out, "--- %s (%d matches)\n", m.RelativePath, m.MatchCount)
		for _, line := range strings.Split(strings.TrimRight(m.Diff, "\n"), "\n") {
			switch {
			case len(line) > 0 && line[0] == '+':
				add.Fprintln(c.out, line)
			case len(line) > 0 && line[0] == '-':
				del.Fprintln(c.out, line)
			default:
				fmt.Fprintln(c.out, line)
			}
		}
		fmt.Fprintln(c.out)
	}
}

// ✅ ExecutionResult summarizes a committed run.
func (c *Console) ExecutionResult(res *engine.Result) {
	switch res.Status {
	case store.StatusCompleted:
		pterm.Success.WithWriter(c.out).Printfln("Execution #%d completed: %d files modified, %d replacements",
			res.ExecutionID, res.FilesModified, res.Replacements)
	case store.StatusPartial:
		pterm.Warning.WithWriter(c.out).Printfln("Execution #%d partially completed: %d files modified, %d failed",
			res.ExecutionID, res.FilesModified, len(res.Failures))
	default:
		pterm.Error.WithWriter(c.out).Printfln("Execution #%d failed", res.ExecutionID)
	}

	for _, f := range res.Failures {
		pterm.Warning.WithWriter(c.out).Printfln("  %s: %s", f.FilePath, f.Message)
	}
	c.log.Info().Int64("execution_id", res.ExecutionID).Str("status", res.Status).Msg("execution reported")
}

// ⏪ RollbackResult summarizes a restore run.
func (c *Console) RollbackResult(res *rollback.Result) {
	if res.Failed == 0 {
		pterm.Success.WithWriter(c.out).Printfln("Rolled back execution #%d: %d files restored",
			res.ExecutionID, res.Restored)
		return
	}
	pterm.Warning.WithWriter(c.out).Printfln("Rollback of execution #%d incomplete: %d restored, %d failed",
		res.ExecutionID, res.Restored, res.Failed)
	for _, f := range res.Files {
		if !f.Restored {
			pterm.Error.WithWriter(c.out).Printfln("  %s: %s", f.FilePath, f.Message)
		}
	}
}

// 🔀 AutoMergeResult renders one row per project with its pull outcome and
// its own execution's totals.
func (c *Console) AutoMergeResult(res *gitops.AutoMergeResult) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.AppendHeader(table.Row{"Project", "Pull", "Execution", "Modified", "Replacements"})
	for _, p := range res.Pulls {
		pull := "pulled"
		switch {
		case p.Err != nil:
			pull = "failed"
		case p.Outcome.Skipped:
			pull = "skipped"
		}
		execCol, modified, replacements := "-", "-", "-"
		if p.ExecErr != nil {
			execCol = "failed"
		} else if p.Execution != nil {
			execCol = p.Execution.Status
			modified = strconv.Itoa(p.Execution.FilesModified)
			replacements = strconv.Itoa(p.Execution.Replacements)
		}
		t.AppendRow(table.Row{p.Project.Name, pull, execCol, modified, replacements})
	}
	t.AppendFooter(table.Row{"Total", "", "", res.TotalFilesModified, res.TotalReplacements})
	t.Render()

	for _, p := range res.Pulls {
		if p.Err != nil {
			pterm.Error.WithWriter(c.out).Printfln("%s: pull failed: %v", p.Project.Name, p.Err)
		}
		if p.ExecErr != nil {
			pterm.Error.WithWriter(c.out).Printfln("%s: re-apply failed: %v", p.Project.Name, p.ExecErr)
		}
	}
}

// 📜 ExecutionHistory renders executions as a table, newest first.
func (c *Console) ExecutionHistory(execs []store.Execution) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.AppendHeader(table.Row{"ID", "Executed", "Status", "Scanned", "Modified", "Replacements", "Rolled back"})
	for _, e := range execs {
		rolledBack := ""
		if e.RolledBackAt != nil {
			rolledBack = e.RolledBackAt.Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{
			e.ID,
			e.ExecutedAt.Format("2006-01-02 15:04"),
			e.Status,
			e.TotalFilesScanned,
			e.TotalFilesModified,
			e.TotalReplacements,
			rolledBack,
		})
	}
	t.Render()
}

// 🔎 ExecutionDetail renders one execution with its modified files.
func (c *Console) ExecutionDetail(exec *store.Execution, files []store.ModifiedFile) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.AppendRow(table.Row{"ID", exec.ID})
	t.AppendRow(table.Row{"Executed", exec.ExecutedAt.Format("2006-01-02 15:04:05")})
	t.AppendRow(table.Row{"Status", exec.Status})
	t.AppendRow(table.Row{"Files scanned", exec.TotalFilesScanned})
	t.AppendRow(table.Row{"Files modified", exec.TotalFilesModified})
	t.AppendRow(table.Row{"Replacements", exec.TotalReplacements})
	if exec.ErrorMessage != "" {
		t.AppendRow(table.Row{"Error", exec.ErrorMessage})
	}
	if exec.RolledBackAt != nil {
		t.AppendRow(table.Row{"Rolled back", exec.RolledBackAt.Format("2006-01-02 15:04:05")})
	}
	t.Render()

	if len(files) == 0 {
		return
	}
	ft := table.NewWriter()
	ft.SetOutputMirror(c.out)
	ft.AppendHeader(table.Row{"File", "Replacements", "Backup"})
	for _, f := range files {
		ft.AppendRow(table.Row{f.FilePath, f.ReplacementCount, f.BackupPath})
	}
	ft.Render()
}

// 🧾 TrackingEntries renders ledger rows as a table.
func (c *Console) TrackingEntries(entries []store.TrackingEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.AppendHeader(table.Row{"Execution", "Rule", "File", "Line", "Original", "Replacement", "Context"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.ExecutionID, e.RuleID, e.FilePath, e.LineNumber,
			truncate(e.OriginalText, 40), truncate(e.ReplacementText, 40),
			truncate(strings.TrimSpace(e.ContextSnippet), 60)})
	}
	t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
