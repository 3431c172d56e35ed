package console_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulesweep/rulesweep/pkg/console"
	"github.com/rulesweep/rulesweep/pkg/engine"
	"github.com/rulesweep/rulesweep/pkg/gitops"
	"github.com/rulesweep/rulesweep/pkg/rollback"
	"github.com/rulesweep/rulesweep/pkg/scanner"
	"github.com/rulesweep/rulesweep/pkg/store"
)

func newConsole(t *testing.T) (*console.Console, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return console.NewWithWriter(context.Background(), &buf), &buf
}

func TestScanProgress_CollectsMatchesAndErrors(t *testing.T) {
	c, _ := newConsole(t)

	events := make(chan scanner.Event, 3)
	events <- scanner.Event{Type: scanner.EventMatch, Match: &scanner.FileMatch{FilePath: "/srv/a.cs", MatchCount: 2}}
	events <- scanner.Event{Type: scanner.EventError, Error: &scanner.ScanError{FilePath: "/srv/b.cs", Message: "permission denied"}}
	events <- scanner.Event{Type: scanner.EventProgress, Progress: &scanner.Progress{Scanned: 2, Total: 2}}
	close(events)

	matches, scanErrs := c.ScanProgress(events)
	require.Len(t, matches, 1)
	assert.Equal(t, "/srv/a.cs", matches[0].FilePath)
	require.Len(t, scanErrs, 1)
	assert.Equal(t, "permission denied", scanErrs[0].Message)
}

func TestScanSummary_RendersTable(t *testing.T) {
	c, buf := newConsole(t)

	c.ScanSummary([]scanner.FileMatch{
		{RelativePath: "src/a.cs", MatchCount: 3},
		{RelativePath: "src/b.ts", MatchCount: 1},
	}, nil)

	out := buf.String()
	assert.Contains(t, out, "src/a.cs")
	assert.Contains(t, out, "src/b.ts")
	assert.Contains(t, out, "4", "footer should carry the total")
}

func TestScanSummary_NoMatches(t *testing.T) {
	c, buf := newConsole(t)
	c.ScanSummary(nil, nil)
	assert.Contains(t, buf.String(), "No matches")
}

func TestExecutionResult_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		result engine.Result
		want   string
	}{
		{
			name:   "completed",
			result: engine.Result{ExecutionID: 1, Status: store.StatusCompleted, FilesModified: 2, Replacements: 5},
			want:   "completed",
		},
		{
			name: "partial",
			result: engine.Result{ExecutionID: 2, Status: store.StatusPartial, FilesModified: 1,
				Failures: []engine.FileFailure{{FilePath: "/srv/x.cs", Message: "permission denied"}}},
			want: "partially",
		},
		{
			name:   "failed",
			result: engine.Result{ExecutionID: 3, Status: store.StatusFailed},
			want:   "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, buf := newConsole(t)
			c.ExecutionResult(&tt.result)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestRollbackResult_ListsFailures(t *testing.T) {
	c, buf := newConsole(t)

	c.RollbackResult(&rollback.Result{
		ExecutionID: 9,
		Restored:    1,
		Failed:      1,
		Files: []rollback.FileResult{
			{FilePath: "/srv/a.cs", Restored: true},
			{FilePath: "/srv/b.cs", Message: "reading backup: no such file"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "incomplete")
	assert.Contains(t, out, "/srv/b.cs")
	assert.NotContains(t, out, "/srv/a.cs", "restored files are not listed as failures")
}

func TestExecutionHistory_MarksRolledBack(t *testing.T) {
	c, buf := newConsole(t)

	when := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	c.ExecutionHistory([]store.Execution{
		{ID: 1, ExecutedAt: when, Status: store.StatusCompleted, RolledBackAt: &when},
		{ID: 2, ExecutedAt: when, Status: store.StatusCompleted},
	})

	assert.Contains(t, buf.String(), "2026-08-01 10:30")
}

func TestAutoMergeResult_PerProjectCountsAndTotals(t *testing.T) {
	c, buf := newConsole(t)

	c.AutoMergeResult(&gitops.AutoMergeResult{
		Pulls: []gitops.ProjectPull{
			{
				Project:   scanner.Project{Name: "api"},
				Outcome:   gitops.PullOutcome{Pulled: true},
				Execution: &engine.Result{ExecutionID: 1, Status: store.StatusCompleted, FilesModified: 2, Replacements: 5},
			},
			{
				Project: scanner.Project{Name: "web"},
				Outcome: gitops.PullOutcome{Skipped: true},
				ExecErr: assert.AnError,
			},
		},
		TotalFilesModified: 2,
		TotalReplacements:  5,
	})

	out := buf.String()
	assert.Contains(t, out, "api")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "re-apply failed")
}

func TestExecutionDetail_ListsModifiedFiles(t *testing.T) {
	c, buf := newConsole(t)

	when := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	c.ExecutionDetail(&store.Execution{
		ID:                 7,
		ExecutedAt:         when,
		Status:             store.StatusPartial,
		TotalFilesScanned:  12,
		TotalFilesModified: 2,
		TotalReplacements:  5,
		ErrorMessage:       "1 files failed",
	}, []store.ModifiedFile{
		{FilePath: "src/Foo.cs", ReplacementCount: 3, BackupPath: "backups/7/ab_Foo.cs"},
		{FilePath: "src/Bar.ts", ReplacementCount: 2, BackupPath: "backups/7/cd_Bar.ts"},
	})

	out := buf.String()
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "1 files failed")
	assert.Contains(t, out, "src/Foo.cs")
	assert.Contains(t, out, "backups/7/cd_Bar.ts")
}
