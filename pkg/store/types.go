package store

import "time"

// 🗂️ Project is one externally-registered source tree.
type Project struct {
	ID          int64
	Name        string
	RootPath    string
	Description string
	GitBranch   string
	IsActive    bool
	CreatedAt   time.Time
}

// 📋 Execution is the durable summary of one committed apply operation.
// Immutable after finalization except for rollback marking.
type Execution struct {
	ID                 int64
	ExecutedAt         time.Time
	Status             string // running, completed, partial, failed
	RuleIDs            []int64
	TotalFilesScanned  int
	TotalFilesModified int
	TotalReplacements  int
	ErrorMessage       string
	RolledBackAt       *time.Time
}

// Execution status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// 📄 ModifiedFile records one file rewritten during an execution together
// with the backup that can restore it.
type ModifiedFile struct {
	ID               int64
	ExecutionID      int64
	FilePath         string
	BackupPath       string
	ReplacementCount int
	OriginalSHA256   string
}

// 🧾 TrackingEntry is one row per individual replacement actually written to
// disk. Append-only; the core never mutates or deletes entries.
type TrackingEntry struct {
	ID              int64
	ExecutionID     int64
	RuleID          int64
	FilePath        string
	LineNumber      int
	OriginalText    string
	ReplacementText string
	ContextSnippet  string // the matched line as it read before the rewrite
	CreatedAt       time.Time
}

// 🔍 TrackingFilter narrows tracking queries. Zero values mean "no filter".
type TrackingFilter struct {
	ExecutionID  int64
	RuleID       int64
	PathContains string
	Limit        int
	Offset       int
}
