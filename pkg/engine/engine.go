// Package engine commits replacement rules to disk: every write is preceded
// by a backup, every replacement lands in the tracking ledger, and the whole
// run is summarized as one execution record.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/rulesweep/rulesweep/pkg/rule"
	"github.com/rulesweep/rulesweep/pkg/scanner"
	"github.com/rulesweep/rulesweep/pkg/store"
)

// Recorder is the slice of the store the engine needs to persist a run.
type Recorder interface {
	BeginExecution(ctx context.Context, ruleIDs []int64) (int64, error)
	FinalizeExecution(ctx context.Context, id int64, status string, scanned, modified, replacements int, errorMessage string) error
	AddModifiedFile(ctx context.Context, f store.ModifiedFile) (int64, error)
	AppendTracking(ctx context.Context, entries []store.TrackingEntry) error
}

// 📌 FileFailure is one file that could not be rewritten. A failure never
// aborts the rest of the run.
type FileFailure struct {
	FilePath string
	Message  string
}

// 📋 Result summarizes one committed execution.
type Result struct {
	ExecutionID   int64
	Status        string
	FilesScanned  int
	FilesModified int
	Replacements  int
	Failures      []FileFailure
}

// 🚀 Engine applies compiled rules to matched files with backup-before-write
// semantics.
type Engine struct {
	scanner    *scanner.Scanner
	recorder   Recorder
	backupRoot string
}

// New creates an Engine. backupRoot is the directory that per-execution
// backup directories are created under.
func New(sc *scanner.Scanner, rec Recorder, backupRoot string) *Engine {
	return &Engine{scanner: sc, recorder: rec, backupRoot: backupRoot}
}

// Execute runs the rules against the projects and commits the changes. The
// scan stream identifies which files match; each matched file is then re-read
// and rewritten from its current content, so a file changed between scan and
// write is handled from its latest state. Individual file failures are
// recorded and skipped; the run only fails as a whole when nothing could be
// written at all.
func (e *Engine) Execute(ctx context.Context, rules []rule.Rule, projects []scanner.Project) (*Result, error) {
	zerolog.Ctx(ctx).Info().
		Int("rules", len(rules)).
		Int("projects", len(projects)).
		Msg("🚀 starting execution")

	active, set, err := compileActive(rules)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, errors.New("no projects to execute against")
	}

	// Start the scan before the execution record: the scan never writes, and
	// any precondition it rejects must not leave a row behind.
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := e.scanner.Scan(scanCtx, rules, projects)
	if err != nil {
		return nil, err
	}

	execID, err := e.recorder.BeginExecution(ctx, ruleIDs(active))
	if err != nil {
		return nil, errors.Errorf("recording execution start: %w", err)
	}

	res := &Result{ExecutionID: execID, Status: store.StatusCompleted}
	var tracking []store.TrackingEntry

	for ev := range events {
		switch ev.Type {
		case scanner.EventProgress:
			res.FilesScanned = ev.Progress.Scanned
		case scanner.EventError:
			res.Failures = append(res.Failures, FileFailure{
				FilePath: ev.Error.FilePath,
				Message:  ev.Error.Message,
			})
		case scanner.EventMatch:
			entries, count, err := e.applyFile(ctx, execID, ev.Match.FilePath, ev.Match.Extension, set)
			if err != nil {
				zerolog.Ctx(ctx).Warn().
					Err(err).
					Str("file", ev.Match.FilePath).
					Msg("⚠️ skipping file")
				res.Failures = append(res.Failures, FileFailure{
					FilePath: ev.Match.FilePath,
					Message:  err.Error(),
				})
				continue
			}
			if count == 0 {
				// The file changed since the scan and no longer matches.
				continue
			}
			res.FilesModified++
			res.Replacements += count
			tracking = append(tracking, entries...)
		}
	}

	return e.finish(ctx, execID, res, tracking)
}

// ExecuteFiles commits the rules to an explicit file subset, typically the
// files an operator approved from a scan preview. Every path is re-read and
// its matches recomputed at write time; paths outside the subset are never
// touched. A path that cannot be read or written is itemized as a failure,
// and a path that no longer matches counts as scanned but unmodified.
func (e *Engine) ExecuteFiles(ctx context.Context, rules []rule.Rule, filePaths []string) (*Result, error) {
	zerolog.Ctx(ctx).Info().
		Int("rules", len(rules)).
		Int("files", len(filePaths)).
		Msg("🚀 starting execution over selected files")

	active, set, err := compileActive(rules)
	if err != nil {
		return nil, err
	}
	if len(filePaths) == 0 {
		return nil, errors.New("no files selected to execute against")
	}

	execID, err := e.recorder.BeginExecution(ctx, ruleIDs(active))
	if err != nil {
		return nil, errors.Errorf("recording execution start: %w", err)
	}

	res := &Result{ExecutionID: execID, Status: store.StatusCompleted}
	var tracking []store.TrackingEntry

	for _, path := range filePaths {
		if ctx.Err() != nil {
			break
		}

		res.FilesScanned++
		ext := strings.ToLower(filepath.Ext(path))
		entries, count, err := e.applyFile(ctx, execID, path, ext, set)
		if err != nil {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Str("file", path).
				Msg("⚠️ skipping file")
			res.Failures = append(res.Failures, FileFailure{FilePath: path, Message: err.Error()})
			continue
		}
		if count == 0 {
			continue
		}
		res.FilesModified++
		res.Replacements += count
		tracking = append(tracking, entries...)
	}

	return e.finish(ctx, execID, res, tracking)
}

// finish records the tracking batch and finalizes the execution row with the
// run's totals and status.
func (e *Engine) finish(ctx context.Context, execID int64, res *Result, tracking []store.TrackingEntry) (*Result, error) {
	if err := ctx.Err(); err != nil {
		_ = e.recorder.FinalizeExecution(ctx, execID, store.StatusFailed,
			res.FilesScanned, res.FilesModified, res.Replacements, err.Error())
		return nil, errors.Errorf("execution interrupted: %w", err)
	}

	if err := e.recorder.AppendTracking(ctx, tracking); err != nil {
		_ = e.recorder.FinalizeExecution(ctx, execID, store.StatusFailed,
			res.FilesScanned, res.FilesModified, res.Replacements, err.Error())
		return nil, errors.Errorf("recording tracking entries: %w", err)
	}

	res.Status = statusFor(res)
	var errMsg string
	if len(res.Failures) > 0 {
		errMsg = fmt.Sprintf("%d files failed", len(res.Failures))
	}
	if err := e.recorder.FinalizeExecution(ctx, execID, res.Status,
		res.FilesScanned, res.FilesModified, res.Replacements, errMsg); err != nil {
		return nil, errors.Errorf("finalizing execution: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Int64("execution_id", execID).
		Str("status", res.Status).
		Int("files_modified", res.FilesModified).
		Int("replacements", res.Replacements).
		Msg("✅ execution finished")

	return res, nil
}

// compileActive validates that at least one rule is active and compiles the
// active subset. It runs before any side effect.
func compileActive(rules []rule.Rule) ([]rule.Rule, *rule.Set, error) {
	active := rule.ActiveOnly(rules)
	if len(active) == 0 {
		return nil, nil, errors.New("no active rules to apply")
	}
	set, err := rule.Compile(active)
	if err != nil {
		return nil, nil, err
	}
	return active, set, nil
}

func ruleIDs(rules []rule.Rule) []int64 {
	ids := make([]int64, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}

// applyFile re-reads a file, backs it up, writes the rewritten content, and
// records the modified file. It returns the tracking entries for the
// replacements actually written.
func (e *Engine) applyFile(ctx context.Context, execID int64, path, ext string, set *rule.Set) ([]store.TrackingEntry, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, errors.Errorf("reading file: %w", err)
	}
	original := string(data)

	modified, lines := scanner.ApplyRules(original, set.ForExtension(ext))
	if len(lines) == 0 {
		return nil, 0, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, errors.Errorf("inspecting file: %w", err)
	}

	backupPath, err := e.writeBackup(execID, path, data)
	if err != nil {
		return nil, 0, err
	}

	if err := writeFileAtomic(path, []byte(modified), info.Mode().Perm()); err != nil {
		return nil, 0, err
	}

	sum := sha256.Sum256(data)
	if _, err := e.recorder.AddModifiedFile(ctx, store.ModifiedFile{
		ExecutionID:      execID,
		FilePath:         path,
		BackupPath:       backupPath,
		ReplacementCount: len(lines),
		OriginalSHA256:   hex.EncodeToString(sum[:]),
	}); err != nil {
		return nil, 0, errors.Errorf("recording modified file: %w", err)
	}

	entries := make([]store.TrackingEntry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, store.TrackingEntry{
			ExecutionID:     execID,
			RuleID:          l.RuleID,
			FilePath:        path,
			LineNumber:      l.LineNumber,
			OriginalText:    l.OriginalText,
			ReplacementText: l.ReplacementText,
			ContextSnippet:  l.LineText,
		})
	}
	return entries, len(lines), nil
}

// writeBackup copies the original content into the execution's backup
// directory before the file is touched.
func (e *Engine) writeBackup(execID int64, path string, data []byte) (string, error) {
	dir := filepath.Join(e.backupRoot, strconv.FormatInt(execID, 10))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Errorf("creating backup directory: %w", err)
	}

	backupPath := filepath.Join(dir, BackupName(path))
	if err := os.WriteFile(backupPath, data, 0o600); err != nil {
		return "", errors.Errorf("writing backup: %w", err)
	}
	return backupPath, nil
}

// BackupName derives a stable, collision-free backup file name from a file
// path: a short hash of the absolute path followed by the base name for
// readability.
func BackupName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:16] + "_" + filepath.Base(abs)
}

// writeFileAtomic writes content to a temp file in the target's directory and
// renames it into place, so a crash mid-write never leaves a truncated file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return errors.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Errorf("replacing file: %w", err)
	}
	return nil
}

func statusFor(res *Result) string {
	switch {
	case len(res.Failures) == 0:
		return store.StatusCompleted
	case res.FilesModified > 0:
		return store.StatusPartial
	default:
		return store.StatusFailed
	}
}
