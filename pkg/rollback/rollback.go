// Package rollback restores files from the backups an execution took before
// writing.
package rollback

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/rulesweep/rulesweep/pkg/store"
)

// Source is the slice of the store rollback needs.
type Source interface {
	GetExecution(ctx context.Context, id int64) (*store.Execution, error)
	ListModifiedFiles(ctx context.Context, executionID int64) ([]store.ModifiedFile, error)
	MarkRolledBack(ctx context.Context, id int64) error
}

// 📌 FileResult is the outcome for one file of a rollback.
type FileResult struct {
	FilePath string
	Restored bool
	Message  string
}

// 📋 Result summarizes a rollback run.
type Result struct {
	ExecutionID int64
	Restored    int
	Failed      int
	Files       []FileResult
}

// ⏪ Manager restores executions from their backups.
type Manager struct {
	source Source
}

func New(source Source) *Manager {
	return &Manager{source: source}
}

// Rollback restores every file an execution modified from its backup. It is
// idempotent: running it again re-copies the same backups, converging on the
// same disk state. A missing backup or unwritable target is reported per file
// and does not stop the rest.
func (m *Manager) Rollback(ctx context.Context, executionID int64) (*Result, error) {
	exec, err := m.source.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx).With().Int64("execution_id", exec.ID).Logger()
	if exec.RolledBackAt != nil {
		log.Info().Msg("⏪ execution already marked rolled back, restoring again")
	}

	files, err := m.source.ListModifiedFiles(ctx, executionID)
	if err != nil {
		return nil, err
	}

	res := &Result{ExecutionID: executionID}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("rollback interrupted: %w", err)
		}

		fr := FileResult{FilePath: f.FilePath}
		if err := restoreFile(f.BackupPath, f.FilePath); err != nil {
			fr.Message = err.Error()
			res.Failed++
			log.Warn().Err(err).Str("file", f.FilePath).Msg("⚠️ could not restore file")
		} else {
			fr.Restored = true
			res.Restored++
		}
		res.Files = append(res.Files, fr)
	}

	if res.Failed == 0 {
		if err := m.source.MarkRolledBack(ctx, executionID); err != nil {
			return nil, err
		}
		log.Info().Int("restored", res.Restored).Msg("✅ rollback complete")
	} else {
		log.Warn().
			Int("restored", res.Restored).
			Int("failed", res.Failed).
			Msg("⚠️ rollback incomplete, execution not marked rolled back")
	}

	return res, nil
}

// restoreFile copies a backup over the live file. The live file's directory
// is recreated if it was removed since the execution.
func restoreFile(backupPath, filePath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return errors.Errorf("reading backup: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.Errorf("recreating directory: %w", err)
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(filePath); err == nil {
		perm = info.Mode().Perm()
	}

	if err := os.WriteFile(filePath, data, perm); err != nil {
		return errors.Errorf("restoring file: %w", err)
	}
	return nil
}
