package store

import (
	"context"
	"database/sql"

	"gitlab.com/tozd/go/errors"
)

// BeginExecution creates a running execution row and returns its id. The row
// exists before any file on disk is touched so that an interrupted run is
// still visible in history.
func (s *Store) BeginExecution(ctx context.Context, ruleIDs []int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (executed_at, status, rule_ids) VALUES (?, ?, ?)`,
		now(), StatusRunning, joinIDs(ruleIDs))
	if err != nil {
		return 0, errors.Errorf("inserting execution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("reading execution id: %w", err)
	}
	return id, nil
}

// FinalizeExecution records the terminal status and totals of an execution.
func (s *Store) FinalizeExecution(ctx context.Context, id int64, status string, scanned, modified, replacements int, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE executions
		 SET status = ?, total_files_scanned = ?, total_files_modified = ?,
		     total_replacements = ?, error_message = ?
		 WHERE id = ?`,
		status, scanned, modified, replacements, errorMessage, id)
	if err != nil {
		return errors.Errorf("finalizing execution: %w", err)
	}
	return requireRow(res, "execution", id)
}

// MarkRolledBack stamps an execution as rolled back. Stamping an already
// rolled-back execution is not an error; the original timestamp is kept.
func (s *Store) MarkRolledBack(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE executions SET rolled_back_at = ?
		 WHERE id = ? AND rolled_back_at IS NULL`,
		now(), id)
	if err != nil {
		return errors.Errorf("marking execution rolled back: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		// Distinguish "already rolled back" from "no such execution".
		if _, err := s.GetExecution(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// GetExecution returns one execution by id, or ErrNotFound.
func (s *Store) GetExecution(ctx context.Context, id int64) (*Execution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, executed_at, status, rule_ids, total_files_scanned,
		        total_files_modified, total_replacements, error_message, rolled_back_at
		 FROM executions WHERE id = ?`, id)
	e, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("execution %d: %w", id, ErrNotFound)
		}
		return nil, errors.Errorf("querying execution: %w", err)
	}
	return e, nil
}

// ListExecutions returns the most recent executions, newest first. A limit of
// zero or less means no limit.
func (s *Store) ListExecutions(ctx context.Context, limit int) ([]Execution, error) {
	query := `SELECT id, executed_at, status, rule_ids, total_files_scanned,
	                 total_files_modified, total_replacements, error_message, rolled_back_at
	          FROM executions ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, errors.Errorf("scanning execution: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating executions: %w", err)
	}
	return out, nil
}

// AddModifiedFile records one rewritten file and its backup for an execution.
func (s *Store) AddModifiedFile(ctx context.Context, f ModifiedFile) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO modified_files (execution_id, file_path, backup_path, replacement_count, original_sha256)
		 VALUES (?, ?, ?, ?, ?)`,
		f.ExecutionID, f.FilePath, f.BackupPath, f.ReplacementCount, f.OriginalSHA256)
	if err != nil {
		return 0, errors.Errorf("inserting modified file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("reading modified file id: %w", err)
	}
	return id, nil
}

// ListModifiedFiles returns every file an execution rewrote, in insertion
// order.
func (s *Store) ListModifiedFiles(ctx context.Context, executionID int64) ([]ModifiedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, execution_id, file_path, backup_path, replacement_count, original_sha256
		 FROM modified_files WHERE execution_id = ? ORDER BY id`, executionID)
	if err != nil {
		return nil, errors.Errorf("querying modified files: %w", err)
	}
	defer rows.Close()

	var out []ModifiedFile
	for rows.Next() {
		var f ModifiedFile
		if err := rows.Scan(&f.ID, &f.ExecutionID, &f.FilePath, &f.BackupPath, &f.ReplacementCount, &f.OriginalSHA256); err != nil {
			return nil, errors.Errorf("scanning modified file: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating modified files: %w", err)
	}
	return out, nil
}

func scanExecution(row rowScanner) (*Execution, error) {
	var e Execution
	var executedAt, ruleIDs string
	var rolledBackAt sql.NullString
	if err := row.Scan(&e.ID, &executedAt, &e.Status, &ruleIDs, &e.TotalFilesScanned,
		&e.TotalFilesModified, &e.TotalReplacements, &e.ErrorMessage, &rolledBackAt); err != nil {
		return nil, err
	}
	e.ExecutedAt = parseTime(executedAt)
	e.RuleIDs = splitIDs(ruleIDs)
	if rolledBackAt.Valid {
		t := parseTime(rolledBackAt.String)
		e.RolledBackAt = &t
	}
	return &e, nil
}
