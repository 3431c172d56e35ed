package store

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// AppendTracking inserts a batch of tracking entries in one transaction. The
// ledger is append-only; nothing in the store ever updates or deletes rows.
func (s *Store) AppendTracking(ctx context.Context, entries []TrackingEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tracking_entries (execution_id, rule_id, file_path, line_number,
		                               original_text, replacement_text, context_snippet, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Errorf("preparing tracking insert: %w", err)
	}
	defer stmt.Close()

	createdAt := now()
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ExecutionID, e.RuleID, e.FilePath,
			e.LineNumber, e.OriginalText, e.ReplacementText, e.ContextSnippet, createdAt); err != nil {
			return errors.Errorf("inserting tracking entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Errorf("committing tracking entries: %w", err)
	}
	return nil
}

// QueryTracking returns ledger entries matching the filter, newest first.
func (s *Store) QueryTracking(ctx context.Context, filter TrackingFilter) ([]TrackingEntry, error) {
	var conds []string
	var args []any

	if filter.ExecutionID > 0 {
		conds = append(conds, "execution_id = ?")
		args = append(args, filter.ExecutionID)
	}
	if filter.RuleID > 0 {
		conds = append(conds, "rule_id = ?")
		args = append(args, filter.RuleID)
	}
	if filter.PathContains != "" {
		conds = append(conds, `file_path LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.PathContains)+"%")
	}

	query := `SELECT id, execution_id, rule_id, file_path, line_number,
	                 original_text, replacement_text, context_snippet, created_at
	          FROM tracking_entries`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Errorf("querying tracking entries: %w", err)
	}
	defer rows.Close()

	var out []TrackingEntry
	for rows.Next() {
		var e TrackingEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ExecutionID, &e.RuleID, &e.FilePath,
			&e.LineNumber, &e.OriginalText, &e.ReplacementText, &e.ContextSnippet, &createdAt); err != nil {
			return nil, errors.Errorf("scanning tracking entry: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating tracking entries: %w", err)
	}
	return out, nil
}

// CountTracking returns the number of ledger entries for an execution.
func (s *Store) CountTracking(ctx context.Context, executionID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tracking_entries WHERE execution_id = ?`, executionID).Scan(&n)
	if err != nil {
		return 0, errors.Errorf("counting tracking entries: %w", err)
	}
	return n, nil
}

// escapeLike escapes the LIKE metacharacters for an ESCAPE '\' pattern. The
// backslash must go first so it never re-escapes the wildcards, and so
// Windows path separators in a filter stay literal.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
