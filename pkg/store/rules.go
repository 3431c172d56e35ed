package store

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/rulesweep/rulesweep/pkg/rule"
)

// CreateRule inserts a new rule and returns its id.
func (s *Store) CreateRule(ctx context.Context, r rule.Rule) (int64, error) {
	if err := rule.Validate(r); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (name, description, search_pattern, replacement_text,
		                    is_regex, case_sensitive, target_extensions, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Description, r.SearchPattern, r.ReplacementText,
		boolToInt(r.IsRegex), boolToInt(r.CaseSensitive),
		normalizeExtCSV(r.TargetExtensions),
		boolToInt(r.IsActive), now())
	if err != nil {
		return 0, errors.Errorf("inserting rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("reading rule id: %w", err)
	}
	return id, nil
}

// UpdateRule replaces every mutable field of an existing rule.
func (s *Store) UpdateRule(ctx context.Context, r rule.Rule) error {
	if r.ID == 0 {
		return errors.New("rule id is required")
	}
	if err := rule.Validate(r); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET name = ?, description = ?, search_pattern = ?,
		        replacement_text = ?, is_regex = ?, case_sensitive = ?,
		        target_extensions = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		r.Name, r.Description, r.SearchPattern, r.ReplacementText,
		boolToInt(r.IsRegex), boolToInt(r.CaseSensitive),
		normalizeExtCSV(r.TargetExtensions),
		boolToInt(r.IsActive), now(), r.ID)
	if err != nil {
		return errors.Errorf("updating rule: %w", err)
	}
	return requireRow(res, "rule", r.ID)
}

// GetRule returns one rule by id, or ErrNotFound.
func (s *Store) GetRule(ctx context.Context, id int64) (*rule.Rule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, search_pattern, replacement_text,
		        is_regex, case_sensitive, target_extensions, is_active
		 FROM rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("rule %d: %w", id, ErrNotFound)
		}
		return nil, errors.Errorf("querying rule: %w", err)
	}
	return r, nil
}

// ListRules returns every rule ordered by name.
func (s *Store) ListRules(ctx context.Context) ([]rule.Rule, error) {
	return s.listRules(ctx,
		`SELECT id, name, description, search_pattern, replacement_text,
		        is_regex, case_sensitive, target_extensions, is_active
		 FROM rules ORDER BY name`)
}

// ListActiveRules returns the active rules ordered by id, which is the order
// they are applied in.
func (s *Store) ListActiveRules(ctx context.Context) ([]rule.Rule, error) {
	return s.listRules(ctx,
		`SELECT id, name, description, search_pattern, replacement_text,
		        is_regex, case_sensitive, target_extensions, is_active
		 FROM rules WHERE is_active = 1 ORDER BY id`)
}

// RulesByIDs returns the active rules among the given ids, preserving id
// order. With no ids it returns every active rule.
func (s *Store) RulesByIDs(ctx context.Context, ids []int64) ([]rule.Rule, error) {
	all, err := s.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return all, nil
	}
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]rule.Rule, 0, len(ids))
	for _, r := range all {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// SetRuleActive flips a rule's active flag.
func (s *Store) SetRuleActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), now(), id)
	if err != nil {
		return errors.Errorf("updating rule: %w", err)
	}
	return requireRow(res, "rule", id)
}

// DeleteRule removes a rule. Tracking entries that reference it survive.
func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return errors.Errorf("deleting rule: %w", err)
	}
	return requireRow(res, "rule", id)
}

func (s *Store) listRules(ctx context.Context, query string) ([]rule.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var out []rule.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, errors.Errorf("scanning rule: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating rules: %w", err)
	}
	return out, nil
}

func scanRule(row rowScanner) (*rule.Rule, error) {
	var r rule.Rule
	var isRegex, caseSensitive, active int
	var exts string
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.SearchPattern, &r.ReplacementText,
		&isRegex, &caseSensitive, &exts, &active); err != nil {
		return nil, err
	}
	r.IsRegex = isRegex != 0
	r.CaseSensitive = caseSensitive != 0
	r.IsActive = active != 0
	r.TargetExtensions = exts
	return &r, nil
}

// normalizeExtCSV canonicalizes a comma-separated extension list for storage:
// lowercase, leading dots, sorted, deduplicated.
func normalizeExtCSV(csv string) string {
	if strings.TrimSpace(csv) == "" {
		return ""
	}
	set := rule.NormalizeExts(csv)
	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ",")
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
