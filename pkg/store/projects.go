package store

import (
	"context"
	"database/sql"

	"gitlab.com/tozd/go/errors"
)

// CreateProject inserts a new project and returns its id.
func (s *Store) CreateProject(ctx context.Context, p Project) (int64, error) {
	if p.Name == "" || p.RootPath == "" {
		return 0, errors.New("project name and root path are required")
	}
	if p.GitBranch == "" {
		p.GitBranch = "main"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, root_path, description, git_branch, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.RootPath, p.Description, p.GitBranch, boolToInt(p.IsActive), now())
	if err != nil {
		return 0, errors.Errorf("inserting project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Errorf("reading project id: %w", err)
	}
	return id, nil
}

// GetProject returns one project by id, or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, root_path, description, git_branch, is_active, created_at
		 FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, errors.Errorf("querying project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	return s.listProjects(ctx,
		`SELECT id, name, root_path, description, git_branch, is_active, created_at
		 FROM projects ORDER BY name`)
}

// ListActiveProjects returns the active projects ordered by name.
func (s *Store) ListActiveProjects(ctx context.Context) ([]Project, error) {
	return s.listProjects(ctx,
		`SELECT id, name, root_path, description, git_branch, is_active, created_at
		 FROM projects WHERE is_active = 1 ORDER BY name`)
}

// ProjectsByIDs returns the active projects among the given ids. Unknown ids
// are silently skipped.
func (s *Store) ProjectsByIDs(ctx context.Context, ids []int64) ([]Project, error) {
	all, err := s.ListActiveProjects(ctx)
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
	out := make([]Project, 0, len(ids))
	for _, p := range all {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// SetProjectActive flips a project's active flag.
func (s *Store) SetProjectActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), now(), id)
	if err != nil {
		return errors.Errorf("updating project: %w", err)
	}
	return requireRow(res, "project", id)
}

// DeleteProject removes a project registration. Executions and tracking
// history are untouched.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return errors.Errorf("deleting project: %w", err)
	}
	return requireRow(res, "project", id)
}

func (s *Store) listProjects(ctx context.Context, query string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.Errorf("scanning project: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Errorf("iterating projects: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var active int
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &p.RootPath, &p.Description, &p.GitBranch, &active, &createdAt); err != nil {
		return nil, err
	}
	p.IsActive = active != 0
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return errors.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
