package project

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"companyms/internal/domain/org"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const projectColumns = `
    p.id, p.company_id, p.department_id, p.name, COALESCE(p.description, ''),
    p.start_date, p.end_date, p.created_at, p.updated_at
`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	if err := row.Scan(&p.ID, &p.CompanyID, &p.DepartmentID, &p.Name, &p.Description, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, scope org.Scope, limit, offset int) ([]Project, error) {
	query := "SELECT " + projectColumns + " FROM projects p"
	args := []any{limit, offset}
	switch scope.Kind {
	case org.ScopeKindNone:
		return []Project{}, nil
	case org.ScopeKindAll:
	case org.ScopeKindDepartment:
		query += " WHERE p.department_id = $3"
		args = append(args, scope.DepartmentID)
	case org.ScopeKindSelf:
		query += ` JOIN project_employees pe ON pe.project_id = p.id WHERE pe.employee_id = $3`
		args = append(args, scope.EmployeeID)
	}
	query += " ORDER BY p.created_at LIMIT $1 OFFSET $2"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Project, 0, limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		assigned, err := s.AssignedEmployees(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].AssignedEmployeeIDs = assigned
	}
	return out, nil
}

func (s *Store) GetProject(ctx context.Context, scope org.Scope, projectID string) (*Project, error) {
	query := "SELECT " + projectColumns + " FROM projects p WHERE p.id = $1"
	args := []any{projectID}
	switch scope.Kind {
	case org.ScopeKindNone:
		return nil, ErrNotFound
	case org.ScopeKindAll:
	case org.ScopeKindDepartment:
		query += " AND p.department_id = $2"
		args = append(args, scope.DepartmentID)
	case org.ScopeKindSelf:
		query += ` AND EXISTS (
      SELECT 1 FROM project_employees pe
      WHERE pe.project_id = p.id AND pe.employee_id = $2
    )`
		args = append(args, scope.EmployeeID)
	}

	p, err := scanProject(s.DB.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	p.AssignedEmployeeIDs, err = s.AssignedEmployees(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) AssignedEmployees(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT employee_id FROM project_employees WHERE project_id = $1", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) CreateProject(ctx context.Context, p Project) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deptCompanyID string
	err = tx.QueryRow(ctx, "SELECT company_id FROM departments WHERE id = $1", p.DepartmentID).Scan(&deptCompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if deptCompanyID != p.CompanyID {
		return "", org.ErrDepartmentCompanyMismatch
	}

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO projects (company_id, department_id, name, description, start_date, end_date)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, p.CompanyID, p.DepartmentID, p.Name, p.Description, p.StartDate, p.EndDate).Scan(&id); err != nil {
		return "", err
	}

	if err := org.CompanyProjectDelta(ctx, tx, p.CompanyID, 1); err != nil {
		return "", err
	}
	if err := org.DepartmentProjectDelta(ctx, tx, p.DepartmentID, 1); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateProject changes descriptive fields only; company and department are
// immutable once created, so no counters move.
func (s *Store) UpdateProject(ctx context.Context, projectID string, p Project) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE projects
    SET name = $1, description = $2, start_date = $3, end_date = $4, updated_at = now()
    WHERE id = $5
  `, p.Name, p.Description, p.StartDate, p.EndDate, projectID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var companyID, departmentID string
	err = tx.QueryRow(ctx, "DELETE FROM projects WHERE id = $1 RETURNING company_id, department_id", projectID).Scan(&companyID, &departmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := org.CompanyProjectDelta(ctx, tx, companyID, -1); err != nil {
		return err
	}
	if err := org.DepartmentProjectDelta(ctx, tx, departmentID, -1); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AssignEmployee adds an employee to the project's assignment set.
// Re-assigning an existing member is a no-op.
func (s *Store) AssignEmployee(ctx context.Context, projectID, employeeID string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO project_employees (project_id, employee_id)
    VALUES ($1,$2)
    ON CONFLICT DO NOTHING
  `, projectID, employeeID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	return err
}

func (s *Store) UnassignEmployee(ctx context.Context, projectID, employeeID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM project_employees WHERE project_id = $1 AND employee_id = $2", projectID, employeeID)
	return err
}
