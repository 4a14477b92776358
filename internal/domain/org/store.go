package org

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDepartmentCompanyMismatch rejects an employee pointing at a
	// department owned by a different company.
	ErrDepartmentCompanyMismatch = errors.New("department does not belong to company")
	// ErrDuplicateName surfaces the unique constraints on company names
	// and on department names within a company.
	ErrDuplicateName = errors.New("name already in use")
)

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// --- Companies ---

func (s *Store) ListCompanies(ctx context.Context, limit, offset int) ([]Company, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, department_count, employee_count, project_count, created_at, updated_at
    FROM companies
    ORDER BY name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Company, 0, limit)
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.DepartmentCount, &c.EmployeeCount, &c.ProjectCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	var c Company
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, department_count, employee_count, project_count, created_at, updated_at
    FROM companies
    WHERE id = $1
  `, companyID).Scan(&c.ID, &c.Name, &c.DepartmentCount, &c.EmployeeCount, &c.ProjectCount, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCompany(ctx context.Context, name string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "INSERT INTO companies (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return "", mapUniqueViolation(err)
	}
	return id, nil
}

func (s *Store) UpdateCompany(ctx context.Context, companyID, name string) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE companies SET name = $1, updated_at = now() WHERE id = $2", name, companyID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCompany cascades to departments, employees, projects, and reviews
// through foreign keys; the company row carries the counters, so nothing is
// left to reconcile.
func (s *Store) DeleteCompany(ctx context.Context, companyID string) error {
	cmd, err := s.DB.Exec(ctx, "DELETE FROM companies WHERE id = $1", companyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Departments ---

func (s *Store) ListDepartments(ctx context.Context, companyID string, limit, offset int) ([]Department, error) {
	query := `
    SELECT id, company_id, name, employee_count, project_count, created_at, updated_at
    FROM departments
  `
	args := []any{limit, offset}
	if companyID != "" {
		query += " WHERE company_id = $3"
		args = append(args, companyID)
	}
	query += " ORDER BY name LIMIT $1 OFFSET $2"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Department, 0, limit)
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Name, &d.EmployeeCount, &d.ProjectCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, departmentID string) (*Department, error) {
	var d Department
	err := s.DB.QueryRow(ctx, `
    SELECT id, company_id, name, employee_count, project_count, created_at, updated_at
    FROM departments
    WHERE id = $1
  `, departmentID).Scan(&d.ID, &d.CompanyID, &d.Name, &d.EmployeeCount, &d.ProjectCount, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) CreateDepartment(ctx context.Context, companyID, name string) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO departments (company_id, name)
    VALUES ($1, $2)
    RETURNING id
  `, companyID, name).Scan(&id); err != nil {
		return "", mapUniqueViolation(err)
	}
	if err := CompanyDepartmentDelta(ctx, tx, companyID, 1); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, departmentID, name string) error {
	cmd, err := s.DB.Exec(ctx, "UPDATE departments SET name = $1, updated_at = now() WHERE id = $2", name, departmentID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDepartment removes the department and its cascade (employees,
// projects), then settles the company counters for everything that went
// with it.
func (s *Store) DeleteDepartment(ctx context.Context, departmentID string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var companyID string
	err = tx.QueryRow(ctx, "SELECT company_id FROM departments WHERE id = $1 FOR UPDATE", departmentID).Scan(&companyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var employees, projects int
	if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE department_id = $1", departmentID).Scan(&employees); err != nil {
		return err
	}
	if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM projects WHERE department_id = $1", departmentID).Scan(&projects); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM departments WHERE id = $1", departmentID); err != nil {
		return err
	}
	if err := CompanyDepartmentDelta(ctx, tx, companyID, -1); err != nil {
		return err
	}
	if employees > 0 {
		if err := CompanyEmployeeDelta(ctx, tx, companyID, -employees); err != nil {
			return err
		}
	}
	if projects > 0 {
		if err := CompanyProjectDelta(ctx, tx, companyID, -projects); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// --- Employees ---

const employeeColumns = `
    id, COALESCE(user_id::text, ''), company_id, department_id,
    COALESCE(mobile, ''), COALESCE(address, ''), designation,
    hired_on, created_at, updated_at
`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	if err := row.Scan(&e.ID, &e.UserID, &e.CompanyID, &e.DepartmentID, &e.Mobile, &e.Address, &e.Designation, &e.HiredOn, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.DaysEmployed = DaysEmployed(e.HiredOn, time.Now())
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context, scope Scope, limit, offset int) ([]Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	args := []any{limit, offset}
	switch scope.Kind {
	case ScopeKindNone:
		return []Employee{}, nil
	case ScopeKindAll:
	case ScopeKindDepartment:
		query += " WHERE department_id = $3"
		args = append(args, scope.DepartmentID)
	case ScopeKindSelf:
		query += " WHERE id = $3"
		args = append(args, scope.EmployeeID)
	}
	query += " ORDER BY created_at LIMIT $1 OFFSET $2"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Employee, 0, limit)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// GetEmployee resolves an employee within the caller's scope. An id outside
// the scope scans no rows, so out-of-scope reads are indistinguishable from
// missing records.
func (s *Store) GetEmployee(ctx context.Context, scope Scope, employeeID string) (*Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE id = $1"
	args := []any{employeeID}
	switch scope.Kind {
	case ScopeKindNone:
		return nil, ErrNotFound
	case ScopeKindAll:
	case ScopeKindDepartment:
		query += " AND department_id = $2"
		args = append(args, scope.DepartmentID)
	case ScopeKindSelf:
		query += " AND id = $2"
		args = append(args, scope.EmployeeID)
	}
	return scanEmployee(s.DB.QueryRow(ctx, query, args...))
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var deptCompanyID string
	err = tx.QueryRow(ctx, "SELECT company_id FROM departments WHERE id = $1", e.DepartmentID).Scan(&deptCompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if deptCompanyID != e.CompanyID {
		return "", ErrDepartmentCompanyMismatch
	}

	// Not every employee record has a login.
	var userID any
	if e.UserID != "" {
		userID = e.UserID
	}

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO employees (user_id, company_id, department_id, mobile, address, designation, hired_on)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, userID, e.CompanyID, e.DepartmentID, e.Mobile, e.Address, e.Designation, e.HiredOn).Scan(&id); err != nil {
		return "", err
	}

	if err := CompanyEmployeeDelta(ctx, tx, e.CompanyID, 1); err != nil {
		return "", err
	}
	if err := DepartmentEmployeeDelta(ctx, tx, e.DepartmentID, 1); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateEmployee updates profile fields and, when the department changed
// against the persisted row, moves the employee counters between the old
// and new departments in the same transaction. The company is immutable;
// cross-company reassignment is not modeled.
func (s *Store) UpdateEmployee(ctx context.Context, employeeID string, e Employee) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var companyID, oldDepartmentID string
	err = tx.QueryRow(ctx, "SELECT company_id, department_id FROM employees WHERE id = $1 FOR UPDATE", employeeID).Scan(&companyID, &oldDepartmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	newDepartmentID := e.DepartmentID
	if newDepartmentID == "" {
		newDepartmentID = oldDepartmentID
	}
	if newDepartmentID != oldDepartmentID {
		var deptCompanyID string
		err = tx.QueryRow(ctx, "SELECT company_id FROM departments WHERE id = $1", newDepartmentID).Scan(&deptCompanyID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if deptCompanyID != companyID {
			return ErrDepartmentCompanyMismatch
		}
	}

	if _, err := tx.Exec(ctx, `
    UPDATE employees
    SET department_id = $1,
        mobile = $2,
        address = $3,
        designation = $4,
        hired_on = $5,
        updated_at = now()
    WHERE id = $6
  `, newDepartmentID, e.Mobile, e.Address, e.Designation, e.HiredOn, employeeID); err != nil {
		return err
	}

	if newDepartmentID != oldDepartmentID {
		if err := DepartmentEmployeeDelta(ctx, tx, oldDepartmentID, -1); err != nil {
			return err
		}
		if err := DepartmentEmployeeDelta(ctx, tx, newDepartmentID, 1); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// UpdateEmployeeContact updates the self-serviceable contact fields only.
func (s *Store) UpdateEmployeeContact(ctx context.Context, employeeID, mobile, address string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET mobile = $1,
        address = $2,
        updated_at = now()
    WHERE id = $3
  `, mobile, address, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEmployee removes the employee, their project assignments (FK
// cascade), and settles the company and department counters.
func (s *Store) DeleteEmployee(ctx context.Context, employeeID string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var companyID, departmentID string
	err = tx.QueryRow(ctx, "DELETE FROM employees WHERE id = $1 RETURNING company_id, department_id", employeeID).Scan(&companyID, &departmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := CompanyEmployeeDelta(ctx, tx, companyID, -1); err != nil {
		return err
	}
	if err := DepartmentEmployeeDelta(ctx, tx, departmentID, -1); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
