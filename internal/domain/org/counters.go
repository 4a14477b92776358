package org

import (
	"context"

	"companyms/internal/platform/querier"
)

// Aggregate counter updates. Each is an explicit call made inside the same
// transaction as the create/delete/reassign that triggered it, and each is
// a single SQL-side increment so concurrent writers serialize on the parent
// row instead of losing updates to read-modify-write races.
//
// A missing parent row affects zero rows and is not an error: during a
// cascade delete the parent is already gone and its counters are moot.

func CompanyDepartmentDelta(ctx context.Context, q querier.Querier, companyID string, delta int) error {
	_, err := q.Exec(ctx, `
    UPDATE companies
    SET department_count = department_count + $1, updated_at = now()
    WHERE id = $2
  `, delta, companyID)
	return err
}

func CompanyEmployeeDelta(ctx context.Context, q querier.Querier, companyID string, delta int) error {
	_, err := q.Exec(ctx, `
    UPDATE companies
    SET employee_count = employee_count + $1, updated_at = now()
    WHERE id = $2
  `, delta, companyID)
	return err
}

func CompanyProjectDelta(ctx context.Context, q querier.Querier, companyID string, delta int) error {
	_, err := q.Exec(ctx, `
    UPDATE companies
    SET project_count = project_count + $1, updated_at = now()
    WHERE id = $2
  `, delta, companyID)
	return err
}

func DepartmentEmployeeDelta(ctx context.Context, q querier.Querier, departmentID string, delta int) error {
	_, err := q.Exec(ctx, `
    UPDATE departments
    SET employee_count = employee_count + $1, updated_at = now()
    WHERE id = $2
  `, delta, departmentID)
	return err
}

func DepartmentProjectDelta(ctx context.Context, q querier.Querier, departmentID string, delta int) error {
	_, err := q.Exec(ctx, `
    UPDATE departments
    SET project_count = project_count + $1, updated_at = now()
    WHERE id = $2
  `, delta, departmentID)
	return err
}
