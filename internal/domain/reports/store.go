package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DepartmentSummary struct {
	Name          string `json:"name"`
	EmployeeCount int    `json:"employeeCount"`
	ProjectCount  int    `json:"projectCount"`
}

type CompanySummary struct {
	CompanyID       string              `json:"companyId"`
	CompanyName     string              `json:"companyName"`
	DepartmentCount int                 `json:"departmentCount"`
	EmployeeCount   int                 `json:"employeeCount"`
	ProjectCount    int                 `json:"projectCount"`
	Departments     []DepartmentSummary `json:"departments"`
	ReviewsByState  map[string]int      `json:"reviewsByState"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CompanySummary(ctx context.Context, companyID string) (CompanySummary, error) {
	var out CompanySummary
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, department_count, employee_count, project_count
    FROM companies
    WHERE id = $1
  `, companyID).Scan(&out.CompanyID, &out.CompanyName, &out.DepartmentCount, &out.EmployeeCount, &out.ProjectCount)
	if err != nil {
		return CompanySummary{}, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT name, employee_count, project_count
    FROM departments
    WHERE company_id = $1
    ORDER BY name
  `, companyID)
	if err != nil {
		return CompanySummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var dept DepartmentSummary
		if err := rows.Scan(&dept.Name, &dept.EmployeeCount, &dept.ProjectCount); err != nil {
			return CompanySummary{}, err
		}
		out.Departments = append(out.Departments, dept)
	}
	if err := rows.Err(); err != nil {
		return CompanySummary{}, err
	}

	out.ReviewsByState = map[string]int{}
	stateRows, err := s.DB.Query(ctx, `
    SELECT r.state, COUNT(1)
    FROM performance_reviews r
    JOIN employees e ON r.employee_id = e.id
    WHERE e.company_id = $1
    GROUP BY r.state
  `, companyID)
	if err != nil {
		return CompanySummary{}, err
	}
	defer stateRows.Close()

	for stateRows.Next() {
		var state string
		var count int
		if err := stateRows.Scan(&state, &count); err != nil {
			return CompanySummary{}, err
		}
		out.ReviewsByState[state] = count
	}
	return out, stateRows.Err()
}
