package project

import "time"

type Project struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"companyId"`
	DepartmentID string    `json:"departmentId"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	// AssignedEmployeeIDs is an unordered, duplicate-free membership set.
	AssignedEmployeeIDs []string  `json:"assignedEmployeeIds"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
