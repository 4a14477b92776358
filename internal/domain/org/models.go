package org

import "time"

// Company counters are derived values maintained by the counter updates in
// counters.go; they are never written from request payloads.
type Company struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DepartmentCount int       `json:"departmentCount"`
	EmployeeCount   int       `json:"employeeCount"`
	ProjectCount    int       `json:"projectCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Department struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"companyId"`
	Name          string    `json:"name"`
	EmployeeCount int       `json:"employeeCount"`
	ProjectCount  int       `json:"projectCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Employee struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	CompanyID    string     `json:"companyId"`
	DepartmentID string     `json:"departmentId"`
	Mobile       string     `json:"mobile"`
	Address      string     `json:"address"`
	Designation  string     `json:"designation"`
	HiredOn      *time.Time `json:"hiredOn,omitempty"`
	DaysEmployed int        `json:"daysEmployed"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DaysEmployed is the employee's tenure in whole days, 0 when the hire date
// is unset.
func DaysEmployed(hiredOn *time.Time, now time.Time) int {
	if hiredOn == nil || hiredOn.IsZero() {
		return 0
	}
	days := int(now.Sub(*hiredOn).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
