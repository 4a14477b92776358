package org

import "companyms/internal/domain/auth"

// Scope narrows listings and lookups of employee-linked resources
// (employees, projects, reviews) to what a principal may see. It is applied
// in the store's WHERE clause, before any LIMIT/OFFSET.
type ScopeKind int

const (
	// ScopeKindNone yields an empty result set. It is the scope of a
	// manager or employee principal without a linked employee profile —
	// an empty view, not an error.
	ScopeKindNone ScopeKind = iota
	ScopeKindAll
	ScopeKindDepartment
	ScopeKindSelf
)

type Scope struct {
	Kind         ScopeKind
	DepartmentID string
	EmployeeID   string
}

func ScopeAll() Scope {
	return Scope{Kind: ScopeKindAll}
}

func ScopeDepartment(departmentID string) Scope {
	return Scope{Kind: ScopeKindDepartment, DepartmentID: departmentID}
}

func ScopeSelf(employeeID string) Scope {
	return Scope{Kind: ScopeKindSelf, EmployeeID: employeeID}
}

func ScopeNone() Scope {
	return Scope{Kind: ScopeKindNone}
}

// ResolveScope maps a principal and their (possibly absent) employee link
// to a visibility scope: admins see everything, managers their department,
// employees themselves.
func ResolveScope(p auth.Principal, link *auth.EmployeeLink) Scope {
	switch p.Role {
	case auth.RoleAdmin:
		return ScopeAll()
	case auth.RoleManager:
		if link == nil {
			return ScopeNone()
		}
		return ScopeDepartment(link.DepartmentID)
	case auth.RoleEmployee:
		if link == nil {
			return ScopeNone()
		}
		return ScopeSelf(link.EmployeeID)
	}
	return ScopeNone()
}
