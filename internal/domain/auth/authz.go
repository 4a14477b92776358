package auth

// Authorization predicates. These are pure functions over the principal's
// role plus, for object rules, the ownership facts of the target record.
// Handlers gate with these before invoking any state transition or store
// mutation; the domain layers below never re-check permissions.

// CanWriteCompany reports whether the role may create, update, or delete
// companies. Reads are open to any authenticated principal.
func CanWriteCompany(role Role) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager, RoleEmployee:
		return false
	}
	return false
}

// CanWriteDepartment mirrors company rules: admin only.
func CanWriteDepartment(role Role) bool {
	return CanWriteCompany(role)
}

// CanCreateEmployee reports whether the role may create employee records.
func CanCreateEmployee(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager:
		return true
	case RoleEmployee:
		return false
	}
	return false
}

// CanWriteProject reports whether the role may create, update, or delete
// projects or change project assignments.
func CanWriteProject(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager:
		return true
	case RoleEmployee:
		return false
	}
	return false
}

// CanTransitionReview reports whether the role may invoke review transition
// actions at all. The department match for managers is enforced by query
// scoping: a review outside the manager's department does not resolve.
func CanTransitionReview(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager:
		return true
	case RoleEmployee:
		return false
	}
	return false
}

// EmployeeObject carries the ownership facts of a record that references an
// employee, for the owner/manager/admin object rule.
type EmployeeObject struct {
	OwnerUserID  string
	DepartmentID string
}

// CanWriteEmployeeObject decides object-level write access: admin always;
// a manager only when their own employee profile sits in the same
// department; an employee only when they are the owner. A manager without
// an employee profile (link == nil) has no department and cannot match.
func CanWriteEmployeeObject(p Principal, link *EmployeeLink, obj EmployeeObject) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return link != nil && link.DepartmentID == obj.DepartmentID
	case RoleEmployee:
		return p.UserID == obj.OwnerUserID
	}
	return false
}

// CanReadEmployeeObject decides object-level read access for records that
// reference an employee: the owner, a manager of the owner's department,
// or an admin.
func CanReadEmployeeObject(p Principal, link *EmployeeLink, obj EmployeeObject) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		if link != nil && link.DepartmentID == obj.DepartmentID {
			return true
		}
		return link != nil && p.UserID == obj.OwnerUserID
	case RoleEmployee:
		return p.UserID == obj.OwnerUserID
	}
	return false
}
