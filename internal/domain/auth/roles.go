package auth

import "fmt"

// Role is the closed set of principal roles. Every switch over Role handles
// all three values; an unknown role fails closed.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

var AllRoles = []Role{RoleAdmin, RoleManager, RoleEmployee}

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleEmployee:
		return RoleEmployee, nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Principal is an authenticated actor: a user with exactly one role and the
// server-side session its token was issued against. The employee profile
// link, when one exists, is resolved separately via EmployeeLinkByUserID.
type Principal struct {
	UserID    string
	Role      Role
	SessionID string
}
