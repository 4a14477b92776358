package org

import (
	"testing"

	"companyms/internal/domain/auth"
)

func TestResolveScope(t *testing.T) {
	link := &auth.EmployeeLink{EmployeeID: "emp-1", CompanyID: "co-1", DepartmentID: "dept-1"}

	cases := []struct {
		name string
		p    auth.Principal
		link *auth.EmployeeLink
		want Scope
	}{
		{"admin sees all", auth.Principal{UserID: "u1", Role: auth.RoleAdmin}, nil, ScopeAll()},
		{"admin with link still sees all", auth.Principal{UserID: "u1", Role: auth.RoleAdmin}, link, ScopeAll()},
		{"manager scoped to department", auth.Principal{UserID: "u2", Role: auth.RoleManager}, link, ScopeDepartment("dept-1")},
		{"manager without link sees nothing", auth.Principal{UserID: "u2", Role: auth.RoleManager}, nil, ScopeNone()},
		{"employee scoped to self", auth.Principal{UserID: "u3", Role: auth.RoleEmployee}, link, ScopeSelf("emp-1")},
		{"employee without link sees nothing", auth.Principal{UserID: "u3", Role: auth.RoleEmployee}, nil, ScopeNone()},
		{"unknown role sees nothing", auth.Principal{UserID: "u4", Role: auth.Role("root")}, link, ScopeNone()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveScope(tc.p, tc.link); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
