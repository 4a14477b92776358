package auth

import "testing"

func TestRoleWritePredicates(t *testing.T) {
	cases := []struct {
		name string
		fn   func(Role) bool
		want map[Role]bool
	}{
		{"company", CanWriteCompany, map[Role]bool{RoleAdmin: true, RoleManager: false, RoleEmployee: false}},
		{"department", CanWriteDepartment, map[Role]bool{RoleAdmin: true, RoleManager: false, RoleEmployee: false}},
		{"employee create", CanCreateEmployee, map[Role]bool{RoleAdmin: true, RoleManager: true, RoleEmployee: false}},
		{"project", CanWriteProject, map[Role]bool{RoleAdmin: true, RoleManager: true, RoleEmployee: false}},
		{"review transition", CanTransitionReview, map[Role]bool{RoleAdmin: true, RoleManager: true, RoleEmployee: false}},
	}

	for _, tc := range cases {
		for role, want := range tc.want {
			if got := tc.fn(role); got != want {
				t.Errorf("%s: role %s = %v, want %v", tc.name, role, got, want)
			}
		}
		if tc.fn(Role("superuser")) {
			t.Errorf("%s: unknown role must fail closed", tc.name)
		}
	}
}

func TestCanWriteEmployeeObject(t *testing.T) {
	obj := EmployeeObject{OwnerUserID: "user-owner", DepartmentID: "dept-1"}

	cases := []struct {
		name string
		p    Principal
		link *EmployeeLink
		want bool
	}{
		{"admin without link", Principal{UserID: "u1", Role: RoleAdmin}, nil, true},
		{"manager same department", Principal{UserID: "u2", Role: RoleManager}, &EmployeeLink{EmployeeID: "e2", DepartmentID: "dept-1"}, true},
		{"manager other department", Principal{UserID: "u2", Role: RoleManager}, &EmployeeLink{EmployeeID: "e2", DepartmentID: "dept-2"}, false},
		{"manager without link", Principal{UserID: "u2", Role: RoleManager}, nil, false},
		{"owner employee", Principal{UserID: "user-owner", Role: RoleEmployee}, &EmployeeLink{EmployeeID: "e1", DepartmentID: "dept-1"}, true},
		{"other employee same department", Principal{UserID: "u3", Role: RoleEmployee}, &EmployeeLink{EmployeeID: "e3", DepartmentID: "dept-1"}, false},
		{"unknown role", Principal{UserID: "user-owner", Role: Role("root")}, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanWriteEmployeeObject(tc.p, tc.link, obj); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanReadEmployeeObject(t *testing.T) {
	obj := EmployeeObject{OwnerUserID: "user-owner", DepartmentID: "dept-1"}

	cases := []struct {
		name string
		p    Principal
		link *EmployeeLink
		want bool
	}{
		{"admin", Principal{UserID: "u1", Role: RoleAdmin}, nil, true},
		{"manager same department", Principal{UserID: "u2", Role: RoleManager}, &EmployeeLink{EmployeeID: "e2", DepartmentID: "dept-1"}, true},
		{"manager other department not owner", Principal{UserID: "u2", Role: RoleManager}, &EmployeeLink{EmployeeID: "e2", DepartmentID: "dept-2"}, false},
		{"manager other department but owner", Principal{UserID: "user-owner", Role: RoleManager}, &EmployeeLink{EmployeeID: "e1", DepartmentID: "dept-2"}, true},
		{"manager without link", Principal{UserID: "u2", Role: RoleManager}, nil, false},
		{"owner employee", Principal{UserID: "user-owner", Role: RoleEmployee}, &EmployeeLink{EmployeeID: "e1", DepartmentID: "dept-1"}, true},
		{"other employee", Principal{UserID: "u3", Role: RoleEmployee}, &EmployeeLink{EmployeeID: "e3", DepartmentID: "dept-1"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanReadEmployeeObject(tc.p, tc.link, obj); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, role := range AllRoles {
		parsed, err := ParseRole(string(role))
		if err != nil {
			t.Fatalf("ParseRole(%s) failed: %v", role, err)
		}
		if parsed != role {
			t.Fatalf("ParseRole(%s) = %s", role, parsed)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	if _, err := ParseRole(""); err == nil {
		t.Fatal("expected error for empty role")
	}
}
