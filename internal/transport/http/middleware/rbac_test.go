package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"companyms/internal/domain/auth"
	"companyms/internal/transport/http/middleware"
)

const testSecret = "test-secret"

// sessionTable is a canned SessionChecker: a session id is live when mapped
// to true.
type sessionTable map[string]bool

func (s sessionTable) SessionActive(_ context.Context, sessionID string) (bool, error) {
	return s[sessionID], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func protectedHandler(t *testing.T, roles ...auth.Role) http.Handler {
	t.Helper()
	chain := middleware.RequireRole(roles...)(okHandler())
	return middleware.Auth(testSecret, nil)(chain)
}

func requestWithRole(t *testing.T, role string) *http.Request {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-1", Role: role}, time.Minute)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	handler := protectedHandler(t, auth.RoleAdmin, auth.RoleManager)

	for _, role := range []string{"admin", "manager"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithRole(t, role))
		if rec.Code != http.StatusOK {
			t.Fatalf("role %s: expected 200, got %d", role, rec.Code)
		}
	}
}

func TestRequireRoleRejectsOtherRole(t *testing.T) {
	handler := protectedHandler(t, auth.RoleAdmin)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "employee"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRoleRejectsAnonymous(t *testing.T) {
	handler := protectedHandler(t, auth.RoleAdmin)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoleRejectsTamperedToken(t *testing.T) {
	handler := protectedHandler(t, auth.RoleAdmin)

	token, err := auth.GenerateToken("other-secret", auth.Claims{UserID: "u-1", Role: "admin"}, time.Minute)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for token signed with wrong secret, got %d", rec.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	sessions := sessionTable{"live-session": true}
	handler := middleware.Auth(testSecret, sessions)(middleware.RequireAuthenticated(okHandler()))

	cases := []struct {
		sessionID string
		want      int
	}{
		{"live-session", http.StatusOK},
		{"revoked-session", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		token, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-1", Role: "admin", SessionID: tc.sessionID}, time.Minute)
		if err != nil {
			t.Fatalf("token generation failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("session %s: expected %d, got %d", tc.sessionID, tc.want, rec.Code)
		}
	}
}

func TestRequirePermissionUsesPredicate(t *testing.T) {
	handler := middleware.Auth(testSecret, nil)(middleware.RequirePermission(auth.CanWriteProject)(okHandler()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "manager"))
	if rec.Code != http.StatusOK {
		t.Fatalf("manager should pass the project write predicate, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "employee"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("employee should fail the project write predicate, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous should 401, got %d", rec.Code)
	}
}

func TestRequireAuthenticatedPassesPrincipalThrough(t *testing.T) {
	var captured auth.Principal
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := middleware.GetPrincipal(r.Context())
		if !ok {
			t.Fatal("principal missing from context")
		}
		captured = p
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Auth(testSecret, nil)(middleware.RequireAuthenticated(final))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRole(t, "employee"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.UserID != "u-1" || captured.Role != auth.RoleEmployee {
		t.Fatalf("unexpected principal: %+v", captured)
	}
}
