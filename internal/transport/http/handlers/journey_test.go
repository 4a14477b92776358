package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"companyms/internal/app/server"
	"companyms/internal/domain/auth"
	"companyms/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T) (*server.App, *httptest.Server, config.Config) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		Addr:              ":0",
		DatabaseURL:       dbURL,
		JWTSecret:         "test-secret",
		Environment:       "test",
		SeedAdminEmail:    "admin@test.local",
		SeedAdminPassword: "ChangeMe123!",
		RunMigrations:     true,
		MigrationsDir:     "../../../../migrations",
		RunSeed:           true,
		MaxBodyBytes:      1048576,
		DefaultPageSize:   50,
		MaxPageSize:       200,
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts, cfg
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, payload any) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: bad envelope %q: %v", method, url, raw, err)
		}
	}
	return resp.StatusCode, env
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	status, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d", email, status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil || out.Token == "" {
		t.Fatalf("login %s: no token in %s", email, env.Data)
	}
	return out.Token
}

func createdID(t *testing.T, env envelope) string {
	t.Helper()
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil || out.ID == "" {
		t.Fatalf("no id in response data %s", env.Data)
	}
	return out.ID
}

func statusMessage(t *testing.T, env envelope) string {
	t.Helper()
	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("no status in response data %s", env.Data)
	}
	return out.Status
}

// insertUser provisions a login directly; the API deliberately has no user
// registration endpoint.
func insertUser(t *testing.T, app *server.App, email, role, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var id string
	err = app.DB.QueryRow(context.Background(), `
    INSERT INTO users (email, username, role, password_hash, active)
    VALUES ($1, $2, $3, $4, true)
    RETURNING id
  `, email, strings.Split(email, "@")[0], role, hash).Scan(&id)
	if err != nil {
		t.Fatalf("insert user %s: %v", email, err)
	}
	return id
}

type companyCounts struct {
	DepartmentCount int `json:"departmentCount"`
	EmployeeCount   int `json:"employeeCount"`
	ProjectCount    int `json:"projectCount"`
}

func getCompanyCounts(t *testing.T, client *http.Client, baseURL, token, companyID string) companyCounts {
	t.Helper()
	status, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/companies/"+companyID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("get company: status %d", status)
	}
	var out companyCounts
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode company: %v", err)
	}
	return out
}

func TestCompanyReviewJourney(t *testing.T) {
	app, ts, cfg := newTestApp(t)
	client := ts.Client()
	base := ts.URL
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	adminToken := login(t, client, base, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	// Company and department setup, watching the counters move.
	status, env := doJSON(t, client, http.MethodPost, base+"/api/v1/companies", adminToken, map[string]string{"name": "Acme " + suffix})
	if status != http.StatusCreated {
		t.Fatalf("create company: status %d", status)
	}
	companyID := createdID(t, env)

	counts := getCompanyCounts(t, client, base, adminToken, companyID)
	if counts.DepartmentCount != 0 || counts.EmployeeCount != 0 || counts.ProjectCount != 0 {
		t.Fatalf("fresh company counters not zero: %+v", counts)
	}

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies/"+companyID+"/departments", adminToken, map[string]string{"name": "Engineering"})
	if status != http.StatusCreated {
		t.Fatalf("create department: status %d", status)
	}
	departmentID := createdID(t, env)

	if counts = getCompanyCounts(t, client, base, adminToken, companyID); counts.DepartmentCount != 1 {
		t.Fatalf("department counter not incremented: %+v", counts)
	}

	// Names are unique: company-wide for companies, per company for
	// departments.
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies", adminToken, map[string]string{"name": "Acme " + suffix})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("duplicate company name should 400 validation_error, got %d %+v", status, env)
	}
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies/"+companyID+"/departments", adminToken, map[string]string{"name": "Engineering"})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("duplicate department name should 400 validation_error, got %d %+v", status, env)
	}
	if counts = getCompanyCounts(t, client, base, adminToken, companyID); counts.DepartmentCount != 1 {
		t.Fatalf("rejected duplicate must not move counters: %+v", counts)
	}

	// Employees linked to real logins.
	managerUserID := insertUser(t, app, "manager-"+suffix+"@test.local", "manager", "Manager123!")
	employeeUserID := insertUser(t, app, "worker-"+suffix+"@test.local", "employee", "Worker123!")

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
		"userId":       managerUserID,
		"companyId":    companyID,
		"departmentId": departmentID,
		"designation":  "Engineering Manager",
		"hiredOn":      "2024-01-15",
	})
	if status != http.StatusCreated {
		t.Fatalf("create manager employee: status %d", status)
	}
	managerEmployeeID := createdID(t, env)
	_ = managerEmployeeID

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
		"userId":       employeeUserID,
		"companyId":    companyID,
		"departmentId": departmentID,
		"designation":  "Engineer",
		"hiredOn":      "2025-06-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("create employee: status %d", status)
	}
	employeeID := createdID(t, env)

	if counts = getCompanyCounts(t, client, base, adminToken, companyID); counts.EmployeeCount != 2 {
		t.Fatalf("employee counter expected 2: %+v", counts)
	}

	// Department/company mismatch must be rejected before any write.
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies", adminToken, map[string]string{"name": "Other " + suffix})
	if status != http.StatusCreated {
		t.Fatalf("create second company: status %d", status)
	}
	otherCompanyID := createdID(t, env)
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
		"companyId":    otherCompanyID,
		"departmentId": departmentID,
	})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "department_mismatch" {
		t.Fatalf("expected department_mismatch, got status %d env %+v", status, env)
	}
	if counts = getCompanyCounts(t, client, base, adminToken, otherCompanyID); counts.EmployeeCount != 0 {
		t.Fatalf("rejected create must not move counters: %+v", counts)
	}

	// Project lifecycle.
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/projects", adminToken, map[string]string{
		"companyId":    companyID,
		"departmentId": departmentID,
		"name":         "Apollo",
		"startDate":    "2026-01-01",
		"endDate":      "2026-12-31",
	})
	if status != http.StatusCreated {
		t.Fatalf("create project: status %d", status)
	}
	projectID := createdID(t, env)

	if counts = getCompanyCounts(t, client, base, adminToken, companyID); counts.ProjectCount != 1 {
		t.Fatalf("project counter expected 1: %+v", counts)
	}

	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/projects/"+projectID+"/employees/"+employeeID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("assign employee: status %d", status)
	}
	// Assignment is idempotent.
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/projects/"+projectID+"/employees/"+employeeID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("repeat assign: status %d", status)
	}

	// Review lifecycle with an out-of-order attempt up front.
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews", adminToken, map[string]string{"employeeId": employeeID})
	if status != http.StatusCreated {
		t.Fatalf("create review: status %d", status)
	}
	reviewID := createdID(t, env)

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/provide_feedback", adminToken, map[string]string{"feedbackText": "too early"})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "invalid_transition" {
		t.Fatalf("premature feedback should 400 invalid_transition, got %d %+v", status, env)
	}

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/schedule", adminToken, map[string]string{"reviewDate": "2026-09-15"})
	if status != http.StatusOK || statusMessage(t, env) != "Review scheduled" {
		t.Fatalf("schedule: status %d data %s", status, env.Data)
	}

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/provide_feedback", adminToken, map[string]string{"feedbackText": "strong delivery"})
	if status != http.StatusOK || statusMessage(t, env) != "Feedback provided" {
		t.Fatalf("provide feedback: status %d data %s", status, env.Data)
	}

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/submit_for_approval", adminToken, nil)
	if status != http.StatusOK || statusMessage(t, env) != "Submitted for approval" {
		t.Fatalf("submit: status %d data %s", status, env.Data)
	}

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/reject", adminToken, map[string]string{"feedbackText": "quantify the impact"})
	if status != http.StatusOK || statusMessage(t, env) != "Review rejected, feedback required" {
		t.Fatalf("reject: status %d data %s", status, env.Data)
	}

	// Rejection appends; the original feedback must survive.
	status, env = doJSON(t, client, http.MethodGet, base+"/api/v1/performance-reviews/"+reviewID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get review: status %d", status)
	}
	var rv struct {
		State    string `json:"state"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal(env.Data, &rv); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if rv.State != "REJECTED" {
		t.Fatalf("expected REJECTED, got %s", rv.State)
	}
	if !strings.Contains(rv.Feedback, "strong delivery") || !strings.Contains(rv.Feedback, "quantify the impact") {
		t.Fatalf("rejection must append, feedback = %q", rv.Feedback)
	}

	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/rework_feedback", adminToken, map[string]string{"feedbackText": "strong delivery, 30% latency cut"})
	if status != http.StatusOK {
		t.Fatalf("rework: status %d", status)
	}
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/submit_for_approval", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("resubmit: status %d", status)
	}
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/approve", adminToken, nil)
	if status != http.StatusOK || statusMessage(t, env) != "Review approved" {
		t.Fatalf("approve: status %d data %s", status, env.Data)
	}

	// Rework replaces: the rejection trail is gone from the final text.
	status, env = doJSON(t, client, http.MethodGet, base+"/api/v1/performance-reviews/"+reviewID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get approved review: status %d", status)
	}
	if err := json.Unmarshal(env.Data, &rv); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if rv.State != "APPROVED" {
		t.Fatalf("expected APPROVED, got %s", rv.State)
	}
	if strings.Contains(rv.Feedback, "quantify the impact") {
		t.Fatalf("rework must replace feedback, got %q", rv.Feedback)
	}

	// The reviewed employee received lifecycle notifications.
	workerToken := login(t, client, base, "worker-"+suffix+"@test.local", "Worker123!")
	status, env = doJSON(t, client, http.MethodGet, base+"/api/v1/notifications", workerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list notifications: status %d", status)
	}
	var notes []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(env.Data, &notes); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	seen := map[string]bool{}
	for _, n := range notes {
		seen[n.Type] = true
	}
	if !seen["review_scheduled"] || !seen["review_rejected"] || !seen["review_approved"] {
		t.Fatalf("expected scheduled, rejected, and approved notifications, got %+v", notes)
	}

	// Deleting the employee detaches assignments and settles counters.
	status, _ = doJSON(t, client, http.MethodDelete, base+"/api/v1/employees/"+employeeID, adminToken, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete employee: status %d", status)
	}
	if counts = getCompanyCounts(t, client, base, adminToken, companyID); counts.EmployeeCount != 1 {
		t.Fatalf("employee counter expected 1 after delete: %+v", counts)
	}
	status, env = doJSON(t, client, http.MethodGet, base+"/api/v1/projects/"+projectID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("get project after delete: status %d", status)
	}
	var proj struct {
		AssignedEmployeeIDs []string `json:"assignedEmployeeIds"`
	}
	if err := json.Unmarshal(env.Data, &proj); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	for _, id := range proj.AssignedEmployeeIDs {
		if id == employeeID {
			t.Fatal("deleted employee still assigned to project")
		}
	}
}

func TestRoleScopingAndAuthorization(t *testing.T) {
	app, ts, cfg := newTestApp(t)
	client := ts.Client()
	base := ts.URL
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	adminToken := login(t, client, base, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	_, env := doJSON(t, client, http.MethodPost, base+"/api/v1/companies", adminToken, map[string]string{"name": "Scoped " + suffix})
	companyID := createdID(t, env)
	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies/"+companyID+"/departments", adminToken, map[string]string{"name": "Sales"})
	salesID := createdID(t, env)
	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies/"+companyID+"/departments", adminToken, map[string]string{"name": "Support"})
	supportID := createdID(t, env)

	salesManagerUserID := insertUser(t, app, "sales-mgr-"+suffix+"@test.local", "manager", "Manager123!")
	salesWorkerUserID := insertUser(t, app, "sales-emp-"+suffix+"@test.local", "employee", "Worker123!")
	supportWorkerUserID := insertUser(t, app, "support-emp-"+suffix+"@test.local", "employee", "Worker123!")
	insertUser(t, app, "floating-mgr-"+suffix+"@test.local", "manager", "Manager123!")

	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
		"userId": salesManagerUserID, "companyId": companyID, "departmentId": salesID,
	})
	_ = createdID(t, env)
	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
		"userId": salesWorkerUserID, "companyId": companyID, "departmentId": salesID,
	})
	salesWorkerID := createdID(t, env)
	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
		"userId": supportWorkerUserID, "companyId": companyID, "departmentId": supportID,
	})
	supportWorkerID := createdID(t, env)

	// A manager sees their department only.
	managerToken := login(t, client, base, "sales-mgr-"+suffix+"@test.local", "Manager123!")
	status, env := doJSON(t, client, http.MethodGet, base+"/api/v1/employees", managerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("manager list: status %d", status)
	}
	var employees []struct {
		ID           string `json:"id"`
		DepartmentID string `json:"departmentId"`
	}
	if err := json.Unmarshal(env.Data, &employees); err != nil {
		t.Fatalf("decode employees: %v", err)
	}
	for _, e := range employees {
		if e.DepartmentID != salesID {
			t.Fatalf("manager saw employee outside own department: %+v", e)
		}
	}

	// Out-of-scope lookups read as missing, not forbidden.
	status, _ = doJSON(t, client, http.MethodGet, base+"/api/v1/employees/"+supportWorkerID, managerToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("out-of-scope employee should 404, got %d", status)
	}

	// A manager with no employee profile sees an empty world, not an error.
	floatingToken := login(t, client, base, "floating-mgr-"+suffix+"@test.local", "Manager123!")
	status, env = doJSON(t, client, http.MethodGet, base+"/api/v1/employees", floatingToken, nil)
	if status != http.StatusOK {
		t.Fatalf("floating manager list: status %d", status)
	}
	if err := json.Unmarshal(env.Data, &employees); err != nil {
		t.Fatalf("decode employees: %v", err)
	}
	if len(employees) != 0 {
		t.Fatalf("unlinked manager must see no employees, got %d", len(employees))
	}

	// An employee sees only themselves and cannot touch org structure.
	workerToken := login(t, client, base, "sales-emp-"+suffix+"@test.local", "Worker123!")
	status, env = doJSON(t, client, http.MethodGet, base+"/api/v1/employees", workerToken, nil)
	if status != http.StatusOK {
		t.Fatalf("employee list: status %d", status)
	}
	if err := json.Unmarshal(env.Data, &employees); err != nil {
		t.Fatalf("decode employees: %v", err)
	}
	if len(employees) != 1 || employees[0].ID != salesWorkerID {
		t.Fatalf("employee must see exactly themselves, got %+v", employees)
	}

	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/companies", workerToken, map[string]string{"name": "Rogue"})
	if status != http.StatusForbidden {
		t.Fatalf("employee company create should 403, got %d", status)
	}
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews", workerToken, map[string]string{"employeeId": salesWorkerID})
	if status != http.StatusForbidden {
		t.Fatalf("employee review create should 403, got %d", status)
	}

	// Unauthenticated requests never reach the handlers.
	status, _ = doJSON(t, client, http.MethodGet, base+"/api/v1/employees", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous list should 401, got %d", status)
	}

	// Manager can run a review for their own department's employee.
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews", managerToken, map[string]string{"employeeId": salesWorkerID})
	if status != http.StatusCreated {
		t.Fatalf("manager review create: status %d", status)
	}
	reviewID := createdID(t, env)
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+reviewID+"/schedule", managerToken, map[string]string{"reviewDate": "2026-10-01"})
	if status != http.StatusOK {
		t.Fatalf("manager schedule: status %d", status)
	}

	// But not for another department's employee: the review never resolves.
	status, env = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews", managerToken, map[string]string{"employeeId": supportWorkerID})
	if status != http.StatusCreated {
		t.Fatalf("review create for other dept: status %d", status)
	}
	foreignReviewID := createdID(t, env)
	status, _ = doJSON(t, client, http.MethodPost, base+"/api/v1/performance-reviews/"+foreignReviewID+"/schedule", managerToken, map[string]string{"reviewDate": "2026-10-01"})
	if status != http.StatusNotFound {
		t.Fatalf("out-of-scope transition should 404, got %d", status)
	}
}

func getDepartmentEmployeeCount(t *testing.T, client *http.Client, baseURL, token, departmentID string) int {
	t.Helper()
	status, env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/departments/"+departmentID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("get department: status %d", status)
	}
	var out struct {
		EmployeeCount int `json:"employeeCount"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode department: %v", err)
	}
	return out.EmployeeCount
}

func TestCountersSurviveMovesAndCascades(t *testing.T) {
	app, ts, cfg := newTestApp(t)
	client := ts.Client()
	base := ts.URL
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	adminToken := login(t, client, base, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	_, env := doJSON(t, client, http.MethodPost, base+"/api/v1/companies", adminToken, map[string]string{"name": "Counters " + suffix})
	companyID := createdID(t, env)
	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies/"+companyID+"/departments", adminToken, map[string]string{"name": "Alpha"})
	alphaID := createdID(t, env)
	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/companies/"+companyID+"/departments", adminToken, map[string]string{"name": "Beta"})
	betaID := createdID(t, env)

	userID := insertUser(t, app, "mover-"+suffix+"@test.local", "employee", "Worker123!")
	_, env = doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
		"userId": userID, "companyId": companyID, "departmentId": alphaID,
	})
	employeeID := createdID(t, env)

	if got := getDepartmentEmployeeCount(t, client, base, adminToken, alphaID); got != 1 {
		t.Fatalf("alpha count after create = %d, want 1", got)
	}

	// Moving an employee shifts the department counters and leaves the
	// company counter alone.
	status, _ := doJSON(t, client, http.MethodPut, base+"/api/v1/employees/"+employeeID, adminToken, map[string]string{
		"departmentId": betaID,
	})
	if status != http.StatusOK {
		t.Fatalf("move employee: status %d", status)
	}
	if got := getDepartmentEmployeeCount(t, client, base, adminToken, alphaID); got != 0 {
		t.Fatalf("alpha count after move = %d, want 0", got)
	}
	if got := getDepartmentEmployeeCount(t, client, base, adminToken, betaID); got != 1 {
		t.Fatalf("beta count after move = %d, want 1", got)
	}
	if counts := getCompanyCounts(t, client, base, adminToken, companyID); counts.EmployeeCount != 1 {
		t.Fatalf("company count after move = %d, want 1", counts.EmployeeCount)
	}

	// A no-op update must not drift the counters.
	status, _ = doJSON(t, client, http.MethodPut, base+"/api/v1/employees/"+employeeID, adminToken, map[string]string{
		"designation": "Senior Engineer",
	})
	if status != http.StatusOK {
		t.Fatalf("no-op update: status %d", status)
	}
	if got := getDepartmentEmployeeCount(t, client, base, adminToken, betaID); got != 1 {
		t.Fatalf("beta count after no-op update = %d, want 1", got)
	}

	// Deleting the department cascades its employees and settles the
	// company counters in the same transaction.
	status, _ = doJSON(t, client, http.MethodDelete, base+"/api/v1/departments/"+betaID, adminToken, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete department: status %d", status)
	}
	counts := getCompanyCounts(t, client, base, adminToken, companyID)
	if counts.DepartmentCount != 1 || counts.EmployeeCount != 0 {
		t.Fatalf("company counters after cascade: %+v", counts)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	_, ts, cfg := newTestApp(t)
	client := ts.Client()
	base := ts.URL

	adminToken := login(t, client, base, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	status, _ := doJSON(t, client, http.MethodGet, base+"/api/v1/employees", adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("authenticated list before logout: status %d", status)
	}

	status, env := doJSON(t, client, http.MethodPost, base+"/api/v1/auth/logout", adminToken, nil)
	if status != http.StatusOK || statusMessage(t, env) != "logged out" {
		t.Fatalf("logout: status %d data %s", status, env.Data)
	}

	// The token's signature is still valid; its session is gone.
	status, _ = doJSON(t, client, http.MethodGet, base+"/api/v1/employees", adminToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("revoked token should 401, got %d", status)
	}

	// A fresh login opens a new session and works again.
	freshToken := login(t, client, base, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	status, _ = doJSON(t, client, http.MethodGet, base+"/api/v1/employees", freshToken, nil)
	if status != http.StatusOK {
		t.Fatalf("fresh token after logout: status %d", status)
	}
}

// assertCountersMatchRows compares every stored counter of the company and
// its departments against a live COUNT of the rows it summarizes.
func assertCountersMatchRows(t *testing.T, app *server.App, companyID, step string) {
	t.Helper()
	ctx := context.Background()

	var depts, liveDepts, emps, liveEmps, projs, liveProjs int
	err := app.DB.QueryRow(ctx, `
    SELECT c.department_count,
           (SELECT COUNT(1) FROM departments d WHERE d.company_id = c.id),
           c.employee_count,
           (SELECT COUNT(1) FROM employees e WHERE e.company_id = c.id),
           c.project_count,
           (SELECT COUNT(1) FROM projects p WHERE p.company_id = c.id)
    FROM companies c
    WHERE c.id = $1
  `, companyID).Scan(&depts, &liveDepts, &emps, &liveEmps, &projs, &liveProjs)
	if err != nil {
		t.Fatalf("%s: company counter query: %v", step, err)
	}
	if depts != liveDepts || emps != liveEmps || projs != liveProjs {
		t.Fatalf("%s: company counters drifted: stored %d/%d/%d, live %d/%d/%d",
			step, depts, emps, projs, liveDepts, liveEmps, liveProjs)
	}

	rows, err := app.DB.Query(ctx, `
    SELECT d.id,
           d.employee_count,
           (SELECT COUNT(1) FROM employees e WHERE e.department_id = d.id),
           d.project_count,
           (SELECT COUNT(1) FROM projects p WHERE p.department_id = d.id)
    FROM departments d
    WHERE d.company_id = $1
  `, companyID)
	if err != nil {
		t.Fatalf("%s: department counter query: %v", step, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var emps, liveEmps, projs, liveProjs int
		if err := rows.Scan(&id, &emps, &liveEmps, &projs, &liveProjs); err != nil {
			t.Fatalf("%s: scan department counters: %v", step, err)
		}
		if emps != liveEmps || projs != liveProjs {
			t.Fatalf("%s: department %s counters drifted: stored %d/%d, live %d/%d",
				step, id, emps, projs, liveEmps, liveProjs)
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("%s: department counter rows: %v", step, err)
	}
}

// TestCounterConsistencyUnderRandomOperations drives a seeded random mix of
// create, move, and delete operations through the API and checks after every
// step that no stored counter has drifted from the rows it summarizes.
func TestCounterConsistencyUnderRandomOperations(t *testing.T) {
	app, ts, cfg := newTestApp(t)
	client := ts.Client()
	base := ts.URL
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	adminToken := login(t, client, base, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	_, env := doJSON(t, client, http.MethodPost, base+"/api/v1/companies", adminToken, map[string]string{"name": "Sim " + suffix})
	companyID := createdID(t, env)

	rng := rand.New(rand.NewSource(20260828))
	var depts, emps, projs []string
	empDept := map[string]string{}
	projDept := map[string]string{}

	removeFrom := func(list []string, id string) []string {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if v != id {
				out = append(out, v)
			}
		}
		return out
	}

	newDept := func() {
		status, env := doJSON(t, client, http.MethodPost, base+"/api/v1/companies/"+companyID+"/departments", adminToken,
			map[string]string{"name": fmt.Sprintf("dept-%d", rng.Int63())})
		if status != http.StatusCreated {
			t.Fatalf("sim create department: status %d", status)
		}
		depts = append(depts, createdID(t, env))
	}
	newDept()
	newDept()

	for step := 0; step < 40; step++ {
		op := rng.Intn(10)
		switch {
		case op == 0 || len(depts) == 0:
			newDept()
		case op <= 3:
			dept := depts[rng.Intn(len(depts))]
			status, env := doJSON(t, client, http.MethodPost, base+"/api/v1/employees", adminToken, map[string]string{
				"companyId": companyID, "departmentId": dept,
			})
			if status != http.StatusCreated {
				t.Fatalf("step %d: sim create employee: status %d", step, status)
			}
			id := createdID(t, env)
			emps = append(emps, id)
			empDept[id] = dept
		case op == 4 && len(emps) > 0:
			id := emps[rng.Intn(len(emps))]
			dest := depts[rng.Intn(len(depts))]
			status, _ := doJSON(t, client, http.MethodPut, base+"/api/v1/employees/"+id, adminToken, map[string]string{
				"departmentId": dest,
			})
			if status != http.StatusOK {
				t.Fatalf("step %d: sim move employee: status %d", step, status)
			}
			empDept[id] = dest
		case op == 5 && len(emps) > 0:
			id := emps[rng.Intn(len(emps))]
			status, _ := doJSON(t, client, http.MethodDelete, base+"/api/v1/employees/"+id, adminToken, nil)
			if status != http.StatusNoContent {
				t.Fatalf("step %d: sim delete employee: status %d", step, status)
			}
			emps = removeFrom(emps, id)
			delete(empDept, id)
		case op <= 7:
			dept := depts[rng.Intn(len(depts))]
			status, env := doJSON(t, client, http.MethodPost, base+"/api/v1/projects", adminToken, map[string]string{
				"companyId": companyID, "departmentId": dept,
				"name":      fmt.Sprintf("proj-%d", rng.Int63()),
				"startDate": "2026-01-01", "endDate": "2026-12-31",
			})
			if status != http.StatusCreated {
				t.Fatalf("step %d: sim create project: status %d", step, status)
			}
			id := createdID(t, env)
			projs = append(projs, id)
			projDept[id] = dept
		case op == 8 && len(projs) > 0:
			id := projs[rng.Intn(len(projs))]
			status, _ := doJSON(t, client, http.MethodDelete, base+"/api/v1/projects/"+id, adminToken, nil)
			if status != http.StatusNoContent {
				t.Fatalf("step %d: sim delete project: status %d", step, status)
			}
			projs = removeFrom(projs, id)
			delete(projDept, id)
		default:
			if len(depts) < 2 {
				newDept()
				break
			}
			id := depts[rng.Intn(len(depts))]
			status, _ := doJSON(t, client, http.MethodDelete, base+"/api/v1/departments/"+id, adminToken, nil)
			if status != http.StatusNoContent {
				t.Fatalf("step %d: sim delete department: status %d", step, status)
			}
			depts = removeFrom(depts, id)
			for e, d := range empDept {
				if d == id {
					emps = removeFrom(emps, e)
					delete(empDept, e)
				}
			}
			for p, d := range projDept {
				if d == id {
					projs = removeFrom(projs, p)
					delete(projDept, p)
				}
			}
		}

		assertCountersMatchRows(t, app, companyID, fmt.Sprintf("step %d", step))
	}
}
