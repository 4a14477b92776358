package orghandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"companyms/internal/domain/audit"
	"companyms/internal/domain/auth"
	"companyms/internal/domain/org"
	"companyms/internal/transport/http/api"
	"companyms/internal/transport/http/middleware"
	"companyms/internal/transport/http/shared"
)

type Handler struct {
	Store           *org.Store
	Auth            *auth.Store
	Audit           *audit.Service
	DefaultPageSize int
	MaxPageSize     int
}

func NewHandler(store *org.Store, authStore *auth.Store, auditSvc *audit.Service, defaultPageSize, maxPageSize int) *Handler {
	return &Handler{Store: store, Auth: authStore, Audit: auditSvc, DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	companyWrite := middleware.RequirePermission(auth.CanWriteCompany)
	departmentWrite := middleware.RequirePermission(auth.CanWriteDepartment)
	employeeCreate := middleware.RequirePermission(auth.CanCreateEmployee)

	r.Route("/companies", func(r chi.Router) {
		r.Get("/", h.handleListCompanies)
		r.With(companyWrite).Post("/", h.handleCreateCompany)
		r.Get("/{companyID}", h.handleGetCompany)
		r.With(companyWrite).Put("/{companyID}", h.handleUpdateCompany)
		r.With(companyWrite).Delete("/{companyID}", h.handleDeleteCompany)
		r.Get("/{companyID}/departments", h.handleListDepartments)
		r.With(departmentWrite).Post("/{companyID}/departments", h.handleCreateDepartment)
	})

	r.Route("/departments", func(r chi.Router) {
		r.Get("/{departmentID}", h.handleGetDepartment)
		r.With(departmentWrite).Put("/{departmentID}", h.handleUpdateDepartment)
		r.With(departmentWrite).Delete("/{departmentID}", h.handleDeleteDepartment)
	})

	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.handleListEmployees)
		r.With(employeeCreate).Post("/", h.handleCreateEmployee)
		r.Get("/{employeeID}", h.handleGetEmployee)
		r.Put("/{employeeID}", h.handleUpdateEmployee)
		r.Delete("/{employeeID}", h.handleDeleteEmployee)
	})
}

func (h *Handler) record(r *http.Request, actorID, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "err", err, "action", action)
	}
}

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	companies, err := h.Store.ListCompanies(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_list_failed", "failed to list companies", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, companies, middleware.GetRequestID(r.Context()))
}

type companyRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	var payload companyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "company name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateCompany(r.Context(), payload.Name)
	if errors.Is(err, org.ErrDuplicateName) {
		api.Fail(w, http.StatusBadRequest, "validation_error", "a company with this name already exists", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_create_failed", "failed to create company", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "company.create", "company", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.Store.GetCompany(r.Context(), chi.URLParam(r, "companyID"))
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "company not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_get_failed", "failed to load company", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, company, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	companyID := chi.URLParam(r, "companyID")

	var payload companyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "company name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Store.UpdateCompany(r.Context(), companyID, payload.Name)
	if errors.Is(err, org.ErrDuplicateName) {
		api.Fail(w, http.StatusBadRequest, "validation_error", "a company with this name already exists", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "company not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_update_failed", "failed to update company", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "company.update", "company", companyID, nil, payload)
	api.Success(w, map[string]string{"status": "company updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	companyID := chi.URLParam(r, "companyID")

	err := h.Store.DeleteCompany(r.Context(), companyID)
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "company not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_delete_failed", "failed to delete company", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "company.delete", "company", companyID, nil, nil)
	api.NoContent(w)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	departments, err := h.Store.ListDepartments(r.Context(), chi.URLParam(r, "companyID"), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

type departmentRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	companyID := chi.URLParam(r, "companyID")

	var payload departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "department name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateDepartment(r.Context(), companyID, payload.Name)
	if errors.Is(err, org.ErrDuplicateName) {
		api.Fail(w, http.StatusBadRequest, "validation_error", "a department with this name already exists in the company", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "company not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_create_failed", "failed to create department", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "department.create", "department", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	department, err := h.Store.GetDepartment(r.Context(), chi.URLParam(r, "departmentID"))
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "department not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_get_failed", "failed to load department", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, department, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	var payload departmentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "department name is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Store.UpdateDepartment(r.Context(), departmentID, payload.Name)
	if errors.Is(err, org.ErrDuplicateName) {
		api.Fail(w, http.StatusBadRequest, "validation_error", "a department with this name already exists in the company", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "department not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_update_failed", "failed to update department", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "department.update", "department", departmentID, nil, payload)
	api.Success(w, map[string]string{"status": "department updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	err := h.Store.DeleteDepartment(r.Context(), departmentID)
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "department not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_delete_failed", "failed to delete department", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "department.delete", "department", departmentID, nil, nil)
	api.NoContent(w)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	scope, _, err := shared.ResolveScope(r.Context(), h.Auth, p)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	employees, err := h.Store.ListEmployees(r.Context(), scope, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

type employeeRequest struct {
	UserID       string `json:"userId"`
	CompanyID    string `json:"companyId"`
	DepartmentID string `json:"departmentId"`
	Mobile       string `json:"mobile"`
	Address      string `json:"address"`
	Designation  string `json:"designation"`
	HiredOn      string `json:"hiredOn"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("companyId", payload.CompanyID, "company id is required")
	v.Required("departmentId", payload.DepartmentID, "department id is required")
	var hiredOn *time.Time
	if payload.HiredOn != "" {
		if parsed, ok := v.Date("hiredOn", payload.HiredOn); ok {
			hiredOn = &parsed
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateEmployee(r.Context(), org.Employee{
		UserID:       payload.UserID,
		CompanyID:    payload.CompanyID,
		DepartmentID: payload.DepartmentID,
		Mobile:       payload.Mobile,
		Address:      payload.Address,
		Designation:  payload.Designation,
		HiredOn:      hiredOn,
	})
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "company or department not found", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, org.ErrDepartmentCompanyMismatch) {
		api.Fail(w, http.StatusBadRequest, "department_mismatch", "department does not belong to the company", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "employee.create", "employee", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

// loadEmployeeObject fetches the target record and applies the object-level
// read rule. A record the caller may not read reports as not found so its
// existence is not leaked.
func (h *Handler) loadEmployeeObject(w http.ResponseWriter, r *http.Request, employeeID string) (*org.Employee, *auth.EmployeeLink, bool) {
	p, _ := middleware.GetPrincipal(r.Context())

	_, link, err := shared.ResolveScope(r.Context(), h.Auth, p)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return nil, nil, false
	}

	employee, err := h.Store.GetEmployee(r.Context(), org.ScopeAll(), employeeID)
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return nil, nil, false
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return nil, nil, false
	}

	obj := auth.EmployeeObject{OwnerUserID: employee.UserID, DepartmentID: employee.DepartmentID}
	if !auth.CanReadEmployeeObject(p, link, obj) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return nil, nil, false
	}
	return employee, link, true
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employee, _, ok := h.loadEmployeeObject(w, r, chi.URLParam(r, "employeeID"))
	if !ok {
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

// loadEmployeeForWrite layers the object write rule on top of the read
// rule: an unreadable record is 404, a readable but unwritable one is 403.
func (h *Handler) loadEmployeeForWrite(w http.ResponseWriter, r *http.Request, employeeID string) (*org.Employee, bool) {
	employee, link, ok := h.loadEmployeeObject(w, r, employeeID)
	if !ok {
		return nil, false
	}

	p, _ := middleware.GetPrincipal(r.Context())
	obj := auth.EmployeeObject{OwnerUserID: employee.UserID, DepartmentID: employee.DepartmentID}
	if !auth.CanWriteEmployeeObject(p, link, obj) {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	return employee, true
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	before, ok := h.loadEmployeeForWrite(w, r, employeeID)
	if !ok {
		return
	}

	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	var hiredOn *time.Time
	if payload.HiredOn != "" {
		if parsed, ok := v.Date("hiredOn", payload.HiredOn); ok {
			hiredOn = &parsed
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Store.UpdateEmployee(r.Context(), employeeID, org.Employee{
		DepartmentID: payload.DepartmentID,
		Mobile:       payload.Mobile,
		Address:      payload.Address,
		Designation:  payload.Designation,
		HiredOn:      hiredOn,
	})
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee or department not found", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, org.ErrDepartmentCompanyMismatch) {
		api.Fail(w, http.StatusBadRequest, "department_mismatch", "department does not belong to the company", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "employee.update", "employee", employeeID, before, payload)
	api.Success(w, map[string]string{"status": "employee updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	before, ok := h.loadEmployeeForWrite(w, r, employeeID)
	if !ok {
		return
	}

	err := h.Store.DeleteEmployee(r.Context(), employeeID)
	if errors.Is(err, org.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_delete_failed", "failed to delete employee", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "employee.delete", "employee", employeeID, before, nil)
	api.NoContent(w)
}
