package projecthandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"companyms/internal/domain/audit"
	"companyms/internal/domain/auth"
	"companyms/internal/domain/org"
	"companyms/internal/domain/project"
	"companyms/internal/transport/http/api"
	"companyms/internal/transport/http/middleware"
	"companyms/internal/transport/http/shared"
)

type Handler struct {
	Store           *project.Store
	Auth            *auth.Store
	Audit           *audit.Service
	DefaultPageSize int
	MaxPageSize     int
}

func NewHandler(store *project.Store, authStore *auth.Store, auditSvc *audit.Service, defaultPageSize, maxPageSize int) *Handler {
	return &Handler{Store: store, Auth: authStore, Audit: auditSvc, DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	write := middleware.RequirePermission(auth.CanWriteProject)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.handleListProjects)
		r.With(write).Post("/", h.handleCreateProject)
		r.Get("/{projectID}", h.handleGetProject)
		r.With(write).Put("/{projectID}", h.handleUpdateProject)
		r.With(write).Delete("/{projectID}", h.handleDeleteProject)
		r.With(write).Post("/{projectID}/employees/{employeeID}", h.handleAssignEmployee)
		r.With(write).Delete("/{projectID}/employees/{employeeID}", h.handleUnassignEmployee)
	})
}

func (h *Handler) record(r *http.Request, actorID, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, "project", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "err", err, "action", action)
	}
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	scope, _, err := shared.ResolveScope(r.Context(), h.Auth, p)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_list_failed", "failed to list projects", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	projects, err := h.Store.ListProjects(r.Context(), scope, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_list_failed", "failed to list projects", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, projects, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	projectID := chi.URLParam(r, "projectID")

	scope, _, err := shared.ResolveScope(r.Context(), h.Auth, p)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_get_failed", "failed to load project", middleware.GetRequestID(r.Context()))
		return
	}

	proj, err := h.Store.GetProject(r.Context(), scope, projectID)
	if errors.Is(err, project.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "project not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_get_failed", "failed to load project", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, proj, middleware.GetRequestID(r.Context()))
}

type projectRequest struct {
	CompanyID    string `json:"companyId"`
	DepartmentID string `json:"departmentId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	var payload projectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("companyId", payload.CompanyID, "company id is required")
	v.Required("departmentId", payload.DepartmentID, "department id is required")
	v.Required("name", payload.Name, "project name is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Store.CreateProject(r.Context(), project.Project{
		CompanyID:    payload.CompanyID,
		DepartmentID: payload.DepartmentID,
		Name:         payload.Name,
		Description:  payload.Description,
		StartDate:    start,
		EndDate:      end,
	})
	if errors.Is(err, org.ErrNotFound) || errors.Is(err, project.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "company or department not found", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, org.ErrDepartmentCompanyMismatch) {
		api.Fail(w, http.StatusBadRequest, "department_mismatch", "department does not belong to the company", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_create_failed", "failed to create project", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "project.create", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

// handleUpdateProject edits descriptive fields only. The owning company and
// department are fixed at creation.
func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	projectID := chi.URLParam(r, "projectID")

	var payload projectRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "project name is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	err := h.Store.UpdateProject(r.Context(), projectID, project.Project{
		Name:        payload.Name,
		Description: payload.Description,
		StartDate:   start,
		EndDate:     end,
	})
	if errors.Is(err, project.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "project not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_update_failed", "failed to update project", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "project.update", projectID, nil, payload)
	api.Success(w, map[string]string{"status": "project updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	projectID := chi.URLParam(r, "projectID")

	err := h.Store.DeleteProject(r.Context(), projectID)
	if errors.Is(err, project.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "project not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_delete_failed", "failed to delete project", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "project.delete", projectID, nil, nil)
	api.NoContent(w)
}

func (h *Handler) handleAssignEmployee(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	projectID := chi.URLParam(r, "projectID")
	employeeID := chi.URLParam(r, "employeeID")

	err := h.Store.AssignEmployee(r.Context(), projectID, employeeID)
	if errors.Is(err, project.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "project or employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_assign_failed", "failed to assign employee", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "project.assign", projectID, nil, map[string]string{"employeeId": employeeID})
	api.Success(w, map[string]string{"status": "employee assigned"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUnassignEmployee(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	projectID := chi.URLParam(r, "projectID")
	employeeID := chi.URLParam(r, "employeeID")

	err := h.Store.UnassignEmployee(r.Context(), projectID, employeeID)
	if errors.Is(err, project.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "project or employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "project_unassign_failed", "failed to unassign employee", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "project.unassign", projectID, nil, map[string]string{"employeeId": employeeID})
	api.Success(w, map[string]string{"status": "employee unassigned"}, middleware.GetRequestID(r.Context()))
}
