package audithandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"companyms/internal/domain/audit"
	"companyms/internal/domain/auth"
	"companyms/internal/transport/http/api"
	"companyms/internal/transport/http/middleware"
	"companyms/internal/transport/http/shared"
)

type Handler struct {
	Service         *audit.Service
	DefaultPageSize int
	MaxPageSize     int
}

func NewHandler(service *audit.Service, defaultPageSize, maxPageSize int) *Handler {
	return &Handler{Service: service, DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
		ActorID:    r.URL.Query().Get("actorId"),
	}

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	events, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"total": total, "events": events}, middleware.GetRequestID(r.Context()))
}
