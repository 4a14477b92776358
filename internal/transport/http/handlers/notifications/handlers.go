package notificationshandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"companyms/internal/domain/notifications"
	"companyms/internal/transport/http/api"
	"companyms/internal/transport/http/middleware"
	"companyms/internal/transport/http/shared"
)

type Handler struct {
	Service         *notifications.Service
	DefaultPageSize int
	MaxPageSize     int
}

func NewHandler(service *notifications.Service, defaultPageSize, maxPageSize int) *Handler {
	return &Handler{Service: service, DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	items, err := h.Service.List(r.Context(), p.UserID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "notification_list_failed", "failed to list notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	if err := h.Service.MarkRead(r.Context(), chi.URLParam(r, "notificationID"), p.UserID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "notification not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "notification read"}, middleware.GetRequestID(r.Context()))
}
