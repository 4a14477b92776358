package reportshandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"companyms/internal/domain/auth"
	"companyms/internal/domain/reports"
	"companyms/internal/transport/http/api"
	"companyms/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(service *reports.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	staff := middleware.RequireRole(auth.RoleAdmin, auth.RoleManager)

	r.Route("/reports", func(r chi.Router) {
		r.With(staff).Get("/companies/{companyID}/summary", h.handleCompanySummary)
		r.With(staff).Get("/companies/{companyID}/summary.pdf", h.handleCompanySummaryPDF)
	})
}

func (h *Handler) handleCompanySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.CompanySummary(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "company not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCompanySummaryPDF(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.Service.CompanySummaryPDF(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "company not found", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="company-summary.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
