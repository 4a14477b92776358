package reviewhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"companyms/internal/domain/audit"
	"companyms/internal/domain/auth"
	"companyms/internal/domain/notifications"
	"companyms/internal/domain/review"
	"companyms/internal/transport/http/api"
	"companyms/internal/transport/http/middleware"
	"companyms/internal/transport/http/shared"
)

type Handler struct {
	Store           *review.Store
	Auth            *auth.Store
	Notify          *notifications.Service
	Audit           *audit.Service
	DefaultPageSize int
	MaxPageSize     int
}

func NewHandler(store *review.Store, authStore *auth.Store, notify *notifications.Service, auditSvc *audit.Service, defaultPageSize, maxPageSize int) *Handler {
	return &Handler{Store: store, Auth: authStore, Notify: notify, Audit: auditSvc, DefaultPageSize: defaultPageSize, MaxPageSize: maxPageSize}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	transition := middleware.RequirePermission(auth.CanTransitionReview)
	admin := middleware.RequireRole(auth.RoleAdmin)

	r.Route("/performance-reviews", func(r chi.Router) {
		r.Get("/", h.handleListReviews)
		r.With(transition).Post("/", h.handleCreateReview)
		r.Get("/{reviewID}", h.handleGetReview)
		r.With(admin).Delete("/{reviewID}", h.handleDeleteReview)

		r.With(transition).Post("/{reviewID}/schedule", h.handleSchedule)
		r.With(transition).Post("/{reviewID}/provide_feedback", h.handleProvideFeedback)
		r.With(transition).Post("/{reviewID}/submit_for_approval", h.handleSubmitForApproval)
		r.With(transition).Post("/{reviewID}/approve", h.handleApprove)
		r.With(transition).Post("/{reviewID}/reject", h.handleReject)
		r.With(transition).Post("/{reviewID}/rework_feedback", h.handleReworkFeedback)
	})
}

func (h *Handler) record(r *http.Request, actorID, action, reviewID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), actorID, action, "review", reviewID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit record failed", "err", err, "action", action)
	}
}

// notifyOwner delivers a review notification to the user linked to the
// reviewed employee, if any. Delivery failures never fail the request.
func (h *Handler) notifyOwner(r *http.Request, employeeID, ntype, title, body string) {
	if h.Notify == nil {
		return
	}
	userID, _, err := h.Store.EmployeeOwner(r.Context(), employeeID)
	if err != nil || userID == "" {
		return
	}
	if err := h.Notify.Create(r.Context(), userID, ntype, title, body); err != nil {
		slog.Warn("review notification failed", "err", err, "type", ntype)
	}
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	scope, _, err := shared.ResolveScope(r.Context(), h.Auth, p)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_list_failed", "failed to list reviews", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, h.DefaultPageSize, h.MaxPageSize)
	reviews, err := h.Store.ListReviews(r.Context(), scope, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_list_failed", "failed to list reviews", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, reviews, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	reviewID := chi.URLParam(r, "reviewID")

	scope, _, err := shared.ResolveScope(r.Context(), h.Auth, p)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_get_failed", "failed to load review", middleware.GetRequestID(r.Context()))
		return
	}

	rv, err := h.Store.GetReview(r.Context(), scope, reviewID)
	if errors.Is(err, review.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "review not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_get_failed", "failed to load review", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rv, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	var payload struct {
		EmployeeID string `json:"employeeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employee id is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, _, err := h.Store.EmployeeOwner(r.Context(), payload.EmployeeID); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}

	id, err := h.Store.CreateReview(r.Context(), payload.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_create_failed", "failed to create review", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "review.create", id, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())
	reviewID := chi.URLParam(r, "reviewID")

	err := h.Store.DeleteReview(r.Context(), reviewID)
	if errors.Is(err, review.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "review not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_delete_failed", "failed to delete review", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, p.UserID, "review.delete", reviewID, nil)
	api.NoContent(w)
}

// applyTransition funnels every lifecycle action through Store.Apply and
// maps its failure modes uniformly: unknown or out-of-scope id is 404, a
// guard rejection is 400 with the transition's own message.
func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, action string, transition func(*review.Review) error) (*review.Review, bool) {
	p, _ := middleware.GetPrincipal(r.Context())
	reviewID := chi.URLParam(r, "reviewID")

	scope, _, err := shared.ResolveScope(r.Context(), h.Auth, p)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_transition_failed", "failed to update review", middleware.GetRequestID(r.Context()))
		return nil, false
	}

	rv, err := h.Store.Apply(r.Context(), scope, reviewID, transition)
	if errors.Is(err, review.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "review not found", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	var invalid *review.InvalidTransitionError
	if errors.As(err, &invalid) {
		slog.Error("invalid review transition", "op", invalid.Op, "state", invalid.Current, "reviewId", reviewID, "actorId", p.UserID)
		api.Fail(w, http.StatusBadRequest, "invalid_transition", invalid.Error(), middleware.GetRequestID(r.Context()))
		return nil, false
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_transition_failed", "failed to update review", middleware.GetRequestID(r.Context()))
		return nil, false
	}

	h.record(r, p.UserID, action, reviewID, map[string]string{"state": string(rv.State())})
	return rv, true
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ReviewDate string `json:"reviewDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	date, _ := v.Date("reviewDate", payload.ReviewDate)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rv, ok := h.applyTransition(w, r, "review.schedule", func(rev *review.Review) error {
		return rev.Schedule(date)
	})
	if !ok {
		return
	}
	h.notifyOwner(r, rv.EmployeeID, notifications.TypeReviewScheduled, "Performance review scheduled", "Your performance review has been scheduled for "+date.Format("2006-01-02")+".")
	api.Success(w, map[string]string{"status": "Review scheduled"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleProvideFeedback(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FeedbackText string `json:"feedbackText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("feedbackText", payload.FeedbackText, "feedback text is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, ok := h.applyTransition(w, r, "review.provide_feedback", func(rev *review.Review) error {
		return rev.ProvideFeedback(payload.FeedbackText)
	}); !ok {
		return
	}
	api.Success(w, map[string]string{"status": "Feedback provided"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitForApproval(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.applyTransition(w, r, "review.submit_for_approval", func(rev *review.Review) error {
		return rev.SubmitForApproval()
	}); !ok {
		return
	}
	api.Success(w, map[string]string{"status": "Submitted for approval"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	rv, ok := h.applyTransition(w, r, "review.approve", func(rev *review.Review) error {
		return rev.Approve()
	})
	if !ok {
		return
	}
	h.notifyOwner(r, rv.EmployeeID, notifications.TypeReviewApproved, "Performance review approved", "Your performance review has been approved.")
	api.Success(w, map[string]string{"status": "Review approved"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FeedbackText string `json:"feedbackText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("feedbackText", payload.FeedbackText, "rejection feedback is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rv, ok := h.applyTransition(w, r, "review.reject", func(rev *review.Review) error {
		return rev.Reject(payload.FeedbackText)
	})
	if !ok {
		return
	}
	h.notifyOwner(r, rv.EmployeeID, notifications.TypeReviewRejected, "Performance review rejected", "Your performance review was rejected and requires reworked feedback.")
	api.Success(w, map[string]string{"status": "Review rejected, feedback required"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReworkFeedback(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FeedbackText string `json:"feedbackText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("feedbackText", payload.FeedbackText, "reworked feedback is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if _, ok := h.applyTransition(w, r, "review.rework_feedback", func(rev *review.Review) error {
		return rev.Rework(payload.FeedbackText)
	}); !ok {
		return
	}
	api.Success(w, map[string]string{"status": "Feedback updated"}, middleware.GetRequestID(r.Context()))
}
