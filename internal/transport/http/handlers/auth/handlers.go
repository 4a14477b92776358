package authhandler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"companyms/internal/domain/auth"
	"companyms/internal/domain/org"
	"companyms/internal/transport/http/api"
	"companyms/internal/transport/http/middleware"
)

const tokenTTL = 8 * time.Hour

type Handler struct {
	Auth   *auth.Store
	Org    *org.Store
	Secret string
}

func NewHandler(authStore *auth.Store, orgStore *org.Store, secret string) *Handler {
	return &Handler{Auth: authStore, Org: orgStore, Secret: secret}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/request-reset", h.handleRequestReset)
	r.Post("/auth/reset", h.handleResetPassword)
	r.With(middleware.RequireAuthenticated).Get("/me", h.handleMe)
	r.With(middleware.RequireAuthenticated).Get("/profile", h.handleMe)
	r.With(middleware.RequireAuthenticated).Put("/profile", h.handleUpdateProfile)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	user, err := h.Auth.FindUserByEmail(r.Context(), payload.Email)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}

	sessionID, err := randomToken()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Auth.CreateSession(r.Context(), user.ID, auth.HashToken(sessionID), time.Now().Add(tokenTTL)); err != nil {
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to start session", middleware.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{UserID: user.ID, Role: string(user.Role), SessionID: sessionID}, tokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]string{
		"token":  token,
		"userId": user.ID,
		"role":   string(user.Role),
	}, middleware.GetRequestID(r.Context()))
}

// handleLogout revokes the session carried in the caller's own token; no
// body is needed. Subsequent requests with the same token fail the session
// check in the auth middleware.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if p.SessionID != "" {
		if err := h.Auth.RevokeSession(r.Context(), p.UserID, auth.HashToken(p.SessionID)); err != nil {
			slog.Warn("session revoke failed", "err", err, "userId", p.UserID)
		}
	}
	api.Success(w, map[string]string{"status": "logged out"}, middleware.GetRequestID(r.Context()))
}

type resetRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var payload resetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "email required", middleware.GetRequestID(r.Context()))
		return
	}

	// The response never reveals whether the email exists.
	userID, err := h.Auth.UserIDByEmail(r.Context(), payload.Email)
	if err == nil {
		token, tokenErr := randomToken()
		if tokenErr == nil {
			if err := h.Auth.CreatePasswordReset(r.Context(), userID, auth.HashToken(token), time.Now().Add(time.Hour)); err != nil {
				slog.Warn("password reset create failed", "err", err)
			} else {
				slog.Info("password reset issued", "userId", userID)
			}
		}
	}
	api.Success(w, map[string]string{"status": "reset requested"}, middleware.GetRequestID(r.Context()))
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Token == "" || len(payload.NewPassword) < 8 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "token and a password of at least 8 characters are required", middleware.GetRequestID(r.Context()))
		return
	}

	tokenHash := auth.HashToken(payload.Token)
	userID, err := h.Auth.PasswordResetUserID(r.Context(), tokenHash)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_token", "reset token is invalid or expired", middleware.GetRequestID(r.Context()))
		return
	}

	hash, err := auth.HashPassword(payload.NewPassword)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "reset_failed", "failed to reset password", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Auth.UpdateUserPassword(r.Context(), userID, hash); err != nil {
		api.Fail(w, http.StatusInternalServerError, "reset_failed", "failed to reset password", middleware.GetRequestID(r.Context()))
		return
	}
	if err := h.Auth.MarkPasswordResetUsed(r.Context(), tokenHash); err != nil {
		slog.Warn("reset token mark used failed", "err", err)
	}
	api.Success(w, map[string]string{"status": "password updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	user, err := h.Auth.FindUserByID(r.Context(), p.UserID)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var employee *org.Employee
	link, err := h.Auth.EmployeeLinkByUserID(r.Context(), p.UserID)
	if err != nil && !errors.Is(err, auth.ErrNoEmployeeLink) {
		api.Fail(w, http.StatusInternalServerError, "lookup_failed", "failed to load profile", middleware.GetRequestID(r.Context()))
		return
	}
	if link != nil {
		employee, err = h.Org.GetEmployee(r.Context(), org.ScopeSelf(link.EmployeeID), link.EmployeeID)
		if err != nil {
			slog.Warn("employee profile load failed", "err", err, "userId", p.UserID)
		}
	}

	api.Success(w, map[string]any{
		"user": map[string]string{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
			"role":     string(user.Role),
		},
		"employee": employee,
	}, middleware.GetRequestID(r.Context()))
}

type profileRequest struct {
	Mobile  string `json:"mobile"`
	Address string `json:"address"`
}

// handleUpdateProfile lets a principal edit the contact fields of their own
// employee record. Designation, department, and hire date stay admin-managed.
func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.GetPrincipal(r.Context())

	var payload profileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	link, err := h.Auth.EmployeeLinkByUserID(r.Context(), p.UserID)
	if errors.Is(err, auth.ErrNoEmployeeLink) {
		api.Fail(w, http.StatusNotFound, "not_found", "no employee profile", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "lookup_failed", "failed to load profile", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Org.UpdateEmployeeContact(r.Context(), link.EmployeeID, payload.Mobile, payload.Address); err != nil {
		api.Fail(w, http.StatusInternalServerError, "update_failed", "failed to update profile", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{"status": "profile updated"}, middleware.GetRequestID(r.Context()))
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
