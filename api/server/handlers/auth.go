package handlers

import (
	"errors"
	"net/http"

	"github.com/scsonic/nexavatar/api/domain"
	"github.com/scsonic/nexavatar/api/metrics"
	"github.com/scsonic/nexavatar/api/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	AccessCode string `json:"access_code"`
}

type loginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	CodeType  string `json:"code_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Login handles POST /api/login. Failures come back as success=false
// with a user-facing message, matching what the widget expects.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.auth.Login(r.Context(), req.AccessCode, clientIP(r), r.UserAgent())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		respondJSON(w, loginResponse{Success: false, Message: "無效的序號"}, http.StatusOK)
	case errors.Is(err, domain.ErrCodeUsed):
		metrics.LoginsTotal.WithLabelValues("used").Inc()
		respondJSON(w, loginResponse{Success: false, Message: "此序號已被使用"}, http.StatusOK)
	case err != nil:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		respondError(w, "login failed", http.StatusInternalServerError)
	default:
		metrics.LoginsTotal.WithLabelValues("success").Inc()
		respondJSON(w, loginResponse{
			Success:   true,
			SessionID: sess.ID,
			CodeType:  sess.CodeType,
		}, http.StatusOK)
	}
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.auth.Logout(r.Context(), req.SessionID); err != nil {
		respondError(w, "logout failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]bool{"success": true}, http.StatusOK)
}
