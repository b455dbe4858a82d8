package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/scsonic/nexavatar/api/domain"
	"github.com/scsonic/nexavatar/api/services"
)

type chatLogLister interface {
	ListChatLogs(ctx context.Context, accessCode string, limit int) ([]*domain.ChatLog, error)
}

// AdminHandler exposes access code and chat log management. Every
// request must carry the configured admin code, GETs as the admin_code
// query parameter, POSTs in the JSON body.
type AdminHandler struct {
	auth      *services.AuthService
	logs      chatLogLister
	adminCode string
}

func NewAdminHandler(auth *services.AuthService, logs chatLogLister, adminCode string) *AdminHandler {
	return &AdminHandler{auth: auth, logs: logs, adminCode: adminCode}
}

func (h *AdminHandler) authorized(code string) bool {
	if h.adminCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(h.adminCode)) == 1
}

func (h *AdminHandler) deny(w http.ResponseWriter) {
	respondJSON(w, map[string]any{"success": false, "message": "無效的管理員序號"}, http.StatusUnauthorized)
}

// ListCodes handles GET /api/admin/codes.
func (h *AdminHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.URL.Query().Get("admin_code")) {
		h.deny(w)
		return
	}

	codes, err := h.auth.ListCodes(r.Context())
	if err != nil {
		respondError(w, "failed to list codes", http.StatusInternalServerError)
		return
	}
	if codes == nil {
		codes = []*domain.AccessCode{}
	}
	respondJSON(w, map[string]any{"success": true, "codes": codes}, http.StatusOK)
}

type generateCodeRequest struct {
	AdminCode   string `json:"admin_code"`
	CodeType    string `json:"code_type"`
	Description string `json:"description"`
}

// GenerateCode handles POST /api/admin/generate-code.
func (h *AdminHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	var req generateCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.authorized(req.AdminCode) {
		h.deny(w)
		return
	}
	if req.CodeType != domain.CodePermanent {
		req.CodeType = domain.CodeOneTime
	}

	code, err := h.auth.GenerateCode(r.Context(), req.CodeType, req.Description)
	if err != nil {
		respondJSON(w, map[string]any{"success": false, "message": "生成失敗，請稍後再試"}, http.StatusOK)
		return
	}
	respondJSON(w, map[string]any{"success": true, "code": code.Code}, http.StatusOK)
}

type customCodeRequest struct {
	AdminCode   string `json:"admin_code"`
	CustomCode  string `json:"custom_code"`
	CodeType    string `json:"code_type"`
	Description string `json:"description"`
}

// CreateCustomCode handles POST /api/admin/create-custom-code.
func (h *AdminHandler) CreateCustomCode(w http.ResponseWriter, r *http.Request) {
	var req customCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.authorized(req.AdminCode) {
		h.deny(w)
		return
	}
	if req.CodeType != domain.CodePermanent {
		req.CodeType = domain.CodeOneTime
	}

	code, err := h.auth.CreateCustomCode(r.Context(), req.CustomCode, req.CodeType, req.Description)
	if err != nil {
		respondJSON(w, map[string]any{"success": false, "message": "序號無效或已存在"}, http.StatusOK)
		return
	}
	respondJSON(w, map[string]any{"success": true, "code": code.Code}, http.StatusOK)
}

type resetCodeRequest struct {
	AdminCode   string `json:"admin_code"`
	CodeToReset string `json:"code_to_reset"`
}

// ResetCode handles POST /api/admin/reset-code.
func (h *AdminHandler) ResetCode(w http.ResponseWriter, r *http.Request) {
	var req resetCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.authorized(req.AdminCode) {
		h.deny(w)
		return
	}

	if err := h.auth.ResetCode(r.Context(), req.CodeToReset); err != nil {
		respondJSON(w, map[string]any{"success": false, "message": "找不到該序號"}, http.StatusOK)
		return
	}
	respondJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

type deleteCodeRequest struct {
	AdminCode    string `json:"admin_code"`
	CodeToDelete string `json:"code_to_delete"`
}

// DeleteCode handles POST /api/admin/delete-code.
func (h *AdminHandler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	var req deleteCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.authorized(req.AdminCode) {
		h.deny(w)
		return
	}

	if err := h.auth.DeleteCode(r.Context(), req.CodeToDelete); err != nil {
		respondJSON(w, map[string]any{"success": false, "message": "找不到該序號"}, http.StatusOK)
		return
	}
	respondJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

type logEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id"`
	AccessCode  string    `json:"access_code"`
	Brand       string    `json:"brand"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
}

func (h *AdminHandler) fetchLogs(r *http.Request) ([]logEntry, error) {
	limit := parseIntQuery(r, "limit", 500)
	logs, err := h.logs.ListChatLogs(r.Context(), r.URL.Query().Get("access_code"), limit)
	if err != nil {
		return nil, err
	}

	entries := make([]logEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, logEntry{
			Timestamp:   l.CreatedAt,
			SessionID:   l.SessionID,
			AccessCode:  l.AccessCode,
			Brand:       l.Brand,
			IPAddress:   l.IPAddress,
			UserAgent:   l.UserAgent,
			UserMessage: l.UserMessage,
			BotResponse: l.BotResponse,
		})
	}
	return entries, nil
}

// ListLogs handles GET /api/admin/logs.
func (h *AdminHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.URL.Query().Get("admin_code")) {
		h.deny(w)
		return
	}

	entries, err := h.fetchLogs(r)
	if err != nil {
		respondError(w, "failed to list logs", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"success": true, "logs": entries}, http.StatusOK)
}

// ExportLogs handles GET /api/admin/logs/export, streaming the chat
// logs as a UTF-8 CSV with a BOM so spreadsheets open it correctly.
func (h *AdminHandler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.URL.Query().Get("admin_code")) {
		h.deny(w)
		return
	}

	entries, err := h.fetchLogs(r)
	if err != nil {
		respondError(w, "failed to export logs", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("chat_logs_%s.csv", time.Now().Format("2006-01-02_15-04-05"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write([]byte("\uFEFF"))

	cw := csv.NewWriter(w)
	cw.Write([]string{"時間", "序號", "品牌", "IP地址", "用戶代理", "用戶訊息", "AI回應"})
	for _, e := range entries {
		cw.Write([]string{
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.AccessCode,
			e.Brand,
			e.IPAddress,
			e.UserAgent,
			e.UserMessage,
			e.BotResponse,
		})
	}
	cw.Flush()
}
