package handlers

import (
	"net/http"
	"time"

	"github.com/scsonic/nexavatar/api/brand"
	"github.com/scsonic/nexavatar/api/domain"
	"github.com/scsonic/nexavatar/api/metrics"
	"github.com/scsonic/nexavatar/api/services"
)

type ChatHandler struct {
	chat   *services.ChatService
	tts    *services.TTSService
	auth   *services.AuthService
	brands *brand.Registry
}

func NewChatHandler(chat *services.ChatService, tts *services.TTSService, auth *services.AuthService, brands *brand.Registry) *ChatHandler {
	return &ChatHandler{chat: chat, tts: tts, auth: auth, brands: brands}
}

type chatRequest struct {
	Message   string `json:"message"`
	Model     string `json:"model"`
	SessionID string `json:"session_id"`
	Brand     string `json:"brand"`
	Voice     string `json:"voice"`
}

// resolveSession enforces the brand's auth requirement. It returns the
// session when one is valid, nil when the brand allows anonymous use,
// and false when the caller must log in again.
func (h *ChatHandler) resolveSession(w http.ResponseWriter, r *http.Request, req chatRequest) (*domain.Session, bool) {
	b := h.brands.Get(req.Brand)
	if !b.RequireAuth {
		if req.SessionID == "" {
			return nil, true
		}
		// Best effort: attribute the chat to the session when it resolves.
		sess, err := h.auth.ValidateSession(r.Context(), req.SessionID)
		if err != nil {
			return nil, true
		}
		return sess, true
	}

	sess, err := h.auth.ValidateSession(r.Context(), req.SessionID)
	if err != nil {
		respondError(w, "會話無效或已過期，請重新登入", http.StatusUnauthorized)
		return nil, false
	}
	return sess, true
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, ok := h.resolveSession(w, r, req)
	if !ok {
		return
	}

	res, err := h.chat.Reply(r.Context(), h.toServiceRequest(r, req, sess))
	if err != nil {
		respondError(w, "chat failed", http.StatusInternalServerError)
		return
	}

	metrics.ChatRequestsTotal.WithLabelValues(h.brands.Get(req.Brand).ID, req.Model).Inc()
	respondJSON(w, res, http.StatusOK)
}

type chatTTSResponse struct {
	Response       string `json:"response"`
	OriginalLength int    `json:"original_length"`
	Truncated      bool   `json:"truncated"`
	AudioData      string `json:"audio_data,omitempty"`
	TTSSuccess     bool   `json:"tts_success"`
}

// ChatTTS handles POST /api/chat-tts, answering and speaking in one
// round trip. A failed synthesis still returns the text reply.
func (h *ChatHandler) ChatTTS(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, ok := h.resolveSession(w, r, req)
	if !ok {
		return
	}

	res, err := h.chat.Reply(r.Context(), h.toServiceRequest(r, req, sess))
	if err != nil {
		respondError(w, "chat failed", http.StatusInternalServerError)
		return
	}
	metrics.ChatRequestsTotal.WithLabelValues(h.brands.Get(req.Brand).ID, req.Model).Inc()

	out := chatTTSResponse{
		Response:       res.Response,
		OriginalLength: res.OriginalLength,
		Truncated:      res.Truncated,
	}

	if h.tts.Configured() {
		start := time.Now()
		speech, err := h.tts.Synthesize(r.Context(), res.Response, req.Voice)
		metrics.TTSRequestDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			out.AudioData = speech.AudioData
			out.TTSSuccess = true
		}
	}

	respondJSON(w, out, http.StatusOK)
}

// Models handles GET /api/models.
func (h *ChatHandler) Models(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"models":  services.Models,
		"default": h.chat.DefaultModel(),
	}, http.StatusOK)
}

func (h *ChatHandler) toServiceRequest(r *http.Request, req chatRequest, sess *domain.Session) services.ChatRequest {
	out := services.ChatRequest{
		Message:   req.Message,
		Model:     req.Model,
		BrandID:   req.Brand,
		SessionID: req.SessionID,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if sess != nil {
		out.SessionID = sess.ID
		out.AccessCode = sess.AccessCode
	}
	return out
}
