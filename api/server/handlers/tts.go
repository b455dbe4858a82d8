package handlers

import (
	"net/http"
	"time"

	"github.com/scsonic/nexavatar/api/metrics"
	"github.com/scsonic/nexavatar/api/services"
)

type TTSHandler struct {
	tts *services.TTSService
}

func NewTTSHandler(tts *services.TTSService) *TTSHandler {
	return &TTSHandler{tts: tts}
}

type ttsRequest struct {
	Text      string `json:"text"`
	Voice     string `json:"voice"`
	SessionID string `json:"session_id"`
}

// Synthesize handles POST /api/tts.
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		respondError(w, "text is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := h.tts.Synthesize(r.Context(), req.Text, req.Voice)
	metrics.TTSRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		respondError(w, "speech synthesis failed", http.StatusInternalServerError)
		return
	}
	respondJSON(w, res, http.StatusOK)
}

// Voices handles GET /api/voices.
func (h *TTSHandler) Voices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"voices":  services.Voices,
		"default": h.tts.DefaultVoice(),
	}, http.StatusOK)
}
