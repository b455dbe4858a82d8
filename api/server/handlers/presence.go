package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/scsonic/nexavatar/api/metrics"
)

// PresenceHandler tracks which widget instances are currently open.
// Entries idle past the TTL are swept so lost disconnect beacons do not
// pin the gauge.
type PresenceHandler struct {
	mu     sync.Mutex
	online map[string]time.Time
	ttl    time.Duration
}

func NewPresenceHandler(ttl time.Duration) *PresenceHandler {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PresenceHandler{online: make(map[string]time.Time), ttl: ttl}
}

type presenceRequest struct {
	UUID string `json:"uuid"`
}

// Connect handles POST /user/connect.
func (h *PresenceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UUID == "" {
		respondError(w, "uuid is required", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.sweepLocked()
	h.online[req.UUID] = time.Now()
	count := len(h.online)
	h.mu.Unlock()

	metrics.UsersOnline.Set(float64(count))
	respondJSON(w, map[string]any{"success": true, "online": count}, http.StatusOK)
}

// Disconnect handles POST /user/disconnect.
func (h *PresenceHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req presenceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.mu.Lock()
	delete(h.online, req.UUID)
	h.sweepLocked()
	count := len(h.online)
	h.mu.Unlock()

	metrics.UsersOnline.Set(float64(count))
	respondJSON(w, map[string]any{"success": true, "online": count}, http.StatusOK)
}

// Online reports the current connection count.
func (h *PresenceHandler) Online() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepLocked()
	return len(h.online)
}

func (h *PresenceHandler) sweepLocked() {
	cutoff := time.Now().Add(-h.ttl)
	for uuid, seen := range h.online {
		if seen.Before(cutoff) {
			delete(h.online, uuid)
		}
	}
}
