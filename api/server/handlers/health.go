package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/scsonic/nexavatar/shared/circuit"
)

type HealthHandler struct {
	dbPing func(context.Context) error
	tts    *circuit.Breaker
}

type HealthHandlerConfig struct {
	DBPing     func(context.Context) error
	TTSBreaker *circuit.Breaker
}

func NewHealthHandler(cfg HealthHandlerConfig) *HealthHandler {
	return &HealthHandler{
		dbPing: cfg.DBPing,
		tts:    cfg.TTSBreaker,
	}
}

// HealthStatus represents the overall health status response.
type HealthStatus struct {
	Status     string               `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp  time.Time            `json:"timestamp"`
	Components map[string]Component `json:"components"`
}

// Component represents a single component's health status.
type Component struct {
	Status  string `json:"status"` // "healthy", "unhealthy"
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// Health handles GET /health/full
// This endpoint checks all service dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := HealthStatus{
		Timestamp:  time.Now().UTC(),
		Status:     "healthy",
		Components: make(map[string]Component),
	}

	if h.dbPing != nil {
		start := time.Now()
		err := h.dbPing(ctx)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			status.Components["database"] = Component{
				Status:  "unhealthy",
				Message: err.Error(),
				Latency: latency,
			}
			status.Status = "unhealthy"
		} else {
			status.Components["database"] = Component{
				Status:  "healthy",
				Latency: latency,
			}
		}
	}

	if h.tts != nil {
		// The speech backend is not critical, an open breaker only degrades.
		if state := h.tts.State(); state == circuit.StateOpen {
			status.Components["tts"] = Component{
				Status:  "unhealthy",
				Message: "circuit breaker open",
			}
			if status.Status == "healthy" {
				status.Status = "degraded"
			}
		} else {
			status.Components["tts"] = Component{Status: "healthy"}
		}
	}

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(status)
}

// Readiness handles GET /health/ready
// This is a lightweight check for load balancer health checks.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Liveness handles GET /health/live
// This is a minimal check that the service is running.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}
