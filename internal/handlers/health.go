package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is anything that can report its own liveness.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	postgres HealthChecker
	redis    HealthChecker
}

func NewHealthHandler(postgres, redis HealthChecker) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}

	if h.postgres != nil {
		if err := h.postgres.Health(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, HealthResponse{Status: overall, Services: checks})
}
