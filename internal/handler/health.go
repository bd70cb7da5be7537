package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ready(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Liveness handles GET /health. It confirms the process is serving.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type dependencyStatus struct {
	Status string `json:"status"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness handles GET /health/ready. It pings the database.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := readinessResponse{
		Status:       "ok",
		Dependencies: map[string]dependencyStatus{"database": {Status: "ok"}},
	}
	status := http.StatusOK

	if err := h.db.Ready(ctx); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("dependency", "database").Msg("readiness check failed")
		resp.Status = "degraded"
		resp.Dependencies["database"] = dependencyStatus{Status: "unhealthy"}
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
