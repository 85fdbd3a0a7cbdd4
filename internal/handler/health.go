package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// Pinger is anything with a health probe; the Redis client satisfies
// it when rate limiting runs distributed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store  domain.Store
	redis  Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(store domain.Store, redis Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthHandler{store: store, redis: redis, logger: logger}
}

// Health handles GET /healthz - simple liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz - readiness check covering dependencies
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.store.Ping(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		ready = false
	} else {
		checks["store"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "error: " + err.Error()
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "not configured"
	}

	status := "ready"
	code := http.StatusOK
	if !ready {
		status = "not_ready"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
