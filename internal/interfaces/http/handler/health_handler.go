package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dreschagin/evaluation-dashboard/internal/interfaces/http/middleware"
)

// ReadinessCheck проверяет одну зависимость; nil - готово
type ReadinessCheck func(ctx context.Context) error

// HealthHandler обслуживает probes: /healthz всегда отвечает ok, /readyz проверяет зависимости
type HealthHandler struct {
	checks  map[string]ReadinessCheck
	timeout time.Duration
}

func NewHealthHandler(checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "not ready",
			"failures": failures,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
