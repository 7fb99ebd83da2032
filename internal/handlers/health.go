package handlers

import (
	"net/http"
	"time"

	"github.com/parcelio/api/internal/repositories"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	health  repositories.HealthRepository
	now     func() time.Time
	started time.Time
}

// HealthOption customises health handler construction.
type HealthOption func(*HealthHandlers)

// WithHealthRepository wires dependency checks into the readiness probe.
func WithHealthRepository(repo repositories.HealthRepository) HealthOption {
	return func(h *HealthHandlers) {
		h.health = repo
	}
}

// WithHealthClock overrides the clock used for uptime and timestamps.
func WithHealthClock(now func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHealthHandlers constructs the probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.started = h.now()
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.started).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Readyz reports whether downstream dependencies answer.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if h.health == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": now.UTC().Format(time.RFC3339),
		})
		return
	}

	checks, err := h.health.Collect(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unavailable",
			"timestamp": now.UTC().Format(time.RFC3339),
		})
		return
	}

	status := "ok"
	code := http.StatusOK
	for _, state := range checks {
		if state != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSONResponse(w, code, map[string]any{
		"status":    status,
		"checks":    checks,
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}
