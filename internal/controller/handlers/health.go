package handlers

import (
	"net/http"
	"time"

	"syncbridge/internal/logger"
	"syncbridge/pkg/api"

	"github.com/google/uuid"
)

// Healthz reports whether the database accepts a read and a write.
// It always answers 200; the body carries the individual results.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.logger)

	res := api.HealthResult{Timestamp: time.Now().UTC()}

	if err := h.prober.ProbeCustomers(ctx); err != nil {
		log.Warn("health read probe failed", "error", err)
	} else {
		res.Read = true
	}

	email := "healthcheck-" + uuid.New().String()[:8] + "@example.com"
	if err := h.prober.ProbeCustomerWrite(ctx, email); err != nil {
		log.Warn("health write probe failed", "error", err)
	} else {
		res.Write = true
	}

	ok200(h, w, "Health check complete", res)
}

// Readyz is a readiness probe.
// It checks if the service is ready to accept traffic (e.g., DB is connected).
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.prober.Ping(r.Context()); err != nil {
		h.httpError(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "ready"})
}
