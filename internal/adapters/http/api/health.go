package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/types"
	"github.com/RyDizz214/snappier-server-docker/pkg/metrics"
)

// HealthReporter exposes liveness data.
type HealthReporter interface {
	Health() types.Health
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	reporter HealthReporter
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(r HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: r}
}

// HandleHealth handles GET /health requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.reporter.Health())
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
