// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/RyDizz214/snappier-server-docker/internal/domain/model"
	"github.com/RyDizz214/snappier-server-docker/internal/domain/types"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Notify runs one webhook event through the pipeline and returns the
	// response body with its status code.
	Notify(ctx context.Context, ev model.IncomingEvent) (types.NotifyResult, int)

	Health() types.Health
	Capabilities() map[string]bool
}

// Server wires HTTP routes for the webhook API.
type Server struct {
	notifyHandler       *NotifyHandler
	healthHandler       *HealthHandler
	capabilitiesHandler *CapabilitiesHandler
	statsHandler        *StatsHandler
	metricsHandler      http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		notifyHandler:       NewNotifyHandler(deps, logger.Get().Named("api")),
		healthHandler:       NewHealthHandler(deps),
		capabilitiesHandler: NewCapabilitiesHandler(deps),
		statsHandler:        NewStatsHandler(statsProvider),
		metricsHandler:      MetricsHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/notify", RequestID(MetricsMiddleware(s.notifyHandler.HandleNotify, "notify")))
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/https-capabilities", MetricsMiddleware(s.capabilitiesHandler.HandleCapabilities, "https_capabilities"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", s.metricsHandler)
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// allowMethod answers 405 when r does not use method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
	return false
}
