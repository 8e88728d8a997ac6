package api

import "net/http"

// CapabilityReporter exposes the HTTPS probe results.
type CapabilityReporter interface {
	Capabilities() map[string]bool
}

// CapabilitiesHandler handles HTTPS capability requests.
type CapabilitiesHandler struct {
	reporter CapabilityReporter
}

// NewCapabilitiesHandler creates a new capabilities handler.
func NewCapabilitiesHandler(r CapabilityReporter) *CapabilitiesHandler {
	return &CapabilitiesHandler{reporter: r}
}

type capabilitiesResponse struct {
	Hosts map[string]bool `json:"hosts"`
}

// HandleCapabilities handles GET /https-capabilities requests.
func (h *CapabilitiesHandler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	hosts := h.reporter.Capabilities()
	if hosts == nil {
		hosts = map[string]bool{}
	}
	writeJSON(w, http.StatusOK, capabilitiesResponse{Hosts: hosts})
}
