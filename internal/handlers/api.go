package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/common"
	"github.com/ternarybob/cogsim/internal/services/simulation"
)

// APIHandler serves health, summary, config and version endpoints
type APIHandler struct {
	service *simulation.Service
	config  *common.Config
	logger  arbor.ILogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(service *simulation.Service, config *common.Config, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		service: service,
		config:  config,
		logger:  logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// HealthLiveHandler reports process liveness.
func (h *APIHandler) HealthLiveHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"ts":     time.Now().Unix(),
	})
}

// HealthReadyHandler reports readiness: the store must answer a summary.
func (h *APIHandler) HealthReadyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := h.service.Summary()
	if err != nil {
		WriteAPIError(w, http.StatusServiceUnavailable, "NOT_READY", "Service not ready", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"summary": summary,
	})
}

// HealthBackendsHandler reports per-backend executable availability.
func (h *APIHandler) HealthBackendsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.service.BackendHealth())
}

// SummaryHandler returns job, result and queue counts plus backend health.
func (h *APIHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := h.service.Summary()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not build summary", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// EffectiveConfigHandler returns the redacted running configuration.
func (h *APIHandler) EffectiveConfigHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.config.Effective())
}
