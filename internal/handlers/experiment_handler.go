package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/services/simulation"
)

// ExperimentHandler handles planner suggestion requests
type ExperimentHandler struct {
	service  *simulation.Service
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewExperimentHandler creates a new experiment handler
func NewExperimentHandler(service *simulation.Service, logger arbor.ILogger) *ExperimentHandler {
	return &ExperimentHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// SuggestHandler serves POST /experiments/suggest: one planner iteration
// over the built-in response surface, recorded to the domain memory.
func (h *ExperimentHandler) SuggestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req simulation.SuggestRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "SUGGEST_FAILED", "Could not suggest experiments", err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "SUGGEST_FAILED", "Could not suggest experiments", err.Error())
		return
	}

	results, err := h.service.SuggestExperiments(&req)
	if err != nil {
		if errors.Is(err, simulation.ErrValidation) {
			WriteAPIError(w, http.StatusBadRequest, "SUGGEST_FAILED", "Could not suggest experiments", err.Error())
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "SUGGEST_FAILED", "Could not suggest experiments", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, results)
}
