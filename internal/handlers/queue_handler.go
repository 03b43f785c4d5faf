package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/services/simulation"
)

// QueueHandler handles queue API requests
type QueueHandler struct {
	service *simulation.Service
	logger  arbor.ILogger
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(service *simulation.Service, logger arbor.ILogger) *QueueHandler {
	return &QueueHandler{
		service: service,
		logger:  logger,
	}
}

// RunNextHandler serves POST /queue/run-next and its /queue/worker-step
// alias: one claim-run-finish worker step.
func (h *QueueHandler) RunNextHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	step, err := h.service.RunNextQueued(r.Context())
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Worker step failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, step)
}

// PurgeHandler serves POST /queue/purge.
func (h *QueueHandler) PurgeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	keep := QueryInt(r, "keep_latest", 200)
	deleted, err := h.service.PurgeFinished(keep)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not purge finished jobs", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":     deleted,
		"kept_latest": keep,
	})
}

// QueueRoutes dispatches /queue/{id}, /queue/{id}/cancel and
// /queue/{id}/replay.
func (h *QueueHandler) QueueRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/queue/")
	parts := strings.SplitN(rest, "/", 2)
	jobID := parts[0]
	if jobID == "" {
		WriteAPIError(w, http.StatusNotFound, "QUEUE_NOT_FOUND", "Queue record not found", "")
		return
	}

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch action {
	case "":
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		h.queueStatus(w, jobID)
	case "cancel":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		h.cancelJob(w, r, jobID)
	case "replay":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		h.replayJob(w, r, jobID)
	default:
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "Unknown queue action", action)
	}
}

func (h *QueueHandler) queueStatus(w http.ResponseWriter, jobID string) {
	record, err := h.service.QueueStatus(jobID)
	if err != nil {
		if errors.Is(err, simulation.ErrQueueNotFound) {
			WriteAPIError(w, http.StatusNotFound, "QUEUE_NOT_FOUND", "Queue record not found", err.Error())
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not load queue record", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, record)
}

func (h *QueueHandler) cancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	record, err := h.service.CancelJob(jobID, r.URL.Query().Get("reason"))
	if err != nil {
		switch {
		case errors.Is(err, simulation.ErrQueueNotFound):
			WriteAPIError(w, http.StatusNotFound, "QUEUE_NOT_FOUND", "Queue record not found", err.Error())
		case errors.Is(err, simulation.ErrStateConflict):
			WriteAPIError(w, http.StatusBadRequest, "CANCEL_FAILED", "Could not cancel job", err.Error())
		default:
			WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not cancel job", err.Error())
		}
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"queue":  record,
	})
}

func (h *QueueHandler) replayJob(w http.ResponseWriter, r *http.Request, jobID string) {
	maxAttempts := QueryInt(r, "max_attempts", 0)

	record, err := h.service.ReplayDeadJob(jobID, maxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, simulation.ErrQueueNotFound):
			WriteAPIError(w, http.StatusNotFound, "QUEUE_NOT_FOUND", "Queue record not found", err.Error())
		case errors.Is(err, simulation.ErrStateConflict):
			WriteAPIError(w, http.StatusBadRequest, "REPLAY_FAILED", "Could not replay dead job", err.Error())
		default:
			WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not replay dead job", err.Error())
		}
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"queue":  record,
	})
}
