package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/services/simulation"
)

// JobHandler handles job lifecycle API requests
type JobHandler struct {
	service *simulation.Service
	logger  arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(service *simulation.Service, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger,
	}
}

type createJobRequest struct {
	Backend string                 `json:"backend"`
	Inputs  map[string]interface{} `json:"inputs"`
}

// JobsHandler dispatches /jobs: GET lists, POST creates.
func (h *JobHandler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listJobs(w, r)
	case http.MethodPost:
		h.createJob(w, r)
	default:
		WriteAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", "")
	}
}

// JobRoutes dispatches /jobs/{id}, /jobs/{id}/run and /jobs/{id}/enqueue.
func (h *JobHandler) JobRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	parts := strings.SplitN(rest, "/", 2)
	jobID := parts[0]
	if jobID == "" {
		WriteAPIError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", "")
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
		h.getJob(w, r, jobID)
	case "run":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		h.runJob(w, r, jobID)
	case "enqueue":
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		h.enqueueJob(w, r, jobID)
	default:
		WriteAPIError(w, http.StatusNotFound, "NOT_FOUND", "Unknown job action", action)
	}
}

func (h *JobHandler) createJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "CREATE_JOB_FAILED", "Could not create job", err.Error())
		return
	}

	job, err := h.service.CreateJob(req.Backend, req.Inputs)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "CREATE_JOB_FAILED", "Could not create job", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h *JobHandler) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := QueryInt(r, "limit", 50)
	jobs, err := h.service.ListJobs(limit)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not list jobs", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}

func (h *JobHandler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	detail, err := h.service.GetJob(jobID)
	if err != nil {
		if errors.Is(err, simulation.ErrJobNotFound) {
			WriteAPIError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", err.Error())
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not load job", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

func (h *JobHandler) runJob(w http.ResponseWriter, r *http.Request, jobID string) {
	result, err := h.service.RunJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, simulation.ErrJobNotFound) {
			WriteAPIError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", err.Error())
			return
		}
		WriteAPIError(w, http.StatusBadRequest, "RUN_JOB_FAILED", "Could not run job", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *JobHandler) enqueueJob(w http.ResponseWriter, r *http.Request, jobID string) {
	maxAttempts := QueryInt(r, "max_attempts", 0)

	record, err := h.service.EnqueueJob(jobID, maxAttempts)
	if err != nil {
		if errors.Is(err, simulation.ErrJobNotFound) {
			WriteAPIError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", err.Error())
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "STORE_ERROR", "Could not enqueue job", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": jobID,
		"queue":  record,
	})
}
