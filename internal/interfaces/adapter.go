package interfaces

import (
	"context"

	"github.com/ternarybob/cogsim/internal/models"
)

// SimulationAdapter wraps one external simulation backend.
//
// Run and ParseResults never return Go errors for execution failures;
// failures come back as SimulationResult with status "failed". Errors are
// reserved for infrastructure problems (filesystem, marshalling).
type SimulationAdapter interface {
	// BackendName returns the registry key, e.g. "cfd-driver".
	BackendName() string

	// CreateJob materializes the job directory (inputs file + backend
	// skeleton). Idempotent: re-creating an existing job re-seeds the
	// same files.
	CreateJob(jobID, workdir string, inputs map[string]interface{}) (*models.SimulationJob, error)

	// Run executes the backend, or short-circuits when metrics.json
	// already exists in the job directory.
	Run(ctx context.Context, job *models.SimulationJob) *models.SimulationResult

	// ParseResults re-reads a previously produced metrics.json without
	// executing anything.
	ParseResults(job *models.SimulationJob) *models.SimulationResult
}

// BackendHealth reports executable availability for one backend.
type BackendHealth struct {
	Backend    string `json:"backend"`
	Executable string `json:"executable"`
	Available  bool   `json:"available"`
	ViaWSL     bool   `json:"via_wsl,omitempty"`
}
