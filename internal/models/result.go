package models

// JobStatus is the terminal outcome of one adapter run.
type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// SimulationResult is what an adapter run or parse produces. Execution
// failures are represented here, never as Go errors.
type SimulationResult struct {
	JobID     string             `json:"job_id"`
	Status    JobStatus          `json:"status"`
	Metrics   map[string]float64 `json:"metrics"`
	Artifacts map[string]string  `json:"artifacts,omitempty"`
	Logs      []string           `json:"logs,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Failed reports whether the run ended in failure.
func (r *SimulationResult) Failed() bool {
	return r.Status == JobStatusFailed
}
