package models

// SimulationJob is a materialized backend run: a job directory seeded with
// inputs, owned by one backend adapter.
type SimulationJob struct {
	JobID    string                 `json:"job_id"`
	Backend  string                 `json:"backend"`
	Workdir  string                 `json:"workdir"`
	Inputs   map[string]interface{} `json:"inputs"`
	Metadata map[string]string      `json:"metadata,omitempty"`
}

// JobSummary is the listing row returned by GET /jobs.
type JobSummary struct {
	JobID     string `json:"job_id"`
	Backend   string `json:"backend"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
