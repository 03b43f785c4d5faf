package interfaces

import (
	"github.com/ternarybob/cogsim/internal/models"
)

// JobStorage persists job payloads and results.
type JobStorage interface {
	UpsertJob(job *models.SimulationJob) error
	GetJob(jobID string) (*models.SimulationJob, error)
	UpsertResult(result *models.SimulationResult) error
	GetResult(jobID string) (*models.SimulationResult, error)
	ListJobs(limit int) ([]models.JobSummary, error)

	// Stats returns the total job count and result counts per status.
	Stats() (int, map[string]int, error)
}

// QueueStorage is the durable queue state machine.
type QueueStorage interface {
	// Enqueue inserts or resets the queue row for a job.
	Enqueue(jobID string, maxAttempts int) error

	// NextQueuedJobID returns the oldest queued job id, or "" when idle.
	NextQueuedJobID() (string, error)

	// StartJob claims a queued job. Returns false when the row was not in
	// state queued (lost the race, or unknown id).
	StartJob(jobID string) (bool, error)

	// FinishJob records a terminal attempt outcome (completed or failed).
	FinishJob(jobID string, success bool, errMsg string) error

	// ShouldRetry reports whether a failed job has attempts remaining.
	ShouldRetry(jobID string) (bool, error)

	// RequeueForRetry flips a failed job back to queued, preserving its
	// attempt count, refreshing its enqueue time and recording the failure
	// that caused the retry.
	RequeueForRetry(jobID string, errMsg string) error

	// MarkDead moves an exhausted job to the dead-letter state.
	MarkDead(jobID string, errMsg string) error

	// Cancel marks a job cancelled, recording the reason as the record's
	// error. Fails on running jobs.
	Cancel(jobID string, reason string) (bool, error)

	// ReplayDead resets a dead job to queued with a fresh attempt budget.
	// Returns false when the job is not in state dead.
	ReplayDead(jobID string, maxAttempts int) (bool, error)

	// QueueState returns the queue row for a job.
	QueueState(jobID string) (*models.QueueRecord, error)

	// Summary returns row counts per state.
	Summary() (models.QueueSummary, error)

	// PurgeFinished deletes terminal rows (completed/failed/cancelled/dead)
	// beyond the keep most recent, cascading to jobs and results.
	// Returns the number of jobs removed.
	PurgeFinished(keep int) (int, error)

	// RequeueStale flips running rows whose started_at is older than
	// maxAgeSec back to queued. Returns the affected job ids.
	RequeueStale(maxAgeSec int) ([]string, error)
}
