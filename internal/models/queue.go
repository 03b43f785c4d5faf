package models

// QueueState is the lifecycle state of a queued job.
type QueueState string

const (
	QueueStateQueued    QueueState = "queued"
	QueueStateRunning   QueueState = "running"
	QueueStateCompleted QueueState = "completed"
	QueueStateFailed    QueueState = "failed"
	QueueStateDead      QueueState = "dead"
	QueueStateCancelled QueueState = "cancelled"
)

// QueueRecord is one row of the durable queue.
type QueueRecord struct {
	JobID        string     `json:"job_id"`
	State        QueueState `json:"state"`
	Error        string     `json:"error,omitempty"`
	AttemptCount int        `json:"attempt_count"`
	MaxAttempts  int        `json:"max_attempts"`
	EnqueuedAt   string     `json:"enqueued_at,omitempty"`
	StartedAt    string     `json:"started_at,omitempty"`
	FinishedAt   string     `json:"finished_at,omitempty"`
}

// QueueSummary maps queue state -> row count.
type QueueSummary map[string]int

// WorkerStepStatus is the outcome of a single worker step.
type WorkerStepStatus string

const (
	WorkerStepIdle      WorkerStepStatus = "idle"
	WorkerStepProcessed WorkerStepStatus = "processed"
	WorkerStepRequeued  WorkerStepStatus = "requeued"
	WorkerStepDead      WorkerStepStatus = "dead"
)

// WorkerStep reports what a single claim-run-finish cycle did.
type WorkerStep struct {
	Status WorkerStepStatus  `json:"status"`
	JobID  string            `json:"job_id,omitempty"`
	Result *SimulationResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}
