package simulation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/adapters"
	"github.com/ternarybob/cogsim/internal/cognitive"
	"github.com/ternarybob/cogsim/internal/common"
	"github.com/ternarybob/cogsim/internal/interfaces"
	"github.com/ternarybob/cogsim/internal/models"
	"github.com/ternarybob/cogsim/internal/storage/sqlite"
)

// JobDetail is the composite view returned by GET /jobs/{id}.
type JobDetail struct {
	Job    *models.SimulationJob   `json:"job"`
	Result *models.SimulationResult `json:"result"`
	Queue  *models.QueueRecord     `json:"queue"`
}

// Service is the orchestration facade: job lifecycle, queue operations,
// worker stepping and experiment suggestion. The store is authoritative;
// there is no in-memory job cache.
type Service struct {
	baseWorkdir        string
	defaultMaxAttempts int
	store              *sqlite.Manager
	adapters           map[string]interfaces.SimulationAdapter
	logger             arbor.ILogger
}

// NewService creates the workdir, opens the store and wires the standard
// adapter registry.
func NewService(cfg *common.Config, logger arbor.ILogger) (*Service, error) {
	return NewServiceWithAdapters(cfg, adapters.NewRegistry(logger), logger)
}

// NewServiceWithAdapters is NewService with a caller-supplied registry.
func NewServiceWithAdapters(cfg *common.Config, registry map[string]interfaces.SimulationAdapter, logger arbor.ILogger) (*Service, error) {
	if err := os.MkdirAll(cfg.Workdir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workdir: %w", err)
	}

	store, err := sqlite.NewManager(logger, cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	return &Service{
		baseWorkdir:        cfg.Workdir,
		defaultMaxAttempts: cfg.Queue.DefaultMaxAttempts,
		store:              store,
		adapters:           registry,
		logger:             logger,
	}, nil
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Store exposes the storage manager to the worker pool.
func (s *Service) Store() *sqlite.Manager {
	return s.store
}

// Backends lists the registered backend names.
func (s *Service) Backends() []string {
	names := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		names = append(names, name)
	}
	return names
}

// CreateJob materializes a job directory for a backend and persists it.
func (s *Service) CreateJob(backend string, inputs map[string]interface{}) (*models.SimulationJob, error) {
	adapter, ok := s.adapters[backend]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported backend: %s", ErrValidation, backend)
	}

	jobID := common.NewJobID()
	job, err := adapter.CreateJob(jobID, s.baseWorkdir, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.store.JobStorage().UpsertJob(job); err != nil {
		return nil, err
	}

	s.logger.Info().Str("job_id", jobID).Str("backend", backend).Msg("Job created")
	return job, nil
}

// RunJob executes the job's backend synchronously and persists the result.
func (s *Service) RunJob(ctx context.Context, jobID string) (*models.SimulationResult, error) {
	job, err := s.loadJob(jobID)
	if err != nil {
		return nil, err
	}

	adapter, ok := s.adapters[job.Backend]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported backend: %s", ErrValidation, job.Backend)
	}

	result := s.safeRun(ctx, adapter, job)
	if err := s.store.JobStorage().UpsertResult(result); err != nil {
		return nil, err
	}
	return result, nil
}

// safeRun shields the caller from adapter panics; an unexpected panic is a
// failed result, feeding the same retry-or-dead policy as any failure.
func (s *Service) safeRun(ctx context.Context, adapter interfaces.SimulationAdapter, job *models.SimulationJob) (result *models.SimulationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job_id", job.JobID).Str("backend", job.Backend).
				Msg(fmt.Sprintf("Adapter panic: %v", r))
			result = &models.SimulationResult{
				JobID:  job.JobID,
				Status: models.JobStatusFailed,
				Error:  fmt.Sprintf("adapter panic: %v", r),
			}
		}
	}()
	return adapter.Run(ctx, job)
}

// GetJob returns the composite job view. Result and queue sections are nil
// when not yet present.
func (s *Service) GetJob(jobID string) (*JobDetail, error) {
	job, err := s.loadJob(jobID)
	if err != nil {
		return nil, err
	}

	detail := &JobDetail{Job: job}

	result, err := s.store.JobStorage().GetResult(jobID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	detail.Result = result

	queue, err := s.store.QueueStorage().QueueState(jobID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	detail.Queue = queue

	return detail, nil
}

// EnqueueJob puts an existing job on the durable queue.
func (s *Service) EnqueueJob(jobID string, maxAttempts int) (*models.QueueRecord, error) {
	if _, err := s.loadJob(jobID); err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = s.defaultMaxAttempts
	}

	if err := s.store.QueueStorage().Enqueue(jobID, maxAttempts); err != nil {
		return nil, err
	}
	return s.store.QueueStorage().QueueState(jobID)
}

// RunNextQueued performs one worker step: claim the oldest queued job, run
// it, and finish, requeue or dead-letter it. Idle when nothing is queued.
func (s *Service) RunNextQueued(ctx context.Context) (*models.WorkerStep, error) {
	queue := s.store.QueueStorage()

	for {
		jobID, err := queue.NextQueuedJobID()
		if err != nil {
			return nil, err
		}
		if jobID == "" {
			return &models.WorkerStep{Status: models.WorkerStepIdle}, nil
		}

		claimed, err := queue.StartJob(jobID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// Another worker took it between pick and claim; pick again.
			continue
		}

		result, err := s.RunJob(ctx, jobID)
		if err != nil {
			return s.settleFailure(jobID, nil, err.Error())
		}
		if result.Status == models.JobStatusCompleted {
			if err := queue.FinishJob(jobID, true, ""); err != nil {
				return nil, err
			}
			return &models.WorkerStep{
				Status: models.WorkerStepProcessed,
				JobID:  jobID,
				Result: result,
			}, nil
		}

		errMsg := result.Error
		if errMsg == "" {
			errMsg = "job failed"
		}
		return s.settleFailure(jobID, result, errMsg)
	}
}

// settleFailure applies the retry-or-dead policy after a failed attempt.
func (s *Service) settleFailure(jobID string, result *models.SimulationResult, errMsg string) (*models.WorkerStep, error) {
	queue := s.store.QueueStorage()

	retry, err := queue.ShouldRetry(jobID)
	if err != nil {
		return nil, err
	}

	if retry {
		if err := queue.RequeueForRetry(jobID, errMsg); err != nil {
			return nil, err
		}
		s.logger.Warn().Str("job_id", jobID).Str("error", errMsg).Msg("Job requeued for retry")
		return &models.WorkerStep{
			Status: models.WorkerStepRequeued,
			JobID:  jobID,
			Result: result,
			Error:  errMsg,
		}, nil
	}

	if err := queue.MarkDead(jobID, errMsg); err != nil {
		return nil, err
	}
	s.logger.Error().Str("job_id", jobID).Str("error", errMsg).Msg("Job dead-lettered")
	return &models.WorkerStep{
		Status: models.WorkerStepDead,
		JobID:  jobID,
		Result: result,
		Error:  errMsg,
	}, nil
}

// QueueStatus returns the queue row for a job.
func (s *Service) QueueStatus(jobID string) (*models.QueueRecord, error) {
	record, err := s.store.QueueStorage().QueueState(jobID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrQueueNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CancelJob marks a non-running job cancelled, recording the reason.
func (s *Service) CancelJob(jobID string, reason string) (*models.QueueRecord, error) {
	cancelled, err := s.store.QueueStorage().Cancel(jobID, reason)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrQueueNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, fmt.Errorf("%w: cannot cancel a running job", ErrStateConflict)
	}
	return s.store.QueueStorage().QueueState(jobID)
}

// ReplayDeadJob resets a dead job to queued with a fresh attempt budget.
func (s *Service) ReplayDeadJob(jobID string, maxAttempts int) (*models.QueueRecord, error) {
	if maxAttempts <= 0 {
		maxAttempts = s.defaultMaxAttempts
	}

	replayed, err := s.store.QueueStorage().ReplayDead(jobID, maxAttempts)
	if err != nil {
		return nil, err
	}
	if !replayed {
		if _, stateErr := s.store.QueueStorage().QueueState(jobID); stateErr == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrQueueNotFound, jobID)
		}
		return nil, fmt.Errorf("%w: only dead jobs can be replayed", ErrStateConflict)
	}
	return s.store.QueueStorage().QueueState(jobID)
}

// PurgeFinished removes finished jobs beyond the keep most recent.
func (s *Service) PurgeFinished(keep int) (int, error) {
	if keep <= 0 {
		keep = 200
	}
	return s.store.QueueStorage().PurgeFinished(keep)
}

// ListJobs returns the newest jobs with result status.
func (s *Service) ListJobs(limit int) ([]models.JobSummary, error) {
	return s.store.JobStorage().ListJobs(limit)
}

// SweepStale requeues running jobs older than maxAgeSec.
func (s *Service) SweepStale(maxAgeSec int) ([]string, error) {
	return s.store.QueueStorage().RequeueStale(maxAgeSec)
}

// Summary aggregates job totals, result status counts, queue counts and
// backend health.
func (s *Service) Summary() (map[string]interface{}, error) {
	total, statusCounts, err := s.store.JobStorage().Stats()
	if err != nil {
		return nil, err
	}
	queueCounts, err := s.store.QueueStorage().Summary()
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_jobs":     total,
		"status_counts":  statusCounts,
		"queue_counts":   queueCounts,
		"backend_health": s.BackendHealth(),
	}, nil
}

// BackendHealth reports per-backend executable availability.
func (s *Service) BackendHealth() []interfaces.BackendHealth {
	return adapters.Health(s.adapters)
}

// SuggestRequest is the validated input to SuggestExperiments. An omitted
// planner defaults to model_based.
type SuggestRequest struct {
	Domain      string                  `json:"domain" validate:"required"`
	Planner     string                  `json:"planner" validate:"omitempty"`
	DesignSpace map[string][]float64    `json:"design_space" validate:"required,min=1"`
	Objectives  []models.ObjectiveSpec  `json:"objectives" validate:"required,min=1,dive"`
	Constraints []models.ConstraintSpec `json:"constraints" validate:"omitempty,dive"`
	N           int                     `json:"n" validate:"omitempty,gte=1,lte=100"`
}

// SuggestExperiments runs one planner iteration against the reference
// response surface and records the outcomes in the domain's memory file.
func (s *Service) SuggestExperiments(req *SuggestRequest) ([]models.RunResult, error) {
	plannerName := req.Planner
	if plannerName == "" {
		plannerName = cognitive.PlannerModelBased
	}

	planner, err := buildPlanner(plannerName)
	if err != nil {
		return nil, err
	}

	space, err := models.NewDesignSpace(req.DesignSpace)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for i := range req.Constraints {
		if err := req.Constraints[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	n := req.N
	if n <= 0 {
		n = 1
	}

	memoryPath := filepath.Join(s.baseWorkdir, req.Domain+"_service_memory.jsonl")
	engine := cognitive.NewEngine(req.Domain, planner, cognitive.NewMemoryStore(memoryPath), referenceSimulator)

	return engine.RunIteration(space, req.Objectives, req.Constraints, n, cognitive.PenaltyDiscard, 1e6)
}

// referenceSimulator is the built-in response surface for the suggest
// path: a yield peak at (3, 2) and a convex energy bowl.
func referenceSimulator(params map[string]float64) map[string]float64 {
	x := params["x"]
	y := params["y"]

	yield := 100.0 - (x-3.0)*(x-3.0) - (y-2.0)*(y-2.0)
	if yield < 0 {
		yield = 0
	}
	return map[string]float64{
		"yield":  yield,
		"energy": x*x + 0.5*y*y,
	}
}

func buildPlanner(name string) (interfaces.ExperimentPlanner, error) {
	switch name {
	case cognitive.PlannerBaseline:
		return cognitive.NewGridPlanner(), nil
	case cognitive.PlannerModelBased:
		return cognitive.NewModelBasedPlanner(cognitive.AcquisitionEI, 7), nil
	case cognitive.PlannerSequential:
		return cognitive.NewSequentialPlanner(7), nil
	}
	return nil, fmt.Errorf("%w: unsupported planner: %s", ErrValidation, name)
}

func (s *Service) loadJob(jobID string) (*models.SimulationJob, error) {
	job, err := s.store.JobStorage().GetJob(jobID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}
