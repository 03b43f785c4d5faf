package worker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/common"
	"github.com/ternarybob/cogsim/internal/models"
	"github.com/ternarybob/cogsim/internal/services/simulation"
)

// WorkerPool runs N polling workers over the durable queue plus a
// cron-scheduled sweeper that requeues stranded running jobs.
type WorkerPool struct {
	svc          *simulation.Service
	logger       arbor.ILogger
	numWorkers   int
	pollInterval time.Duration
	staleAfter   int
	cron         *cron.Cron
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorkerPool builds a pool from the worker configuration.
func NewWorkerPool(svc *simulation.Service, cfg common.WorkerConfig, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	numWorkers := cfg.Concurrency
	if numWorkers < 1 {
		numWorkers = 1
	}
	pollInterval := time.Duration(cfg.PollIntervalSec) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	staleAfter := cfg.StaleAfterSec
	if staleAfter <= 0 {
		staleAfter = 900
	}

	pool := &WorkerPool{
		svc:          svc,
		logger:       logger,
		numWorkers:   numWorkers,
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
		cron:         cron.New(),
		ctx:          ctx,
		cancel:       cancel,
	}

	schedule := cfg.SweepSchedule
	if schedule == "" {
		schedule = "@every 1m"
	}
	if _, err := pool.cron.AddFunc(schedule, pool.sweepStale); err != nil {
		logger.Warn().Err(err).Str("schedule", schedule).Msg("Invalid sweep schedule, sweeper disabled")
	}

	return pool
}

// Start starts the workers and the sweeper.
func (wp *WorkerPool) Start() {
	wp.logger.Info().
		Int("num_workers", wp.numWorkers).
		Str("poll_interval", wp.pollInterval.String()).
		Msg("Starting worker pool")

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.cron.Start()
}

// Stop stops the worker pool gracefully.
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Msg("Stopping worker pool...")
	wp.cancel()
	cronCtx := wp.cron.Stop()
	wp.wg.Wait()
	<-cronCtx.Done()
	wp.logger.Info().Msg("Worker pool stopped")
}

// worker is the main worker loop: step, then sleep when idle.
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	wp.logger.Debug().Int("worker_id", workerID).Msg("Worker started")

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().Int("worker_id", workerID).Msg("Worker stopping")
			return
		default:
		}

		step, err := wp.svc.RunNextQueued(wp.ctx)
		if err != nil {
			wp.logger.Error().Err(err).Int("worker_id", workerID).Msg("Worker step failed")
			wp.sleep()
			continue
		}

		switch step.Status {
		case models.WorkerStepIdle:
			wp.sleep()
		case models.WorkerStepProcessed:
			wp.logger.Info().
				Int("worker_id", workerID).
				Str("job_id", step.JobID).
				Msg("Job completed")
		case models.WorkerStepRequeued:
			wp.logger.Warn().
				Int("worker_id", workerID).
				Str("job_id", step.JobID).
				Str("error", step.Error).
				Msg("Job requeued")
		case models.WorkerStepDead:
			wp.logger.Error().
				Int("worker_id", workerID).
				Str("job_id", step.JobID).
				Str("error", step.Error).
				Msg("Job dead-lettered")
		}
	}
}

func (wp *WorkerPool) sleep() {
	select {
	case <-wp.ctx.Done():
	case <-time.After(wp.pollInterval):
	}
}

// sweepStale requeues running jobs whose claim went stale (worker crash or
// kill between start and finish).
func (wp *WorkerPool) sweepStale() {
	requeued, err := wp.svc.SweepStale(wp.staleAfter)
	if err != nil {
		wp.logger.Error().Err(err).Msg("Stale sweep failed")
		return
	}
	if len(requeued) > 0 {
		wp.logger.Warn().Int("count", len(requeued)).Msg("Requeued stale running jobs")
	}
}
