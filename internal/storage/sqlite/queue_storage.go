package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/interfaces"
	"github.com/ternarybob/cogsim/internal/models"
)

// QueueStorage implements the durable queue state machine on SQLite.
//
// Claiming is a conditional update on state='queued'; concurrent workers
// race on RowsAffected, so at most one claims any given job.
type QueueStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewQueueStorage creates a new queue storage instance
func NewQueueStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.QueueStorage {
	return &QueueStorage{
		db:     db,
		logger: logger,
	}
}

// Enqueue inserts or resets the queue row: state queued, cleared error and
// timestamps, attempt count back to zero.
func (s *QueueStorage) Enqueue(jobID string, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	_, err := s.db.DB().Exec(`
		INSERT INTO queue (job_id, state, error, enqueued_at, started_at, finished_at, attempt_count, max_attempts)
		VALUES (?, 'queued', NULL, CURRENT_TIMESTAMP, NULL, NULL, 0, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			state = 'queued',
			error = NULL,
			enqueued_at = CURRENT_TIMESTAMP,
			started_at = NULL,
			finished_at = NULL,
			attempt_count = 0,
			max_attempts = excluded.max_attempts`,
		jobID, maxAttempts)
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", jobID, err)
	}

	s.logger.Debug().Str("job_id", jobID).Int("max_attempts", maxAttempts).Msg("Job enqueued")
	return nil
}

// NextQueuedJobID returns the oldest queued job id, FIFO by enqueue time
// with job id as tie-break. Empty string when the queue is idle.
func (s *QueueStorage) NextQueuedJobID() (string, error) {
	var jobID string
	err := s.db.DB().QueryRow(`
		SELECT job_id FROM queue
		WHERE state = 'queued'
		ORDER BY enqueued_at ASC, job_id ASC
		LIMIT 1`).Scan(&jobID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to pick next queued job: %w", err)
	}
	return jobID, nil
}

// StartJob claims a queued job: flips it to running, stamps started_at,
// clears the error and consumes one attempt. The conditional update is the
// claim; false means another worker got there first (or the id is unknown).
func (s *QueueStorage) StartJob(jobID string) (bool, error) {
	res, err := s.db.DB().Exec(`
		UPDATE queue
		SET state = 'running',
			started_at = CURRENT_TIMESTAMP,
			error = NULL,
			attempt_count = attempt_count + 1
		WHERE job_id = ? AND state = 'queued'`, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to start job %s: %w", jobID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// FinishJob records the terminal outcome of an attempt. Permissive on the
// prior state; an unusual transition is logged, not rejected.
func (s *QueueStorage) FinishJob(jobID string, success bool, errMsg string) error {
	var prior string
	if err := s.db.DB().QueryRow(
		`SELECT state FROM queue WHERE job_id = ?`, jobID).Scan(&prior); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("failed to read queue state for %s: %w", jobID, err)
	}
	if prior != string(models.QueueStateRunning) {
		s.logger.Warn().Str("job_id", jobID).Str("prior_state", prior).Msg("Finishing job that was not running")
	}

	state := models.QueueStateCompleted
	var errValue interface{}
	if !success {
		state = models.QueueStateFailed
		errValue = errMsg
	}

	_, err := s.db.DB().Exec(`
		UPDATE queue
		SET state = ?, error = ?, finished_at = CURRENT_TIMESTAMP
		WHERE job_id = ?`, string(state), errValue, jobID)
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", jobID, err)
	}
	return nil
}

// ShouldRetry reports whether the job has attempts remaining.
func (s *QueueStorage) ShouldRetry(jobID string) (bool, error) {
	var attempts, maxAttempts int
	err := s.db.DB().QueryRow(
		`SELECT attempt_count, max_attempts FROM queue WHERE job_id = ?`, jobID).
		Scan(&attempts, &maxAttempts)
	if err != nil {
		return false, err
	}
	return attempts < maxAttempts, nil
}

// RequeueForRetry flips a failed job back to queued. The attempt count is
// preserved; only a fresh enqueue or a dead-letter replay resets it. The
// enqueue time is refreshed so the retry joins the back of the FIFO instead
// of starving jobs queued behind it.
func (s *QueueStorage) RequeueForRetry(jobID string, errMsg string) error {
	_, err := s.db.DB().Exec(`
		UPDATE queue
		SET state = 'queued',
			error = ?,
			enqueued_at = CURRENT_TIMESTAMP,
			started_at = NULL,
			finished_at = NULL
		WHERE job_id = ?`, errMsg, jobID)
	if err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", jobID, err)
	}
	return nil
}

// MarkDead moves an exhausted job to the dead-letter state.
func (s *QueueStorage) MarkDead(jobID string, errMsg string) error {
	_, err := s.db.DB().Exec(`
		UPDATE queue
		SET state = 'dead', error = ?, finished_at = CURRENT_TIMESTAMP
		WHERE job_id = ?`, errMsg, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job %s dead: %w", jobID, err)
	}
	return nil
}

// Cancel marks a job cancelled, recording the caller's reason as the
// record's error. Returns false (no error) when the job is currently
// running; running jobs cannot be cancelled.
func (s *QueueStorage) Cancel(jobID string, reason string) (bool, error) {
	var state string
	if err := s.db.DB().QueryRow(
		`SELECT state FROM queue WHERE job_id = ?`, jobID).Scan(&state); err != nil {
		return false, err
	}
	if state == string(models.QueueStateRunning) {
		return false, nil
	}

	var reasonValue interface{}
	if reason != "" {
		reasonValue = reason
	}

	_, err := s.db.DB().Exec(`
		UPDATE queue
		SET state = 'cancelled', error = ?, finished_at = CURRENT_TIMESTAMP
		WHERE job_id = ?`, reasonValue, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel job %s: %w", jobID, err)
	}
	return true, nil
}

// ReplayDead resets a dead job to queued with a fresh attempt budget.
// Only rows in state dead are touched.
func (s *QueueStorage) ReplayDead(jobID string, maxAttempts int) (bool, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	res, err := s.db.DB().Exec(`
		UPDATE queue
		SET state = 'queued',
			error = NULL,
			enqueued_at = CURRENT_TIMESTAMP,
			started_at = NULL,
			finished_at = NULL,
			attempt_count = 0,
			max_attempts = ?
		WHERE job_id = ? AND state = 'dead'`, maxAttempts, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to replay job %s: %w", jobID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// QueueState returns the queue row for a job.
func (s *QueueStorage) QueueState(jobID string) (*models.QueueRecord, error) {
	var (
		record     models.QueueRecord
		state      string
		errMsg     sql.NullString
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	err := s.db.DB().QueryRow(`
		SELECT job_id, state, error, attempt_count, max_attempts, enqueued_at, started_at, finished_at
		FROM queue WHERE job_id = ?`, jobID).
		Scan(&record.JobID, &state, &errMsg, &record.AttemptCount, &record.MaxAttempts,
			&record.EnqueuedAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	record.State = models.QueueState(state)
	if errMsg.Valid {
		record.Error = errMsg.String
	}
	if startedAt.Valid {
		record.StartedAt = startedAt.String
	}
	if finishedAt.Valid {
		record.FinishedAt = finishedAt.String
	}
	return &record, nil
}

// Summary returns row counts per state.
func (s *QueueStorage) Summary() (models.QueueSummary, error) {
	rows, err := s.db.DB().Query(`SELECT state, COUNT(*) FROM queue GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize queue: %w", err)
	}
	defer rows.Close()

	summary := make(models.QueueSummary)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		summary[state] = count
	}
	return summary, rows.Err()
}

// PurgeFinished deletes terminal rows (completed, failed, cancelled, dead)
// beyond the keep most recent, ordered by finish time falling back to
// enqueue time. Deleting the jobs row cascades to results and queue.
func (s *QueueStorage) PurgeFinished(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	rows, err := s.db.DB().Query(`
		SELECT job_id FROM queue
		WHERE state IN ('completed', 'failed', 'cancelled', 'dead')
		ORDER BY COALESCE(finished_at, enqueued_at) DESC, job_id DESC`)
	if err != nil {
		return 0, fmt.Errorf("failed to list finished jobs: %w", err)
	}

	var victims []string
	index := 0
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			rows.Close()
			return 0, err
		}
		if index >= keep {
			victims = append(victims, jobID)
		}
		index++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(victims) == 0 {
		return 0, nil
	}

	tx, err := s.db.DB().Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, jobID := range victims {
		if _, err := tx.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID); err != nil {
			return 0, fmt.Errorf("failed to purge job %s: %w", jobID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.logger.Info().Int("removed", len(victims)).Int("kept", keep).Msg("Purged finished jobs")
	return len(victims), nil
}

// RequeueStale flips running rows whose started_at is older than maxAgeSec
// back to queued. The attempt was consumed at claim time, so the count is
// left alone.
func (s *QueueStorage) RequeueStale(maxAgeSec int) ([]string, error) {
	rows, err := s.db.DB().Query(`
		SELECT job_id FROM queue
		WHERE state = 'running'
		AND started_at IS NOT NULL
		AND started_at <= datetime('now', ?)`,
		fmt.Sprintf("-%d seconds", maxAgeSec))
	if err != nil {
		return nil, fmt.Errorf("failed to find stale jobs: %w", err)
	}

	var stale []string
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, jobID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, jobID := range stale {
		_, err := s.db.DB().Exec(`
			UPDATE queue
			SET state = 'queued', started_at = NULL
			WHERE job_id = ? AND state = 'running'`, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to requeue stale job %s: %w", jobID, err)
		}
		s.logger.Warn().Str("job_id", jobID).Msg("Requeued stale running job")
	}
	return stale, nil
}
