package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/interfaces"
	"github.com/ternarybob/cogsim/internal/models"
)

// JobStorage implements SQLite persistence for job payloads and results
type JobStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewJobStorage creates a new job storage instance
func NewJobStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertJob creates or replaces the job payload row
func (s *JobStorage) UpsertJob(job *models.SimulationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}

	_, err = s.db.DB().Exec(`
		INSERT INTO jobs (job_id, backend, payload_json)
		VALUES (?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			backend = excluded.backend,
			payload_json = excluded.payload_json`,
		job.JobID, job.Backend, string(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}

	s.logger.Debug().Str("job_id", job.JobID).Str("backend", job.Backend).Msg("Job stored")
	return nil
}

// GetJob loads a job payload by id. Returns sql.ErrNoRows when absent.
func (s *JobStorage) GetJob(jobID string) (*models.SimulationJob, error) {
	var payload string
	err := s.db.DB().QueryRow(
		`SELECT payload_json FROM jobs WHERE job_id = ?`, jobID).Scan(&payload)
	if err != nil {
		return nil, err
	}

	var job models.SimulationJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("failed to deserialize job %s: %w", jobID, err)
	}
	return &job, nil
}

// UpsertResult creates or replaces the result row for a job
func (s *JobStorage) UpsertResult(result *models.SimulationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	_, err = s.db.DB().Exec(`
		INSERT INTO results (job_id, status, payload_json, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(job_id) DO UPDATE SET
			status = excluded.status,
			payload_json = excluded.payload_json,
			updated_at = CURRENT_TIMESTAMP`,
		result.JobID, string(result.Status), string(payload))
	if err != nil {
		return fmt.Errorf("failed to upsert result: %w", err)
	}

	s.logger.Debug().Str("job_id", result.JobID).Str("status", string(result.Status)).Msg("Result stored")
	return nil
}

// GetResult loads the result for a job. Returns sql.ErrNoRows when absent.
func (s *JobStorage) GetResult(jobID string) (*models.SimulationResult, error) {
	var payload string
	err := s.db.DB().QueryRow(
		`SELECT payload_json FROM results WHERE job_id = ?`, jobID).Scan(&payload)
	if err != nil {
		return nil, err
	}

	var result models.SimulationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize result %s: %w", jobID, err)
	}
	return &result, nil
}

// ListJobs returns the newest jobs first, joined with their result status.
// Jobs without a result row report status "queued".
func (s *JobStorage) ListJobs(limit int) ([]models.JobSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.DB().Query(`
		SELECT j.job_id, j.backend, j.created_at, r.status, r.updated_at
		FROM jobs j
		LEFT JOIN results r ON r.job_id = j.job_id
		ORDER BY j.created_at DESC, j.job_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.JobSummary, 0, limit)
	for rows.Next() {
		var (
			summary   models.JobSummary
			status    sql.NullString
			updatedAt sql.NullString
		)
		if err := rows.Scan(&summary.JobID, &summary.Backend, &summary.CreatedAt, &status, &updatedAt); err != nil {
			return nil, err
		}
		summary.Status = "queued"
		if status.Valid {
			summary.Status = status.String
		}
		if updatedAt.Valid {
			summary.UpdatedAt = updatedAt.String
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Stats returns the total job count and result counts per status
func (s *JobStorage) Stats() (int, map[string]int, error) {
	var total int
	if err := s.db.DB().QueryRow(`SELECT COUNT(*) FROM jobs`).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	rows, err := s.db.DB().Query(`SELECT status, COUNT(*) FROM results GROUP BY status`)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count results: %w", err)
	}
	defer rows.Close()

	statusCounts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return 0, nil, err
		}
		statusCounts[status] = count
	}
	return total, statusCounts, rows.Err()
}
