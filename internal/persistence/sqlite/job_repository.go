package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/persistence"
)

type jobRow struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Status    string         `db:"status"`
	Payload   sql.NullString `db:"payload"`
	Result    sql.NullString `db:"result"`
	Error     sql.NullString `db:"error"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

// CreateJob inserts a new job. Payload and result are sealed like personal
// facts since both carry them.
func (s *Storage) CreateJob(ctx context.Context, job domain.CalculationJob) error {
	if job.ID == "" {
		return persistence.ErrConstraintViolation
	}
	row, err := s.encodeJob(job)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO calculation_jobs (id, user_id, status, payload, result, error, created_at, updated_at)
		VALUES (:id, :user_id, :status, :payload, :result, :error, :created_at, :updated_at)`
	return s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().NamedExecContext(ctx, query, row)
		return err
	})
}

// GetJob returns the job stored under id.
func (s *Storage) GetJob(ctx context.Context, id string) (domain.CalculationJob, error) {
	if id == "" {
		return domain.CalculationJob{}, persistence.ErrNotFound
	}
	var row jobRow
	const query = `
		SELECT id, user_id, status, payload, result, error, created_at, updated_at
		FROM calculation_jobs
		WHERE id = ?`
	if err := s.pool.DB().GetContext(ctx, &row, query, id); err != nil {
		return domain.CalculationJob{}, s.mapper.MapError(err)
	}
	return s.decodeJob(row)
}

// UpdateJob replaces the mutable columns of an existing job.
func (s *Storage) UpdateJob(ctx context.Context, job domain.CalculationJob) error {
	row, err := s.encodeJob(job)
	if err != nil {
		return err
	}
	const query = `
		UPDATE calculation_jobs
		SET status = :status, payload = :payload, result = :result, error = :error, updated_at = :updated_at
		WHERE id = :id`
	return s.retry.WithRetry(ctx, func() error {
		result, err := s.pool.DB().NamedExecContext(ctx, query, row)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

func (s *Storage) encodeJob(job domain.CalculationJob) (jobRow, error) {
	row := jobRow{
		ID:        job.ID,
		UserID:    job.UserID,
		Status:    string(job.Status),
		CreatedAt: formatTime(job.CreatedAt),
		UpdatedAt: formatTime(job.UpdatedAt),
	}
	if len(job.Payload) > 0 {
		sealed, err := s.sealer.Seal(job.Payload)
		if err != nil {
			return jobRow{}, fmt.Errorf("sqlite: seal payload: %w", err)
		}
		row.Payload = sql.NullString{String: sealed, Valid: true}
	}
	if job.Result != nil {
		sealed, err := s.sealJSON(job.Result)
		if err != nil {
			return jobRow{}, err
		}
		row.Result = sql.NullString{String: sealed, Valid: true}
	}
	if job.Error != "" {
		row.Error = sql.NullString{String: job.Error, Valid: true}
	}
	return row, nil
}

func (s *Storage) decodeJob(row jobRow) (domain.CalculationJob, error) {
	job := domain.CalculationJob{
		ID:     row.ID,
		UserID: row.UserID,
		Status: domain.JobStatus(row.Status),
		Error:  row.Error.String,
	}
	if row.Payload.Valid {
		payload, err := s.sealer.Open(row.Payload.String)
		if err != nil {
			return domain.CalculationJob{}, fmt.Errorf("sqlite: open payload: %w", err)
		}
		job.Payload = json.RawMessage(payload)
	}
	if row.Result.Valid {
		var result domain.Snapshot
		if err := s.openJSON(row.Result.String, &result); err != nil {
			return domain.CalculationJob{}, fmt.Errorf("sqlite: decode result: %w", err)
		}
		job.Result = &result
	}

	var err error
	if job.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return domain.CalculationJob{}, err
	}
	if job.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return domain.CalculationJob{}, err
	}
	return job, nil
}
