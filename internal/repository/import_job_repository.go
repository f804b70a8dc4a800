package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consiglab/importer/internal/domain"
)

type importJobRepository struct {
	pool *pgxpool.Pool
}

// NewImportJobRepository creates a pgx backed job tracking repository.
func NewImportJobRepository(pool *pgxpool.Pool) ImportJobRepository {
	return &importJobRepository{pool: pool}
}

func (r *importJobRepository) Create(ctx context.Context, job *domain.ImportJob) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO import_jobs (
			id, file_name, file_size, storage_path, batch_preset, importado_por,
			status, total_rows, processed_rows, success_count, error_count, duplicate_count,
			last_row_offset, created_at, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		job.ID, job.FileName, job.FileSize, job.StoragePath, job.BatchPreset, job.ImportadoPor,
		string(job.Status), job.TotalRows, job.ProcessedRows, job.SuccessCount, job.ErrorCount, job.DuplicateCount,
		job.LastRowOffset, job.CreatedAt, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}
	return nil
}

func (r *importJobRepository) Update(ctx context.Context, job *domain.ImportJob) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE import_jobs SET
			status = $2, total_rows = $3, processed_rows = $4, success_count = $5,
			error_count = $6, duplicate_count = $7, last_row_offset = $8,
			started_at = $9, finished_at = $10
		WHERE id = $1`,
		job.ID, string(job.Status), job.TotalRows, job.ProcessedRows, job.SuccessCount,
		job.ErrorCount, job.DuplicateCount, job.LastRowOffset,
		job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	return nil
}

func (r *importJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	job := &domain.ImportJob{}
	var status string
	err := r.pool.QueryRow(ctx,
		`SELECT id, file_name, file_size, storage_path, batch_preset, importado_por,
			status, total_rows, processed_rows, success_count, error_count, duplicate_count,
			last_row_offset, created_at, started_at, finished_at
		FROM import_jobs WHERE id = $1`, id,
	).Scan(
		&job.ID, &job.FileName, &job.FileSize, &job.StoragePath, &job.BatchPreset, &job.ImportadoPor,
		&status, &job.TotalRows, &job.ProcessedRows, &job.SuccessCount, &job.ErrorCount, &job.DuplicateCount,
		&job.LastRowOffset, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}
	job.Status = domain.JobStatus(status)

	errors, err := r.recentErrors(ctx, id)
	if err != nil {
		return nil, err
	}
	job.RecentErrors = errors

	return job, nil
}

func (r *importJobRepository) List(ctx context.Context, limit, offset int) ([]*domain.ImportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, file_name, file_size, storage_path, batch_preset, importado_por,
			status, total_rows, processed_rows, success_count, error_count, duplicate_count,
			last_row_offset, created_at, started_at, finished_at
		FROM import_jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*domain.ImportJob{}
	for rows.Next() {
		job := &domain.ImportJob{RecentErrors: []domain.ErrorLogEntry{}}
		var status string
		if scanErr := rows.Scan(
			&job.ID, &job.FileName, &job.FileSize, &job.StoragePath, &job.BatchPreset, &job.ImportadoPor,
			&status, &job.TotalRows, &job.ProcessedRows, &job.SuccessCount, &job.ErrorCount, &job.DuplicateCount,
			&job.LastRowOffset, &job.CreatedAt, &job.StartedAt, &job.FinishedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", scanErr)
		}
		job.Status = domain.JobStatus(status)
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import jobs: %w", rowsErr)
	}

	return jobs, nil
}

func (r *importJobRepository) AppendError(ctx context.Context, jobID uuid.UUID, entry domain.ErrorLogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO import_errors (job_id, row_number, reason) VALUES ($1, $2, $3)`,
		jobID, entry.RowNumber, entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to append import error: %w", err)
	}
	return nil
}

// recentErrors loads the newest bounded window of the persistent error log,
// oldest first.
func (r *importJobRepository) recentErrors(ctx context.Context, jobID uuid.UUID) ([]domain.ErrorLogEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT row_number, reason FROM import_errors
		 WHERE job_id = $1 ORDER BY id DESC LIMIT $2`,
		jobID, domain.MaxRecentErrors,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load import errors: %w", err)
	}
	defer rows.Close()

	entries := []domain.ErrorLogEntry{}
	for rows.Next() {
		var entry domain.ErrorLogEntry
		if scanErr := rows.Scan(&entry.RowNumber, &entry.Reason); scanErr != nil {
			return nil, fmt.Errorf("failed to scan import error: %w", scanErr)
		}
		entries = append(entries, entry)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate import errors: %w", rowsErr)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
