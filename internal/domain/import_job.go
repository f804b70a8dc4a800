package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks the lifecycle of one import run.
type JobStatus string

const (
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusPaused     JobStatus = "paused"
)

// MaxRecentErrors bounds the in-memory error log; older entries are evicted
// first in, first out.
const MaxRecentErrors = 100

// ErrorLogEntry records one row level or batch level problem.
type ErrorLogEntry struct {
	RowNumber int    `json:"row_number"`
	Reason    string `json:"reason"`
}

// ImportJob is the tracked lifecycle record of one file processing run.
type ImportJob struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	StoragePath  string    `json:"storage_path"`
	BatchPreset  string    `json:"batch_preset"`
	ImportadoPor string    `json:"importado_por"`

	Status         JobStatus `json:"status"`
	TotalRows      int       `json:"total_rows"`
	ProcessedRows  int       `json:"processed_rows"`
	SuccessCount   int       `json:"success_count"`
	ErrorCount     int       `json:"error_count"`
	DuplicateCount int       `json:"duplicate_count"`

	// LastRowOffset is the last fully processed data row, recorded on pause
	// so a resume can skip already handled rows. Resume assumes the source
	// file is byte identical across runs; that is not verified.
	LastRowOffset int `json:"last_row_offset"`

	RecentErrors []ErrorLogEntry `json:"recent_errors"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewImportJob creates a job in the uploaded state.
func NewImportJob(fileName string, fileSize int64, storagePath, batchPreset, importadoPor string) *ImportJob {
	return &ImportJob{
		ID:           uuid.New(),
		FileName:     fileName,
		FileSize:     fileSize,
		StoragePath:  storagePath,
		BatchPreset:  batchPreset,
		ImportadoPor: importadoPor,
		Status:       JobStatusUploaded,
		RecentErrors: []ErrorLogEntry{},
		CreatedAt:    time.Now(),
	}
}

// Start moves the job into processing. Valid from uploaded and paused.
func (j *ImportJob) Start() error {
	if j.Status != JobStatusUploaded && j.Status != JobStatusPaused {
		return fmt.Errorf("cannot start job in status %s", j.Status)
	}
	if j.StartedAt == nil {
		now := time.Now()
		j.StartedAt = &now
	}
	j.Status = JobStatusProcessing
	return nil
}

// Complete marks the job as finished successfully.
func (j *ImportJob) Complete() error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("cannot complete job in status %s", j.Status)
	}
	now := time.Now()
	j.FinishedAt = &now
	j.Status = JobStatusCompleted
	return nil
}

// Fail terminates the job and records the failure reason in the error log.
func (j *ImportJob) Fail(reason string) error {
	if j.Status == JobStatusCompleted || j.Status == JobStatusFailed {
		return fmt.Errorf("cannot fail job in status %s", j.Status)
	}
	now := time.Now()
	j.FinishedAt = &now
	j.Status = JobStatusFailed
	j.RecordError(0, reason)
	return nil
}

// Pause suspends the job and records the last fully processed row offset.
func (j *ImportJob) Pause(lastRowOffset int) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("cannot pause job in status %s", j.Status)
	}
	j.LastRowOffset = lastRowOffset
	j.Status = JobStatusPaused
	return nil
}

// IsTerminal reports whether no further transitions are allowed.
func (j *ImportJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// RecordError appends an error entry, evicting the oldest entries beyond
// MaxRecentErrors.
func (j *ImportJob) RecordError(rowNumber int, reason string) {
	j.RecentErrors = append(j.RecentErrors, ErrorLogEntry{RowNumber: rowNumber, Reason: reason})
	if len(j.RecentErrors) > MaxRecentErrors {
		j.RecentErrors = j.RecentErrors[len(j.RecentErrors)-MaxRecentErrors:]
	}
}
