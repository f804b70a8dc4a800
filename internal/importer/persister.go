package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/consiglab/importer/internal/domain"
	"github.com/consiglab/importer/internal/repository"
	"github.com/consiglab/importer/pkg/logger"
)

// ErrPaused is returned when a pause request is honored between rows or
// between batches. The in-flight batch is always allowed to finish.
var ErrPaused = errors.New("import paused")

// Progress is the caller-visible snapshot published after each unit of work.
type Progress struct {
	ProcessedRows  int                   `json:"processed_rows"`
	TotalRows      int                   `json:"total_rows"`
	SuccessCount   int                   `json:"success_count"`
	ErrorCount     int                   `json:"error_count"`
	DuplicateCount int                   `json:"duplicate_count"`
	RecentErrors   []domain.ErrorLogEntry `json:"recent_errors"`
}

// Snapshot copies the job counters into a Progress value.
func Snapshot(job *domain.ImportJob) Progress {
	recent := make([]domain.ErrorLogEntry, len(job.RecentErrors))
	copy(recent, job.RecentErrors)
	return Progress{
		ProcessedRows:  job.ProcessedRows,
		TotalRows:      job.TotalRows,
		SuccessCount:   job.SuccessCount,
		ErrorCount:     job.ErrorCount,
		DuplicateCount: job.DuplicateCount,
		RecentErrors:   recent,
	}
}

// Persister writes buffered records to the backing store in fixed size
// batches. Batches are issued sequentially so every failure is unambiguously
// scoped to one batch.
type Persister struct {
	clientes  repository.ClienteRepository
	contratos repository.ContratoRepository
	jobs      repository.ImportJobRepository
	log       *logger.Logger
}

func NewPersister(
	clientes repository.ClienteRepository,
	contratos repository.ContratoRepository,
	jobs repository.ImportJobRepository,
	log *logger.Logger,
) *Persister {
	return &Persister{clientes: clientes, contratos: contratos, jobs: jobs, log: log}
}

// recordError captures an aggregate batch error in the job and, best effort,
// in the persistent error log.
func (p *Persister) recordError(ctx context.Context, job *domain.ImportJob, rowNumber int, reason string) {
	job.RecordError(rowNumber, reason)
	if p.jobs != nil {
		_ = p.jobs.AppendError(ctx, job.ID, domain.ErrorLogEntry{RowNumber: rowNumber, Reason: reason})
	}
}

// Flush upserts every buffered client batch by batch, then the contracts of
// each successfully upserted client with the generated client id attached.
// A failed batch is recorded as one aggregate error covering all its rows
// and the next batch proceeds.
func (p *Persister) Flush(
	ctx context.Context,
	job *domain.ImportJob,
	buf *Buffer,
	batchSize int,
	paused func() bool,
	onProgress func(Progress),
) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	clientes := buf.Clientes()
	for start := 0; start < len(clientes); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if paused != nil && paused() {
			return ErrPaused
		}

		end := start + batchSize
		if end > len(clientes) {
			end = len(clientes)
		}
		batch := clientes[start:end]
		startRow := buf.RowOf(batch[0].CPF)

		ids, err := p.clientes.UpsertBatch(ctx, batch)
		if err != nil {
			job.ErrorCount += len(batch)
			p.recordError(ctx, job, startRow, fmt.Sprintf("batch upsert failed (%d rows): %v", len(batch), err))
			p.log.Error(ctx, "client batch upsert failed",
				"start_row", startRow,
				"batch_size", len(batch),
				"error", err,
			)
			if onProgress != nil {
				onProgress(Snapshot(job))
			}
			continue
		}
		job.SuccessCount += len(batch)

		var pending []domain.Contrato
		for _, cliente := range batch {
			id, ok := ids[cliente.CPF]
			if !ok {
				continue
			}
			for _, contrato := range buf.ContratosFor(cliente.CPF) {
				contrato.ClienteID = id
				pending = append(pending, contrato)
			}
		}

		if len(pending) > 0 {
			if err := p.contratos.UpsertBatch(ctx, pending); err != nil {
				// Client rows stay persisted; only the contracts are lost.
				p.recordError(ctx, job, startRow, fmt.Sprintf("contract batch upsert failed (%d contracts): %v", len(pending), err))
				p.log.Error(ctx, "contract batch upsert failed",
					"start_row", startRow,
					"contracts", len(pending),
					"error", err,
				)
			}
		}

		if onProgress != nil {
			onProgress(Snapshot(job))
		}
	}

	return nil
}
