package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/consiglab/importer/internal/domain"
	"github.com/consiglab/importer/internal/repository"
	"github.com/consiglab/importer/internal/storage"
	"github.com/consiglab/importer/pkg/logger"
)

// Presets maps a batch preset name to its batch size. The choice is a
// throughput/memory tradeoff, not a correctness one.
type Presets map[string]int

const DefaultPreset = "balanced"

func DefaultPresets() Presets {
	return Presets{
		"conservative": 50,
		"balanced":     150,
		"aggressive":   500,
	}
}

// Size resolves a preset name, falling back to the balanced preset.
func (p Presets) Size(name string) int {
	if size, ok := p[name]; ok && size > 0 {
		return size
	}
	if size, ok := p[DefaultPreset]; ok && size > 0 {
		return size
	}
	return 150
}

// ErrJobNotRunning is returned when pausing a job that has no active run.
var ErrJobNotRunning = errors.New("job is not running")

// progressInterval controls how often counters are published and the job row
// refreshed during the row loop.
const progressInterval = 500

type jobControl struct {
	paused atomic.Bool
}

// Service drives the whole pipeline for one upload: ingest, map headers,
// normalize rows, buffer, persist. One run owns its buffers exclusively;
// there is no cross-run shared state beyond the database.
type Service struct {
	clientes  repository.ClienteRepository
	contratos repository.ContratoRepository
	jobs      repository.ImportJobRepository
	store       storage.Store
	persister   *Persister
	log         *logger.Logger
	presets     Presets
	maxFileSize int64

	mu      sync.Mutex
	running map[uuid.UUID]*jobControl
}

func NewService(
	clientes repository.ClienteRepository,
	contratos repository.ContratoRepository,
	jobs repository.ImportJobRepository,
	store storage.Store,
	log *logger.Logger,
	presets Presets,
	maxFileSize int64,
) *Service {
	if presets == nil {
		presets = DefaultPresets()
	}
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}
	return &Service{
		clientes:    clientes,
		contratos:   contratos,
		jobs:        jobs,
		store:       store,
		persister:   NewPersister(clientes, contratos, jobs, log),
		log:         log,
		presets:     presets,
		maxFileSize: maxFileSize,
		running:     make(map[uuid.UUID]*jobControl),
	}
}

// CreateJob validates the upload, stores the raw bytes and registers the job
// in the uploaded state. Structural problems are rejected here, before any
// processing starts.
func (s *Service) CreateJob(ctx context.Context, fileName string, data []byte, preset, importadoPor string) (*domain.ImportJob, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".txt", ".xlsx":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if preset == "" {
		preset = DefaultPreset
	}

	path, err := s.store.Save(fileName, data)
	if err != nil {
		return nil, err
	}

	job := domain.NewImportJob(fileName, int64(len(data)), path, preset, importadoPor)
	if err := s.jobs.Create(ctx, job); err != nil {
		_ = s.store.Delete(path)
		return nil, err
	}

	s.log.Info(ctx, "import job created",
		"job_id", job.ID.String(),
		"file", fileName,
		"size", len(data),
		"preset", preset,
	)
	return job, nil
}

// Run processes the job's stored file to a terminal or paused state. It
// blocks; callers that need an async import run it on its own goroutine and
// observe progress through onProgress.
func (s *Service) Run(ctx context.Context, job *domain.ImportJob, onProgress func(Progress)) error {
	ctx = logger.WithJobID(ctx, job.ID.String())

	ctrl := s.register(job.ID)
	defer s.unregister(job.ID)

	if err := job.Start(); err != nil {
		return err
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}

	err := s.process(ctx, job, ctrl, onProgress)
	switch {
	case errors.Is(err, ErrPaused):
		s.log.Info(ctx, "import paused", "row_offset", job.LastRowOffset)
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			return updateErr
		}
		return nil
	case err != nil:
		s.log.Error(ctx, "import failed", "error", err)
		_ = job.Fail(err.Error())
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			return updateErr
		}
		return err
	default:
		if completeErr := job.Complete(); completeErr != nil {
			return completeErr
		}
		if updateErr := s.jobs.Update(ctx, job); updateErr != nil {
			return updateErr
		}
		// Cleanup only after a fully completed run; paused and failed jobs
		// keep their file for inspection or resume.
		if delErr := s.store.Delete(job.StoragePath); delErr != nil {
			s.log.Warn(ctx, "failed to delete stored upload", "error", delErr)
		}
		s.log.Info(ctx, "import completed",
			"total", job.TotalRows,
			"success", job.SuccessCount,
			"errors", job.ErrorCount,
			"duplicates", job.DuplicateCount,
		)
		return nil
	}
}

func (s *Service) process(ctx context.Context, job *domain.ImportJob, ctrl *jobControl, onProgress func(Progress)) (err error) {
	defer func() {
		// Anything escaping the row loop marks the whole job failed instead
		// of crashing the host process.
		if r := recover(); r != nil {
			err = fmt.Errorf("import aborted: %v", r)
		}
	}()

	payload, err := s.store.Open(job.StoragePath)
	if err != nil {
		return err
	}

	table, err := ParseTable(job.FileName, payload)
	if err != nil {
		return err
	}

	headerMap, err := BuildHeaderMap(table.header)
	if err != nil {
		return err
	}

	job.TotalRows = len(table.rows)
	buf := NewBuffer()

	// Snapshot of the counters before this run's rows; a pause during the
	// final flush rolls back to it so no row is counted without reaching
	// the store.
	baseProcessed := job.ProcessedRows
	baseSuccess := job.SuccessCount
	baseErrors := job.ErrorCount
	baseDuplicates := job.DuplicateCount
	baseRecent := append([]domain.ErrorLogEntry(nil), job.RecentErrors...)

	for i := job.LastRowOffset; i < len(table.rows); i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if ctrl.paused.Load() {
			// Buffered rows are flushed before suspending so the recorded
			// offset only covers rows that were persisted or error-counted.
			if flushErr := s.flush(ctx, job, buf, nil, onProgress); flushErr != nil {
				return flushErr
			}
			_ = job.Pause(i)
			return ErrPaused
		}

		rowNumber := table.headerRowIndex + i + 2 // 1-based, counting the header row
		cliente, contrato, rowErr := NormalizeRow(headerMap, table.rows[i], job.ImportadoPor)
		job.ProcessedRows++

		if rowErr != nil {
			job.ErrorCount++
			entry := domain.ErrorLogEntry{RowNumber: rowNumber, Reason: rowErr.Error()}
			job.RecordError(entry.RowNumber, entry.Reason)
			_ = s.jobs.AppendError(ctx, job.ID, entry)
			continue
		}

		if !buf.AddCliente(cliente, rowNumber) {
			job.DuplicateCount++
		}
		if contrato != nil {
			buf.AddContrato(*contrato)
		}

		if onProgress != nil && job.ProcessedRows%progressInterval == 0 {
			onProgress(Snapshot(job))
			_ = s.jobs.Update(ctx, job)
		}
	}

	flushErr := s.flush(ctx, job, buf, ctrl.paused.Load, onProgress)
	if errors.Is(flushErr, ErrPaused) {
		// Batches past the pause point never reached the store. The run's
		// counter deltas are rolled back and the offset left unchanged, so
		// resume re-reads the whole window; the idempotent upserts absorb
		// the rows that did flush.
		job.ProcessedRows = baseProcessed
		job.SuccessCount = baseSuccess
		job.ErrorCount = baseErrors
		job.DuplicateCount = baseDuplicates
		job.RecentErrors = baseRecent
		_ = job.Pause(job.LastRowOffset)
		return ErrPaused
	}
	return flushErr
}

func (s *Service) flush(ctx context.Context, job *domain.ImportJob, buf *Buffer, paused func() bool, onProgress func(Progress)) error {
	return s.persister.Flush(ctx, job, buf, s.presets.Size(job.BatchPreset), paused, func(p Progress) {
		if onProgress != nil {
			onProgress(p)
		}
		_ = s.jobs.Update(ctx, job)
	})
}

// Pause requests an active run to stop after the current row or batch.
func (s *Service) Pause(jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.running[jobID]
	if !ok {
		return ErrJobNotRunning
	}
	ctrl.paused.Store(true)
	return nil
}

// Resume restarts a paused job from its recorded row offset. Correct skip
// behavior depends on the stored file being unchanged; that is not verified.
func (s *Service) Resume(ctx context.Context, jobID uuid.UUID, onProgress func(Progress)) (*domain.ImportJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusPaused {
		return nil, fmt.Errorf("cannot resume job in status %s", job.Status)
	}
	if err := s.Run(ctx, job, onProgress); err != nil {
		return job, err
	}
	return job, nil
}

// Job returns the tracked state of an import job.
func (s *Service) Job(ctx context.Context, jobID uuid.UUID) (*domain.ImportJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// Jobs lists tracked import jobs, newest first.
func (s *Service) Jobs(ctx context.Context, limit, offset int) ([]*domain.ImportJob, error) {
	return s.jobs.List(ctx, limit, offset)
}

func (s *Service) register(jobID uuid.UUID) *jobControl {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl := &jobControl{}
	s.running[jobID] = ctrl
	return ctrl
}

func (s *Service) unregister(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, jobID)
}
