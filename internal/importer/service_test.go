package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consiglab/importer/internal/domain"
	"github.com/consiglab/importer/internal/storage"
	"github.com/consiglab/importer/pkg/logger"
)

type stubClienteRepo struct {
	mu         sync.Mutex
	rows       map[domain.CPF]domain.Cliente
	ids        map[domain.CPF]uuid.UUID
	calls      int
	failOnCall int // fail the Nth UpsertBatch call, 0 = never
}

func newStubClienteRepo() *stubClienteRepo {
	return &stubClienteRepo{
		rows: make(map[domain.CPF]domain.Cliente),
		ids:  make(map[domain.CPF]uuid.UUID),
	}
}

func (s *stubClienteRepo) UpsertBatch(_ context.Context, clientes []domain.Cliente) (map[domain.CPF]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOnCall != 0 && s.calls == s.failOnCall {
		return nil, errors.New("storage unavailable")
	}
	out := make(map[domain.CPF]uuid.UUID, len(clientes))
	for _, cliente := range clientes {
		id, ok := s.ids[cliente.CPF]
		if !ok {
			id = uuid.New()
			s.ids[cliente.CPF] = id
		}
		s.rows[cliente.CPF] = cliente
		out[cliente.CPF] = id
	}
	return out, nil
}

func (s *stubClienteRepo) GetByCPF(_ context.Context, cpf domain.CPF) (domain.Cliente, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cliente, ok := s.rows[cpf]
	if !ok {
		return domain.Cliente{}, errors.New("client not found")
	}
	return cliente, nil
}

func (s *stubClienteRepo) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

type stubContratoRepo struct {
	mu   sync.Mutex
	rows map[domain.ContratoKey]domain.Contrato
	fail bool
}

func newStubContratoRepo() *stubContratoRepo {
	return &stubContratoRepo{rows: make(map[domain.ContratoKey]domain.Contrato)}
}

func (s *stubContratoRepo) UpsertBatch(_ context.Context, contratos []domain.Contrato) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("contract storage unavailable")
	}
	for _, contrato := range contratos {
		s.rows[contrato.Key()] = contrato
	}
	return nil
}

func (s *stubContratoRepo) ListByCPF(_ context.Context, cpf domain.CPF) ([]domain.Contrato, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contrato
	for key, contrato := range s.rows {
		if key.CPF == cpf {
			out = append(out, contrato)
		}
	}
	return out, nil
}

type stubJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.ImportJob
	errs map[uuid.UUID][]domain.ErrorLogEntry
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{
		jobs: make(map[uuid.UUID]*domain.ImportJob),
		errs: make(map[uuid.UUID][]domain.ErrorLogEntry),
	}
}

func (s *stubJobRepo) Create(_ context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *stubJobRepo) Update(_ context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *stubJobRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

func (s *stubJobRepo) List(_ context.Context, _, _ int) ([]*domain.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ImportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (s *stubJobRepo) AppendError(_ context.Context, jobID uuid.UUID, entry domain.ErrorLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[jobID] = append(s.errs[jobID], entry)
	return nil
}

type testEnv struct {
	service   *Service
	clientes  *stubClienteRepo
	contratos *stubContratoRepo
	jobs      *stubJobRepo
	store     storage.Store
}

func newTestEnv(t *testing.T, presets Presets) testEnv {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	clientes := newStubClienteRepo()
	contratos := newStubContratoRepo()
	jobs := newStubJobRepo()

	service := NewService(clientes, contratos, jobs, store, logger.NewNop(), presets, 0)
	return testEnv{service: service, clientes: clientes, contratos: contratos, jobs: jobs, store: store}
}

func importFile(t *testing.T, env testEnv, name string, data []byte) *domain.ImportJob {
	t.Helper()
	job, err := env.service.CreateJob(context.Background(), name, data, "", "operador")
	require.NoError(t, err)
	require.NoError(t, env.service.Run(context.Background(), job, nil))
	return job
}

func TestServiceImportEndToEnd(t *testing.T) {
	env := newTestEnv(t, nil)
	data := []byte("NB;CPF;NOME;VL_RMC\n12345;123.456.789-09;JOÃO SILVA;1.234,56\n")

	job := importFile(t, env, "base.csv", data)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.TotalRows)
	assert.Equal(t, 1, job.ProcessedRows)
	assert.Equal(t, 1, job.SuccessCount)
	assert.Equal(t, 0, job.ErrorCount)
	assert.Equal(t, 0, job.DuplicateCount)

	cliente, err := env.clientes.GetByCPF(context.Background(), "12345678909")
	require.NoError(t, err)
	assert.Equal(t, "12345", cliente.NB)
	assert.Equal(t, "JOÃO SILVA", cliente.Nome)
	require.NotNil(t, cliente.ValorRMC)
	assert.InDelta(t, 1234.56, *cliente.ValorRMC, 0.0001)
	assert.Equal(t, "operador", cliente.ImportadoPor)

	assert.Empty(t, env.contratos.rows, "no contract fields on the row")

	_, err = env.store.Open(job.StoragePath)
	assert.Error(t, err, "stored file is deleted after a completed run")
}

func TestServiceDuplicateRowsFirstWins(t *testing.T) {
	env := newTestEnv(t, nil)
	data := []byte("NB;CPF;NOME\n1;12345678909;PRIMEIRA\n2;12345678909;SEGUNDA\n")

	job := importFile(t, env, "base.csv", data)

	assert.Equal(t, 2, job.ProcessedRows)
	assert.Equal(t, 1, job.DuplicateCount)
	assert.Equal(t, 1, job.SuccessCount)
	assert.Equal(t, 0, job.ErrorCount)

	cliente, err := env.clientes.GetByCPF(context.Background(), "12345678909")
	require.NoError(t, err)
	assert.Equal(t, "PRIMEIRA", cliente.Nome)
}

func TestServiceRowErrorsAreIndependent(t *testing.T) {
	env := newTestEnv(t, nil)
	data := []byte("NB;CPF;NOME\n1;12345678909;\n2;98765432100;MARIA\n3;;PEDRO\n")

	job := importFile(t, env, "base.csv", data)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.ProcessedRows)
	assert.Equal(t, 1, job.SuccessCount)
	assert.Equal(t, 2, job.ErrorCount)

	require.Len(t, job.RecentErrors, 2)
	assert.Equal(t, 2, job.RecentErrors[0].RowNumber)
	assert.Contains(t, job.RecentErrors[0].Reason, "nome")
	assert.Equal(t, 4, job.RecentErrors[1].RowNumber)
	assert.Contains(t, job.RecentErrors[1].Reason, "cpf")

	assert.Len(t, env.jobs.errs[job.ID], 2, "row errors are persisted")
}

func TestServiceBatchFailureIsIsolated(t *testing.T) {
	env := newTestEnv(t, Presets{"balanced": 2})
	env.clientes.failOnCall = 2

	data := []byte("NB;CPF;NOME\n" +
		"1;00000000001;A\n" +
		"2;00000000002;B\n" +
		"3;00000000003;C\n" +
		"4;00000000004;D\n" +
		"5;00000000005;E\n")

	job := importFile(t, env, "base.csv", data)

	assert.Equal(t, domain.JobStatusCompleted, job.Status, "one failed batch must not fail the job")
	assert.Equal(t, 3, env.clientes.calls)
	assert.Equal(t, 3, job.SuccessCount)
	assert.Equal(t, 2, job.ErrorCount, "every row of the failed batch counts as an error")

	require.Len(t, job.RecentErrors, 1)
	assert.Contains(t, job.RecentErrors[0].Reason, "batch upsert failed")
	assert.Equal(t, 4, job.RecentErrors[0].RowNumber, "aggregate entry points at the batch's first row")

	assert.Len(t, env.clientes.rows, 3)
}

func TestServiceContractLinkage(t *testing.T) {
	env := newTestEnv(t, nil)
	data := []byte("NB;CPF;NOME;CONTRATO;BANCO\n1;12345678909;ANA;CT-9;BANCO X\n")

	job := importFile(t, env, "base.csv", data)
	assert.Equal(t, 1, job.SuccessCount)

	key := domain.ContratoKey{CPF: "12345678909", Numero: "CT-9"}
	contrato, ok := env.contratos.rows[key]
	require.True(t, ok)
	assert.Equal(t, env.clientes.ids["12345678909"], contrato.ClienteID,
		"contract carries the generated client id")
}

func TestServiceReimportIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	data := []byte("NB;CPF;NOME\n1;12345678909;ANA\n")

	first := importFile(t, env, "base.csv", data)
	firstID := env.clientes.ids["12345678909"]

	second := importFile(t, env, "base.csv", data)

	assert.Equal(t, 1, first.SuccessCount)
	assert.Equal(t, 1, second.SuccessCount)
	assert.Len(t, env.clientes.rows, 1, "same file twice converges to one row")
	assert.Equal(t, firstID, env.clientes.ids["12345678909"], "upsert keeps the existing id")
}

func TestServiceFailsWhenNoHeadersResolve(t *testing.T) {
	env := newTestEnv(t, nil)
	data := []byte("FOO;BAR\n1;2\n")

	job, err := env.service.CreateJob(context.Background(), "base.csv", data, "", "")
	require.NoError(t, err)

	err = env.service.Run(context.Background(), job, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRecognizedHeaders)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotEmpty(t, job.RecentErrors)
}

func TestServiceRejectsBadUploads(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.service.CreateJob(context.Background(), "base.csv", nil, "", "")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = env.service.CreateJob(context.Background(), "base.pdf", []byte("x"), "", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestServicePauseRequiresRunningJob(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.ErrorIs(t, env.service.Pause(uuid.New()), ErrJobNotRunning)
}

func TestServicePauseBetweenRowsPersistsBufferedRows(t *testing.T) {
	env := newTestEnv(t, nil)

	var sb strings.Builder
	sb.WriteString("NB;CPF;NOME\n")
	for i := 1; i <= 600; i++ {
		fmt.Fprintf(&sb, "%d;%011d;CLIENTE %d\n", i, i, i)
	}

	job, err := env.service.CreateJob(context.Background(), "base.csv", []byte(sb.String()), "", "")
	require.NoError(t, err)

	// The first progress callback fires after 500 rows; pausing there is
	// honored at the next row check.
	var once sync.Once
	err = env.service.Run(context.Background(), job, func(Progress) {
		once.Do(func() { require.NoError(t, env.service.Pause(job.ID)) })
	})
	require.NoError(t, err, "a paused run is not a failed run")

	assert.Equal(t, domain.JobStatusPaused, job.Status)
	assert.Equal(t, 500, job.LastRowOffset)
	assert.Equal(t, 500, job.SuccessCount, "buffered rows are flushed before suspending")
	assert.Len(t, env.clientes.rows, 500, "every row before the offset reached the store")

	resumed, err := env.service.Resume(context.Background(), job.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusCompleted, resumed.Status)
	assert.Equal(t, 600, resumed.ProcessedRows, "rows before the offset are not re-read")
	assert.Equal(t, 600, resumed.SuccessCount)
	assert.Equal(t, 0, resumed.ErrorCount)
	assert.Len(t, env.clientes.rows, 600)
}

func TestServicePauseDuringFlushKeepsAllRows(t *testing.T) {
	env := newTestEnv(t, Presets{"balanced": 1})
	data := []byte("NB;CPF;NOME\n1;00000000001;A\n2;00000000002;B\n3;00000000003;C\n")

	job, err := env.service.CreateJob(context.Background(), "base.csv", data, "", "")
	require.NoError(t, err)

	// At batch size 1 the first progress callback fires mid-flush, so the
	// pause lands between batches with rows still unflushed.
	var once sync.Once
	err = env.service.Run(context.Background(), job, func(Progress) {
		once.Do(func() { require.NoError(t, env.service.Pause(job.ID)) })
	})
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusPaused, job.Status)
	assert.Equal(t, 0, job.LastRowOffset, "unflushed batches keep the window open")
	assert.Equal(t, 0, job.SuccessCount, "partial flush counters are rolled back")

	resumed, err := env.service.Resume(context.Background(), job.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusCompleted, resumed.Status)
	assert.Equal(t, 3, resumed.ProcessedRows)
	assert.Equal(t, 3, resumed.SuccessCount)
	for _, cpf := range []domain.CPF{"00000000001", "00000000002", "00000000003"} {
		assert.Contains(t, env.clientes.rows, cpf, "every row must be persisted after resume")
	}
}

func TestServiceConfiguredFileSizeLimit(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	service := NewService(newStubClienteRepo(), newStubContratoRepo(), newStubJobRepo(), store, logger.NewNop(), nil, 16)

	_, err = service.CreateJob(context.Background(), "base.csv", make([]byte, 32), "", "")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = service.CreateJob(context.Background(), "base.csv", []byte("CPF,NOME\n"), "", "")
	assert.NoError(t, err)
}

func TestServiceResumeRejectsNonPausedJobs(t *testing.T) {
	env := newTestEnv(t, nil)
	data := []byte("NB;CPF;NOME\n1;00000000001;A\n")

	job := importFile(t, env, "base.csv", data)
	_, err := env.service.Resume(context.Background(), job.ID, nil)
	assert.Error(t, err)
}
