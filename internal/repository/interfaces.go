package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/consiglab/importer/internal/domain"
)

// ClienteRepository persists primary client records.
type ClienteRepository interface {
	// UpsertBatch inserts or updates every client in one statement keyed on
	// CPF and returns the generated (or existing) id per CPF.
	UpsertBatch(ctx context.Context, clientes []domain.Cliente) (map[domain.CPF]uuid.UUID, error)
	GetByCPF(ctx context.Context, cpf domain.CPF) (domain.Cliente, error)
	Count(ctx context.Context) (int64, error)
}

// ContratoRepository persists loan contracts tied to clients.
type ContratoRepository interface {
	// UpsertBatch inserts or updates contracts keyed on (cpf, contrato).
	// Every contract must carry its client's id already attached.
	UpsertBatch(ctx context.Context, contratos []domain.Contrato) error
	ListByCPF(ctx context.Context, cpf domain.CPF) ([]domain.Contrato, error)
}

// ImportJobRepository tracks the lifecycle row of each import run.
type ImportJobRepository interface {
	Create(ctx context.Context, job *domain.ImportJob) error
	Update(ctx context.Context, job *domain.ImportJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error)
	List(ctx context.Context, limit, offset int) ([]*domain.ImportJob, error)
	// AppendError persists one row level or batch level error entry.
	AppendError(ctx context.Context, jobID uuid.UUID, entry domain.ErrorLogEntry) error
}
