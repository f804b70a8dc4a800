package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consiglab/importer/internal/domain"
)

// clienteColumns is the insert column order; cpf first, it is the conflict key.
var clienteColumns = []string{
	"cpf", "nb", "nome",
	"data_nascimento", "rg", "nome_mae", "sexo", "estado_civil",
	"endereco", "numero", "complemento", "bairro", "cidade", "uf", "cep",
	"telefone1", "telefone2", "telefone3", "email",
	"especie", "situacao_beneficio", "dib", "ddb",
	"valor_beneficio", "valor_rmc", "margem_disponivel",
	"banco_pagamento", "agencia", "conta_pagamento", "meio_pagamento",
	"importado_por",
}

type clienteRepository struct {
	pool *pgxpool.Pool
}

// NewClienteRepository creates a pgx backed client repository.
func NewClienteRepository(pool *pgxpool.Pool) ClienteRepository {
	return &clienteRepository{pool: pool}
}

func clienteArgs(c domain.Cliente) []any {
	return []any{
		c.CPF.String(), c.NB, c.Nome,
		c.DataNascimento, c.RG, c.NomeMae, c.Sexo, c.EstadoCivil,
		c.Endereco, c.Numero, c.Complemento, c.Bairro, c.Cidade, c.UF, c.CEP,
		c.Telefone1, c.Telefone2, c.Telefone3, c.Email,
		c.Especie, c.SituacaoBeneficio, c.DIB, c.DDB,
		c.ValorBeneficio, c.ValorRMC, c.MargemDisponivel,
		c.BancoPagamento, c.Agencia, c.ContaPagamento, c.MeioPagamento,
		c.ImportadoPor,
	}
}

// UpsertBatch writes the whole batch in one INSERT .. ON CONFLICT statement.
// An existing row with the same cpf is updated in place, never duplicated.
func (r *clienteRepository) UpsertBatch(ctx context.Context, clientes []domain.Cliente) (map[domain.CPF]uuid.UUID, error) {
	ids := make(map[domain.CPF]uuid.UUID, len(clientes))
	if len(clientes) == 0 {
		return ids, nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO clientes (")
	sb.WriteString(strings.Join(clienteColumns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(clientes)*len(clienteColumns))
	for i, cliente := range clientes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range clienteColumns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*len(clienteColumns)+j+1)
		}
		sb.WriteString(")")
		args = append(args, clienteArgs(cliente)...)
	}

	sb.WriteString(" ON CONFLICT (cpf) DO UPDATE SET ")
	for i, col := range clienteColumns[1:] {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = EXCLUDED.%s", col, col)
	}
	sb.WriteString(", updated_at = now() RETURNING id, cpf")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert client batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var cpf string
		if scanErr := rows.Scan(&id, &cpf); scanErr != nil {
			return nil, fmt.Errorf("failed to scan upserted client: %w", scanErr)
		}
		ids[domain.CPF(cpf)] = id
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate upserted clients: %w", rowsErr)
	}

	return ids, nil
}

// GetByCPF retrieves one client by its natural key.
func (r *clienteRepository) GetByCPF(ctx context.Context, cpf domain.CPF) (domain.Cliente, error) {
	query := "SELECT id, " + strings.Join(clienteColumns, ", ") + ", created_at, updated_at FROM clientes WHERE cpf = $1"

	var c domain.Cliente
	var cpfRaw string
	err := r.pool.QueryRow(ctx, query, cpf.String()).Scan(
		&c.ID, &cpfRaw, &c.NB, &c.Nome,
		&c.DataNascimento, &c.RG, &c.NomeMae, &c.Sexo, &c.EstadoCivil,
		&c.Endereco, &c.Numero, &c.Complemento, &c.Bairro, &c.Cidade, &c.UF, &c.CEP,
		&c.Telefone1, &c.Telefone2, &c.Telefone3, &c.Email,
		&c.Especie, &c.SituacaoBeneficio, &c.DIB, &c.DDB,
		&c.ValorBeneficio, &c.ValorRMC, &c.MargemDisponivel,
		&c.BancoPagamento, &c.Agencia, &c.ContaPagamento, &c.MeioPagamento,
		&c.ImportadoPor, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return domain.Cliente{}, fmt.Errorf("failed to get client: %w", err)
	}
	c.CPF = domain.CPF(cpfRaw)
	return c, nil
}

// Count returns the total number of clients.
func (r *clienteRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM clientes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}
