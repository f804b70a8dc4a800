package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consiglab/importer/internal/domain"
)

var contratoColumns = []string{
	"cliente_id", "cpf", "contrato", "banco",
	"valor_emprestimo", "valor_parcela", "quantidade_parcelas", "parcelas_restantes", "taxa",
	"data_averbacao", "inicio_desconto", "fim_desconto", "situacao",
}

type contratoRepository struct {
	pool *pgxpool.Pool
}

// NewContratoRepository creates a pgx backed contract repository.
func NewContratoRepository(pool *pgxpool.Pool) ContratoRepository {
	return &contratoRepository{pool: pool}
}

func contratoArgs(c domain.Contrato) []any {
	return []any{
		c.ClienteID, c.CPF.String(), c.Numero, c.Banco,
		c.ValorEmprestimo, c.ValorParcela, c.QuantidadeParcelas, c.ParcelasRestantes, c.Taxa,
		c.DataAverbacao, c.InicioDesconto, c.FimDesconto, c.Situacao,
	}
}

// UpsertBatch writes contracts keyed on (cpf, contrato) in one statement.
func (r *contratoRepository) UpsertBatch(ctx context.Context, contratos []domain.Contrato) error {
	if len(contratos) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO contratos (")
	sb.WriteString(strings.Join(contratoColumns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(contratos)*len(contratoColumns))
	for i, contrato := range contratos {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range contratoColumns {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*len(contratoColumns)+j+1)
		}
		sb.WriteString(")")
		args = append(args, contratoArgs(contrato)...)
	}

	sb.WriteString(" ON CONFLICT (cpf, contrato) DO UPDATE SET ")
	updatable := []string{
		"cliente_id", "banco",
		"valor_emprestimo", "valor_parcela", "quantidade_parcelas", "parcelas_restantes", "taxa",
		"data_averbacao", "inicio_desconto", "fim_desconto", "situacao",
	}
	for i, col := range updatable {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s = EXCLUDED.%s", col, col)
	}
	sb.WriteString(", updated_at = now()")

	if _, err := r.pool.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to upsert contract batch: %w", err)
	}
	return nil
}

// ListByCPF returns all contracts of one client.
func (r *contratoRepository) ListByCPF(ctx context.Context, cpf domain.CPF) ([]domain.Contrato, error) {
	query := "SELECT id, " + strings.Join(contratoColumns, ", ") + ", created_at, updated_at FROM contratos WHERE cpf = $1 ORDER BY contrato"

	rows, err := r.pool.Query(ctx, query, cpf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	contratos := []domain.Contrato{}
	for rows.Next() {
		var c domain.Contrato
		var cpfRaw string
		if scanErr := rows.Scan(
			&c.ID, &c.ClienteID, &cpfRaw, &c.Numero, &c.Banco,
			&c.ValorEmprestimo, &c.ValorParcela, &c.QuantidadeParcelas, &c.ParcelasRestantes, &c.Taxa,
			&c.DataAverbacao, &c.InicioDesconto, &c.FimDesconto, &c.Situacao,
			&c.CreatedAt, &c.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", scanErr)
		}
		c.CPF = domain.CPF(cpfRaw)
		contratos = append(contratos, c)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate contracts: %w", rowsErr)
	}

	return contratos, nil
}
