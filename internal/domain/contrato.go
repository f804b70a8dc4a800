package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contrato is the secondary entity tied to exactly one Cliente by CPF.
// Uniqueness is enforced on (CPF, Numero).
type Contrato struct {
	ID        uuid.UUID `json:"id"`
	ClienteID uuid.UUID `json:"cliente_id"`
	CPF       CPF       `json:"cpf"`
	Numero    string    `json:"contrato"`
	Banco     string    `json:"banco"`

	ValorEmprestimo    *float64 `json:"valor_emprestimo,omitempty"`
	ValorParcela       *float64 `json:"valor_parcela,omitempty"`
	QuantidadeParcelas *int     `json:"quantidade_parcelas,omitempty"`
	ParcelasRestantes  *int     `json:"parcelas_restantes,omitempty"`
	Taxa               *float64 `json:"taxa,omitempty"`

	DataAverbacao  *time.Time `json:"data_averbacao,omitempty"`
	InicioDesconto *time.Time `json:"inicio_desconto,omitempty"`
	FimDesconto    *time.Time `json:"fim_desconto,omitempty"`
	Situacao       *string    `json:"situacao,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key identifies a contract inside the import buffers.
func (c Contrato) Key() ContratoKey {
	return ContratoKey{CPF: c.CPF, Numero: c.Numero}
}

// ContratoKey is the (natural key, contract number) pair contracts dedup on.
type ContratoKey struct {
	CPF    CPF
	Numero string
}
