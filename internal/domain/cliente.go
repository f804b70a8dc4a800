package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CPF is the 11 digit natural key used to deduplicate and upsert clients.
type CPF string

const cpfLength = 11

// ParseCPF strips every non digit character, left pads with zeros to 11
// characters and truncates to the first 11 when longer. Returns ok=false when
// no digits remain.
func ParseCPF(raw string) (CPF, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if len(digits) < cpfLength {
		digits = strings.Repeat("0", cpfLength-len(digits)) + digits
	}
	// Downstream joins depend on taking the leading 11 characters.
	return CPF(digits[:cpfLength]), true
}

func (c CPF) String() string {
	return string(c)
}

// Cliente is the primary entity produced by an import run. CPF, NB and Nome
// are mandatory; every other field is optional and nullable.
type Cliente struct {
	ID  uuid.UUID `json:"id"`
	CPF CPF       `json:"cpf"`
	NB  string    `json:"nb"`

	Nome           string     `json:"nome"`
	DataNascimento *time.Time `json:"data_nascimento,omitempty"`
	RG             *string    `json:"rg,omitempty"`
	NomeMae        *string    `json:"nome_mae,omitempty"`
	Sexo           *string    `json:"sexo,omitempty"`
	EstadoCivil    *string    `json:"estado_civil,omitempty"`

	Endereco    *string `json:"endereco,omitempty"`
	Numero      *string `json:"numero,omitempty"`
	Complemento *string `json:"complemento,omitempty"`
	Bairro      *string `json:"bairro,omitempty"`
	Cidade      *string `json:"cidade,omitempty"`
	UF          *string `json:"uf,omitempty"`
	CEP         *string `json:"cep,omitempty"`

	Telefone1 *string `json:"telefone1,omitempty"`
	Telefone2 *string `json:"telefone2,omitempty"`
	Telefone3 *string `json:"telefone3,omitempty"`
	Email     *string `json:"email,omitempty"`

	Especie           *string    `json:"especie,omitempty"`
	SituacaoBeneficio *string    `json:"situacao_beneficio,omitempty"`
	DIB               *time.Time `json:"dib,omitempty"`
	DDB               *time.Time `json:"ddb,omitempty"`
	ValorBeneficio    *float64   `json:"valor_beneficio,omitempty"`
	ValorRMC          *float64   `json:"valor_rmc,omitempty"`
	MargemDisponivel  *float64   `json:"margem_disponivel,omitempty"`

	BancoPagamento *string `json:"banco_pagamento,omitempty"`
	Agencia        *string `json:"agencia,omitempty"`
	ContaPagamento *string `json:"conta_pagamento,omitempty"`
	MeioPagamento  *string `json:"meio_pagamento,omitempty"`

	ImportadoPor string    `json:"importado_por"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
