package importer

import (
	"github.com/consiglab/importer/internal/domain"
)

// Buffer accumulates normalized records for one import run. The first row
// seen for a CPF wins; later rows with the same key are dropped. The same
// rule applies to contracts on (CPF, contract number).
type Buffer struct {
	clientes  map[domain.CPF]domain.Cliente
	order     []domain.CPF
	rowOf     map[domain.CPF]int
	contratos map[domain.CPF][]domain.Contrato
	seen      map[domain.ContratoKey]struct{}
}

func NewBuffer() *Buffer {
	return &Buffer{
		clientes:  make(map[domain.CPF]domain.Cliente),
		rowOf:     make(map[domain.CPF]int),
		contratos: make(map[domain.CPF][]domain.Contrato),
		seen:      make(map[domain.ContratoKey]struct{}),
	}
}

// AddCliente buffers a client keyed by CPF. Returns false when the CPF was
// already buffered; the existing record is never overwritten.
func (b *Buffer) AddCliente(cliente domain.Cliente, rowNumber int) bool {
	if _, exists := b.clientes[cliente.CPF]; exists {
		return false
	}
	b.clientes[cliente.CPF] = cliente
	b.rowOf[cliente.CPF] = rowNumber
	b.order = append(b.order, cliente.CPF)
	return true
}

// AddContrato buffers a contract under its client's CPF. Returns false when
// the (CPF, contract number) pair was already buffered.
func (b *Buffer) AddContrato(contrato domain.Contrato) bool {
	key := contrato.Key()
	if _, exists := b.seen[key]; exists {
		return false
	}
	b.seen[key] = struct{}{}
	b.contratos[contrato.CPF] = append(b.contratos[contrato.CPF], contrato)
	return true
}

// Clientes returns buffered clients in first-seen order.
func (b *Buffer) Clientes() []domain.Cliente {
	out := make([]domain.Cliente, 0, len(b.order))
	for _, cpf := range b.order {
		out = append(out, b.clientes[cpf])
	}
	return out
}

// ContratosFor returns the contracts buffered for one client.
func (b *Buffer) ContratosFor(cpf domain.CPF) []domain.Contrato {
	return b.contratos[cpf]
}

// RowOf returns the source row number a client was first seen at.
func (b *Buffer) RowOf(cpf domain.CPF) int {
	return b.rowOf[cpf]
}

// Len is the number of distinct clients buffered.
func (b *Buffer) Len() int {
	return len(b.order)
}

// ContratoCount is the number of distinct contracts buffered.
func (b *Buffer) ContratoCount() int {
	return len(b.seen)
}
