package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consiglab/importer/internal/domain"
)

func TestBufferFirstClienteWins(t *testing.T) {
	buf := NewBuffer()

	first := domain.Cliente{CPF: "12345678909", Nome: "PRIMEIRA"}
	second := domain.Cliente{CPF: "12345678909", Nome: "SEGUNDA"}

	assert.True(t, buf.AddCliente(first, 2))
	assert.False(t, buf.AddCliente(second, 3))

	clientes := buf.Clientes()
	require.Len(t, clientes, 1)
	assert.Equal(t, "PRIMEIRA", clientes[0].Nome)
	assert.Equal(t, 2, buf.RowOf("12345678909"))
}

func TestBufferKeepsFirstSeenOrder(t *testing.T) {
	buf := NewBuffer()
	for _, cpf := range []domain.CPF{"00000000003", "00000000001", "00000000002"} {
		buf.AddCliente(domain.Cliente{CPF: cpf}, 0)
	}

	clientes := buf.Clientes()
	require.Len(t, clientes, 3)
	assert.Equal(t, domain.CPF("00000000003"), clientes[0].CPF)
	assert.Equal(t, domain.CPF("00000000001"), clientes[1].CPF)
	assert.Equal(t, domain.CPF("00000000002"), clientes[2].CPF)
}

func TestBufferContratoDedup(t *testing.T) {
	buf := NewBuffer()

	assert.True(t, buf.AddContrato(domain.Contrato{CPF: "00000000001", Numero: "CT-1", Banco: "A"}))
	assert.False(t, buf.AddContrato(domain.Contrato{CPF: "00000000001", Numero: "CT-1", Banco: "B"}))
	assert.True(t, buf.AddContrato(domain.Contrato{CPF: "00000000001", Numero: "CT-2", Banco: "A"}))
	assert.True(t, buf.AddContrato(domain.Contrato{CPF: "00000000002", Numero: "CT-1", Banco: "A"}))

	assert.Equal(t, 3, buf.ContratoCount())
	contratos := buf.ContratosFor("00000000001")
	require.Len(t, contratos, 2)
	assert.Equal(t, "A", contratos[0].Banco, "first buffered contract wins")
}
