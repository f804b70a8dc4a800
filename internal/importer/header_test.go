package importer

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerRow(values ...string) []Cell {
	return cellRow(values)
}

func TestBuildHeaderMapResolvesAliases(t *testing.T) {
	hm, err := BuildHeaderMap(headerRow("NB", "CPF", "NOME", "VL_RMC"))
	require.NoError(t, err)

	assert.Equal(t, HeaderMap{
		0: fieldNB,
		1: fieldCPF,
		2: fieldNome,
		3: fieldValorRMC,
	}, hm)
}

func TestBuildHeaderMapNormalizesTokens(t *testing.T) {
	hm, err := BuildHeaderMap(headerRow("  data   nascimento ", "nome cliente", "Vl Rmc"))
	require.NoError(t, err)

	assert.Equal(t, fieldDataNascimento, hm[0])
	assert.Equal(t, fieldNome, hm[1])
	assert.Equal(t, fieldValorRMC, hm[2])
}

func TestBuildHeaderMapHistoricalSpellings(t *testing.T) {
	for _, spelling := range []string{"DTNASCIMENTO", "DT_NASCIMENTO", "DATA_NASCIMENTO"} {
		hm, err := BuildHeaderMap(headerRow(spelling))
		require.NoError(t, err)
		assert.Equal(t, fieldDataNascimento, hm[0], spelling)
	}
}

func TestBuildHeaderMapStrippedFallback(t *testing.T) {
	// NUBENEFICIO is not a listed alias but matches NU_BENEFICIO once
	// underscores are stripped on both sides.
	hm, err := BuildHeaderMap(headerRow("NUBENEFICIO", "VLRMC"))
	require.NoError(t, err)

	assert.Equal(t, fieldNB, hm[0])
	assert.Equal(t, fieldValorRMC, hm[1])
}

func TestBuildHeaderMapDropsUnknownColumns(t *testing.T) {
	hm, err := BuildHeaderMap(headerRow("CPF", "OBSERVACOES_INTERNAS", "NOME", ""))
	require.NoError(t, err)

	assert.Len(t, hm, 2)
	assert.Equal(t, fieldCPF, hm[0])
	assert.Equal(t, fieldNome, hm[2])
}

func TestBuildHeaderMapFailsWhenNothingResolves(t *testing.T) {
	_, err := BuildHeaderMap(headerRow("FOO", "BAR", "BAZ"))
	assert.ErrorIs(t, err, ErrNoRecognizedHeaders)

	_, err = BuildHeaderMap(headerRow("", "", ""))
	assert.ErrorIs(t, err, ErrNoRecognizedHeaders)
}

func TestBuildHeaderMapOrderIndependent(t *testing.T) {
	headers := []string{"NB", "CPF", "NOME", "VL_RMC", "CONTRATO", "BANCO", "DT_NASCIMENTO", "CEP"}

	resolvedFields := func(values []string) []string {
		hm, err := BuildHeaderMap(headerRow(values...))
		require.NoError(t, err)
		fields := make([]string, 0, len(hm))
		for _, field := range hm {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		return fields
	}

	want := resolvedFields(headers)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), headers...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, resolvedFields(shuffled))
	}
}
