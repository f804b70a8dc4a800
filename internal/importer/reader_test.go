package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseTableCSV(t *testing.T) {
	data := []byte("CPF,NOME\n12345678909,JOÃO\n,\n98765432100,MARIA\n")

	table, err := ParseTable("base.csv", data)
	require.NoError(t, err)

	assert.Len(t, table.header, 2)
	require.Len(t, table.rows, 2, "blank rows are skipped")
	assert.Equal(t, 0, table.headerRowIndex)
	assert.Equal(t, "JOÃO", table.rows[0][1].Text)
}

func TestParseTableCSVWithBOMAndSemicolons(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	buf.WriteString("CPF;NOME;VL_RMC\n12345678909;JOÃO;1.234,56\n")

	table, err := ParseTable("base.csv", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "CPF", table.header[0].Text)
	require.Len(t, table.rows, 1)
	assert.Equal(t, "1.234,56", table.rows[0][2].Text)
}

func TestParseTableSkipsLeadingBlankRows(t *testing.T) {
	data := []byte(",,\n,,\nCPF,NOME\n12345678909,JOÃO\n")

	table, err := ParseTable("base.csv", data)
	require.NoError(t, err)

	assert.Equal(t, 2, table.headerRowIndex)
	require.Len(t, table.rows, 1)
}

func TestParseTableXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"CPF", "NOME", "VL_RMC"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"12345678909", "JOÃO", 1234.56}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	table, err := ParseTable("base.xlsx", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "CPF", table.header[0].Text)
	require.Len(t, table.rows, 1)
	assert.Equal(t, CellNumber, table.rows[0][2].Kind)
	assert.InDelta(t, 1234.56, table.rows[0][2].Number, 0.0001)
}

func TestParseTableStructuralErrors(t *testing.T) {
	_, err := ParseTable("base.csv", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ParseTable("base.pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseTable("base.csv", []byte("\n\n\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestCellClassification(t *testing.T) {
	assert.Equal(t, CellEmpty, NewCell("  ").Kind)
	assert.Equal(t, CellText, NewCell("JOÃO").Kind)
	assert.Equal(t, CellText, NewCell("123.456.789-09").Kind)

	n := NewCell("1234.5")
	assert.Equal(t, CellNumber, n.Kind)
	assert.InDelta(t, 1234.5, n.Number, 0.0001)
	assert.Equal(t, "1234.5", n.Text, "numeric cells keep their original text")
}
