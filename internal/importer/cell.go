package importer

import (
	"strconv"
	"strings"
)

// CellKind tags the value variant carried by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is one raw spreadsheet value. Source files mix free text, numeric
// values and blanks in the same column, so every coercion switches on Kind
// exhaustively instead of guessing from a bare string.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// NewCell classifies a raw string value. Numeric cells keep the original
// text as well, so digit extraction never loses leading zeros.
func NewCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Cell{Kind: CellEmpty}
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Cell{Kind: CellNumber, Text: trimmed, Number: n}
	}
	return Cell{Kind: CellText, Text: trimmed}
}

// IsEmpty reports whether the cell carries no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

func cellRow(raw []string) []Cell {
	row := make([]Cell, len(raw))
	for i, value := range raw {
		row[i] = NewCell(value)
	}
	return row
}
