package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile is returned when the upload holds no rows at all.
	ErrEmptyFile = errors.New("file is empty")
	// ErrFileTooLarge is returned before any parsing when the upload exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// MaxFileSize caps uploads at 600 MB.
const MaxFileSize = 600 << 20

type tableData struct {
	header []Cell
	rows   [][]Cell
	// headerRowIndex is the zero based position of the header inside the
	// source file, used to report 1 based row numbers back to operators.
	headerRowIndex int
}

// ParseTable decodes a CSV or XLSX payload into a header row plus data rows.
func ParseTable(fileName string, payload []byte) (tableData, error) {
	if len(payload) == 0 {
		return tableData{}, ErrEmptyFile
	}
	if len(payload) > MaxFileSize {
		return tableData{}, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".txt":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	csvReader.Comma = detectDelimiter(payload)

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read csv: %w", err)
	}

	return normalizeTable(records)
}

// detectDelimiter inspects the first line for semicolons, the common
// delimiter in Brazilian exports.
func detectDelimiter(payload []byte) rune {
	line := payload
	if idx := bytes.IndexByte(payload, '\n'); idx >= 0 {
		line = payload[:idx]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, errors.New("excel file has no sheets")
	}

	// Raw values keep date cells as their numeric serials, which the date
	// coercion decodes against the 1899-12-30 epoch.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return normalizeTable(rows)
}

func normalizeTable(records [][]string) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, ErrEmptyFile
	}

	var header []Cell
	var dataRows [][]Cell
	headerIndex := -1

	for idx, raw := range records {
		row := cellRow(raw)
		if rowIsEmpty(row) {
			continue
		}
		if header == nil {
			header = row
			headerIndex = idx
			continue
		}
		dataRows = append(dataRows, padRow(row, len(header)))
	}

	if header == nil {
		return tableData{}, ErrEmptyFile
	}

	return tableData{
		header:         header,
		rows:           dataRows,
		headerRowIndex: headerIndex,
	}, nil
}

func rowIsEmpty(row []Cell) bool {
	for _, cell := range row {
		if !cell.IsEmpty() {
			return false
		}
	}
	return true
}

func padRow(row []Cell, length int) []Cell {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]Cell, length)
	copy(padded, row)
	return padded
}
