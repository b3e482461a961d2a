package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Format is the file format of an upload or export
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

// String method for Format enum
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ContentType is the MIME type served for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// DetectFormat picks the format from a file name extension
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return FormatCSV, fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(filename))
	}
}

// Table is a header row and the data rows below it
type Table struct {
	Header []string
	Rows   [][]string
}

// Read parses r in the given format
func Read(r io.Reader, format Format) (*Table, error) {
	if format == FormatXLSX {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// ReadCSV loads a table from CSV; every row must have as many columns as the header
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have header and at least one data row")
	}

	header := records[0]
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
	}
	return newTable(header, records[1:]), nil
}

// ReadXLSX loads a table from the first sheet of a workbook.
// Short rows are padded since excelize drops trailing empty cells.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("sheet %s must have header and at least one data row", sheets[0])
	}

	header := records[0]
	rows := make([][]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) > len(header) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, len(header), len(record))
		}
		padded := make([]string, len(header))
		copy(padded, record)
		rows = append(rows, padded)
	}
	return newTable(header, rows), nil
}

func newTable(header []string, rows [][]string) *Table {
	clean := make([]string, len(header))
	for i, h := range header {
		clean[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return &Table{Header: clean, Rows: rows}
}

// RequireColumns checks that every expected column is present in the header, in any order
func (t *Table) RequireColumns(kind string, expected []string) error {
	have := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		have[h] = true
	}
	for _, col := range expected {
		if !have[col] {
			return fmt.Errorf("%s header mismatch. Expected: %v, Got: %v", kind, expected, t.Header)
		}
	}
	return nil
}

// Records returns the non-blank rows keyed by column name
func (t *Table) Records() []Record {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		index[h] = i
	}

	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blank(row) {
			continue
		}
		records = append(records, Record{Line: i + 2, index: index, values: row})
	}
	return records
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Record is one data row; Line is its 1-based line in the file including the header
type Record struct {
	Line   int
	index  map[string]int
	values []string
}

// Get returns the trimmed cell for column, or "" when absent
func (r Record) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

// Decimal parses column as a number; empty cells are zero
func (r Record) Decimal(column string) (decimal.Decimal, error) {
	v := r.Get(column)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", column, v)
	}
	return d, nil
}

// Int parses column as an integer id; ok is false for empty or non-numeric cells
func (r Record) Int(column string) (int64, bool) {
	v := r.Get(column)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSuffix(v, ".0"), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
