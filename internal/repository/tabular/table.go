// Package tabular reads the customer risk extract into an in-memory table.
package tabular

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows, every row padded to the header width
type Table struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of a column, or -1
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Source reads a full table
type Source interface {
	Read(ctx context.Context) (*Table, error)
	Describe() string
}

// FileSource reads a local .xlsx or .csv file
type FileSource struct {
	path  string
	sheet string
}

// NewFileSource creates a file source; sheet may be empty for the first sheet
func NewFileSource(path, sheet string) *FileSource {
	return &FileSource{path: path, sheet: sheet}
}

// Describe returns the file path
func (s *FileSource) Describe() string {
	return s.path
}

// Read opens and decodes the file
func (s *FileSource) Read(_ context.Context) (*Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: data file not found: %s", domain.ErrDataSource, s.path)
		}
		return nil, fmt.Errorf("%w: failed to open %s: %w", domain.ErrDataSource, s.path, err)
	}
	defer f.Close()

	return Decode(s.path, f, s.sheet)
}

// Decode parses a spreadsheet stream, choosing the format from the name's extension
func Decode(name string, r io.Reader, sheet string) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(r, sheet)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: unsupported data file format: %s", domain.ErrDataSource, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: error loading data from %s: %w", domain.ErrDataSource, name, err)
	}
	return build(records)
}

func readWorkbook(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return records, nil
}

// build trims headers, pads short rows and drops blank rows
func build(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: data file is empty", domain.ErrDataSource)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: header, Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, len(header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
