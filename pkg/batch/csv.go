// csv.go — CSV ingestion. The first record is the header; every following
// record becomes one row map keyed by header column. Short records pad with
// empty strings so substitution stays total downstream.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pinforge/pinrender/pkg/template"
)

// CSVData is a parsed CSV file: ordered columns plus one map per data row.
type CSVData struct {
	Columns []string
	Rows    []template.RowData
}

// LoadCSV reads and parses a CSV file.
func LoadCSV(path string) (*CSVData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	data, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return data, nil
}

// ParseCSV parses CSV content from a reader.
func ParseCSV(r io.Reader) (*CSVData, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows may be ragged; we pad below
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []template.RowData
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		row := make(template.RowData, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return &CSVData{Columns: columns, Rows: rows}, nil
}

// IdentityMapping maps every column to itself. Callers holding a bare CSV and
// no explicit field mapping use it so {{field}} placeholders named after
// columns still resolve under the strict field → mapping → column lookup.
func (d *CSVData) IdentityMapping() template.FieldMapping {
	m := make(template.FieldMapping, len(d.Columns))
	for _, c := range d.Columns {
		if c != "" {
			m[c] = c
		}
	}
	return m
}
