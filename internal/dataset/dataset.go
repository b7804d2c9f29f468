// Package dataset provides the tabular file abstraction the pipeline
// runs over: row iteration, column access, and serialization back to a
// persisted CSV file.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ltnam/categorize/internal/core/domain"
)

// Column names expected in contributor datasets.
const (
	ColumnName       = "Contributor Name"
	ColumnEmployer   = "Contributor Employer"
	ColumnOccupation = "Contributor Occupation"
	ColumnCategory   = "Contributor Category"
)

// Dataset is an in-memory CSV table with a header row.
type Dataset struct {
	header []string
	rows   [][]string
	colIdx map[string]int
}

// Load reads and validates a CSV file. All failure modes surface as
// ValidationError so the caller halts before any side effect.
func Load(path string) (*Dataset, error) {
	if err := validateFile(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.Validationf("cannot read input file %q: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, domain.Validationf("error reading CSV file %q: %v", path, err)
	}
	if len(records) == 0 {
		return nil, domain.Validationf("CSV file %q is empty", path)
	}
	if len(records) < 2 {
		return nil, domain.Validationf("CSV file %q has no data rows", path)
	}

	d := &Dataset{header: records[0], rows: records[1:]}
	d.colIdx = make(map[string]int, len(d.header))
	for i, name := range d.header {
		d.colIdx[name] = i
	}
	return d, nil
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// HasColumn reports whether the dataset contains the named column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.colIdx[name]
	return ok
}

// Column returns the values of the named column in row order.
func (d *Dataset) Column(name string) ([]string, error) {
	idx, ok := d.colIdx[name]
	if !ok {
		return nil, fmt.Errorf("no such column: %s", name)
	}
	values := make([]string, len(d.rows))
	for i, row := range d.rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values, nil
}

// SetColumn replaces the named column, appending it when absent.
func (d *Dataset) SetColumn(name string, values []string) error {
	if len(values) != len(d.rows) {
		return fmt.Errorf("column %s: got %d values for %d rows", name, len(values), len(d.rows))
	}

	idx, ok := d.colIdx[name]
	if !ok {
		idx = len(d.header)
		d.header = append(d.header, name)
		d.colIdx[name] = idx
	}

	for i := range d.rows {
		for len(d.rows[i]) <= idx {
			d.rows[i] = append(d.rows[i], "")
		}
		d.rows[i][idx] = values[i]
	}
	return nil
}

// Write serializes the dataset to path, creating parent directories.
func (d *Dataset) Write(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(d.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range d.rows {
		// Pad short rows so every record matches the header width.
		for len(row) < len(d.header) {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return f.Close()
}
