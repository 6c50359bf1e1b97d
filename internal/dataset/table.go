package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Table is an in-memory tabular corpus with a fixed header.
type Table struct {
	Header  []string
	Records []Record
}

// NewTable creates an empty table with the given header.
func NewTable(header []string) *Table {
	h := make([]string, len(header))
	copy(h, header)
	return &Table{Header: h}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether the header declares name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Header {
		if h == name {
			return true
		}
	}
	return false
}

// Append adds a row. Columns absent from the header are appended to it.
func (t *Table) Append(r Record) {
	for k := range r {
		if !t.HasColumn(k) {
			t.Header = append(t.Header, k)
		}
	}
	t.Records = append(t.Records, r)
}

// Column returns the raw values of a column in row order.
func (t *Table) Column(name string) []string {
	out := make([]string, len(t.Records))
	for i, r := range t.Records {
		out[i] = r[name]
	}
	return out
}

// Subset returns a table holding the rows at idx, sharing record maps.
func (t *Table) Subset(idx []int) *Table {
	sub := NewTable(t.Header)
	sub.Records = make([]Record, len(idx))
	for i, j := range idx {
		sub.Records[i] = t.Records[j]
	}
	return sub
}

// ReadCSV loads a table from a CSV file with a header row.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	t, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	log.Info().
		Str("file", path).
		Int("rows", t.Len()).
		Int("columns", len(t.Header)).
		Msg("CSV data loaded")
	return t, nil
}

// Read parses CSV with a header row from r.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV: missing header")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate CSV column %q", h)
		}
		seen[h] = true
		header[i] = h
	}

	t := NewTable(header)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}
		rec := make(Record, len(header))
		for i, col := range t.Header {
			rec[col] = row[i]
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// WriteCSV writes the table to path, creating parent directories.
func WriteCSV(path string, t *Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := Write(file, t); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("rows", t.Len()).Msg("CSV data saved")
	return nil
}

// Write encodes the table as CSV.
func Write(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	row := make([]string, len(t.Header))
	for _, r := range t.Records {
		for i, col := range t.Header {
			row[i] = r[col]
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
