// Package dataset holds the in-memory survey table: an ordered set of columns
// discovered at load time and one string-valued record per submission. The
// column set is the only contract; everything semantic is probed by the
// resolver at pipeline time.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Record is one survey submission. Cells are kept as raw strings; the empty
// string means null. Typed access goes through the cast helpers.
type Record map[string]string

// Table is an ordered sequence of records sharing a column set.
type Table struct {
	Columns []string
	Rows    []Record
}

// timeLayouts are tried in order when parsing timestamp cells.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// IsNull reports whether the cell is absent or empty.
func (r Record) IsNull(col string) bool {
	v, ok := r[col]
	return !ok || strings.TrimSpace(v) == ""
}

// Float parses the cell as a number. The second return is false for null or
// unparsable cells.
func (r Record) Float(col string) (float64, bool) {
	if r.IsNull(col) {
		return 0, false
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(r[col]))
	if err != nil {
		return 0, false
	}
	return f, true
}

// Time parses the cell as a timestamp, trying the known layouts in order.
func (r Record) Time(col string) (time.Time, bool) {
	if r.IsNull(col) {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(r[col])
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Len returns the record count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the column exists in the table.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the set if it is not already present.
func (t *Table) AddColumn(col string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
}

// LoadCSV reads a whole snapshot file. The first row is the column set;
// short rows are padded with nulls, long rows truncated.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open snapshot")
	}
	defer f.Close() //nolint:errcheck

	t, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}

	zap.L().Info("dataset: snapshot loaded",
		zap.String("path", path),
		zap.Int("records", t.Len()),
		zap.Int("columns", len(t.Columns)),
	)
	return t, nil
}

// ReadCSV parses a snapshot from a reader.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read header")
	}

	t := &Table{Columns: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "dataset: read row")
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// SaveCSV writes the table wholesale, via temp-then-rename so readers never
// see a partially written snapshot.
func SaveCSV(t *Table, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp snapshot")
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "dataset: write header")
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Rows {
		for i, col := range t.Columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
			return eris.Wrap(err, "dataset: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "dataset: flush snapshot")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "dataset: close temp snapshot")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "dataset: rename snapshot")
	}

	zap.L().Info("dataset: snapshot saved",
		zap.String("path", path),
		zap.Int("records", t.Len()),
	)
	return nil
}
