package dataset

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	in := "district,duration\nKabul,55\nHerat,40\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"district", "duration"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Kabul", tbl.Rows[0]["district"])
	assert.Equal(t, "40", tbl.Rows[1]["duration"])
}

func TestReadCSV_ShortAndLongRows(t *testing.T) {
	in := "a,b,c\n1,2\n1,2,3,4\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Len())
	// Short rows pad with nulls, long rows drop the extras.
	assert.True(t, tbl.Rows[0].IsNull("c"))
	assert.Equal(t, "3", tbl.Rows[1]["c"])
}

func TestReadCSV_Empty(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Columns)
}

func TestSaveCSV_RoundTrip(t *testing.T) {
	tbl := &Table{
		Columns: []string{"district", "duration"},
		Rows: []Record{
			{"district": "Kabul", "duration": "55"},
			{"district": "Herat"}, // missing duration stays null
		},
	}

	path := filepath.Join(t.TempDir(), "snapshot.csv")
	require.NoError(t, SaveCSV(tbl, path))

	got, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Columns, got.Columns)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "55", got.Rows[0]["duration"])
	assert.True(t, got.Rows[1].IsNull("duration"))
}

func TestLoadCSV_Missing(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestRecord_Float(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want float64
		ok   bool
	}{
		{"integer", "55", 55, true},
		{"decimal", "55.5", 55.5, true},
		{"padded", " 42 ", 42, true},
		{"empty", "", 0, false},
		{"text", "n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{"v": tt.cell}
			got, ok := rec.Float("v")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestRecord_Time(t *testing.T) {
	tests := []struct {
		name string
		cell string
		ok   bool
		want time.Time
	}{
		{"rfc3339", "2025-11-03T10:30:00Z", true, time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)},
		{"no zone", "2025-11-03T10:30:00", true, time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)},
		{"space separated", "2025-11-03 10:30:00", true, time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)},
		{"date only", "2025-11-03", true, time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)},
		{"garbage", "yesterday", false, time.Time{}},
		{"empty", "", false, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{"ts": tt.cell}
			got, ok := rec.Time("ts")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestTable_AddColumn(t *testing.T) {
	tbl := &Table{Columns: []string{"a"}}
	tbl.AddColumn("b")
	tbl.AddColumn("a") // no duplicate
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
}
