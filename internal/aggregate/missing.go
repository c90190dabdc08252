package aggregate

import (
	"sort"

	"github.com/sahan-field/surveyqc/internal/dataset"
)

// ColumnMissing is one column with its null percentage.
type ColumnMissing struct {
	Column string  `json:"column"`
	Pct    float64 `json:"pct"`
}

// MissingByColumn computes the null percentage per column, sorted descending
// and filtered to columns with at least one null. topN caps the result for
// display; 0 means no cap. Ties keep table column order.
func MissingByColumn(t *dataset.Table, topN int) []ColumnMissing {
	if t.Len() == 0 {
		return nil
	}

	out := make([]ColumnMissing, 0, len(t.Columns))
	for _, col := range t.Columns {
		nulls := 0
		for _, rec := range t.Rows {
			if rec.IsNull(col) {
				nulls++
			}
		}
		if nulls == 0 {
			continue
		}
		out = append(out, ColumnMissing{
			Column: col,
			Pct:    100 * float64(nulls) / float64(t.Len()),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Pct > out[j].Pct })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
