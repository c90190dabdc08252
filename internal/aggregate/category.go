// Package aggregate holds the grouping and summarization functions the report
// is built from. Every aggregator is a pure function of the table, the
// derived flags, and the configuration; an absent input column yields an
// empty result, never an error.
package aggregate

import (
	"sort"

	"github.com/sahan-field/surveyqc/internal/dataset"
)

// CategoryCount is one category with its record count.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CountByCategory counts records per distinct value of col, sorted by count
// descending with ties broken by first appearance in the table. topN caps the
// result for display; 0 means no cap. Null cells are skipped.
func CountByCategory(t *dataset.Table, col string, topN int) []CategoryCount {
	if col == "" || !t.HasColumn(col) {
		return nil
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, rec := range t.Rows {
		if rec.IsNull(col) {
			continue
		}
		v := rec[col]
		if _, ok := counts[v]; !ok {
			firstSeen[v] = i
		}
		counts[v]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].Value] < firstSeen[out[j].Value]
	})

	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
