package aggregate

import (
	"time"

	"github.com/sahan-field/surveyqc/internal/dataset"
	"github.com/sahan-field/surveyqc/internal/quality"
)

// PeriodSummary is one reporting window's headline numbers.
type PeriodSummary struct {
	Period      string  `json:"period"`
	Count       int     `json:"count"`
	Valid       int     `json:"valid"`
	AvgDuration float64 `json:"avg_duration"`
}

// DailySummary computes today / yesterday / last-7-days headline stats.
// now is injected for determinism. Returns nil without a timestamp column.
func DailySummary(t *dataset.Table, cols dataset.Columns, flags *quality.Flags, now time.Time) []PeriodSummary {
	if cols.Submitted == "" {
		return nil
	}

	today := now.Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)
	weekStart := today.AddDate(0, 0, -7)

	windows := []struct {
		name       string
		start, end time.Time
	}{
		{"Today", today, today.AddDate(0, 0, 1)},
		{"Yesterday", yesterday, today},
		{"Last 7 Days", weekStart, today.AddDate(0, 0, 1)},
	}

	out := make([]PeriodSummary, len(windows))
	for wi, w := range windows {
		s := PeriodSummary{Period: w.name}
		durSum, durKnown := 0.0, 0
		for i, rec := range t.Rows {
			ts, ok := rec.Time(cols.Submitted)
			if !ok || ts.Before(w.start) || !ts.Before(w.end) {
				continue
			}
			s.Count++
			rf := flags.Records[i]
			if rf.HasDuration {
				if rf.Valid {
					s.Valid++
				}
				if d, ok := rec.Float(cols.Duration); ok {
					durSum += d
					durKnown++
				}
			}
		}
		if durKnown > 0 {
			s.AvgDuration = durSum / float64(durKnown)
		}
		out[wi] = s
	}
	return out
}
