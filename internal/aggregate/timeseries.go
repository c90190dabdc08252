package aggregate

import (
	"sort"
	"time"

	"github.com/sahan-field/surveyqc/internal/dataset"
)

// DayCount is one calendar day with its submission count.
type DayCount struct {
	Date  string `json:"date"` // 2006-01-02
	Count int    `json:"count"`
}

// HourCount is one hour of day (0-23) with its submission count.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// WeekSplit is the weekday-vs-weekend submission split.
type WeekSplit struct {
	Weekday int `json:"weekday"`
	Weekend int `json:"weekend"`
}

// DailyCounts buckets submissions per calendar day, sorted ascending.
// Unparsable timestamps are excluded silently.
func DailyCounts(t *dataset.Table, col string) []DayCount {
	if col == "" {
		return nil
	}
	counts := make(map[string]int)
	for _, rec := range t.Rows {
		ts, ok := rec.Time(col)
		if !ok {
			continue
		}
		counts[ts.Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DayCount{Date: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// HourlyCounts buckets submissions per hour of day. All 24 hours are emitted
// so the chart axis stays stable. Returns nil when no timestamp parses.
func HourlyCounts(t *dataset.Table, col string) []HourCount {
	if col == "" {
		return nil
	}
	var buckets [24]int
	any := false
	for _, rec := range t.Rows {
		ts, ok := rec.Time(col)
		if !ok {
			continue
		}
		buckets[ts.Hour()]++
		any = true
	}
	if !any {
		return nil
	}
	out := make([]HourCount, 24)
	for h := range buckets {
		out[h] = HourCount{Hour: h, Count: buckets[h]}
	}
	return out
}

// PeakHour returns the hour of day with the most submissions.
func PeakHour(hours []HourCount) (int, bool) {
	if len(hours) == 0 {
		return 0, false
	}
	best := hours[0]
	for _, h := range hours[1:] {
		if h.Count > best.Count {
			best = h
		}
	}
	return best.Hour, true
}

// WeekdaySplit counts weekday vs weekend submissions.
func WeekdaySplit(t *dataset.Table, col string) *WeekSplit {
	if col == "" {
		return nil
	}
	var split WeekSplit
	any := false
	for _, rec := range t.Rows {
		ts, ok := rec.Time(col)
		if !ok {
			continue
		}
		any = true
		switch ts.Weekday() {
		case time.Saturday, time.Sunday:
			split.Weekend++
		default:
			split.Weekday++
		}
	}
	if !any {
		return nil
	}
	return &split
}
