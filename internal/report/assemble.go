// Package report turns the derived scores and aggregates into the dashboard
// document: a fixed, ordered list of typed sections rendered to a standalone
// HTML page, with an XLSX export of the tabular sections.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sahan-field/surveyqc/internal/aggregate"
	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
	"github.com/sahan-field/surveyqc/internal/quality"
)

// Kind is a section's presentation type.
type Kind string

const (
	KindGauge Kind = "gauge"
	KindTable Kind = "table"
	KindBar   Kind = "bar"
	KindHBar  Kind = "hbar"
	KindBox   Kind = "box"
	KindLine  Kind = "line"
	KindMap   Kind = "map"
)

// TableData is a rendered table: headers plus stringified rows.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// SeriesData is one labeled numeric series for bar/line charts.
type SeriesData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	// Thresholds optionally carries a per-label reference value (quality
	// dimension targets); empty otherwise.
	Thresholds []float64 `json:"thresholds,omitempty"`
}

// GaugeData is a single 0-100 indicator with its target.
type GaugeData struct {
	Value  float64 `json:"value"`
	Target float64 `json:"target"`
}

// BoxData is the raw values behind a distribution plot plus a reference line.
type BoxData struct {
	Values  []float64 `json:"values"`
	MinLine float64   `json:"min_line"`
	MaxLine float64   `json:"max_line"`
}

// MapPoint is one plotted GPS coordinate.
type MapPoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Label string  `json:"label,omitempty"`
}

// Section is one dashboard panel. Exactly one data field is set, matching Kind.
type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`

	Table  *TableData  `json:"table,omitempty"`
	Series *SeriesData `json:"series,omitempty"`
	Gauge  *GaugeData  `json:"gauge,omitempty"`
	Box    *BoxData    `json:"box,omitempty"`
	Points []MapPoint  `json:"points,omitempty"`
}

// Document is the assembled report, replaced wholesale every run.
type Document struct {
	Title       string         `json:"title"`
	GeneratedAt time.Time      `json:"generated_at"`
	Placeholder bool           `json:"placeholder"`
	RecordCount int            `json:"record_count"`
	Scores      quality.Scores `json:"scores"`
	Sections    []Section      `json:"sections"`
}

// displayCaps for top-N truncation of the busier panels.
const (
	capCategories = 15
	capMissing    = 10
	capMapPoints  = 500
)

// Aggregates bundles every aggregator output for one run.
type Aggregates struct {
	Districts   []aggregate.CategoryCount
	Enumerators []aggregate.CategoryCount
	Daily       []aggregate.DayCount
	Hourly      []aggregate.HourCount
	Week        *aggregate.WeekSplit
	Missing     []aggregate.ColumnMissing
	Leaderboard *aggregate.Leaderboard
	CrossTab    *aggregate.CrossTab
	Progress    []aggregate.DistrictProgress
	Summary     []aggregate.PeriodSummary
	Alerts      []aggregate.Alert
	Durations   []float64
	GPSPoints   []MapPoint
}

// Collect runs the aggregators. They are independent pure functions, so they
// run concurrently, each writing its own field.
func Collect(ctx context.Context, t *dataset.Table, cols dataset.Columns, flags *quality.Flags, cfg *config.Config, now time.Time) (*Aggregates, error) {
	agg := &Aggregates{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		agg.Districts = aggregate.CountByCategory(t, cols.District, capCategories)
		return nil
	})
	g.Go(func() error {
		agg.Enumerators = aggregate.CountByCategory(t, cols.Enumerator, capCategories)
		return nil
	})
	g.Go(func() error {
		agg.Daily = aggregate.DailyCounts(t, cols.Submitted)
		agg.Hourly = aggregate.HourlyCounts(t, cols.Submitted)
		agg.Week = aggregate.WeekdaySplit(t, cols.Submitted)
		return nil
	})
	g.Go(func() error {
		agg.Missing = aggregate.MissingByColumn(t, capMissing)
		return nil
	})
	g.Go(func() error {
		agg.Leaderboard = aggregate.BuildLeaderboard(t, cols, flags, cfg.Leaderboard)
		return nil
	})
	g.Go(func() error {
		agg.CrossTab = aggregate.TreatmentCrossTab(t, cols.District, cols.Treatment, cfg.Survey.DistrictTargets)
		return nil
	})
	g.Go(func() error {
		agg.Progress = aggregate.ProgressVsTarget(t, cols.District, cfg.Survey.DistrictTargets)
		return nil
	})
	g.Go(func() error {
		agg.Summary = aggregate.DailySummary(t, cols, flags, now)
		return nil
	})
	g.Go(func() error {
		agg.Alerts = aggregate.BuildAlerts(t, cols, flags, cfg.Survey, now)
		return nil
	})
	g.Go(func() error {
		agg.Durations = collectDurations(t, cols)
		agg.GPSPoints = collectGPSPoints(t, cols)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return agg, nil
}

func collectDurations(t *dataset.Table, cols dataset.Columns) []float64 {
	if cols.Duration == "" {
		return nil
	}
	out := make([]float64, 0, t.Len())
	for _, rec := range t.Rows {
		if d, ok := rec.Float(cols.Duration); ok {
			out = append(out, d)
		}
	}
	return out
}

func collectGPSPoints(t *dataset.Table, cols dataset.Columns) []MapPoint {
	if cols.Latitude == "" || cols.Longitude == "" {
		return nil
	}
	out := make([]MapPoint, 0)
	for _, rec := range t.Rows {
		lat, okLat := rec.Float(cols.Latitude)
		lon, okLon := rec.Float(cols.Longitude)
		if !okLat || !okLon {
			continue
		}
		p := MapPoint{Lat: lat, Lon: lon}
		if cols.District != "" {
			p.Label = rec[cols.District]
		}
		out = append(out, p)
		if len(out) == capMapPoints {
			break
		}
	}
	return out
}

// Assemble orders the aggregates into the fixed section layout. Empty or
// absent aggregates drop their section rather than failing the document.
// A zero-record table yields the placeholder document.
func Assemble(t *dataset.Table, cols dataset.Columns, flags *quality.Flags, scores quality.Scores, agg *Aggregates, cfg *config.Config, now time.Time) *Document {
	if t.Len() == 0 {
		return Placeholder(cfg, now)
	}

	doc := &Document{
		Title:       "Survey Data Quality Dashboard",
		GeneratedAt: now,
		RecordCount: t.Len(),
		Scores:      scores,
	}

	add := func(s Section) {
		doc.Sections = append(doc.Sections, s)
	}

	if len(agg.Progress) > 0 {
		add(Section{Key: "progress", Title: "Collection Progress by District", Kind: KindTable,
			Table: progressTable(agg.Progress)})
	}
	if len(agg.Alerts) > 0 {
		add(Section{Key: "alerts", Title: "Alerts", Kind: KindTable,
			Table: alertsTable(agg.Alerts)})
	}
	if len(agg.Summary) > 0 {
		add(Section{Key: "summary", Title: "Daily Summary", Kind: KindTable,
			Table: summaryTable(agg.Summary)})
	}

	add(Section{Key: "quality", Title: "Quality Score Breakdown", Kind: KindBar,
		Series: qualitySeries(scores, cfg.Quality.Thresholds)})
	add(Section{Key: "composite", Title: "Overall Quality", Kind: KindGauge,
		Gauge: &GaugeData{Value: scores.Composite, Target: 85}})

	if agg.Leaderboard != nil && len(agg.Leaderboard.Top) > 0 {
		add(Section{Key: "leaderboard_top", Title: "Top Performers", Kind: KindTable,
			Table: leaderboardTable(agg.Leaderboard.Top)})
	}
	if agg.CrossTab != nil {
		add(Section{Key: "crosstab", Title: "Beneficiary Balance by District", Kind: KindTable,
			Table: crossTabTable(agg.CrossTab)})
	}
	if len(agg.Districts) > 0 {
		add(Section{Key: "districts", Title: "Surveys by District", Kind: KindBar,
			Series: categorySeries(agg.Districts)})
	}
	if len(agg.Durations) > 0 {
		add(Section{Key: "durations", Title: "Interview Duration Distribution", Kind: KindBox,
			Box: &BoxData{Values: agg.Durations, MinLine: cfg.Survey.MinDuration, MaxLine: cfg.Survey.MaxDuration}})
	}
	if len(agg.Enumerators) > 0 {
		add(Section{Key: "enumerators", Title: "Submissions by Enumerator", Kind: KindBar,
			Series: categorySeries(agg.Enumerators)})
	}
	if len(agg.GPSPoints) > 0 {
		add(Section{Key: "map", Title: "Interview Locations", Kind: KindMap,
			Points: agg.GPSPoints})
	}
	if len(agg.Daily) > 0 {
		add(Section{Key: "daily", Title: "Daily Submission Trends", Kind: KindLine,
			Series: dailySeries(agg.Daily)})
	}
	if flags.DurationKnown > 0 {
		add(Section{Key: "validity", Title: "Validity Status", Kind: KindBar,
			Series: validitySeries(flags)})
	}
	if len(agg.Hourly) > 0 {
		add(Section{Key: "hourly", Title: "Peak Interview Hours", Kind: KindBar,
			Series: hourlySeries(agg.Hourly)})
	}
	if agg.Week != nil {
		add(Section{Key: "week", Title: "Weekday vs Weekend", Kind: KindBar,
			Series: &SeriesData{
				Labels: []string{"Weekday", "Weekend"},
				Values: []float64{float64(agg.Week.Weekday), float64(agg.Week.Weekend)},
			}})
	}
	if len(agg.Missing) > 0 {
		add(Section{Key: "missing", Title: "Missing Data by Field", Kind: KindHBar,
			Series: missingSeries(agg.Missing)})
	}
	if agg.Leaderboard != nil && len(agg.Leaderboard.Bottom) > 0 {
		add(Section{Key: "leaderboard_bottom", Title: "Needs Support", Kind: KindTable,
			Table: leaderboardTable(agg.Leaderboard.Bottom)})
	}
	add(Section{Key: "stats", Title: "Completion Stats", Kind: KindTable,
		Table: completionStats(t, cols, flags, scores)})

	return doc
}

// Placeholder is the fixed informational document emitted for the
// zero-record terminal state. It is a real document, not an error.
func Placeholder(cfg *config.Config, now time.Time) *Document {
	return &Document{
		Title:       "Survey Data Quality Dashboard",
		GeneratedAt: now,
		Placeholder: true,
		Sections: []Section{{
			Key: "waiting", Title: "Waiting for Data Collection to Start", Kind: KindTable,
			Table: &TableData{
				Headers: []string{"Item", "Value"},
				Rows: [][]string{
					{"Dashboard status", "Active and ready"},
					{"Collection start date", cfg.Survey.StartDate},
					{"Current records", "0 (waiting for data)"},
					{"Auto-refresh", fmt.Sprintf("every %s", cfg.Refresh.Interval())},
				},
			},
		}},
	}
}

func progressTable(rows []aggregate.DistrictProgress) *TableData {
	td := &TableData{Headers: []string{"District", "Target", "Actual", "Remaining", "Progress", "Status"}}
	for _, p := range rows {
		td.Rows = append(td.Rows, []string{
			p.District,
			fmt.Sprintf("%d", p.Target),
			fmt.Sprintf("%d", p.Actual),
			fmt.Sprintf("%d", p.Remaining),
			fmt.Sprintf("%.1f%%", p.Pct),
			p.Status,
		})
	}
	return td
}

func alertsTable(alerts []aggregate.Alert) *TableData {
	td := &TableData{Headers: []string{"Severity", "Alert"}}
	for _, a := range alerts {
		td.Rows = append(td.Rows, []string{a.Severity, a.Message})
	}
	return td
}

func summaryTable(summary []aggregate.PeriodSummary) *TableData {
	td := &TableData{Headers: []string{"Period", "Surveys", "Valid", "Avg Duration"}}
	for _, s := range summary {
		td.Rows = append(td.Rows, []string{
			s.Period,
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%d", s.Valid),
			fmt.Sprintf("%.0f min", s.AvgDuration),
		})
	}
	return td
}

func leaderboardTable(stats []aggregate.EnumeratorStats) *TableData {
	td := &TableData{Headers: []string{"Rank", "Enumerator", "Surveys", "Valid %", "Avg Duration", "Score"}}
	for i, s := range stats {
		td.Rows = append(td.Rows, []string{
			fmt.Sprintf("%d", i+1),
			s.Enumerator,
			fmt.Sprintf("%d", s.Total),
			fmt.Sprintf("%.0f%%", s.ValidRate*100),
			fmt.Sprintf("%.0f min", s.AvgDuration),
			fmt.Sprintf("%.2f", s.Score),
		})
	}
	return td
}

func crossTabTable(ct *aggregate.CrossTab) *TableData {
	td := &TableData{Headers: []string{"District", "Beneficiary", "Non-Beneficiary", "Unknown", "Total"}}
	emit := func(r aggregate.CrossTabRow) []string {
		return []string{
			r.District,
			fmt.Sprintf("%d", r.Beneficiary),
			fmt.Sprintf("%d", r.NonBenef),
			fmt.Sprintf("%d", r.Unknown),
			fmt.Sprintf("%d", r.Total),
		}
	}
	for _, r := range ct.Rows {
		td.Rows = append(td.Rows, emit(r))
	}
	td.Rows = append(td.Rows, emit(ct.Total))
	return td
}

func qualitySeries(s quality.Scores, thresholds map[string]float64) *SeriesData {
	dims := []struct {
		key   string
		label string
		value float64
	}{
		{quality.DimCompleteness, "Completeness", s.Completeness},
		{quality.DimAccuracy, "Accuracy", s.Accuracy},
		{quality.DimConsistency, "Consistency", s.Consistency},
		{quality.DimTimeliness, "Timeliness", s.Timeliness},
		{quality.DimValidity, "Validity", s.Validity},
	}
	sd := &SeriesData{}
	for _, d := range dims {
		sd.Labels = append(sd.Labels, d.label)
		sd.Values = append(sd.Values, d.value)
		sd.Thresholds = append(sd.Thresholds, thresholds[d.key])
	}
	return sd
}

func categorySeries(counts []aggregate.CategoryCount) *SeriesData {
	sd := &SeriesData{}
	for _, c := range counts {
		sd.Labels = append(sd.Labels, c.Value)
		sd.Values = append(sd.Values, float64(c.Count))
	}
	return sd
}

func dailySeries(days []aggregate.DayCount) *SeriesData {
	sd := &SeriesData{}
	for _, d := range days {
		sd.Labels = append(sd.Labels, d.Date)
		sd.Values = append(sd.Values, float64(d.Count))
	}
	return sd
}

func hourlySeries(hours []aggregate.HourCount) *SeriesData {
	sd := &SeriesData{}
	for _, h := range hours {
		sd.Labels = append(sd.Labels, fmt.Sprintf("%02d:00", h.Hour))
		sd.Values = append(sd.Values, float64(h.Count))
	}
	return sd
}

func missingSeries(missing []aggregate.ColumnMissing) *SeriesData {
	sd := &SeriesData{}
	for _, m := range missing {
		// Group prefixes from the form tool obscure the field name.
		name := m.Column
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		sd.Labels = append(sd.Labels, name)
		sd.Values = append(sd.Values, m.Pct)
	}
	return sd
}

func validitySeries(flags *quality.Flags) *SeriesData {
	invalid := flags.DurationKnown - flags.ValidCount
	return &SeriesData{
		Labels: []string{"Valid", "Invalid", "Too Long"},
		Values: []float64{float64(flags.ValidCount), float64(invalid), float64(flags.TooLongCount)},
	}
}

func completionStats(t *dataset.Table, cols dataset.Columns, flags *quality.Flags, scores quality.Scores) *TableData {
	td := &TableData{Headers: []string{"Metric", "Value"}}
	addRow := func(k, v string) {
		td.Rows = append(td.Rows, []string{k, v})
	}

	addRow("Total surveys", fmt.Sprintf("%d", t.Len()))
	if flags.DurationKnown > 0 {
		validPct := 100 * float64(flags.ValidCount) / float64(flags.DurationKnown)
		addRow("Valid interviews", fmt.Sprintf("%d (%.1f%%)", flags.ValidCount, validPct))
		addRow("Invalid interviews", fmt.Sprintf("%d (%.1f%%)", flags.DurationKnown-flags.ValidCount, 100-validPct))
	}
	if cols.District != "" {
		addRow("Districts", fmt.Sprintf("%d", distinctCount(t, cols.District)))
	}
	if cols.Enumerator != "" {
		addRow("Enumerators", fmt.Sprintf("%d", distinctCount(t, cols.Enumerator)))
	}
	if flags.HasGPSColumns && t.Len() > 0 {
		addRow("GPS coverage", fmt.Sprintf("%.1f%%", 100*float64(flags.GPSPresentCount)/float64(t.Len())))
	}
	if flags.GPSOutOfBoundsCount > 0 {
		addRow("GPS out of bounds", fmt.Sprintf("%d", flags.GPSOutOfBoundsCount))
	}
	addRow("Data completeness", fmt.Sprintf("%.1f%%", scores.Completeness))
	if first, last, ok := dateRange(t, cols.Submitted); ok {
		addRow("Collection period", fmt.Sprintf("%s to %s", first.Format("Jan 02"), last.Format("Jan 02")))
	}
	return td
}

func distinctCount(t *dataset.Table, col string) int {
	seen := make(map[string]bool)
	for _, rec := range t.Rows {
		if !rec.IsNull(col) {
			seen[rec[col]] = true
		}
	}
	return len(seen)
}

func dateRange(t *dataset.Table, col string) (time.Time, time.Time, bool) {
	if col == "" {
		return time.Time{}, time.Time{}, false
	}
	var first, last time.Time
	for _, rec := range t.Rows {
		ts, ok := rec.Time(col)
		if !ok {
			continue
		}
		if first.IsZero() || ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	return first, last, true
}
