package dataset

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sahan-field/surveyqc/internal/config"
)

// Normalize prepares a freshly fetched table for persistence: records before
// the configured start date are dropped, the raw duration (seconds) gains a
// duration_minutes column, and a geopoint column is split into latitude and
// longitude. The input table is modified in place and returned.
func Normalize(t *Table, cfg config.SurveyConfig) *Table {
	if t == nil || t.Len() == 0 {
		return t
	}

	t = filterByStartDate(t, cfg)
	convertDuration(t)
	splitGeopoint(t, cfg.ColumnMapping)
	return t
}

func filterByStartDate(t *Table, cfg config.SurveyConfig) *Table {
	cutoff, ok := cfg.ParsedStartDate()
	if !ok {
		return t
	}
	col, ok := t.Resolve(cfg.ColumnMapping, "_submission_time", KeywordsSubmitted...)
	if !ok {
		return t
	}

	kept := t.Rows[:0]
	dropped := 0
	for _, rec := range t.Rows {
		ts, parsed := rec.Time(col)
		if parsed && ts.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, rec)
	}
	t.Rows = kept

	if dropped > 0 {
		zap.L().Info("dataset: filtered pilot records before start date",
			zap.String("start_date", cfg.StartDate),
			zap.Int("dropped", dropped),
			zap.Int("kept", t.Len()),
		)
	}
	return t
}

// convertDuration adds duration_minutes derived from the raw _duration column
// (seconds). The raw column is kept.
func convertDuration(t *Table) {
	if !t.HasColumn("_duration") || t.HasColumn("duration_minutes") {
		return
	}
	t.AddColumn("duration_minutes")
	for _, rec := range t.Rows {
		secs, ok := rec.Float("_duration")
		if !ok {
			continue
		}
		rec["duration_minutes"] = strconv.FormatFloat(secs/60, 'f', -1, 64)
	}
	zap.L().Info("dataset: converted duration from seconds to minutes")
}

// splitGeopoint splits a "lat lon [alt precision]" geopoint string into
// latitude and longitude columns. Malformed values stay null in both.
func splitGeopoint(t *Table, mapping map[string]string) {
	if t.HasColumn("latitude") && t.HasColumn("longitude") {
		return
	}
	col, ok := t.Resolve(mapping, "geopoint", KeywordsGeopoint...)
	if !ok {
		return
	}

	t.AddColumn("latitude")
	t.AddColumn("longitude")
	for _, rec := range t.Rows {
		if rec.IsNull(col) {
			continue
		}
		parts := strings.Fields(rec[col])
		if len(parts) < 2 {
			continue
		}
		lat, errLat := strconv.ParseFloat(parts[0], 64)
		lon, errLon := strconv.ParseFloat(parts[1], 64)
		if errLat != nil || errLon != nil {
			continue
		}
		rec["latitude"] = strconv.FormatFloat(lat, 'f', -1, 64)
		rec["longitude"] = strconv.FormatFloat(lon, 'f', -1, 64)
	}
	zap.L().Info("dataset: split geopoint into latitude and longitude",
		zap.String("column", col),
	)
}
