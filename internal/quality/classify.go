// Package quality derives per-record validity flags and the five-dimension
// quality scores from a loaded survey table. Flags are recomputed on every
// pipeline run and never persisted.
package quality

import (
	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
)

// RecordFlags holds the derived booleans for one submission. Duration flags
// are only meaningful when HasDuration is set; records with a null duration
// are excluded from duration-based denominators entirely.
type RecordFlags struct {
	HasDuration bool
	Valid       bool
	TooShort    bool
	TooLong     bool

	GPSPresent     bool
	GPSOutOfBounds bool
}

// Flags holds the per-record flags plus the counts every consumer needs.
type Flags struct {
	Records []RecordFlags

	DurationKnown int
	ValidCount    int
	TooShortCount int
	TooLongCount  int

	GPSPresentCount     int
	GPSOutOfBoundsCount int

	// HasDurationColumn and HasGPSColumns record whether the underlying
	// columns exist at all, distinct from every value being null.
	HasDurationColumn bool
	HasGPSColumns     bool
}

// Classify derives validity flags for every record.
//
// Duration: valid iff duration >= min_duration, too_short iff < min_duration,
// too_long iff > max_duration (independent of the other two). GPS: present
// iff both latitude and longitude are non-null; when a bounding box is
// configured, in-box is checked as a separate flag so "implausible" is never
// conflated with "missing".
func Classify(t *dataset.Table, cols dataset.Columns, cfg config.SurveyConfig) *Flags {
	f := &Flags{
		Records:           make([]RecordFlags, t.Len()),
		HasDurationColumn: cols.Duration != "",
		HasGPSColumns:     cols.Latitude != "" && cols.Longitude != "",
	}

	for i, rec := range t.Rows {
		rf := &f.Records[i]

		if f.HasDurationColumn {
			if d, ok := rec.Float(cols.Duration); ok {
				rf.HasDuration = true
				rf.Valid = d >= cfg.MinDuration
				rf.TooShort = d < cfg.MinDuration
				rf.TooLong = d > cfg.MaxDuration

				f.DurationKnown++
				if rf.Valid {
					f.ValidCount++
				}
				if rf.TooShort {
					f.TooShortCount++
				}
				if rf.TooLong {
					f.TooLongCount++
				}
			}
		}

		if f.HasGPSColumns {
			lat, okLat := rec.Float(cols.Latitude)
			lon, okLon := rec.Float(cols.Longitude)
			if okLat && okLon {
				rf.GPSPresent = true
				f.GPSPresentCount++

				if cfg.GPSBounds.Enabled && !inBounds(lat, lon, cfg.GPSBounds) {
					rf.GPSOutOfBounds = true
					f.GPSOutOfBoundsCount++
				}
			}
		}
	}

	return f
}

func inBounds(lat, lon float64, b config.GPSBounds) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}
