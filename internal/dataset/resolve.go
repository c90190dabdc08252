package dataset

import (
	"strings"

	"go.uber.org/zap"
)

// Keyword sets for best-effort column detection. First substring match wins,
// in table column order; an explicit column_mapping entry always overrides.
var (
	KeywordsDistrict   = []string{"district"}
	KeywordsEnumerator = []string{"enum", "enumerator", "interviewer"}
	KeywordsDuration   = []string{"duration"}
	KeywordsSubmitted  = []string{"_submission_time", "submission"}
	KeywordsTreatment  = []string{"treatment", "beneficiary"}
	KeywordsLatitude   = []string{"latitude", "lat"}
	KeywordsLongitude  = []string{"longitude", "lon"}
	KeywordsGeopoint   = []string{"geopoint", "gps"}
)

// Resolve finds the physical column for a logical field. Resolution order:
// explicit mapping, the logical name itself, then the first column whose
// lowercased name contains any of the lowercased keywords. The second return
// is false when nothing matches; callers degrade the dependent feature
// rather than failing the run.
func (t *Table) Resolve(mapping map[string]string, logical string, keywords ...string) (string, bool) {
	if mapped, ok := mapping[logical]; ok && mapped != "" && t.HasColumn(mapped) {
		return mapped, true
	}
	if t.HasColumn(logical) {
		return logical, true
	}

	for _, col := range t.Columns {
		lower := strings.ToLower(col)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				zap.L().Debug("dataset: column resolved by keyword",
					zap.String("logical", logical),
					zap.String("column", col),
					zap.String("keyword", kw),
				)
				return col, true
			}
		}
	}
	return "", false
}

// Columns holds the resolved physical column names for the semantic fields
// the pipeline cares about. An empty string means the field is unavailable.
type Columns struct {
	District   string
	Enumerator string
	Duration   string
	Submitted  string
	Treatment  string
	Latitude   string
	Longitude  string
}

// ResolveColumns probes the table for every semantic field in one pass.
func ResolveColumns(t *Table, mapping map[string]string) Columns {
	var c Columns
	c.District, _ = t.Resolve(mapping, "district", KeywordsDistrict...)
	c.Enumerator, _ = t.Resolve(mapping, "enumerator", KeywordsEnumerator...)
	c.Duration, _ = t.Resolve(mapping, "duration_minutes", KeywordsDuration...)
	c.Submitted, _ = t.Resolve(mapping, "_submission_time", KeywordsSubmitted...)
	c.Treatment, _ = t.Resolve(mapping, "treatment", KeywordsTreatment...)
	c.Latitude, _ = t.Resolve(mapping, "latitude", KeywordsLatitude...)
	c.Longitude, _ = t.Resolve(mapping, "longitude", KeywordsLongitude...)
	return c
}
