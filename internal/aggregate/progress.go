package aggregate

import (
	"sort"

	"github.com/sahan-field/surveyqc/internal/dataset"
)

// Progress status buckets, thresholds 100/75/50 percent.
const (
	StatusComplete = "complete"
	StatusOnTrack  = "on-track"
	StatusBehind   = "behind"
	StatusCritical = "critical"
)

// DistrictProgress is one district's collection progress against its quota.
type DistrictProgress struct {
	District  string  `json:"district"`
	Target    int     `json:"target"`
	Actual    int     `json:"actual"`
	Remaining int     `json:"remaining"`
	Pct       float64 `json:"pct"` // capped at 100
	Status    string  `json:"status"`
}

// ProgressVsTarget compares actual counts per district against the configured
// quotas. Districts are emitted in name order for a stable table; a district
// with a quota and zero submissions is shown, not omitted. A TOTAL row is
// appended. Returns nil when the district column is absent or no quotas are
// configured.
func ProgressVsTarget(t *dataset.Table, districtCol string, targets map[string]int) []DistrictProgress {
	if districtCol == "" || len(targets) == 0 {
		return nil
	}

	actuals := make(map[string]int)
	for _, rec := range t.Rows {
		if rec.IsNull(districtCol) {
			continue
		}
		actuals[rec[districtCol]]++
	}

	districts := make([]string, 0, len(targets))
	for d := range targets {
		districts = append(districts, d)
	}
	sort.Strings(districts)

	out := make([]DistrictProgress, 0, len(districts)+1)
	totalTarget, totalActual := 0, 0
	for _, d := range districts {
		p := progressRow(d, targets[d], actuals[d])
		totalTarget += p.Target
		totalActual += p.Actual
		out = append(out, p)
	}

	total := progressRow("TOTAL", totalTarget, totalActual)
	out = append(out, total)
	return out
}

func progressRow(district string, target, actual int) DistrictProgress {
	p := DistrictProgress{District: district, Target: target, Actual: actual}
	if remaining := target - actual; remaining > 0 {
		p.Remaining = remaining
	}
	pct := 0.0
	if target > 0 {
		pct = float64(actual) / float64(target) * 100
	}
	if pct > 100 {
		pct = 100
	}
	p.Pct = pct

	switch {
	case pct >= 100:
		p.Status = StatusComplete
	case pct >= 75:
		p.Status = StatusOnTrack
	case pct >= 50:
		p.Status = StatusBehind
	default:
		p.Status = StatusCritical
	}
	return p
}
