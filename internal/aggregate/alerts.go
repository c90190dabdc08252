package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
	"github.com/sahan-field/surveyqc/internal/quality"
)

// Alert severities, most urgent first.
const (
	SeverityDanger  = "danger"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// maxAlerts caps the panel; alerts are a stateless snapshot rebuilt every
// run, with no deduplication or acknowledgement across runs.
const maxAlerts = 10

// Alert is one condition needing attention.
type Alert struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// BuildAlerts evaluates the alert conditions against the current table.
// Ordered by rule priority, capped at maxAlerts.
func BuildAlerts(t *dataset.Table, cols dataset.Columns, flags *quality.Flags, cfg config.SurveyConfig, now time.Time) []Alert {
	if t.Len() == 0 {
		return nil
	}

	var alerts []Alert
	alerts = append(alerts, recentInvalidAlert(t, cols, flags, now)...)
	alerts = append(alerts, enumeratorAlerts(t, cols, flags)...)
	alerts = append(alerts, missingGPSAlert(t, flags)...)
	alerts = append(alerts, balanceAlert(t, cols, cfg)...)
	alerts = append(alerts, silentDistrictAlerts(t, cols, cfg, now)...)
	alerts = append(alerts, quotaAlerts(t, cols, cfg)...)
	alerts = append(alerts, overallProgressAlert(t, cfg)...)

	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}

// recentInvalidAlert fires when over 20% of the last 24 hours' submissions
// with a known duration are invalid.
func recentInvalidAlert(t *dataset.Table, cols dataset.Columns, flags *quality.Flags, now time.Time) []Alert {
	if cols.Submitted == "" || !flags.HasDurationColumn {
		return nil
	}
	cutoff := now.Add(-24 * time.Hour)
	known, invalid := 0, 0
	for i, rec := range t.Rows {
		ts, ok := rec.Time(cols.Submitted)
		if !ok || ts.Before(cutoff) {
			continue
		}
		rf := flags.Records[i]
		if !rf.HasDuration {
			continue
		}
		known++
		if !rf.Valid {
			invalid++
		}
	}
	if known == 0 {
		return nil
	}
	pct := 100 * float64(invalid) / float64(known)
	if pct <= 20 {
		return nil
	}
	return []Alert{{
		Severity: SeverityDanger,
		Message:  fmt.Sprintf("%.0f%% of last 24h submissions are invalid (%d of %d)", pct, invalid, known),
	}}
}

// enumeratorAlerts flags enumerators whose invalid rate exceeds 50%.
func enumeratorAlerts(t *dataset.Table, cols dataset.Columns, flags *quality.Flags) []Alert {
	if cols.Enumerator == "" || !flags.HasDurationColumn {
		return nil
	}
	type acc struct{ known, invalid int }
	byEnum := make(map[string]*acc)
	order := make([]string, 0)
	for i, rec := range t.Rows {
		if rec.IsNull(cols.Enumerator) {
			continue
		}
		rf := flags.Records[i]
		if !rf.HasDuration {
			continue
		}
		name := rec[cols.Enumerator]
		a, ok := byEnum[name]
		if !ok {
			a = &acc{}
			byEnum[name] = a
			order = append(order, name)
		}
		a.known++
		if !rf.Valid {
			a.invalid++
		}
	}

	var alerts []Alert
	for _, name := range order {
		a := byEnum[name]
		rate := 100 * float64(a.invalid) / float64(a.known)
		if rate > 50 {
			alerts = append(alerts, Alert{
				Severity: SeverityDanger,
				Message:  fmt.Sprintf("Enumerator %q has %.0f%% invalid rate (%d of %d)", name, rate, a.invalid, a.known),
			})
		}
	}
	return alerts
}

// missingGPSAlert fires when over 10% of records lack GPS coordinates.
func missingGPSAlert(t *dataset.Table, flags *quality.Flags) []Alert {
	if !flags.HasGPSColumns {
		return nil
	}
	missing := t.Len() - flags.GPSPresentCount
	pct := 100 * float64(missing) / float64(t.Len())
	if pct <= 10 {
		return nil
	}
	return []Alert{{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("%.0f%% of records missing GPS coordinates (%d surveys)", pct, missing),
	}}
}

// balanceTolerance is how far the beneficiary share may drift from the
// configured sampling ratio, in share points.
const balanceTolerance = 0.10

// balanceAlert fires when the beneficiary share among classified records
// drifts more than balanceTolerance from the configured sampling ratio.
// Unknown treatment values are excluded from the share.
func balanceAlert(t *dataset.Table, cols dataset.Columns, cfg config.SurveyConfig) []Alert {
	if cols.Treatment == "" || cfg.BeneficiaryRatio <= 0 || cfg.BeneficiaryRatio >= 1 {
		return nil
	}
	benef, known := 0, 0
	for _, rec := range t.Rows {
		switch ClassifyTreatment(rec[cols.Treatment]) {
		case GroupBeneficiary:
			benef++
			known++
		case GroupNonBeneficiary:
			known++
		}
	}
	if known == 0 {
		return nil
	}
	share := float64(benef) / float64(known)
	drift := share - cfg.BeneficiaryRatio
	if drift < 0 {
		drift = -drift
	}
	if drift <= balanceTolerance {
		return nil
	}
	return []Alert{{
		Severity: SeverityWarning,
		Message: fmt.Sprintf("Beneficiary share is %.0f%%, expected %.0f%% (%d of %d classified)",
			100*share, 100*cfg.BeneficiaryRatio, benef, known),
	}}
}

// silentDistrictAlerts flags configured districts with no submissions in the
// last 24 hours.
func silentDistrictAlerts(t *dataset.Table, cols dataset.Columns, cfg config.SurveyConfig, now time.Time) []Alert {
	if cols.District == "" || cols.Submitted == "" || len(cfg.DistrictTargets) == 0 {
		return nil
	}
	cutoff := now.Add(-24 * time.Hour)
	recent := make(map[string]bool)
	for _, rec := range t.Rows {
		ts, ok := rec.Time(cols.Submitted)
		if !ok || ts.Before(cutoff) {
			continue
		}
		recent[rec[cols.District]] = true
	}

	districts := sortedDistricts(cfg.DistrictTargets)
	var alerts []Alert
	for _, d := range districts {
		if !recent[d] {
			alerts = append(alerts, Alert{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("No submissions from %s in last 24 hours", d),
			})
		}
	}
	return alerts
}

// quotaAlerts flags districts below 25% of their quota.
func quotaAlerts(t *dataset.Table, cols dataset.Columns, cfg config.SurveyConfig) []Alert {
	if cols.District == "" || len(cfg.DistrictTargets) == 0 {
		return nil
	}
	actuals := make(map[string]int)
	for _, rec := range t.Rows {
		if !rec.IsNull(cols.District) {
			actuals[rec[cols.District]]++
		}
	}

	var alerts []Alert
	for _, d := range sortedDistricts(cfg.DistrictTargets) {
		target := cfg.DistrictTargets[d]
		if target <= 0 {
			continue
		}
		actual := actuals[d]
		pct := 100 * float64(actual) / float64(target)
		if pct < 25 {
			alerts = append(alerts, Alert{
				Severity: SeverityDanger,
				Message:  fmt.Sprintf("%s: only %d/%d surveys (%.0f%%), need %d more", d, actual, target, pct, target-actual),
			})
		}
	}
	return alerts
}

// overallProgressAlert fires while collection is under half of the overall
// target.
func overallProgressAlert(t *dataset.Table, cfg config.SurveyConfig) []Alert {
	if cfg.TargetTotal <= 0 {
		return nil
	}
	pct := 100 * float64(t.Len()) / float64(cfg.TargetTotal)
	if pct >= 50 {
		return nil
	}
	return []Alert{{
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("Only %.0f%% of target reached (%d/%d)", pct, t.Len(), cfg.TargetTotal),
	}}
}

func sortedDistricts(targets map[string]int) []string {
	out := make([]string, 0, len(targets))
	for d := range targets {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
