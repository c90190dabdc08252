package aggregate

import (
	"sort"
	"strings"

	"github.com/sahan-field/surveyqc/internal/dataset"
)

// Treatment group labels.
const (
	GroupBeneficiary    = "Beneficiary"
	GroupNonBeneficiary = "Non-Beneficiary"
	GroupUnknown        = "Unknown"
)

// Treatment value vocabularies, matched case-insensitively. Anything outside
// both sets buckets into Unknown.
var (
	positiveTreatment = map[string]bool{
		"1": true, "yes": true, "true": true, "beneficiary": true, "treatment": true,
	}
	negativeTreatment = map[string]bool{
		"0": true, "no": true, "false": true,
		"non-beneficiary": true, "notbeneficiary": true, "control": true,
	}
)

// ClassifyTreatment maps a raw treatment cell to its group label.
func ClassifyTreatment(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return GroupUnknown
	case positiveTreatment[v]:
		return GroupBeneficiary
	case negativeTreatment[v]:
		return GroupNonBeneficiary
	default:
		return GroupUnknown
	}
}

// CrossTabRow is one district's treatment-group counts.
type CrossTabRow struct {
	District    string `json:"district"`
	Beneficiary int    `json:"beneficiary"`
	NonBenef    int    `json:"non_beneficiary"`
	Unknown     int    `json:"unknown"`
	Total       int    `json:"total"`
}

// CrossTab is the district-by-treatment-group grid with totals.
type CrossTab struct {
	Rows  []CrossTabRow `json:"rows"`
	Total CrossTabRow   `json:"total"`
}

// TreatmentCrossTab builds the district × treatment-group grid. Districts
// appear in first-seen table order; configured target districts with no
// records are appended with zeros so gaps stay visible.
func TreatmentCrossTab(t *dataset.Table, districtCol, treatmentCol string, targets map[string]int) *CrossTab {
	if districtCol == "" || treatmentCol == "" {
		return nil
	}

	byDistrict := make(map[string]*CrossTabRow)
	order := make([]string, 0)

	for _, rec := range t.Rows {
		district := strings.TrimSpace(rec[districtCol])
		if district == "" {
			district = GroupUnknown
		}
		row, ok := byDistrict[district]
		if !ok {
			row = &CrossTabRow{District: district}
			byDistrict[district] = row
			order = append(order, district)
		}

		switch ClassifyTreatment(rec[treatmentCol]) {
		case GroupBeneficiary:
			row.Beneficiary++
		case GroupNonBeneficiary:
			row.NonBenef++
		default:
			row.Unknown++
		}
		row.Total++
	}

	// Configured districts with no submissions still get a zero row.
	missing := make([]string, 0)
	for district := range targets {
		if _, ok := byDistrict[district]; !ok {
			missing = append(missing, district)
		}
	}
	sort.Strings(missing)
	for _, district := range missing {
		byDistrict[district] = &CrossTabRow{District: district}
		order = append(order, district)
	}
	if len(order) == 0 {
		return nil
	}

	ct := &CrossTab{Total: CrossTabRow{District: "Total"}}
	for _, district := range order {
		row := byDistrict[district]
		ct.Rows = append(ct.Rows, *row)
		ct.Total.Beneficiary += row.Beneficiary
		ct.Total.NonBenef += row.NonBenef
		ct.Total.Unknown += row.Unknown
		ct.Total.Total += row.Total
	}
	return ct
}
