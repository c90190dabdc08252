package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahan-field/surveyqc/internal/config"
)

func TestNormalize_StartDateFilter(t *testing.T) {
	tbl := &Table{
		Columns: []string{"_submission_time", "v"},
		Rows: []Record{
			{"_submission_time": "2025-10-28T09:00:00Z", "v": "pilot"},
			{"_submission_time": "2025-11-01T00:00:00Z", "v": "first day"},
			{"_submission_time": "2025-11-05T12:00:00Z", "v": "live"},
			{"_submission_time": "not a date", "v": "unparsable"},
		},
	}
	cfg := config.SurveyConfig{StartDate: "2025-11-01"}

	got := Normalize(tbl, cfg)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, "first day", got.Rows[0]["v"])
	// Unparsable timestamps are kept, not dropped.
	assert.Equal(t, "unparsable", got.Rows[2]["v"])
}

func TestNormalize_NoStartDateKeepsAll(t *testing.T) {
	tbl := &Table{
		Columns: []string{"_submission_time"},
		Rows:    []Record{{"_submission_time": "2020-01-01"}},
	}

	got := Normalize(tbl, config.SurveyConfig{})
	assert.Equal(t, 1, got.Len())
}

func TestNormalize_DurationSecondsToMinutes(t *testing.T) {
	tbl := &Table{
		Columns: []string{"_duration"},
		Rows: []Record{
			{"_duration": "3300"},
			{"_duration": "90"},
			{"_duration": ""},
		},
	}

	got := Normalize(tbl, config.SurveyConfig{})
	require.True(t, got.HasColumn("duration_minutes"))
	assert.Equal(t, "55", got.Rows[0]["duration_minutes"])
	assert.Equal(t, "1.5", got.Rows[1]["duration_minutes"])
	assert.True(t, got.Rows[2].IsNull("duration_minutes"))
}

func TestNormalize_ExistingDurationMinutesUntouched(t *testing.T) {
	tbl := &Table{
		Columns: []string{"_duration", "duration_minutes"},
		Rows:    []Record{{"_duration": "3300", "duration_minutes": "99"}},
	}

	got := Normalize(tbl, config.SurveyConfig{})
	assert.Equal(t, "99", got.Rows[0]["duration_minutes"])
}

func TestNormalize_GeopointSplit(t *testing.T) {
	tbl := &Table{
		Columns: []string{"_geopoint"},
		Rows: []Record{
			{"_geopoint": "34.5553 69.2075 1800.0 4.0"},
			{"_geopoint": "34.5"},
			{"_geopoint": "abc def"},
			{"_geopoint": ""},
		},
	}

	got := Normalize(tbl, config.SurveyConfig{})
	require.True(t, got.HasColumn("latitude"))
	require.True(t, got.HasColumn("longitude"))

	assert.Equal(t, "34.5553", got.Rows[0]["latitude"])
	assert.Equal(t, "69.2075", got.Rows[0]["longitude"])
	for _, i := range []int{1, 2, 3} {
		assert.True(t, got.Rows[i].IsNull("latitude"), "row %d", i)
		assert.True(t, got.Rows[i].IsNull("longitude"), "row %d", i)
	}
}

func TestNormalize_EmptyTable(t *testing.T) {
	tbl := &Table{}
	got := Normalize(tbl, config.SurveyConfig{StartDate: "2025-11-01"})
	assert.Equal(t, 0, got.Len())
}
