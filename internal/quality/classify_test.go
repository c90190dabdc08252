package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
)

func durationTable(durations ...string) (*dataset.Table, dataset.Columns) {
	tbl := &dataset.Table{Columns: []string{"duration_minutes"}}
	for _, d := range durations {
		tbl.Rows = append(tbl.Rows, dataset.Record{"duration_minutes": d})
	}
	return tbl, dataset.Columns{Duration: "duration_minutes"}
}

func TestClassify_DurationBounds(t *testing.T) {
	tbl, cols := durationTable("40", "55", "130")
	cfg := config.SurveyConfig{MinDuration: 50, MaxDuration: 120}

	flags := Classify(tbl, cols, cfg)

	require.Len(t, flags.Records, 3)
	assert.Equal(t, []bool{false, true, true}, []bool{
		flags.Records[0].Valid, flags.Records[1].Valid, flags.Records[2].Valid,
	})
	assert.Equal(t, []bool{true, false, false}, []bool{
		flags.Records[0].TooShort, flags.Records[1].TooShort, flags.Records[2].TooShort,
	})
	assert.Equal(t, []bool{false, false, true}, []bool{
		flags.Records[0].TooLong, flags.Records[1].TooLong, flags.Records[2].TooLong,
	})

	assert.Equal(t, 3, flags.DurationKnown)
	assert.Equal(t, 2, flags.ValidCount)
	assert.Equal(t, 1, flags.TooShortCount)
	assert.Equal(t, 1, flags.TooLongCount)
}

func TestClassify_ExactBoundaries(t *testing.T) {
	tbl, cols := durationTable("50", "120")
	cfg := config.SurveyConfig{MinDuration: 50, MaxDuration: 120}

	flags := Classify(tbl, cols, cfg)

	// Exactly min is valid, exactly max is not too long.
	assert.True(t, flags.Records[0].Valid)
	assert.False(t, flags.Records[0].TooShort)
	assert.True(t, flags.Records[1].Valid)
	assert.False(t, flags.Records[1].TooLong)
}

func TestClassify_NullDurationExcluded(t *testing.T) {
	tbl, cols := durationTable("55", "", "junk")
	cfg := config.SurveyConfig{MinDuration: 50, MaxDuration: 120}

	flags := Classify(tbl, cols, cfg)

	assert.Equal(t, 1, flags.DurationKnown)
	assert.False(t, flags.Records[1].HasDuration)
	assert.False(t, flags.Records[2].HasDuration)
	// A null duration is neither valid nor too short.
	assert.False(t, flags.Records[1].Valid)
	assert.False(t, flags.Records[1].TooShort)
}

func TestClassify_NoDurationColumn(t *testing.T) {
	tbl := &dataset.Table{
		Columns: []string{"district"},
		Rows:    []dataset.Record{{"district": "Kabul"}},
	}

	flags := Classify(tbl, dataset.Columns{District: "district"}, config.SurveyConfig{MinDuration: 50})

	assert.False(t, flags.HasDurationColumn)
	assert.Equal(t, 0, flags.DurationKnown)
}

func TestClassify_GPSPresence(t *testing.T) {
	tbl := &dataset.Table{
		Columns: []string{"latitude", "longitude"},
		Rows: []dataset.Record{
			{"latitude": "34.5", "longitude": "69.2"},
			{"latitude": "34.5", "longitude": ""},
			{"latitude": "", "longitude": ""},
		},
	}
	cols := dataset.Columns{Latitude: "latitude", Longitude: "longitude"}

	flags := Classify(tbl, cols, config.SurveyConfig{})

	assert.True(t, flags.HasGPSColumns)
	assert.Equal(t, 1, flags.GPSPresentCount)
	assert.True(t, flags.Records[0].GPSPresent)
	// One missing coordinate means the pair is absent.
	assert.False(t, flags.Records[1].GPSPresent)
}

func TestClassify_GPSBounds(t *testing.T) {
	tbl := &dataset.Table{
		Columns: []string{"latitude", "longitude"},
		Rows: []dataset.Record{
			{"latitude": "34.5", "longitude": "69.2"},
			{"latitude": "51.5", "longitude": "-0.1"}, // far outside the box
		},
	}
	cols := dataset.Columns{Latitude: "latitude", Longitude: "longitude"}
	cfg := config.SurveyConfig{GPSBounds: config.GPSBounds{
		Enabled: true,
		LatMin:  29, LatMax: 39, LonMin: 60, LonMax: 75,
	}}

	flags := Classify(tbl, cols, cfg)

	// Out of bounds is still present; the two flags stay independent.
	assert.Equal(t, 2, flags.GPSPresentCount)
	assert.Equal(t, 1, flags.GPSOutOfBoundsCount)
	assert.False(t, flags.Records[0].GPSOutOfBounds)
	assert.True(t, flags.Records[1].GPSOutOfBounds)
}

func TestClassify_GPSBoundsDisabled(t *testing.T) {
	tbl := &dataset.Table{
		Columns: []string{"latitude", "longitude"},
		Rows:    []dataset.Record{{"latitude": "51.5", "longitude": "-0.1"}},
	}
	cols := dataset.Columns{Latitude: "latitude", Longitude: "longitude"}

	flags := Classify(tbl, cols, config.SurveyConfig{})
	assert.Equal(t, 0, flags.GPSOutOfBoundsCount)
}
