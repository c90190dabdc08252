package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) string {
	// Change to temp dir so no config.json is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Source.TimeoutSecs)
	assert.Equal(t, 3, cfg.Source.MaxRetries)
	assert.Equal(t, "survey_data_export.csv", cfg.Storage.DataFile)
	assert.Equal(t, "survey_quality_dashboard.html", cfg.Storage.DashboardFile)
	assert.InDelta(t, 50, cfg.Survey.MinDuration, 0.001)
	assert.InDelta(t, 120, cfg.Survey.MaxDuration, 0.001)
	assert.Equal(t, "2025-11-01", cfg.Survey.StartDate)
	assert.Equal(t, 1000, cfg.Survey.TargetTotal)
	assert.InDelta(t, 0.5, cfg.Survey.BeneficiaryRatio, 0.001)
	assert.InDelta(t, 95, cfg.Quality.Thresholds["completeness"], 0.001)
	assert.InDelta(t, 90, cfg.Quality.Thresholds["accuracy"], 0.001)
	assert.InDelta(t, 0.30, cfg.Quality.Weights.Completeness, 0.001)
	assert.InDelta(t, 0.45, cfg.Quality.Weights.Accuracy, 0.001)
	assert.InDelta(t, 0.25, cfg.Quality.Weights.Consistency, 0.001)
	assert.Equal(t, 5, cfg.Leaderboard.TopK)
	assert.Equal(t, 0, cfg.Leaderboard.MinSamples)
	assert.Equal(t, 3600, cfg.Refresh.IntervalSecs)
	assert.Equal(t, 10000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromJSON(t *testing.T) {
	dir := chTempDir(t)

	jsonCfg := `{
		"source": {"url": "https://api.example.org/export", "token": "abc"},
		"survey": {
			"min_duration": 45,
			"district_targets": {"Kabul": 150, "Herat": 120},
			"column_mapping": {"district": "region"}
		},
		"server": {"port": 8080}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(jsonCfg), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.org/export", cfg.Source.URL)
	assert.Equal(t, "abc", cfg.Source.Token)
	assert.InDelta(t, 45, cfg.Survey.MinDuration, 0.001)
	assert.Equal(t, 150, cfg.Survey.DistrictTargets["Kabul"])
	assert.Equal(t, "region", cfg.Survey.ColumnMapping["district"])
	assert.Equal(t, 8080, cfg.Server.Port)
	// Untouched keys keep their defaults.
	assert.InDelta(t, 120, cfg.Survey.MaxDuration, 0.001)
}

func TestLoadFromEnv(t *testing.T) {
	chTempDir(t)
	t.Setenv("SURVEYQC_SOURCE_TOKEN", "from-env")
	t.Setenv("SURVEYQC_SERVER_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Source.Token)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestSourceConfig_Timeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, SourceConfig{TimeoutSecs: 30}.Timeout())
}

func TestRefreshConfig_Interval(t *testing.T) {
	assert.Equal(t, time.Hour, RefreshConfig{IntervalSecs: 3600}.Interval())
}

func TestParsedStartDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"valid", "2025-11-01", true},
		{"blank disables", "", false},
		{"garbage disables", "November 1st", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SurveyConfig{StartDate: tt.value}.ParsedStartDate()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), got)
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
