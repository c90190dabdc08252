// Package config loads application configuration from a JSON file and the
// environment, and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source      SourceConfig      `json:"source" mapstructure:"source"`
	Storage     StorageConfig     `json:"storage" mapstructure:"storage"`
	Survey      SurveyConfig      `json:"survey" mapstructure:"survey"`
	Quality     QualityConfig     `json:"quality" mapstructure:"quality"`
	Leaderboard LeaderboardConfig `json:"leaderboard" mapstructure:"leaderboard"`
	Refresh     RefreshConfig     `json:"refresh" mapstructure:"refresh"`
	Server      ServerConfig      `json:"server" mapstructure:"server"`
	Log         LogConfig         `json:"log" mapstructure:"log"`
}

// SourceConfig configures the remote data-collection API.
type SourceConfig struct {
	URL         string `json:"url" mapstructure:"url"`
	Token       string `json:"token" mapstructure:"token"`
	TimeoutSecs int    `json:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `json:"max_retries" mapstructure:"max_retries"`
}

// StorageConfig configures the snapshot and report files.
type StorageConfig struct {
	DataFile      string `json:"data_file" mapstructure:"data_file"`
	DashboardFile string `json:"dashboard_file" mapstructure:"dashboard_file"`
}

// SurveyConfig holds the survey-instrument parameters: duration bounds,
// collection window, targets, and explicit column overrides.
type SurveyConfig struct {
	MinDuration      float64           `json:"min_duration" mapstructure:"min_duration"`
	MaxDuration      float64           `json:"max_duration" mapstructure:"max_duration"`
	StartDate        string            `json:"start_date" mapstructure:"start_date"`
	TargetTotal      int               `json:"target_total" mapstructure:"target_total"`
	DistrictTargets  map[string]int    `json:"district_targets" mapstructure:"district_targets"`
	BeneficiaryRatio float64           `json:"beneficiary_ratio" mapstructure:"beneficiary_ratio"`
	ColumnMapping    map[string]string `json:"column_mapping" mapstructure:"column_mapping"`
	GPSBounds        GPSBounds         `json:"gps_bounds" mapstructure:"gps_bounds"`
}

// GPSBounds is an optional bounding box for GPS plausibility checks.
// Disabled unless Enabled is set.
type GPSBounds struct {
	Enabled bool    `json:"enabled" mapstructure:"enabled"`
	LatMin  float64 `json:"lat_min" mapstructure:"lat_min"`
	LatMax  float64 `json:"lat_max" mapstructure:"lat_max"`
	LonMin  float64 `json:"lon_min" mapstructure:"lon_min"`
	LonMax  float64 `json:"lon_max" mapstructure:"lon_max"`
}

// QualityConfig holds per-dimension thresholds and composite weights.
type QualityConfig struct {
	Thresholds map[string]float64 `json:"thresholds" mapstructure:"thresholds"`
	Weights    QualityWeights     `json:"weights" mapstructure:"weights"`
}

// QualityWeights weights the five dimensions in the composite score.
// Historical deployments disagree on the split; 30/25/45 is the documented
// default and every weight is overridable.
type QualityWeights struct {
	Completeness float64 `json:"completeness" mapstructure:"completeness"`
	Accuracy     float64 `json:"accuracy" mapstructure:"accuracy"`
	Consistency  float64 `json:"consistency" mapstructure:"consistency"`
	Timeliness   float64 `json:"timeliness" mapstructure:"timeliness"`
	Validity     float64 `json:"validity" mapstructure:"validity"`
}

// LeaderboardConfig configures enumerator ranking.
type LeaderboardConfig struct {
	TopK       int `json:"top_k" mapstructure:"top_k"`
	MinSamples int `json:"min_samples" mapstructure:"min_samples"`
}

// RefreshConfig configures the background refresh loop.
type RefreshConfig struct {
	IntervalSecs int `json:"interval_secs" mapstructure:"interval_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// Timeout returns the outbound request timeout as a duration.
func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Interval returns the refresh interval as a duration.
func (c RefreshConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSecs) * time.Second
}

// ParsedStartDate parses the configured start date. Records submitted before
// it are excluded at fetch time. A blank or unparsable value disables the cutoff.
func (c SurveyConfig) ParsedStartDate() (time.Time, bool) {
	if c.StartDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		zap.L().Warn("config: unparsable start_date, cutoff disabled",
			zap.String("start_date", c.StartDate),
			zap.Error(err),
		)
		return time.Time{}, false
	}
	return t.UTC(), true
}

// Load reads configuration from config.json and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SURVEYQC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a natural default still need one registered so
	// AutomaticEnv can surface them during Unmarshal.
	v.SetDefault("source.url", "")
	v.SetDefault("source.token", "")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("storage.data_file", "survey_data_export.csv")
	v.SetDefault("storage.dashboard_file", "survey_quality_dashboard.html")
	v.SetDefault("survey.min_duration", 50)
	v.SetDefault("survey.max_duration", 120)
	v.SetDefault("survey.start_date", "2025-11-01")
	v.SetDefault("survey.target_total", 1000)
	v.SetDefault("survey.beneficiary_ratio", 0.5)
	v.SetDefault("quality.thresholds", map[string]float64{
		"completeness": 95,
		"accuracy":     90,
		"consistency":  85,
		"timeliness":   80,
		"validity":     90,
	})
	v.SetDefault("quality.weights.completeness", 0.30)
	v.SetDefault("quality.weights.accuracy", 0.45)
	v.SetDefault("quality.weights.consistency", 0.25)
	v.SetDefault("quality.weights.timeliness", 0)
	v.SetDefault("quality.weights.validity", 0)
	v.SetDefault("leaderboard.top_k", 5)
	v.SetDefault("leaderboard.min_samples", 0)
	v.SetDefault("refresh.interval_secs", 3600)
	v.SetDefault("server.port", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
