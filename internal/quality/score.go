package quality

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
)

// Dimension names, in display order.
const (
	DimCompleteness = "completeness"
	DimAccuracy     = "accuracy"
	DimConsistency  = "consistency"
	DimTimeliness   = "timeliness"
	DimValidity     = "validity"
)

// Scores holds the five dimension percentages plus the weighted composite.
// Every dimension is always emitted; an unmeasurable one scores 0 so the
// composite stays comparable run to run.
type Scores struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Timeliness   float64 `json:"timeliness"`
	Validity     float64 `json:"validity"`
	Composite    float64 `json:"composite"`
}

// ByDimension returns the dimension scores keyed by name.
func (s Scores) ByDimension() map[string]float64 {
	return map[string]float64{
		DimCompleteness: s.Completeness,
		DimAccuracy:     s.Accuracy,
		DimConsistency:  s.Consistency,
		DimTimeliness:   s.Timeliness,
		DimValidity:     s.Validity,
	}
}

// Score computes the five quality dimensions and the weighted composite.
// now is injected so timeliness stays deterministic under test.
func Score(t *dataset.Table, cols dataset.Columns, flags *Flags, cfg config.QualityConfig, now time.Time) Scores {
	var s Scores
	if t.Len() == 0 {
		return s
	}

	s.Completeness = scoreCompleteness(t)
	s.Accuracy = scoreAccuracy(flags)
	s.Consistency = scoreConsistency(flags, t.Len())
	s.Timeliness = scoreTimeliness(t, cols, now)
	s.Validity = scoreValidity(flags, s.Completeness, t.Len())
	s.Composite = composite(s, cfg.Weights)

	zap.L().Debug("quality: scores computed",
		zap.Float64("completeness", s.Completeness),
		zap.Float64("accuracy", s.Accuracy),
		zap.Float64("consistency", s.Consistency),
		zap.Float64("timeliness", s.Timeliness),
		zap.Float64("validity", s.Validity),
		zap.Float64("composite", s.Composite),
	)
	return s
}

// scoreCompleteness is the share of non-null cells over the whole table,
// every column included.
func scoreCompleteness(t *dataset.Table) float64 {
	total := t.Len() * len(t.Columns)
	if total == 0 {
		return 0
	}
	nulls := 0
	for _, rec := range t.Rows {
		for _, col := range t.Columns {
			if rec.IsNull(col) {
				nulls++
			}
		}
	}
	return 100 * (1 - float64(nulls)/float64(total))
}

// scoreAccuracy is the valid share of records with a known duration.
// Absent duration column or no known durations scores 0, not "absent".
func scoreAccuracy(flags *Flags) float64 {
	if flags.DurationKnown == 0 {
		return 0
	}
	return 100 * float64(flags.ValidCount) / float64(flags.DurationKnown)
}

// scoreConsistency is the GPS-present share over the full row count.
func scoreConsistency(flags *Flags, rows int) float64 {
	if !flags.HasGPSColumns || rows == 0 {
		return 0
	}
	return 100 * float64(flags.GPSPresentCount) / float64(rows)
}

// scoreTimeliness decays linearly with the age of the freshest submission:
// 100 at age zero, 50 at 24 hours, floor 0 at 48 hours.
func scoreTimeliness(t *dataset.Table, cols dataset.Columns, now time.Time) float64 {
	if cols.Submitted == "" {
		return 0
	}
	var newest time.Time
	for _, rec := range t.Rows {
		if ts, ok := rec.Time(cols.Submitted); ok && ts.After(newest) {
			newest = ts
		}
	}
	if newest.IsZero() {
		return 0
	}
	ageHours := now.Sub(newest).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return clamp(100-ageHours/24*50, 0, 100)
}

// scoreValidity is the overall valid fraction when duration flags exist;
// otherwise it falls back to completeness.
func scoreValidity(flags *Flags, completeness float64, rows int) float64 {
	if flags.DurationKnown == 0 || rows == 0 {
		return completeness
	}
	return 100 * float64(flags.ValidCount) / float64(rows)
}

// composite blends the dimensions with the configured weights, normalized by
// the total weight. All-zero weights fall back to a plain mean.
func composite(s Scores, w config.QualityWeights) float64 {
	total := w.Completeness + w.Accuracy + w.Consistency + w.Timeliness + w.Validity
	if total == 0 {
		zap.L().Warn("quality: all composite weights are zero, using unweighted mean")
		return round1((s.Completeness + s.Accuracy + s.Consistency + s.Timeliness + s.Validity) / 5)
	}
	sum := w.Completeness*s.Completeness +
		w.Accuracy*s.Accuracy +
		w.Consistency*s.Consistency +
		w.Timeliness*s.Timeliness +
		w.Validity*s.Validity
	return round1(sum / total)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
