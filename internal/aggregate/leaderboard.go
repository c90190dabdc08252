package aggregate

import (
	"sort"

	"github.com/sahan-field/surveyqc/internal/config"
	"github.com/sahan-field/surveyqc/internal/dataset"
	"github.com/sahan-field/surveyqc/internal/quality"
)

// EnumeratorStats is one enumerator's performance line.
type EnumeratorStats struct {
	Enumerator  string  `json:"enumerator"`
	Total       int     `json:"total"`
	Valid       int     `json:"valid"`
	ValidRate   float64 `json:"valid_rate"` // 0..1 over records with known duration
	AvgDuration float64 `json:"avg_duration"`
	Score       float64 `json:"score"` // 0.7*valid_rate + 0.3*(volume/max_volume)
}

// Leaderboard is the ranked top and bottom performer lists.
type Leaderboard struct {
	Top    []EnumeratorStats `json:"top"`
	Bottom []EnumeratorStats `json:"bottom"`
}

// BuildLeaderboard ranks enumerators by a composite of validity rate and
// relative volume. Bottom is the worst K by the same score, worst first; with
// few enumerators the two lists may overlap. A configured min_samples floor
// gates inclusion (default 0 keeps low-volume enumerators, deliberately).
func BuildLeaderboard(t *dataset.Table, cols dataset.Columns, flags *quality.Flags, cfg config.LeaderboardConfig) *Leaderboard {
	if cols.Enumerator == "" {
		return nil
	}

	type acc struct {
		total, valid, known int
		durationSum         float64
	}
	byEnum := make(map[string]*acc)
	order := make([]string, 0)

	for i, rec := range t.Rows {
		if rec.IsNull(cols.Enumerator) {
			continue
		}
		name := rec[cols.Enumerator]
		a, ok := byEnum[name]
		if !ok {
			a = &acc{}
			byEnum[name] = a
			order = append(order, name)
		}
		a.total++

		rf := flags.Records[i]
		if rf.HasDuration {
			a.known++
			if rf.Valid {
				a.valid++
			}
			if d, ok := rec.Float(cols.Duration); ok {
				a.durationSum += d
			}
		}
	}
	if len(byEnum) == 0 {
		return nil
	}

	maxVolume := 0
	for _, a := range byEnum {
		if a.total > maxVolume {
			maxVolume = a.total
		}
	}

	stats := make([]EnumeratorStats, 0, len(byEnum))
	for _, name := range order {
		a := byEnum[name]
		if a.total < cfg.MinSamples {
			continue
		}
		s := EnumeratorStats{
			Enumerator: name,
			Total:      a.total,
			Valid:      a.valid,
		}
		if a.known > 0 {
			s.ValidRate = float64(a.valid) / float64(a.known)
			s.AvgDuration = a.durationSum / float64(a.known)
		}
		s.Score = 0.7*s.ValidRate + 0.3*float64(a.total)/float64(maxVolume)
		stats = append(stats, s)
	}
	if len(stats) == 0 {
		return nil
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Score > stats[j].Score })

	k := cfg.TopK
	if k <= 0 {
		k = 5
	}

	lb := &Leaderboard{}
	top := k
	if top > len(stats) {
		top = len(stats)
	}
	lb.Top = append(lb.Top, stats[:top]...)

	// Bottom K, worst first.
	start := len(stats) - k
	if start < 0 {
		start = 0
	}
	for i := len(stats) - 1; i >= start; i-- {
		lb.Bottom = append(lb.Bottom, stats[i])
	}
	return lb
}
