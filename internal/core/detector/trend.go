package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/stats"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Trend subtypes.
const (
	TrendUp   = "up"
	TrendDown = "down"
)

// TrendDetector compares the recent moving average against the longer
// baseline that precedes it. Sustained declines are P2 (investigate);
// sustained growth is P3 (capitalize). The most recent day is excluded
// from the recent window so one noisy day cannot masquerade as a trend.
type TrendDetector struct {
	cfg config.TrendConfig
}

// NewTrend creates the moving-average crossover detector.
func NewTrend(cfg config.TrendConfig) *TrendDetector {
	return &TrendDetector{cfg: cfg}
}

func (t *TrendDetector) Type() types.DetectorType {
	return types.DetectorTrend
}

func (t *TrendDetector) Dimensions() []types.Dimension {
	return []types.Dimension{
		types.DimensionOverall,
		types.DimensionGeography,
		types.DimensionDevice,
		types.DimensionTrafficSource,
		types.DimensionLandingPage,
	}
}

func (t *TrendDetector) Detect(property *types.PropertyData) []types.Anomaly {
	comparator := Comparator{Dimensions: t.Dimensions(), MinPoints: t.cfg.RecentDays + 1}
	findings := comparator.Run(property, t.compare)
	types.SortAnomalies(findings)
	return findings
}

func (t *TrendDetector) compare(series *SegmentSeries) []types.Anomaly {
	sessions := series.Sessions()
	n := len(sessions)

	recent := sessions[n-1-t.cfg.RecentDays : n-1]
	baseline := sessions[:n-1-t.cfg.RecentDays]
	if len(baseline) == 0 {
		return nil
	}
	if len(baseline) > t.cfg.BaselineDays {
		baseline = baseline[len(baseline)-t.cfg.BaselineDays:]
	}

	recentAvg := stats.Mean(recent)
	baselineAvg := stats.Mean(baseline)
	if recentAvg < t.cfg.MinSessions || baselineAvg <= 0 {
		return nil
	}

	changePct := (recentAvg - baselineAvg) / baselineAvg * 100
	if math.Abs(changePct) < t.cfg.ChangePct {
		return nil
	}

	subtype := TrendUp
	priority := types.PriorityP3
	if changePct < 0 {
		subtype = TrendDown
		priority = types.PriorityP2
	}

	message := fmt.Sprintf("%.1f%% trend %s: %d-day avg is %.0f vs baseline %.0f",
		math.Abs(changePct), subtype, t.cfg.RecentDays, recentAvg, baselineAvg)
	if series.Dimension != types.DimensionOverall {
		message = fmt.Sprintf("%s: %.1f%% trend %s", series.DimensionValue, math.Abs(changePct), subtype)
	}

	return []types.Anomaly{{
		PropertyID:     series.PropertyID,
		Domain:         series.Domain,
		Date:           series.Last().Date,
		DetectorType:   types.DetectorTrend,
		Subtype:        subtype,
		Priority:       priority,
		Dimension:      series.Dimension,
		DimensionValue: series.DimensionValue,
		Metric:         types.MetricSessions,
		Value:          round2(recentAvg),
		Baseline:       round2(baselineAvg),
		ChangePct:      round2(changePct),
		BusinessImpact: math.Min(100, math.Round(math.Abs(changePct)*3)),
		Message:        message,
		ActionRequired: t.action(series, subtype),
		DetectedAt:     time.Now(),
	}}
}

func (t *TrendDetector) action(series *SegmentSeries, subtype string) string {
	up := subtype == TrendUp
	switch series.Dimension {
	case types.DimensionGeography:
		if up {
			return fmt.Sprintf("Expand %s presence", series.DimensionValue)
		}
		return fmt.Sprintf("Investigate %s decline", series.DimensionValue)
	case types.DimensionDevice:
		if up {
			return fmt.Sprintf("Optimize %s experience", series.DimensionValue)
		}
		return fmt.Sprintf("Fix %s issues", series.DimensionValue)
	case types.DimensionTrafficSource:
		if up {
			return fmt.Sprintf("Scale %s investment", series.DimensionValue)
		}
		return fmt.Sprintf("Review %s strategy", series.DimensionValue)
	case types.DimensionLandingPage:
		if up {
			return fmt.Sprintf("Promote %s content", series.DimensionValue)
		}
		return fmt.Sprintf("Review %s performance", series.DimensionValue)
	default:
		if up {
			return "Capitalize on growth"
		}
		return "Address declining traffic"
	}
}
