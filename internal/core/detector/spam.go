package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/stats"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// SpamDetector raises P1 alerts when a traffic spike coincides with
// poor engagement quality. Both conditions must hold: yesterday's
// sessions score past the z threshold against the prior week's
// baseline, and the day shows spam signals (very high bounce rate or
// near-zero session duration).
type SpamDetector struct {
	cfg config.SpamConfig
}

// NewSpam creates the P1 spam/bot detector.
func NewSpam(cfg config.SpamConfig) *SpamDetector {
	return &SpamDetector{cfg: cfg}
}

func (s *SpamDetector) Type() types.DetectorType {
	return types.DetectorSpam
}

func (s *SpamDetector) Dimensions() []types.Dimension {
	return []types.Dimension{
		types.DimensionOverall,
		types.DimensionGeography,
		types.DimensionTrafficSource,
	}
}

func (s *SpamDetector) Detect(property *types.PropertyData) []types.Anomaly {
	comparator := Comparator{Dimensions: s.Dimensions(), MinPoints: 2}
	return comparator.Run(property, s.compare)
}

func (s *SpamDetector) compare(series *SegmentSeries) []types.Anomaly {
	yesterday := series.Last()
	sessions := series.Sessions()

	baseline := sessions[:len(sessions)-1]
	if len(baseline) > s.cfg.BaselineDays {
		baseline = baseline[len(baseline)-s.cfg.BaselineDays:]
	}

	z, ok := stats.ZScoreAgainst(baseline, yesterday.Sessions)
	if !ok || math.Abs(z) <= s.cfg.ZThreshold {
		return nil
	}
	if !s.hasSpamSignals(yesterday) {
		return nil
	}

	message := fmt.Sprintf("Spam traffic detected: %.0f sessions with %.1f%% bounce rate",
		yesterday.Sessions, yesterday.BounceRate)
	action := "Review traffic sources for bot activity"
	switch series.Dimension {
	case types.DimensionGeography:
		message = fmt.Sprintf("Spam from %s: %.0f sessions, %.1f%% bounce",
			series.DimensionValue, yesterday.Sessions, yesterday.BounceRate)
		action = fmt.Sprintf("Review %s traffic sources", series.DimensionValue)
	case types.DimensionTrafficSource:
		message = fmt.Sprintf("Spam from %s: %.0f sessions, %.1f%% bounce",
			series.DimensionValue, yesterday.Sessions, yesterday.BounceRate)
		action = fmt.Sprintf("Block or filter %s if spam confirmed", series.DimensionValue)
	}

	return []types.Anomaly{{
		PropertyID:     series.PropertyID,
		Domain:         series.Domain,
		Date:           yesterday.Date,
		DetectorType:   types.DetectorSpam,
		Priority:       types.PriorityP1,
		Dimension:      series.Dimension,
		DimensionValue: series.DimensionValue,
		Metric:         types.MetricSessions,
		Value:          yesterday.Sessions,
		Baseline:       round2(stats.Mean(baseline)),
		ZScore:         round2(z),
		BounceRate:     round2(yesterday.BounceRate),
		AvgDuration:    round2(yesterday.AvgSessionDuration),
		BusinessImpact: math.Min(100, math.Round(math.Abs(z)*25)),
		Message:        message,
		ActionRequired: action,
		DetectedAt:     time.Now(),
	}}
}

// hasSpamSignals is the traffic-quality gate: bots bounce immediately
// or leave sub-10-second sessions.
func (s *SpamDetector) hasSpamSignals(day SeriesPoint) bool {
	return day.BounceRate > s.cfg.BounceRateGate || day.AvgSessionDuration < s.cfg.MinDurationSeconds
}
