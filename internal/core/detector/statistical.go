package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/stats"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Statistical subtypes.
const (
	AboveNormal = "above_normal"
	BelowNormal = "below_normal"
)

// businessWeights scale raw statistical severity by how much a metric
// matters to revenue. Conversions dominate, page views trail. These are
// scoring coefficients, not deployment tunables.
var businessWeights = map[types.Metric]float64{
	types.MetricSessions:    1.0,
	types.MetricUsers:       1.2,
	types.MetricConversions: 2.0,
	types.MetricPageViews:   0.8,
}

// StatisticalDetector runs the z-score and IQR methods over every core
// metric of the site-wide series and keeps any point either method
// flags. It is the broadest detector and the only one that looks past
// sessions into users, page views, and conversions.
type StatisticalDetector struct {
	cfg config.StatisticalConfig
}

// NewStatistical creates the multi-method consensus detector.
func NewStatistical(cfg config.StatisticalConfig) *StatisticalDetector {
	return &StatisticalDetector{cfg: cfg}
}

func (d *StatisticalDetector) Type() types.DetectorType {
	return types.DetectorStatistical
}

func (d *StatisticalDetector) Dimensions() []types.Dimension {
	return []types.Dimension{types.DimensionOverall}
}

func (d *StatisticalDetector) Detect(property *types.PropertyData) []types.Anomaly {
	comparator := Comparator{Dimensions: d.Dimensions(), MinPoints: 3}
	findings := comparator.Run(property, d.compare)
	types.SortAnomalies(findings)
	return findings
}

func (d *StatisticalDetector) compare(series *SegmentSeries) []types.Anomaly {
	var findings []types.Anomaly
	for _, metric := range types.AllMetrics {
		values := series.MetricValues(metric)
		points := stats.Consensus(values, d.cfg.ZThreshold, d.cfg.IQRMultiplier)
		mean := stats.Mean(values)

		for _, p := range points {
			if !p.IsAnomaly {
				continue
			}

			subtype := AboveNormal
			if p.Value < mean {
				subtype = BelowNormal
			}
			impact := d.businessImpact(metric, subtype, p, mean)

			findings = append(findings, types.Anomaly{
				PropertyID:     series.PropertyID,
				Domain:         series.Domain,
				Date:           series.Points[p.Index].Date,
				DetectorType:   types.DetectorStatistical,
				Subtype:        subtype,
				Priority:       priorityForImpact(impact),
				Dimension:      types.DimensionOverall,
				DimensionValue: types.SiteWide,
				Metric:         metric,
				Value:          p.Value,
				Baseline:       round2(mean),
				ZScore:         round2(p.ZScore),
				BusinessImpact: impact,
				Message: fmt.Sprintf("%s %s: %.0f vs %.0f average",
					metric, subtype, p.Value, mean),
				ActionRequired: actionForStatistical(metric, subtype),
				DetectedAt:     time.Now(),
				Methods: &types.DetectionMethods{
					ZScore:      round2(p.ZScore),
					ZAnomaly:    p.ZAnomaly,
					IQRDistance: round2(p.IQRDistance),
					IQRAnomaly:  p.IQRAnomaly,
				},
			})
		}
	}
	types.SortAnomalies(findings)
	return findings
}

// businessImpact converts raw statistical severity into a 0-100 score.
// Severity seeds at most 80 of it; the remaining headroom belongs to
// the metric weight, the drop penalty, and the relative-deviation
// multipliers.
func (d *StatisticalDetector) businessImpact(metric types.Metric, subtype string, p stats.ConsensusPoint, mean float64) float64 {
	impact := math.Min(p.Severity*20, 80)
	if w, ok := businessWeights[metric]; ok {
		impact *= w
	}
	if subtype == BelowNormal {
		impact *= 1.3
	}
	if mean > 0 {
		relative := math.Abs(p.Value-mean) / mean
		switch {
		case relative > 0.5:
			impact *= 1.4
		case relative > 0.25:
			impact *= 1.2
		}
	}
	return math.Min(round1(impact), 100)
}

func priorityForImpact(impact float64) types.Priority {
	switch {
	case impact >= 70:
		return types.PriorityP1
	case impact >= 40:
		return types.PriorityP2
	default:
		return types.PriorityP3
	}
}

func actionForStatistical(metric types.Metric, subtype string) string {
	if subtype == BelowNormal {
		return fmt.Sprintf("Investigate %s decline against recent changes", metric)
	}
	return fmt.Sprintf("Verify %s spike is genuine traffic", metric)
}
