package detector

import (
	"fmt"
	"math"
	"time"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/stats"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Segment subtypes.
const (
	SegmentSpike = "spike"
	SegmentDrop  = "drop"
)

// SegmentDetector scans every point of every segment series for session
// counts that sit far from the segment's own mean. Unlike the other
// detectors it is not anchored to yesterday; a spike ten days ago in a
// single country still surfaces here.
type SegmentDetector struct {
	cfg config.SegmentConfig
}

// NewSegment creates the per-segment z-score scanner.
func NewSegment(cfg config.SegmentConfig) *SegmentDetector {
	return &SegmentDetector{cfg: cfg}
}

func (s *SegmentDetector) Type() types.DetectorType {
	return types.DetectorSegment
}

func (s *SegmentDetector) Dimensions() []types.Dimension {
	return []types.Dimension{
		types.DimensionGeography,
		types.DimensionDevice,
		types.DimensionTrafficSource,
		types.DimensionLandingPage,
	}
}

func (s *SegmentDetector) Detect(property *types.PropertyData) []types.Anomaly {
	comparator := Comparator{Dimensions: s.Dimensions(), MinPoints: 3}
	findings := comparator.Run(property, s.compare)
	types.SortAnomalies(findings)
	return findings
}

func (s *SegmentDetector) compare(series *SegmentSeries) []types.Anomaly {
	sessions := series.Sessions()
	points := stats.ZScores(sessions, s.cfg.ZThreshold)

	mean := stats.Mean(sessions)
	var findings []types.Anomaly
	for _, p := range points {
		if !p.IsAnomaly {
			continue
		}

		subtype := SegmentSpike
		if p.Value < mean {
			subtype = SegmentDrop
		}
		priority := types.PriorityP2
		if math.Abs(p.Score) > s.cfg.WarningZ {
			priority = types.PriorityP1
		}

		findings = append(findings, types.Anomaly{
			PropertyID:     series.PropertyID,
			Domain:         series.Domain,
			Date:           series.Points[p.Index].Date,
			DetectorType:   types.DetectorSegment,
			Subtype:        subtype,
			Priority:       priority,
			Dimension:      series.Dimension,
			DimensionValue: series.DimensionValue,
			Metric:         types.MetricSessions,
			Value:          p.Value,
			Baseline:       round2(mean),
			ZScore:         round2(p.Score),
			BusinessImpact: math.Min(100, math.Round(math.Abs(p.Score)*30)),
			Message: fmt.Sprintf("%s %s: %.0f sessions vs %.0f average",
				series.DimensionValue, subtype, p.Value, mean),
			ActionRequired: s.action(series, subtype),
			DetectedAt:     time.Now(),
		})
	}
	return findings
}

func (s *SegmentDetector) action(series *SegmentSeries, subtype string) string {
	if subtype == SegmentSpike {
		return fmt.Sprintf("Investigate %s traffic spike source", series.DimensionValue)
	}
	return fmt.Sprintf("Diagnose %s traffic loss", series.DimensionValue)
}
