// Package detector hosts the specialized anomaly detectors and the
// dimensional series comparator they share. Every detector walks the
// same per-segment series machinery; only the comparison differs.
package detector

import (
	"math"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Detector is the contract each specialized detector satisfies.
// Detect never returns an error: insufficient data for a segment means
// zero findings for that segment, not a failure.
type Detector interface {
	Type() types.DetectorType
	Dimensions() []types.Dimension
	Detect(property *types.PropertyData) []types.Anomaly
}

// CompareFunc evaluates one qualifying segment series.
type CompareFunc func(series *SegmentSeries) []types.Anomaly

// Comparator fans one property out across a dimension set and applies
// a comparison to every segment series long enough to judge. It is the
// single windowing loop all detectors share.
type Comparator struct {
	Dimensions []types.Dimension
	MinPoints  int
}

// Run applies compare to each qualifying series and concatenates the
// findings.
func (c Comparator) Run(property *types.PropertyData, compare CompareFunc) []types.Anomaly {
	var findings []types.Anomaly
	for _, dim := range c.Dimensions {
		for _, series := range BuildSeries(property, dim) {
			if series.Len() < c.MinPoints {
				continue
			}
			findings = append(findings, compare(&series)...)
		}
	}
	return findings
}

// All builds every detector from its config section. The pipeline runs
// them in this order; disasters lead so P0 findings head every report.
func All(cfg config.DetectorsConfig) []Detector {
	return []Detector{
		NewDisaster(cfg.Disaster),
		NewSpam(cfg.Spam),
		NewRecord(cfg.Record),
		NewTrend(cfg.Trend),
		NewSegment(cfg.Segment),
		NewStatistical(cfg.Statistical),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
