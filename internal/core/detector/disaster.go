package detector

import (
	"fmt"
	"time"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/stats"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Disaster subtypes.
const (
	DisasterNearZeroTraffic  = "near_zero_traffic"
	DisasterTrackingFailure  = "tracking_failure"
	DisasterCatastrophicDrop = "catastrophic_drop"
)

// DisasterDetector raises P0 alerts for catastrophic site-wide
// failures: near-zero traffic, dead conversion tracking, and drops of
// 90% or more against the short baseline. The three checks run
// independently, so a property can raise up to three alerts.
type DisasterDetector struct {
	cfg config.DisasterConfig
}

// NewDisaster creates the P0 detector.
func NewDisaster(cfg config.DisasterConfig) *DisasterDetector {
	return &DisasterDetector{cfg: cfg}
}

func (d *DisasterDetector) Type() types.DetectorType {
	return types.DetectorDisaster
}

func (d *DisasterDetector) Dimensions() []types.Dimension {
	return []types.Dimension{types.DimensionOverall}
}

// Detect needs at least two days: yesterday plus one baseline day.
// Fewer days is a silent skip, not an error.
func (d *DisasterDetector) Detect(property *types.PropertyData) []types.Anomaly {
	comparator := Comparator{Dimensions: d.Dimensions(), MinPoints: 2}
	return comparator.Run(property, d.compare)
}

func (d *DisasterDetector) compare(series *SegmentSeries) []types.Anomaly {
	var findings []types.Anomaly

	yesterday := series.Last()
	sessions := series.Sessions()
	baseline := sessions[:len(sessions)-1]
	avgSessions := stats.Mean(baseline)
	now := time.Now()

	base := types.Anomaly{
		PropertyID:     series.PropertyID,
		Domain:         series.Domain,
		Date:           yesterday.Date,
		DetectorType:   types.DetectorDisaster,
		Priority:       types.PriorityP0,
		Dimension:      series.Dimension,
		DimensionValue: series.DimensionValue,
		BusinessImpact: 100,
		DetectedAt:     now,
	}

	if yesterday.Sessions < d.cfg.MinSessions {
		a := base
		a.Subtype = DisasterNearZeroTraffic
		a.Metric = types.MetricSessions
		a.Value = yesterday.Sessions
		a.Baseline = round2(avgSessions)
		a.Message = fmt.Sprintf("Site down: Only %.0f sessions detected", yesterday.Sessions)
		a.ActionRequired = "ACT NOW - Check tracking code and site availability"
		findings = append(findings, a)
	}

	// Conversion tracking can only be judged on properties with real
	// traffic; quiet sites legitimately convert nothing.
	if yesterday.Conversions == 0 && avgSessions > d.cfg.TrackingMinBaseline {
		a := base
		a.Subtype = DisasterTrackingFailure
		a.Metric = types.MetricConversions
		a.Value = 0
		a.Message = "Conversion tracking failure: 0 conversions detected"
		a.ActionRequired = "ACT NOW - Verify GA4 event configuration"
		findings = append(findings, a)
	}

	if avgSessions > 0 {
		dropPct := (avgSessions - yesterday.Sessions) / avgSessions * 100
		if dropPct >= d.cfg.DropPct {
			a := base
			a.Subtype = DisasterCatastrophicDrop
			a.Metric = types.MetricSessions
			a.Value = yesterday.Sessions
			a.Baseline = round2(avgSessions)
			a.DropPct = round2(dropPct)
			a.Message = fmt.Sprintf("Catastrophic traffic drop: -%.1f%%", dropPct)
			a.ActionRequired = "ACT NOW - Investigate site outage or tracking issue"
			findings = append(findings, a)
		}
	}

	return findings
}
