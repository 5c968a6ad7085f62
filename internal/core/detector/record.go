package detector

import (
	"fmt"
	"time"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Record subtypes.
const (
	RecordHigh = "high"
	RecordLow  = "low"
)

// RecordDetector compares yesterday against the historical max/min of
// each qualifying segment. A new high is good news (P3); a new low is
// the worst day on record (P1). At most one of the two fires per
// segment per day.
type RecordDetector struct {
	cfg config.RecordConfig
}

// NewRecord creates the record high/low detector.
func NewRecord(cfg config.RecordConfig) *RecordDetector {
	return &RecordDetector{cfg: cfg}
}

func (r *RecordDetector) Type() types.DetectorType {
	return types.DetectorRecord
}

func (r *RecordDetector) Dimensions() []types.Dimension {
	return []types.Dimension{
		types.DimensionOverall,
		types.DimensionDevice,
		types.DimensionTrafficSource,
		types.DimensionLandingPage,
	}
}

func (r *RecordDetector) Detect(property *types.PropertyData) []types.Anomaly {
	comparator := Comparator{Dimensions: r.Dimensions(), MinPoints: 2}
	findings := comparator.Run(property, r.compare)
	types.SortAnomalies(findings)
	return findings
}

func (r *RecordDetector) compare(series *SegmentSeries) []types.Anomaly {
	yesterday := series.Last()

	// Low-volume segments break records constantly; only days with
	// real traffic qualify.
	if yesterday.Sessions < r.cfg.MinSessions {
		return nil
	}

	sessions := series.Sessions()
	history := sessions[:len(sessions)-1]
	if len(history) > r.cfg.HistoryDays {
		history = history[len(history)-r.cfg.HistoryDays:]
	}

	maxVal, minVal := history[0], history[0]
	for _, v := range history[1:] {
		if v > maxVal {
			maxVal = v
		}
		if v < minVal {
			minVal = v
		}
	}

	switch {
	case yesterday.Sessions > maxVal:
		return []types.Anomaly{r.alert(series, yesterday, RecordHigh, maxVal)}
	case yesterday.Sessions < minVal:
		return []types.Anomaly{r.alert(series, yesterday, RecordLow, minVal)}
	default:
		return nil
	}
}

func (r *RecordDetector) alert(series *SegmentSeries, yesterday SeriesPoint, subtype string, record float64) types.Anomaly {
	a := types.Anomaly{
		PropertyID:     series.PropertyID,
		Domain:         series.Domain,
		Date:           yesterday.Date,
		DetectorType:   types.DetectorRecord,
		Subtype:        subtype,
		Dimension:      series.Dimension,
		DimensionValue: series.DimensionValue,
		Metric:         types.MetricSessions,
		Value:          yesterday.Sessions,
		PreviousRecord: record,
		ChangePct:      round2((yesterday.Sessions - record) / record * 100),
		DetectedAt:     time.Now(),
	}

	if subtype == RecordHigh {
		a.Priority = types.PriorityP3
		a.BusinessImpact = 75
		if series.Dimension == types.DimensionOverall {
			a.Message = fmt.Sprintf("New %d-day high: %.0f sessions (previous: %.0f)",
				r.cfg.HistoryDays, yesterday.Sessions, record)
		} else {
			a.Message = fmt.Sprintf("%s record high: %.0f sessions",
				series.DimensionValue, yesterday.Sessions)
		}
		a.ActionRequired = r.highAction(series)
		return a
	}

	a.Priority = types.PriorityP1
	a.BusinessImpact = 100
	if series.Dimension == types.DimensionOverall {
		a.Message = fmt.Sprintf("New %d-day low: %.0f sessions (previous low: %.0f)",
			r.cfg.HistoryDays, yesterday.Sessions, record)
	} else {
		a.Message = fmt.Sprintf("%s record low: %.0f sessions",
			series.DimensionValue, yesterday.Sessions)
	}
	a.ActionRequired = r.lowAction(series)
	return a
}

func (r *RecordDetector) highAction(series *SegmentSeries) string {
	switch series.Dimension {
	case types.DimensionDevice:
		return fmt.Sprintf("Document %s growth drivers", series.DimensionValue)
	case types.DimensionTrafficSource:
		return fmt.Sprintf("Scale %s success", series.DimensionValue)
	case types.DimensionLandingPage:
		return fmt.Sprintf("Analyze %s success", series.DimensionValue)
	default:
		return "Document what drove this success"
	}
}

func (r *RecordDetector) lowAction(series *SegmentSeries) string {
	switch series.Dimension {
	case types.DimensionDevice:
		return fmt.Sprintf("Investigate %s decline", series.DimensionValue)
	case types.DimensionTrafficSource:
		return fmt.Sprintf("Fix %s traffic loss", series.DimensionValue)
	case types.DimensionLandingPage:
		return fmt.Sprintf("Investigate %s traffic loss", series.DimensionValue)
	default:
		return "Investigate cause of all-time low"
	}
}
