package detector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// overallProperty builds a property whose site-wide series follows the
// given session counts, one day apart starting 2025-06-01.
func overallProperty(sessions []float64) *types.PropertyData {
	property := &types.PropertyData{
		Metadata: types.ClientMetadata{
			PropertyID: "properties/123",
			Domain:     "example.com",
			ClientName: "Example",
		},
	}
	for i, s := range sessions {
		property.CleanDataset = append(property.CleanDataset, types.MetricObservation{
			Date:               fmt.Sprintf("2025-06-%02d", i+1),
			Sessions:           s,
			Users:              s * 0.8,
			PageViews:          s * 2,
			Conversions:        s * 0.05,
			BounceRate:         45,
			AvgSessionDuration: 120,
		})
	}
	return property
}

func disasterConfig() config.DisasterConfig {
	return config.DisasterConfig{MinSessions: 10, TrackingMinBaseline: 50, DropPct: 90}
}

func TestDisasterDetector(t *testing.T) {
	t.Run("near zero plus catastrophic drop", func(t *testing.T) {
		property := overallProperty([]float64{100, 100, 100, 5})
		findings := NewDisaster(disasterConfig()).Detect(property)

		subtypes := make(map[string]types.Anomaly)
		for _, f := range findings {
			subtypes[f.Subtype] = f
			assert.Equal(t, types.PriorityP0, f.Priority)
			assert.Equal(t, "2025-06-04", f.Date)
		}

		require.Contains(t, subtypes, DisasterNearZeroTraffic)
		require.Contains(t, subtypes, DisasterCatastrophicDrop)
		assert.InDelta(t, 95.0, subtypes[DisasterCatastrophicDrop].DropPct, 0.01)
	})

	t.Run("tracking failure needs real baseline traffic", func(t *testing.T) {
		property := overallProperty([]float64{100, 100, 100, 120})
		for i := range property.CleanDataset {
			property.CleanDataset[i].Conversions = 0
		}
		findings := NewDisaster(disasterConfig()).Detect(property)

		require.Len(t, findings, 1)
		assert.Equal(t, DisasterTrackingFailure, findings[0].Subtype)
		assert.Equal(t, types.MetricConversions, findings[0].Metric)
	})

	t.Run("quiet site converting nothing is not a failure", func(t *testing.T) {
		property := overallProperty([]float64{30, 30, 30, 35})
		for i := range property.CleanDataset {
			property.CleanDataset[i].Conversions = 0
		}
		findings := NewDisaster(disasterConfig()).Detect(property)
		assert.Empty(t, findings)
	})

	t.Run("single day is a silent skip", func(t *testing.T) {
		property := overallProperty([]float64{5})
		assert.Empty(t, NewDisaster(disasterConfig()).Detect(property))
	})
}

func spamConfig() config.SpamConfig {
	return config.SpamConfig{ZThreshold: 3.0, BounceRateGate: 85, MinDurationSeconds: 10, BaselineDays: 7}
}

func TestSpamDetector(t *testing.T) {
	baseline := []float64{100, 102, 98, 101, 99, 103, 97}

	t.Run("spike with bounce signal fires", func(t *testing.T) {
		property := overallProperty(append(baseline, 1000))
		last := len(property.CleanDataset) - 1
		property.CleanDataset[last].BounceRate = 95
		findings := NewSpam(spamConfig()).Detect(property)

		require.Len(t, findings, 1)
		assert.Equal(t, types.DetectorSpam, findings[0].DetectorType)
		assert.Equal(t, types.PriorityP1, findings[0].Priority)
		assert.Greater(t, findings[0].ZScore, 3.0)
		assert.InDelta(t, 100.0, findings[0].Baseline, 0.01)
	})

	t.Run("spike with short sessions fires", func(t *testing.T) {
		property := overallProperty(append(baseline, 1000))
		last := len(property.CleanDataset) - 1
		property.CleanDataset[last].AvgSessionDuration = 3
		findings := NewSpam(spamConfig()).Detect(property)
		require.Len(t, findings, 1)
	})

	t.Run("quality gate blocks engaged spikes", func(t *testing.T) {
		// Same statistical spike but healthy engagement: genuine
		// traffic, not bots.
		property := overallProperty(append(baseline, 1000))
		findings := NewSpam(spamConfig()).Detect(property)
		assert.Empty(t, findings)
	})

	t.Run("flat baseline cannot score", func(t *testing.T) {
		property := overallProperty([]float64{100, 100, 100, 1000})
		last := len(property.CleanDataset) - 1
		property.CleanDataset[last].BounceRate = 95
		assert.Empty(t, NewSpam(spamConfig()).Detect(property))
	})
}

func recordConfig() config.RecordConfig {
	return config.RecordConfig{MinSessions: 100, HistoryDays: 90}
}

func TestRecordDetector(t *testing.T) {
	t.Run("one past the previous max is a record high", func(t *testing.T) {
		property := overallProperty([]float64{400, 500, 450, 501})
		findings := NewRecord(recordConfig()).Detect(property)

		require.Len(t, findings, 1)
		assert.Equal(t, RecordHigh, findings[0].Subtype)
		assert.Equal(t, types.PriorityP3, findings[0].Priority)
		assert.Equal(t, 500.0, findings[0].PreviousRecord)
		assert.InDelta(t, 0.2, findings[0].ChangePct, 0.001)
	})

	t.Run("tying the record is not a record", func(t *testing.T) {
		property := overallProperty([]float64{400, 500, 450, 500})
		assert.Empty(t, NewRecord(recordConfig()).Detect(property))
	})

	t.Run("record low is P1", func(t *testing.T) {
		property := overallProperty([]float64{400, 300, 350, 250})
		findings := NewRecord(recordConfig()).Detect(property)

		require.Len(t, findings, 1)
		assert.Equal(t, RecordLow, findings[0].Subtype)
		assert.Equal(t, types.PriorityP1, findings[0].Priority)
	})

	t.Run("low-volume days do not qualify", func(t *testing.T) {
		property := overallProperty([]float64{50, 60, 55, 90})
		assert.Empty(t, NewRecord(recordConfig()).Detect(property))
	})
}

func trendConfig() config.TrendConfig {
	return config.TrendConfig{RecentDays: 7, BaselineDays: 150, MinSessions: 50, ChangePct: 15}
}

// trendSeries builds baseline days at baselineLevel followed by recent
// days at recentLevel plus one trailing day the detector excludes.
func trendSeries(baselineLevel, recentLevel float64) []float64 {
	var sessions []float64
	for i := 0; i < 7; i++ {
		sessions = append(sessions, baselineLevel)
	}
	for i := 0; i < 7; i++ {
		sessions = append(sessions, recentLevel)
	}
	return append(sessions, recentLevel)
}

func TestTrendDetector(t *testing.T) {
	t.Run("sustained growth is P3", func(t *testing.T) {
		property := overallProperty(trendSeries(100, 120))
		findings := NewTrend(trendConfig()).Detect(property)

		require.Len(t, findings, 1)
		assert.Equal(t, TrendUp, findings[0].Subtype)
		assert.Equal(t, types.PriorityP3, findings[0].Priority)
		assert.InDelta(t, 20.0, findings[0].ChangePct, 0.01)
	})

	t.Run("sustained decline is P2", func(t *testing.T) {
		property := overallProperty(trendSeries(100, 80))
		findings := NewTrend(trendConfig()).Detect(property)

		require.Len(t, findings, 1)
		assert.Equal(t, TrendDown, findings[0].Subtype)
		assert.Equal(t, types.PriorityP2, findings[0].Priority)
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		property := overallProperty(trendSeries(100, 115))
		findings := NewTrend(trendConfig()).Detect(property)
		require.Len(t, findings, 1)
		assert.InDelta(t, 15.0, findings[0].ChangePct, 0.01)
	})

	t.Run("below threshold stays quiet", func(t *testing.T) {
		property := overallProperty(trendSeries(100, 114))
		assert.Empty(t, NewTrend(trendConfig()).Detect(property))
	})

	t.Run("quiet segments are ignored", func(t *testing.T) {
		property := overallProperty(trendSeries(30, 40))
		assert.Empty(t, NewTrend(trendConfig()).Detect(property))
	})
}

func TestSegmentDetector(t *testing.T) {
	property := overallProperty([]float64{100, 100, 100, 100, 100})
	for i := range property.CleanDataset {
		sessions := 50.0
		if i == 2 {
			sessions = 500
		}
		property.GeoSegments = append(property.GeoSegments, types.SegmentObservation{
			Date:     property.CleanDataset[i].Date,
			Country:  "United States",
			Sessions: sessions,
		})
	}

	cfg := config.SegmentConfig{ZThreshold: 1.5, WarningZ: 2.5}
	findings := NewSegment(cfg).Detect(property)

	require.NotEmpty(t, findings)
	spike := findings[0]
	assert.Equal(t, SegmentSpike, spike.Subtype)
	assert.Equal(t, types.DimensionGeography, spike.Dimension)
	assert.Equal(t, "United States", spike.DimensionValue)
	assert.Equal(t, "2025-06-03", spike.Date)
}

func TestStatisticalDetector(t *testing.T) {
	cfg := config.StatisticalConfig{ZThreshold: 2.0, IQRMultiplier: 1.5}

	t.Run("outlier carries consensus methods", func(t *testing.T) {
		property := overallProperty([]float64{100, 102, 98, 101, 99, 103, 97, 300})
		findings := NewStatistical(cfg).Detect(property)

		require.NotEmpty(t, findings)
		var sessionsFinding *types.Anomaly
		for i := range findings {
			if findings[i].Metric == types.MetricSessions {
				sessionsFinding = &findings[i]
				break
			}
		}
		require.NotNil(t, sessionsFinding)
		assert.Equal(t, AboveNormal, sessionsFinding.Subtype)
		require.NotNil(t, sessionsFinding.Methods)
		assert.True(t, sessionsFinding.Methods.ZAnomaly || sessionsFinding.Methods.IQRAnomaly)
	})

	t.Run("steady series stays quiet", func(t *testing.T) {
		property := overallProperty([]float64{100, 101, 99, 100, 102, 98})
		assert.Empty(t, NewStatistical(cfg).Detect(property))
	})
}
