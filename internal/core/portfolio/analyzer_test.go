package portfolio

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

func testAnalyzer() *Analyzer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewAnalyzer(config.PortfolioConfig{
		PatternThreshold:    0.3,
		CascadeWindowDays:   7,
		CascadeMinDays:      3,
		CorrelationMinCount: 3,
	}, logger)
}

func anomalyOn(property, date string, metric types.Metric) types.Anomaly {
	return types.Anomaly{
		PropertyID:   property,
		Date:         date,
		Metric:       metric,
		DetectorType: types.DetectorStatistical,
		Priority:     types.PriorityP2,
	}
}

func TestSimultaneousPatterns(t *testing.T) {
	t.Run("three of ten properties on one day fires", func(t *testing.T) {
		anomalies := []types.Anomaly{
			anomalyOn("p1", "2025-06-10", types.MetricSessions),
			anomalyOn("p2", "2025-06-10", types.MetricSessions),
			anomalyOn("p3", "2025-06-10", types.MetricSessions),
		}
		analysis := testAnalyzer().Analyze(anomalies, 10)

		require.Len(t, analysis.Simultaneous, 1)
		pattern := analysis.Simultaneous[0]
		assert.Equal(t, types.PatternSimultaneous, pattern.Type)
		assert.Equal(t, "2025-06-10", pattern.Date)
		assert.Equal(t, 0.3, pattern.AffectedRatio)
		assert.Equal(t, 0.45, pattern.Confidence)
		assert.Equal(t, types.ConfidenceLow, pattern.ConfidenceLabel)
		assert.Equal(t, []string{"p1", "p2", "p3"}, pattern.AffectedClients)
	})

	t.Run("two of ten stays quiet", func(t *testing.T) {
		anomalies := []types.Anomaly{
			anomalyOn("p1", "2025-06-10", types.MetricSessions),
			anomalyOn("p2", "2025-06-10", types.MetricSessions),
		}
		analysis := testAnalyzer().Analyze(anomalies, 10)
		assert.Empty(t, analysis.Simultaneous)
	})

	t.Run("duplicate findings for one property count once", func(t *testing.T) {
		anomalies := []types.Anomaly{
			anomalyOn("p1", "2025-06-10", types.MetricSessions),
			anomalyOn("p1", "2025-06-10", types.MetricSessions),
			anomalyOn("p2", "2025-06-10", types.MetricSessions),
		}
		analysis := testAnalyzer().Analyze(anomalies, 10)
		assert.Empty(t, analysis.Simultaneous)
	})

	t.Run("portfolio-wide event reads as external cause", func(t *testing.T) {
		var anomalies []types.Anomaly
		for i := 0; i < 8; i++ {
			anomalies = append(anomalies, anomalyOn(fmt.Sprintf("p%d", i), "2025-06-10", types.MetricSessions))
		}
		analysis := testAnalyzer().Analyze(anomalies, 10)

		require.Len(t, analysis.Simultaneous, 1)
		assert.Equal(t, types.ConfidenceVeryHigh, analysis.Simultaneous[0].ConfidenceLabel)
		assert.Equal(t, "External platform or algorithm event", analysis.Simultaneous[0].LikelyCause)
	})
}

func TestCascadingPatterns(t *testing.T) {
	t.Run("spread over three days fires", func(t *testing.T) {
		anomalies := []types.Anomaly{
			anomalyOn("p1", "2025-06-10", types.MetricSessions),
			anomalyOn("p2", "2025-06-11", types.MetricSessions),
			anomalyOn("p3", "2025-06-12", types.MetricSessions),
			anomalyOn("p4", "2025-06-12", types.MetricSessions),
		}
		analysis := testAnalyzer().Analyze(anomalies, 10)

		require.Len(t, analysis.Cascading, 1)
		cascade := analysis.Cascading[0]
		assert.Equal(t, types.PatternCascading, cascade.Type)
		assert.Equal(t, "2025-06-10", cascade.StartDate)
		assert.Equal(t, "2025-06-12", cascade.EndDate)
		assert.Equal(t, 3, cascade.DurationDays)
		assert.Equal(t, 0.4, cascade.AffectedRatio)
		assert.Equal(t, types.ConfidenceMedium, cascade.ConfidenceLabel)
	})

	t.Run("two anomaly dates are not a cascade", func(t *testing.T) {
		anomalies := []types.Anomaly{
			anomalyOn("p1", "2025-06-10", types.MetricSessions),
			anomalyOn("p2", "2025-06-11", types.MetricSessions),
			anomalyOn("p3", "2025-06-11", types.MetricSessions),
			anomalyOn("p4", "2025-06-11", types.MetricSessions),
		}
		analysis := testAnalyzer().Analyze(anomalies, 10)
		assert.Empty(t, analysis.Cascading)
	})

	t.Run("dates outside the window split", func(t *testing.T) {
		anomalies := []types.Anomaly{
			anomalyOn("p1", "2025-06-01", types.MetricSessions),
			anomalyOn("p2", "2025-06-02", types.MetricSessions),
			anomalyOn("p3", "2025-06-20", types.MetricSessions),
			anomalyOn("p4", "2025-06-21", types.MetricSessions),
		}
		analysis := testAnalyzer().Analyze(anomalies, 10)
		assert.Empty(t, analysis.Cascading)
	})
}

func TestMetricCorrelations(t *testing.T) {
	var anomalies []types.Anomaly
	// Sessions and users fail together on four property-days.
	for i := 0; i < 4; i++ {
		date := fmt.Sprintf("2025-06-%02d", 10+i)
		anomalies = append(anomalies,
			anomalyOn("p1", date, types.MetricSessions),
			anomalyOn("p1", date, types.MetricUsers),
		)
	}
	// A single co-occurrence stays below the floor.
	anomalies = append(anomalies,
		anomalyOn("p2", "2025-06-10", types.MetricSessions),
		anomalyOn("p2", "2025-06-10", types.MetricConversions),
	)

	analysis := testAnalyzer().Analyze(anomalies, 10)

	require.Len(t, analysis.MetricCorrelations, 1)
	corr := analysis.MetricCorrelations[0]
	assert.Equal(t, types.MetricSessions, corr.Metric)
	assert.Equal(t, types.MetricUsers, corr.CorrelatedMetric)
	assert.Equal(t, 4, corr.Occurrences)
	assert.Equal(t, types.StrengthWeak, corr.Strength)
	assert.Equal(t, []string{"p1"}, corr.AffectedClients)
}

func TestHealthScore(t *testing.T) {
	t.Run("clean portfolio scores 100", func(t *testing.T) {
		analysis := testAnalyzer().Analyze(nil, 10)
		assert.Equal(t, 100.0, analysis.HealthScore)
	})

	t.Run("volume penalty is capped at fifty", func(t *testing.T) {
		var anomalies []types.Anomaly
		for i := 0; i < 100; i++ {
			anomalies = append(anomalies, anomalyOn("p1", fmt.Sprintf("2025-03-%02d", i%28+1), types.MetricSessions))
		}
		analysis := testAnalyzer().Analyze(anomalies, 2)
		assert.GreaterOrEqual(t, analysis.HealthScore, 0.0)
		assert.LessOrEqual(t, analysis.HealthScore, 50.0)
	})

	t.Run("no properties means a perfect empty portfolio", func(t *testing.T) {
		analysis := testAnalyzer().Analyze(nil, 0)
		assert.Equal(t, 100.0, analysis.HealthScore)
		assert.Empty(t, analysis.Simultaneous)
	})
}
