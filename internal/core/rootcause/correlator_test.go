package rootcause

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

func testCalendar() *types.EventCalendar {
	return &types.EventCalendar{
		Version: "test",
		Events: []types.ExternalEvent{
			{
				Date:                "2024-11-29",
				EventType:           types.EventHoliday,
				Name:                "Black Friday",
				ImpactLevel:         types.ImpactCritical,
				AffectedMetrics:     []types.Metric{types.MetricSessions, types.MetricUsers, types.MetricConversions, types.MetricPageViews},
				TypicalDurationDays: 3,
				ConfidenceBoost:     0.95,
				Description:         "Major shopping holiday",
			},
			{
				Date:                "2024-03-05",
				EventType:           types.EventGoogleAlgo,
				Name:                "March 2024 Core Update",
				ImpactLevel:         types.ImpactHigh,
				AffectedMetrics:     []types.Metric{types.MetricSessions, types.MetricUsers, types.MetricPageViews},
				TypicalDurationDays: 14,
				ConfidenceBoost:     0.85,
				Description:         "Google core algorithm update affecting rankings",
			},
		},
	}
}

func testCorrelator(t *testing.T) *Correlator {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	cfg := config.RootCauseConfig{WindowDays: 2, MinScore: 0.3}
	return NewCorrelator(cfg, testCalendar(), logger)
}

func TestCorrelateHolidayMatch(t *testing.T) {
	anomalies := []types.Anomaly{{
		PropertyID:     "p1",
		Date:           "2024-11-29",
		Metric:         types.MetricSessions,
		DetectorType:   types.DetectorStatistical,
		BusinessImpact: 90,
	}}

	enriched := testCorrelator(t).Correlate(anomalies, nil)

	require.NotNil(t, enriched[0].RootCause)
	rc := enriched[0].RootCause
	assert.Equal(t, "Black Friday", rc.PrimaryCause)
	// 0.95 * 1.2 (metric match) * 1.3 (critical vs >80) capped at 1.0.
	require.NotEmpty(t, rc.Candidates)
	assert.Equal(t, 1.0, rc.Candidates[0].Score)
	assert.Equal(t, types.ConfidenceVeryHigh, rc.PrimaryConfidence)
	assert.Contains(t, rc.Explanation, "Black Friday")
	assert.Contains(t, rc.RecommendedAction, "previous year")
}

func TestCorrelateWindow(t *testing.T) {
	t.Run("two days after the event still matches", func(t *testing.T) {
		anomalies := []types.Anomaly{{
			PropertyID:     "p1",
			Date:           "2024-03-07",
			Metric:         types.MetricSessions,
			BusinessImpact: 70,
		}}
		enriched := testCorrelator(t).Correlate(anomalies, nil)
		assert.Equal(t, "March 2024 Core Update", enriched[0].RootCause.PrimaryCause)
	})

	t.Run("outside the window falls back to unknown", func(t *testing.T) {
		anomalies := []types.Anomaly{{
			PropertyID:     "p1",
			Date:           "2024-03-12", // a Tuesday, no Monday event either
			Metric:         types.MetricSessions,
			BusinessImpact: 70,
		}}
		enriched := testCorrelator(t).Correlate(anomalies, nil)

		rc := enriched[0].RootCause
		assert.Equal(t, UnknownCause, rc.PrimaryCause)
		assert.Equal(t, types.ConfidenceLow, rc.PrimaryConfidence)
		assert.Equal(t, "No clear external cause identified", rc.Explanation)
		assert.Equal(t, "Investigate client-specific factors", rc.RecommendedAction)
	})
}

func TestPortfolioWideBoost(t *testing.T) {
	withoutBoost := []types.Anomaly{{
		PropertyID:     "p1",
		Date:           "2024-03-05",
		Metric:         types.MetricConversions, // not in the update's scope
		BusinessImpact: 30,
	}}
	withBoost := []types.Anomaly{{
		PropertyID:     "p1",
		Date:           "2024-03-05",
		Metric:         types.MetricConversions,
		BusinessImpact: 30,
	}}

	correlator := testCorrelator(t)
	plain := correlator.Correlate(withoutBoost, nil)
	wide := correlator.Correlate(withBoost, map[string]bool{"2024-03-05|conversions": true})

	require.NotEmpty(t, plain[0].RootCause.Candidates)
	require.NotEmpty(t, wide[0].RootCause.Candidates)
	// Platform-scale events score 1.4x higher against portfolio-wide
	// anomalies: 0.85 * 0.7 * 0.8 = 0.48 vs * 1.4 = 0.67.
	assert.InDelta(t, 0.48, plain[0].RootCause.Candidates[0].Score, 0.01)
	assert.InDelta(t, 0.67, wide[0].RootCause.Candidates[0].Score, 0.01)
	assert.Equal(t, types.ConfidenceMedium, plain[0].RootCause.PrimaryConfidence)
	assert.Equal(t, types.ConfidenceHigh, wide[0].RootCause.PrimaryConfidence)
}

func TestMondayRecovery(t *testing.T) {
	// 2024-06-03 is a Monday with no calendar events nearby.
	anomalies := []types.Anomaly{{
		PropertyID:     "p1",
		Date:           "2024-06-03",
		Metric:         types.MetricSessions,
		BusinessImpact: 20,
	}}
	enriched := testCorrelator(t).Correlate(anomalies, nil)

	rc := enriched[0].RootCause
	assert.Equal(t, "Monday (Weekend Recovery)", rc.PrimaryCause)
	// 0.40 * 1.2 (metric match), low impact aligned with low severity.
	require.NotEmpty(t, rc.Candidates)
	assert.InDelta(t, 0.48, rc.Candidates[0].Score, 0.01)
	assert.Equal(t, "No action required. Normal weekly pattern.", rc.RecommendedAction)
}

func TestPatternDates(t *testing.T) {
	analysis := &types.PortfolioAnalysis{
		Simultaneous: []types.Pattern{
			{Date: "2025-06-10", Metric: types.MetricSessions},
		},
	}

	wide := PatternDates(analysis)
	assert.True(t, wide["2025-06-10|sessions"])
	assert.False(t, wide["2025-06-10|users"])
	assert.Empty(t, PatternDates(nil))
}

func TestLoadCalendarValidation(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCalendar("/does/not/exist.yaml")
		assert.Error(t, err)
	})
}
