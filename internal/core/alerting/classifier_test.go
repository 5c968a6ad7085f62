package alerting

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

type fakeSuppressor struct {
	seen map[string]bool
	err  error
}

func (f *fakeSuppressor) Seen(_ context.Context, fingerprint string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[fingerprint] {
		return true, nil
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	f.seen[fingerprint] = true
	return false, nil
}

func alertsConfig() config.AlertsConfig {
	return config.AlertsConfig{
		CriticalThreshold: 70,
		WarningThreshold:  40,
		Suppression:       config.SuppressionConfig{Enabled: true, TTL: "72h"},
	}
}

func testClassifier(s Suppressor) *Classifier {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClassifier(alertsConfig(), s, logger)
}

func conversionDrop() types.Anomaly {
	return types.Anomaly{
		PropertyID:   "p1",
		Date:         "2025-06-10",
		DetectorType: types.DetectorStatistical,
		Subtype:      "below_normal",
		Metric:       types.MetricConversions,
		Value:        10,
		Baseline:     40,
		ZScore:       -2.8,
	}
}

func TestBuildFeedScoring(t *testing.T) {
	feed := testClassifier(nil).BuildFeed(context.Background(), []types.Anomaly{conversionDrop()})

	require.Len(t, feed.Alerts, 1)
	alert := feed.Alerts[0]
	// 75% deviation halves to 37.5, doubles on the conversions weight,
	// then takes the 1.5x drop penalty: 100 after the cap.
	assert.Equal(t, 75.0, alert.DeviationPct)
	assert.Equal(t, 100.0, alert.ImpactScore)
	assert.Equal(t, types.SeverityCritical, alert.Severity)
	assert.Equal(t, 1, feed.CriticalCount)
	assert.Contains(t, alert.Summary, "significant conversion drop")
}

func TestBuildFeedRanking(t *testing.T) {
	small := types.Anomaly{
		PropertyID: "p2", Date: "2025-06-10", DetectorType: types.DetectorTrend,
		Subtype: "up", Metric: types.MetricPageViews, Value: 110, Baseline: 100,
	}
	feed := testClassifier(nil).BuildFeed(context.Background(), []types.Anomaly{small, conversionDrop()})

	require.Len(t, feed.Alerts, 2)
	assert.Equal(t, types.MetricConversions, feed.Alerts[0].Metric)
	assert.Equal(t, types.SeverityNormal, feed.Alerts[1].Severity)
	assert.Equal(t, 2, feed.TotalAlerts)
	assert.Equal(t, 1, feed.NormalCount)
}

func TestDeviationAgainstZeroBaseline(t *testing.T) {
	anomaly := types.Anomaly{
		PropertyID: "p1", Date: "2025-06-10", DetectorType: types.DetectorSpam,
		Metric: types.MetricSessions, Value: 500, Baseline: 0,
	}
	feed := testClassifier(nil).BuildFeed(context.Background(), []types.Anomaly{anomaly})

	require.Len(t, feed.Alerts, 1)
	assert.Equal(t, 100.0, feed.Alerts[0].DeviationPct)
}

func TestMethodLabels(t *testing.T) {
	tests := []struct {
		name    string
		anomaly types.Anomaly
		label   string
	}{
		{
			name: "consensus",
			anomaly: types.Anomaly{Methods: &types.DetectionMethods{
				ZAnomaly: true, IQRAnomaly: true, ZScore: 2.5,
			}},
			label: "Statistical consensus (Z-score + IQR)",
		},
		{
			name: "z only",
			anomaly: types.Anomaly{Methods: &types.DetectionMethods{
				ZAnomaly: true, ZScore: 2.51,
			}},
			label: "Z-score anomaly (2.51 std dev)",
		},
		{
			name: "iqr only",
			anomaly: types.Anomaly{Methods: &types.DetectionMethods{
				IQRAnomaly: true,
			}},
			label: "IQR outlier detection",
		},
		{
			name:    "z score on the anomaly itself",
			anomaly: types.Anomaly{ZScore: 3.2},
			label:   "Z-score anomaly (3.20 std dev)",
		},
		{
			name:    "no statistics",
			anomaly: types.Anomaly{},
			label:   "Pattern recognition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.label, methodLabel(&tt.anomaly))
		})
	}
}

func TestSummaryCarriesRootCause(t *testing.T) {
	anomaly := conversionDrop()
	anomaly.RootCause = &types.RootCauseCorrelation{PrimaryCause: "Black Friday"}
	feed := testClassifier(nil).BuildFeed(context.Background(), []types.Anomaly{anomaly})

	require.Len(t, feed.Alerts, 1)
	assert.Contains(t, feed.Alerts[0].Summary, "Likely cause: Black Friday")
}

func TestSuppression(t *testing.T) {
	t.Run("repeat alerts are marked suppressed", func(t *testing.T) {
		classifier := testClassifier(&fakeSuppressor{})
		first := classifier.BuildFeed(context.Background(), []types.Anomaly{conversionDrop()})
		second := classifier.BuildFeed(context.Background(), []types.Anomaly{conversionDrop()})

		assert.False(t, first.Alerts[0].Suppressed)
		assert.True(t, second.Alerts[0].Suppressed)
	})

	t.Run("suppressor failure degrades to full priority", func(t *testing.T) {
		classifier := testClassifier(&fakeSuppressor{err: errors.New("redis down")})
		feed := classifier.BuildFeed(context.Background(), []types.Anomaly{conversionDrop()})

		require.Len(t, feed.Alerts, 1)
		assert.False(t, feed.Alerts[0].Suppressed)
	})
}
