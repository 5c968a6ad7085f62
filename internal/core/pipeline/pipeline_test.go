package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
	"github.com/stm-analytics/scout-go/internal/database"
	apperrors "github.com/stm-analytics/scout-go/pkg/errors"
	"github.com/stm-analytics/scout-go/pkg/logger"
)

const testCalendarYAML = `version: "test"
events:
  - date: "2024-11-29"
    type: holiday
    name: "Black Friday"
    impact: critical
    affected_metrics: [sessions, users, conversions]
    typical_duration_days: 3
    confidence_boost: 0.95
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	calendarPath := filepath.Join(dir, "calendar.yaml")
	require.NoError(t, os.WriteFile(calendarPath, []byte(testCalendarYAML), 0o644))

	return &config.Config{
		Data: config.DataConfig{
			InputDir:     filepath.Join(dir, "data"),
			FilePattern:  "scout_production_clean_*.json",
			ExpectedDays: 7,
		},
		Reports: config.ReportsConfig{
			OutputDir: filepath.Join(dir, "reports"),
		},
		Pipeline: config.PipelineConfig{Workers: 2},
		Detectors: config.DetectorsConfig{
			Disaster:    config.DisasterConfig{MinSessions: 10, TrackingMinBaseline: 50, DropPct: 90},
			Spam:        config.SpamConfig{ZThreshold: 3, BounceRateGate: 85, MinDurationSeconds: 10, BaselineDays: 7},
			Record:      config.RecordConfig{MinSessions: 100, HistoryDays: 90},
			Trend:       config.TrendConfig{RecentDays: 30, BaselineDays: 150, MinSessions: 50, ChangePct: 15},
			Segment:     config.SegmentConfig{ZThreshold: 2, WarningZ: 2.5},
			Statistical: config.StatisticalConfig{ZThreshold: 2, IQRMultiplier: 1.5},
		},
		Portfolio: config.PortfolioConfig{
			PatternThreshold:    0.3,
			CascadeWindowDays:   7,
			CascadeMinDays:      3,
			CorrelationMinCount: 3,
		},
		RootCause: config.RootCauseConfig{CalendarPath: calendarPath, WindowDays: 2, MinScore: 0.3},
		Predict:   config.PredictConfig{HorizonDays: 7, TrendDecay: 0.9, SeasonalMinDays: 28},
		Alerts:    config.AlertsConfig{CriticalThreshold: 70, WarningThreshold: 40},
	}
}

func quietLogger() *logger.BatchLogger {
	log := logger.New()
	log.SetOutput(io.Discard)
	return log
}

func writeProperty(t *testing.T, dir, id string, sessions []float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	property := types.PropertyData{
		Metadata: types.ClientMetadata{
			PropertyID: id,
			Domain:     id + ".example.com",
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

	raw, err := json.Marshal(property)
	require.NoError(t, err)
	path := filepath.Join(dir, fmt.Sprintf("scout_production_clean_%s_100.json", id))
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

type recordingHistory struct {
	saved int
	fail  bool
}

func (r *recordingHistory) SaveRun(_ context.Context, _ *types.RunSummary, _ []types.Anomaly,
	_ *types.PortfolioAnalysis, _ []types.Prediction) error {
	if r.fail {
		return fmt.Errorf("disk full")
	}
	r.saved++
	return nil
}

func (r *recordingHistory) ListRuns(_ context.Context, _ int) ([]database.RunRecord, error) {
	return nil, nil
}

func (r *recordingHistory) GetRun(_ context.Context, _ string) (*database.RunDetail, error) {
	return nil, nil
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeProperty(t, cfg.Data.InputDir, "alpha", []float64{200, 210, 195, 205})
	writeProperty(t, cfg.Data.InputDir, "beta", []float64{100, 100, 100, 5})

	history := &recordingHistory{}
	p, err := New(cfg, quietLogger(), Options{History: history})
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	summary := result.Summary
	assert.Equal(t, types.RunStatusCompleted, summary.Status)
	assert.Equal(t, 2, summary.PropertiesTotal)
	assert.Equal(t, 2, summary.PropertiesSucceeded)
	assert.NotEmpty(t, summary.RunID)

	// beta collapsed to 5 sessions: the disaster detector must fire.
	assert.Greater(t, summary.AnomaliesByDetector[types.DetectorDisaster], 0)
	assert.Equal(t, summary.TotalAnomalies, len(result.Anomalies))

	// Every anomaly leaves correlation enriched, even if only Unknown.
	for _, anomaly := range result.Anomalies {
		require.NotNil(t, anomaly.RootCause)
	}

	require.NotNil(t, result.Analysis)
	require.NotNil(t, result.Feed)
	assert.Equal(t, summary.AlertsGenerated.Total, result.Feed.TotalAlerts)
	assert.Len(t, result.Detectors, 6)

	assert.Equal(t, 1, history.saved)
	assert.Same(t, result, p.Latest())
}

func TestRunWritesReports(t *testing.T) {
	cfg := testConfig(t)
	writeProperty(t, cfg.Data.InputDir, "alpha", []float64{100, 100, 100, 5})

	p, err := New(cfg, quietLogger(), Options{})
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	date := types.FormatDate(result.Summary.FinishedAt)
	entries, err := os.ReadDir(cfg.Reports.OutputDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := make(map[string]bool, len(entries))
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	assert.True(t, names[fmt.Sprintf("scout_disaster_alerts_%s.json", date)])
	assert.True(t, names[fmt.Sprintf("scout_portfolio_patterns_%s.json", date)])
	assert.True(t, names[fmt.Sprintf("scout_predictions_%s.json", date)])
	assert.True(t, names[fmt.Sprintf("scout_alert_feed_%s.json", date)])
	assert.True(t, names[fmt.Sprintf("scout_run_summary_%s.json", date)])
}

func TestRunFailsWithoutData(t *testing.T) {
	cfg := testConfig(t)

	p, err := New(cfg, quietLogger(), Options{})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrNoPropertyData.Message, appErr.Message)
	assert.Nil(t, p.Latest())
}

func TestHistoryFailureIsNonFatal(t *testing.T) {
	cfg := testConfig(t)
	writeProperty(t, cfg.Data.InputDir, "alpha", []float64{100, 100, 100, 5})

	p, err := New(cfg, quietLogger(), Options{History: &recordingHistory{fail: true}})
	require.NoError(t, err)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusCompleted, result.Summary.Status)
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := testConfig(t)
	writeProperty(t, cfg.Data.InputDir, "alpha", []float64{100, 100, 100, 5})
	writeProperty(t, cfg.Data.InputDir, "beta", []float64{200, 210, 195, 205})

	p, err := New(cfg, quietLogger(), Options{})
	require.NoError(t, err)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, len(first.Anomalies), len(second.Anomalies))
	for i := range first.Anomalies {
		assert.Equal(t, first.Anomalies[i].Key(), second.Anomalies[i].Key())
	}
	assert.Equal(t, len(first.Predictions), len(second.Predictions))
	assert.Equal(t, first.Analysis.HealthScore, second.Analysis.HealthScore)
}
