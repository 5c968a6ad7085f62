// Package reports writes the per-run JSON documents consumed by the
// delivery collaborator and archives old ones. Reports are the audit
// trail's file form; the history store is its queryable form.
package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Writer produces the date-stamped report files for one run.
type Writer struct {
	cfg    config.ReportsConfig
	logger *logrus.Logger
}

// NewWriter creates a report writer.
func NewWriter(cfg config.ReportsConfig, logger *logrus.Logger) *Writer {
	return &Writer{cfg: cfg, logger: logger}
}

// RunReports is everything one run writes to disk.
type RunReports struct {
	Detectors   []*types.DetectorReport
	Portfolio   *types.PortfolioAnalysis
	Predictions *types.PredictionReport
	Feed        *types.AlertFeed
	Summary     *types.RunSummary
}

// WriteAll writes every report for the run. Individual write failures
// are logged and skipped; report output must never fail a run that
// already produced its findings.
func (w *Writer) WriteAll(reports *RunReports, date string) {
	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		w.logger.WithError(err).WithField("dir", w.cfg.OutputDir).Error("Cannot create report directory")
		return
	}

	for _, report := range reports.Detectors {
		name := fmt.Sprintf("scout_%s_alerts_%s.json", report.DetectorType, date)
		w.write(name, report)
	}
	w.write(fmt.Sprintf("scout_portfolio_patterns_%s.json", date), reports.Portfolio)
	w.write(fmt.Sprintf("scout_predictions_%s.json", date), reports.Predictions)
	w.write(fmt.Sprintf("scout_alert_feed_%s.json", date), reports.Feed)
	w.write(fmt.Sprintf("scout_run_summary_%s.json", date), reports.Summary)
}

func (w *Writer) write(name string, payload interface{}) {
	if payload == nil {
		return
	}
	path := filepath.Join(w.cfg.OutputDir, name)

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		w.logger.WithError(err).WithField("report", name).Error("Cannot marshal report")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.logger.WithError(err).WithField("report", name).Error("Cannot write report")
		return
	}
	w.logger.WithField("report", path).Debug("Report written")
}

// BuildDetectorReports groups one run's anomalies into the per-detector
// report documents.
func BuildDetectorReports(anomalies []types.Anomaly, propertiesAnalyzed int, detectors []DetectorInfo) []*types.DetectorReport {
	byType := make(map[types.DetectorType][]types.Anomaly)
	for _, anomaly := range anomalies {
		byType[anomaly.DetectorType] = append(byType[anomaly.DetectorType], anomaly)
	}

	out := make([]*types.DetectorReport, 0, len(detectors))
	for _, info := range detectors {
		alerts := byType[info.Type]
		types.SortAnomalies(alerts)
		if alerts == nil {
			alerts = []types.Anomaly{}
		}
		out = append(out, &types.DetectorReport{
			GeneratedAt:        time.Now(),
			DetectorType:       info.Type,
			Priority:           info.PriorityBand,
			PropertiesAnalyzed: propertiesAnalyzed,
			TotalAlerts:        len(alerts),
			Dimensions:         info.Dimensions,
			Alerts:             alerts,
		})
	}
	return out
}

// DetectorInfo describes one detector for report headers.
type DetectorInfo struct {
	Type         types.DetectorType
	PriorityBand string
	Dimensions   []types.Dimension
}
