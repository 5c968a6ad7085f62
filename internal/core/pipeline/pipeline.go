// Package pipeline orchestrates one detection run end to end: load,
// fan-out detection, the portfolio barrier, correlation, prediction,
// classification, and persistence. Per-property detection is
// embarrassingly parallel; everything after the barrier reads the
// aggregated results.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/alerting"
	"github.com/stm-analytics/scout-go/internal/core/detector"
	"github.com/stm-analytics/scout-go/internal/core/ingest"
	"github.com/stm-analytics/scout-go/internal/core/metrics"
	"github.com/stm-analytics/scout-go/internal/core/portfolio"
	"github.com/stm-analytics/scout-go/internal/core/predict"
	"github.com/stm-analytics/scout-go/internal/core/reports"
	"github.com/stm-analytics/scout-go/internal/core/rootcause"
	"github.com/stm-analytics/scout-go/internal/core/types"
	"github.com/stm-analytics/scout-go/internal/database"
	"github.com/stm-analytics/scout-go/internal/websocket"
	"github.com/stm-analytics/scout-go/pkg/errors"
	"github.com/stm-analytics/scout-go/pkg/logger"
)

// Result is everything one run produced, kept in memory for the ops
// API until the next run replaces it.
type Result struct {
	Summary     *types.RunSummary        `json:"summary"`
	Anomalies   []types.Anomaly          `json:"anomalies"`
	Analysis    *types.PortfolioAnalysis `json:"portfolio"`
	Predictions []types.Prediction       `json:"predictions"`
	Feed        *types.AlertFeed         `json:"feed"`
	Detectors   []*types.DetectorReport  `json:"detector_reports"`
}

// Pipeline wires the run phases together. Construct it once; Run may
// be called repeatedly but never concurrently with itself.
type Pipeline struct {
	cfg        *config.Config
	logger     *logger.BatchLogger
	loader     *ingest.Loader
	detectors  []detector.Detector
	analyzer   *portfolio.Analyzer
	correlator *rootcause.Correlator
	predictor  *predict.Engine
	classifier *alerting.Classifier
	writer     *reports.Writer
	archiver   *reports.Archiver
	calendar   *types.EventCalendar

	// Optional collaborators; nil disables the concern.
	history   database.HistoryRepository
	collector *metrics.Collector
	hub       *websocket.Hub

	mu      sync.Mutex
	running bool
	latest  *Result
}

// Options carries the optional collaborators.
type Options struct {
	History    database.HistoryRepository
	Collector  *metrics.Collector
	Hub        *websocket.Hub
	Suppressor alerting.Suppressor
}

// New builds the pipeline from configuration. The event calendar is
// loaded here, once, and shared read-only by correlation and
// prediction.
func New(cfg *config.Config, log *logger.BatchLogger, opts Options) (*Pipeline, error) {
	calendar, err := rootcause.LoadCalendar(cfg.RootCause.CalendarPath)
	if err != nil {
		return nil, fmt.Errorf("load event calendar: %w", err)
	}
	log.WithFields(logrus.Fields{
		"version": calendar.Version,
		"events":  len(calendar.Events),
	}).Info("External event calendar loaded")

	return &Pipeline{
		cfg:        cfg,
		logger:     log,
		loader:     ingest.NewLoader(cfg.Data, log.Logger),
		detectors:  detector.All(cfg.Detectors),
		analyzer:   portfolio.NewAnalyzer(cfg.Portfolio, log.Logger),
		correlator: rootcause.NewCorrelator(cfg.RootCause, calendar, log.Logger),
		predictor:  predict.NewEngine(cfg.Predict, log.Logger),
		classifier: alerting.NewClassifier(cfg.Alerts, opts.Suppressor, log.Logger),
		writer:     reports.NewWriter(cfg.Reports, log.Logger),
		archiver:   reports.NewArchiver(cfg.Reports, log.Logger),
		calendar:   calendar,
		history:    opts.History,
		collector:  opts.Collector,
		hub:        opts.Hub,
	}, nil
}

// Latest returns the most recent run's result, or nil before the first
// run completes.
func (p *Pipeline) Latest() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Running reports whether a run is in flight.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Run executes one full detection pass. It fails only when zero
// properties could be loaded; individual property failures are
// recorded in the summary and the batch continues.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, errors.ErrRunInProgress
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	runID := uuid.NewString()
	started := time.Now()
	runLog := p.logger.WithField("run_id", runID)
	runLog.Info("Pipeline run started")

	// Phase 1: load and validate property documents.
	properties, failures, err := p.loader.LoadAll(ctx)
	if err != nil {
		runLog.WithError(err).Error("Pipeline run failed: no property data")
		p.broadcast(websocket.RunFailed(runID, err))
		return nil, err
	}
	p.broadcast(websocket.RunStarted(runID, len(properties)))

	// Phase 2: per-property detection, fanned out over the worker
	// pool. Results keep property order so identical input yields an
	// identical anomaly list.
	perProperty, detectFailures := p.detectAll(ctx, runID, properties)
	failures = append(failures, detectFailures...)

	var anomalies []types.Anomaly
	for _, found := range perProperty {
		anomalies = append(anomalies, found...)
	}

	// Phase 3: the portfolio barrier. Every property's findings are in.
	analysis := p.analyzer.Analyze(anomalies, len(properties))

	// Phase 4: root-cause correlation over the aggregated set.
	anomalies = p.correlator.Correlate(anomalies, rootcause.PatternDates(analysis))

	// Phase 5: forward-looking predictions.
	predictions := p.predictor.Generate(properties, analysis, p.calendar)

	// Phase 6: classification, persistence, reports, telemetry.
	feed := p.classifier.BuildFeed(ctx, anomalies)
	summary := p.buildSummary(runID, started, properties, failures, anomalies, analysis, predictions, feed)

	result := &Result{
		Summary:     summary,
		Anomalies:   anomalies,
		Analysis:    analysis,
		Predictions: predictions,
		Feed:        feed,
		Detectors:   p.buildDetectorReports(anomalies, len(properties)),
	}
	p.persist(ctx, result)
	p.writeReports(result)

	if p.collector != nil {
		p.collector.RecordRun(summary, anomalies, analysis)
	}
	p.broadcast(websocket.RunCompleted(runID, summary.Status,
		summary.TotalAnomalies, summary.PatternCount, summary.PredictionCount, summary.HealthScore))

	p.mu.Lock()
	p.latest = result
	p.mu.Unlock()

	runLog.WithFields(logrus.Fields{
		"status":      summary.Status,
		"properties":  summary.PropertiesTotal,
		"anomalies":   summary.TotalAnomalies,
		"patterns":    summary.PatternCount,
		"predictions": summary.PredictionCount,
		"duration":    time.Since(started).Round(time.Millisecond),
	}).Info("Pipeline run finished")
	return result, nil
}

// detectAll runs every detector over every property using a bounded
// worker pool. A panic or error inside one property is contained at
// the property boundary: it is logged, recorded as a failure, and
// contributes zero anomalies.
func (p *Pipeline) detectAll(ctx context.Context, runID string, properties []types.PropertyData) ([][]types.Anomaly, []types.PropertyFailure) {
	workers := p.cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([][]types.Anomaly, len(properties))
	failureCh := make(chan types.PropertyFailure, len(properties))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				property := &properties[idx]
				found, err := p.detectOne(property)
				if err != nil {
					failureCh <- types.PropertyFailure{
						PropertyID: property.Metadata.PropertyID,
						Error:      err.Error(),
					}
				} else {
					results[idx] = found
				}
				p.broadcast(websocket.PropertyAnalyzed(runID, property.Metadata.PropertyID, len(found), err))
			}
		}()
	}

dispatch:
	for idx := range properties {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(failureCh)

	var failures []types.PropertyFailure
	for failure := range failureCh {
		failures = append(failures, failure)
	}
	return results, failures
}

// detectOne applies every detector to one property, converting panics
// into per-property errors.
func (p *Pipeline) detectOne(property *types.PropertyData) (found []types.Anomaly, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			found = nil
			err = fmt.Errorf("detection panic: %v", r)
		}
		p.logger.LogProperty(property.Metadata.PropertyID, len(found), time.Since(start), err, logrus.Fields{
			"property_id": property.Metadata.PropertyID,
		})
	}()

	for _, d := range p.detectors {
		found = append(found, d.Detect(property)...)
	}
	return found, nil
}

func (p *Pipeline) buildSummary(runID string, started time.Time, properties []types.PropertyData,
	failures []types.PropertyFailure, anomalies []types.Anomaly, analysis *types.PortfolioAnalysis,
	predictions []types.Prediction, feed *types.AlertFeed) *types.RunSummary {

	finished := time.Now()
	summary := &types.RunSummary{
		RunID:               runID,
		StartedAt:           started,
		FinishedAt:          finished,
		DurationSeconds:     finished.Sub(started).Seconds(),
		PropertiesTotal:     len(properties) + len(failures),
		PropertiesSucceeded: len(properties),
		PropertiesFailed:    len(failures),
		FailedProperties:    failures,
		TotalAnomalies:      len(anomalies),
		AnomaliesByDetector: make(map[types.DetectorType]int),
		AnomaliesByPriority: make(map[string]int),
		PatternCount:        len(analysis.AllPatterns()),
		PredictionCount:     len(predictions),
		HealthScore:         analysis.HealthScore,
		Status:              types.RunStatusCompleted,
	}

	for i := range anomalies {
		summary.AnomaliesByDetector[anomalies[i].DetectorType]++
		summary.AnomaliesByPriority[anomalies[i].Priority.String()]++
		if rc := anomalies[i].RootCause; rc != nil &&
			(rc.PrimaryConfidence == types.ConfidenceHigh || rc.PrimaryConfidence == types.ConfidenceVeryHigh) {
			summary.RootCausesIdentified++
		}
	}
	summary.AlertsGenerated = types.AlertCounts{
		Total:    feed.TotalAlerts,
		Critical: feed.CriticalCount,
		Warning:  feed.WarningCount,
		Normal:   feed.NormalCount,
	}
	if len(failures) > 0 {
		summary.Status = types.RunStatusPartial
	}
	return summary
}

func (p *Pipeline) buildDetectorReports(anomalies []types.Anomaly, propertiesAnalyzed int) []*types.DetectorReport {
	infos := make([]reports.DetectorInfo, 0, len(p.detectors))
	for _, d := range p.detectors {
		infos = append(infos, reports.DetectorInfo{
			Type:         d.Type(),
			PriorityBand: priorityBand(d.Type()),
			Dimensions:   d.Dimensions(),
		})
	}
	return reports.BuildDetectorReports(anomalies, propertiesAnalyzed, infos)
}

// priorityBand labels each detector report with the priority range its
// findings occupy.
func priorityBand(t types.DetectorType) string {
	switch t {
	case types.DetectorDisaster:
		return "P0"
	case types.DetectorSpam:
		return "P1"
	case types.DetectorRecord:
		return "P1/P3"
	case types.DetectorTrend:
		return "P2/P3"
	case types.DetectorSegment:
		return "P1/P2"
	default:
		return "P1-P3"
	}
}

// persist records the run in the history store. Storage failures are
// logged and non-fatal: the reports and the in-memory result still
// stand.
func (p *Pipeline) persist(ctx context.Context, result *Result) {
	if p.history == nil {
		return
	}
	err := p.history.SaveRun(ctx, result.Summary, result.Anomalies, result.Analysis, result.Predictions)
	if err != nil {
		p.logger.WithError(err).WithField("run_id", result.Summary.RunID).
			Error("Failed to persist run history")
	}
}

func (p *Pipeline) writeReports(result *Result) {
	date := types.FormatDate(result.Summary.FinishedAt)
	p.writer.WriteAll(&reports.RunReports{
		Detectors: result.Detectors,
		Portfolio: result.Analysis,
		Predictions: &types.PredictionReport{
			GeneratedAt: result.Summary.FinishedAt,
			HorizonDays: p.cfg.Predict.HorizonDays,
			Total:       len(result.Predictions),
			Predictions: result.Predictions,
		},
		Feed:    result.Feed,
		Summary: result.Summary,
	}, date)

	if _, err := p.archiver.Archive(); err != nil {
		p.logger.WithError(err).Warn("Report archival sweep failed")
	}
}

func (p *Pipeline) broadcast(message websocket.Message) {
	if p.hub != nil {
		p.hub.Broadcast(message)
	}
}
