// Package metrics exports Prometheus instrumentation for pipeline runs
// and the ops API, plus the gopsutil-backed system snapshot served by
// the health endpoint.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Collector holds the Prometheus series for the detection pipeline and
// the HTTP surface in front of it.
type Collector struct {
	prefix string

	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	propertiesRun  *prometheus.GaugeVec
	anomaliesTotal *prometheus.CounterVec
	patternsActive *prometheus.GaugeVec
	predictions    prometheus.Gauge
	portfolioScore prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	websocketClients    prometheus.Gauge
}

// NewCollector registers the Scout metric series under the configured
// prefix.
func NewCollector(prefix string) *Collector {
	if prefix == "" {
		prefix = "scout"
	}

	return &Collector{
		prefix: prefix,
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_runs_total",
				Help: "Pipeline runs by final status",
			},
			[]string{"status"},
		),
		runDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_run_duration_seconds",
				Help:    "End-to-end pipeline run duration",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		propertiesRun: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_run_properties",
				Help: "Properties in the most recent run by outcome",
			},
			[]string{"outcome"},
		),
		anomaliesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_anomalies_total",
				Help: "Anomalies detected by detector and priority",
			},
			[]string{"detector", "priority"},
		),
		patternsActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_portfolio_patterns",
				Help: "Portfolio patterns found in the most recent run",
			},
			[]string{"type"},
		),
		predictions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_predictions",
				Help: "Predictions generated by the most recent run",
			},
		),
		portfolioScore: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_portfolio_health_score",
				Help: "Portfolio health score from the most recent run (0-100)",
			},
		),
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Ops API requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Ops API request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		websocketClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_websocket_clients",
				Help: "Connected run-event stream clients",
			},
		),
	}
}

// RecordRun publishes one finished run's accounting.
func (c *Collector) RecordRun(summary *types.RunSummary, anomalies []types.Anomaly, analysis *types.PortfolioAnalysis) {
	c.runsTotal.WithLabelValues(summary.Status).Inc()
	c.runDuration.Observe(summary.DurationSeconds)
	c.propertiesRun.WithLabelValues("succeeded").Set(float64(summary.PropertiesSucceeded))
	c.propertiesRun.WithLabelValues("failed").Set(float64(summary.PropertiesFailed))

	for _, anomaly := range anomalies {
		c.anomaliesTotal.WithLabelValues(string(anomaly.DetectorType), anomaly.Priority.String()).Inc()
	}

	if analysis != nil {
		c.patternsActive.WithLabelValues(string(types.PatternSimultaneous)).Set(float64(len(analysis.Simultaneous)))
		c.patternsActive.WithLabelValues(string(types.PatternCascading)).Set(float64(len(analysis.Cascading)))
		c.patternsActive.WithLabelValues(string(types.PatternMetricCorrelation)).Set(float64(len(analysis.MetricCorrelations)))
		c.portfolioScore.Set(analysis.HealthScore)
	}
	c.predictions.Set(float64(summary.PredictionCount))
}

// RecordHTTPRequest publishes one ops API request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// WebSocketConnected tracks a new run-event stream client.
func (c *Collector) WebSocketConnected() { c.websocketClients.Inc() }

// WebSocketDisconnected tracks a departed run-event stream client.
func (c *Collector) WebSocketDisconnected() { c.websocketClients.Dec() }
