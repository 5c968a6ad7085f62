// Package alerting turns the run's enriched anomalies into the
// combined, ranked alert feed the prioritizer consumes. It classifies,
// scores, and orders; it never delivers anything.
package alerting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// metricWeights scale impact by revenue relevance when ranking the
// combined feed.
var metricWeights = map[types.Metric]float64{
	types.MetricConversions: 2.0,
	types.MetricUsers:       1.2,
	types.MetricSessions:    1.0,
	types.MetricPageViews:   0.8,
}

// Suppressor remembers recently raised alert fingerprints so unchanged
// repeats can be marked instead of re-raised at full priority.
type Suppressor interface {
	// Seen reports whether the fingerprint was raised within the TTL
	// and records it either way.
	Seen(ctx context.Context, fingerprint string) (bool, error)
}

// Classifier builds the ranked feed.
type Classifier struct {
	cfg        config.AlertsConfig
	suppressor Suppressor
	logger     *logrus.Logger
}

// NewClassifier creates the alert classifier. A nil suppressor
// disables suppression; the feed is otherwise identical.
func NewClassifier(cfg config.AlertsConfig, suppressor Suppressor, logger *logrus.Logger) *Classifier {
	return &Classifier{cfg: cfg, suppressor: suppressor, logger: logger}
}

// BuildFeed classifies every anomaly and returns the feed sorted by
// impact score descending. Suppression failures degrade to an
// unsuppressed feed, never to a failed run.
func (c *Classifier) BuildFeed(ctx context.Context, anomalies []types.Anomaly) *types.AlertFeed {
	feed := &types.AlertFeed{
		GeneratedAt: time.Now(),
		Alerts:      make([]types.RankedAlert, 0, len(anomalies)),
	}

	for i := range anomalies {
		alert := c.classify(&anomalies[i])

		if c.suppressor != nil && c.cfg.Suppression.Enabled {
			seen, err := c.suppressor.Seen(ctx, anomalies[i].Key())
			if err != nil {
				c.logger.WithError(err).Warn("Alert suppression unavailable, raising at full priority")
			} else if seen {
				alert.Suppressed = true
			}
		}

		feed.Alerts = append(feed.Alerts, alert)
		switch alert.Severity {
		case types.SeverityCritical:
			feed.CriticalCount++
		case types.SeverityWarning:
			feed.WarningCount++
		default:
			feed.NormalCount++
		}
	}

	sort.SliceStable(feed.Alerts, func(i, j int) bool {
		return feed.Alerts[i].ImpactScore > feed.Alerts[j].ImpactScore
	})
	feed.TotalAlerts = len(feed.Alerts)

	c.logger.WithFields(logrus.Fields{
		"total":    feed.TotalAlerts,
		"critical": feed.CriticalCount,
		"warning":  feed.WarningCount,
		"normal":   feed.NormalCount,
	}).Info("Alert feed built")
	return feed
}

func (c *Classifier) classify(anomaly *types.Anomaly) types.RankedAlert {
	deviation := deviationPct(anomaly)
	impact := c.impactScore(anomaly, deviation)

	alert := types.RankedAlert{
		Anomaly:      *anomaly,
		Severity:     c.severityFor(impact),
		DeviationPct: round1(deviation),
		ImpactScore:  round1(impact),
		Method:       methodLabel(anomaly),
		Summary:      summarize(anomaly, deviation),
	}
	return alert
}

// deviationPct measures how far the observed value sits from its
// baseline. A value appearing where the baseline was zero is a full
// deviation; nothing against nothing is none.
func deviationPct(anomaly *types.Anomaly) float64 {
	baseline := anomaly.Baseline
	if baseline == 0 {
		baseline = anomaly.PreviousRecord
	}
	if baseline == 0 {
		if anomaly.Value > 0 {
			return 100
		}
		return 0
	}
	return math.Abs(anomaly.Value-baseline) / baseline * 100
}

// impactScore converts deviation into a 0-100 ranking score: half the
// deviation capped at 50, scaled by the metric weight, with drops
// penalized half again.
func (c *Classifier) impactScore(anomaly *types.Anomaly, deviation float64) float64 {
	impact := math.Min(deviation/2, 50)
	if w, ok := metricWeights[anomaly.Metric]; ok {
		impact *= w
	}
	if anomaly.IsDrop() {
		impact *= 1.5
	}
	return math.Min(impact, 100)
}

func (c *Classifier) severityFor(impact float64) types.Severity {
	switch {
	case impact >= c.cfg.CriticalThreshold:
		return types.SeverityCritical
	case impact >= c.cfg.WarningThreshold:
		return types.SeverityWarning
	default:
		return types.SeverityNormal
	}
}

// methodLabel names the statistical method that caught the anomaly,
// for the analyst reading the feed.
func methodLabel(anomaly *types.Anomaly) string {
	if m := anomaly.Methods; m != nil {
		switch {
		case m.ZAnomaly && m.IQRAnomaly:
			return "Statistical consensus (Z-score + IQR)"
		case m.ZAnomaly:
			return fmt.Sprintf("Z-score anomaly (%.2f std dev)", m.ZScore)
		case m.IQRAnomaly:
			return "IQR outlier detection"
		}
	}
	if anomaly.ZScore != 0 {
		return fmt.Sprintf("Z-score anomaly (%.2f std dev)", anomaly.ZScore)
	}
	return "Pattern recognition"
}

// summarize writes the one-line business reading of the anomaly,
// appending the root cause when correlation found one.
func summarize(anomaly *types.Anomaly, deviation float64) string {
	scale := "notable"
	if deviation > 50 {
		scale = "significant"
	}

	direction := "increase"
	if anomaly.IsDrop() {
		direction = "drop"
	}

	var text string
	switch anomaly.Metric {
	case types.MetricConversions:
		text = fmt.Sprintf("A %s conversion %s directly affects revenue", scale, direction)
	case types.MetricUsers:
		text = fmt.Sprintf("A %s %s in unique users changes audience reach", scale, direction)
	case types.MetricPageViews:
		text = fmt.Sprintf("A %s %s in page views signals an engagement shift", scale, direction)
	default:
		text = fmt.Sprintf("A %s session %s changes site traffic levels", scale, direction)
	}

	if rc := anomaly.RootCause; rc != nil && rc.PrimaryCause != "Unknown" {
		text = fmt.Sprintf("%s. Likely cause: %s", text, rc.PrimaryCause)
	}
	return text
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
