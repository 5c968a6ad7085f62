// Package portfolio aggregates one run's anomalies across every
// property to find patterns no single-property detector can see:
// simultaneous hits, cascades spreading day by day, and metric pairs
// that fail together.
package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// Analyzer is the cross-property pattern engine. It runs after the
// per-property barrier: every detector's findings must be in before
// aggregation starts.
type Analyzer struct {
	cfg    config.PortfolioConfig
	logger *logrus.Logger
}

// NewAnalyzer creates the portfolio pattern analyzer.
func NewAnalyzer(cfg config.PortfolioConfig, logger *logrus.Logger) *Analyzer {
	return &Analyzer{cfg: cfg, logger: logger}
}

// Analyze derives the run's patterns and health score from the union
// of all properties' anomalies. totalProperties counts every property
// analyzed, including those with zero findings; ratios are meaningless
// against only the noisy ones.
func (a *Analyzer) Analyze(anomalies []types.Anomaly, totalProperties int) *types.PortfolioAnalysis {
	analysis := &types.PortfolioAnalysis{
		GeneratedAt:     time.Now(),
		TotalProperties: totalProperties,
		TotalAnomalies:  len(anomalies),
	}
	if totalProperties == 0 {
		analysis.HealthScore = 100
		return analysis
	}

	analysis.Simultaneous = a.simultaneousPatterns(anomalies, totalProperties)
	analysis.Cascading = a.cascadingPatterns(anomalies, totalProperties)
	analysis.MetricCorrelations = a.metricCorrelations(anomalies)
	analysis.HealthScore = a.healthScore(anomalies, totalProperties, len(analysis.Simultaneous))

	a.logger.WithFields(logrus.Fields{
		"properties":   totalProperties,
		"anomalies":    len(anomalies),
		"simultaneous": len(analysis.Simultaneous),
		"cascading":    len(analysis.Cascading),
		"correlations": len(analysis.MetricCorrelations),
		"health":       analysis.HealthScore,
	}).Info("Portfolio analysis complete")

	return analysis
}

// simultaneousPatterns groups anomalies by (date, metric) and fires
// when the affected share of the portfolio crosses the pattern
// threshold.
func (a *Analyzer) simultaneousPatterns(anomalies []types.Anomaly, total int) []types.Pattern {
	type groupKey struct {
		date   string
		metric types.Metric
	}
	groups := make(map[groupKey]map[string]bool)
	order := make([]groupKey, 0)
	for _, anomaly := range anomalies {
		key := groupKey{date: anomaly.Date, metric: anomaly.Metric}
		if groups[key] == nil {
			groups[key] = make(map[string]bool)
			order = append(order, key)
		}
		groups[key][anomaly.PropertyID] = true
	}

	var patterns []types.Pattern
	for _, key := range order {
		affected := groups[key]
		ratio := float64(len(affected)) / float64(total)
		if ratio < a.cfg.PatternThreshold {
			continue
		}
		patterns = append(patterns, types.Pattern{
			Type:            types.PatternSimultaneous,
			Date:            key.date,
			Metric:          key.metric,
			AffectedClients: sortedKeys(affected),
			AffectedRatio:   round3(ratio),
			Confidence:      round3(math.Min(ratio*1.5, 1.0)),
			ConfidenceLabel: confidenceForRatio(ratio),
			LikelyCause:     inferCause(ratio),
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].AffectedRatio > patterns[j].AffectedRatio
	})
	return patterns
}

// cascadingPatterns slides a window of up to CascadeWindowDays along
// each metric's anomaly timeline looking for spread across at least
// CascadeMinDays distinct dates that ends up touching a threshold
// share of the portfolio.
func (a *Analyzer) cascadingPatterns(anomalies []types.Anomaly, total int) []types.Pattern {
	timelines := make(map[types.Metric]map[string]map[string]bool)
	for _, anomaly := range anomalies {
		if timelines[anomaly.Metric] == nil {
			timelines[anomaly.Metric] = make(map[string]map[string]bool)
		}
		if timelines[anomaly.Metric][anomaly.Date] == nil {
			timelines[anomaly.Metric][anomaly.Date] = make(map[string]bool)
		}
		timelines[anomaly.Metric][anomaly.Date][anomaly.PropertyID] = true
	}

	metrics := make([]types.Metric, 0, len(timelines))
	for metric := range timelines {
		metrics = append(metrics, metric)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	var patterns []types.Pattern
	for _, metric := range metrics {
		timeline := timelines[metric]
		dates := make([]string, 0, len(timeline))
		for date := range timeline {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		// Windows anchored later inside an already-reported cascade
		// would re-report its tail; skip past each hit.
		for i := 0; i < len(dates)-a.cfg.CascadeMinDays+1; {
			window, endIdx := a.spreadWindow(dates, i)
			if len(window) < a.cfg.CascadeMinDays {
				i++
				continue
			}

			affected := make(map[string]bool)
			for _, date := range window {
				for client := range timeline[date] {
					affected[client] = true
				}
			}
			if float64(len(affected)) < float64(total)*a.cfg.PatternThreshold {
				i++
				continue
			}

			confidence := types.ConfidenceMedium
			if float64(len(affected)) > float64(total)*0.5 {
				confidence = types.ConfidenceHigh
			}
			patterns = append(patterns, types.Pattern{
				Type:            types.PatternCascading,
				Metric:          metric,
				StartDate:       window[0],
				EndDate:         window[len(window)-1],
				DurationDays:    spanDays(window[0], window[len(window)-1]) + 1,
				AffectedClients: sortedKeys(affected),
				AffectedRatio:   round3(float64(len(affected)) / float64(total)),
				ConfidenceLabel: confidence,
				LikelyCause:     "Gradual rollout or propagating issue",
			})
			i = endIdx + 1
		}
	}
	return patterns
}

// spreadWindow collects the anomaly dates within CascadeWindowDays of
// dates[start], returning them and the index of the last one taken.
func (a *Analyzer) spreadWindow(dates []string, start int) ([]string, int) {
	base, err := types.ParseDate(dates[start])
	if err != nil {
		return nil, start
	}
	window := []string{dates[start]}
	end := start
	for j := start + 1; j < len(dates); j++ {
		d, err := types.ParseDate(dates[j])
		if err != nil {
			continue
		}
		if int(d.Sub(base).Hours()/24) >= a.cfg.CascadeWindowDays {
			break
		}
		window = append(window, dates[j])
		end = j
	}
	return window, end
}

// metricCorrelations counts, per property and date, which metric pairs
// go anomalous together, then aggregates the counts across the
// portfolio.
func (a *Analyzer) metricCorrelations(anomalies []types.Anomaly) []types.Pattern {
	type pair struct {
		first, second types.Metric
	}
	type dayKey struct {
		property string
		date     string
	}

	days := make(map[dayKey]map[types.Metric]bool)
	for _, anomaly := range anomalies {
		key := dayKey{property: anomaly.PropertyID, date: anomaly.Date}
		if days[key] == nil {
			days[key] = make(map[types.Metric]bool)
		}
		days[key][anomaly.Metric] = true
	}

	counts := make(map[pair]int)
	clients := make(map[pair]map[string]bool)
	for key, metrics := range days {
		list := make([]types.Metric, 0, len(metrics))
		for m := range metrics {
			list = append(list, m)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				p := pair{first: list[i], second: list[j]}
				counts[p]++
				if clients[p] == nil {
					clients[p] = make(map[string]bool)
				}
				clients[p][key.property] = true
			}
		}
	}

	pairs := make([]pair, 0, len(counts))
	for p := range counts {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].first != pairs[j].first {
			return pairs[i].first < pairs[j].first
		}
		return pairs[i].second < pairs[j].second
	})

	var patterns []types.Pattern
	for _, p := range pairs {
		count := counts[p]
		if count < a.cfg.CorrelationMinCount {
			continue
		}
		patterns = append(patterns, types.Pattern{
			Type:             types.PatternMetricCorrelation,
			Metric:           p.first,
			CorrelatedMetric: p.second,
			Occurrences:      count,
			AffectedClients:  sortedKeys(clients[p]),
			Strength:         strengthForCount(count),
			LikelyCause: fmt.Sprintf("%s and %s anomalies co-occur across the portfolio",
				p.first, p.second),
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Occurrences > patterns[j].Occurrences
	})
	return patterns
}

// healthScore starts at 100 and loses up to 50 points for anomaly
// volume plus 5 per simultaneous pattern.
func (a *Analyzer) healthScore(anomalies []types.Anomaly, total, simultaneous int) float64 {
	avgPerProperty := float64(len(anomalies)) / float64(total)
	score := 100 - math.Min(avgPerProperty*10, 50) - 5*float64(simultaneous)
	return math.Max(0, math.Min(100, score))
}

func confidenceForRatio(ratio float64) types.Confidence {
	switch {
	case ratio > 0.7:
		return types.ConfidenceVeryHigh
	case ratio > 0.5:
		return types.ConfidenceHigh
	case ratio > 0.3:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

func inferCause(ratio float64) string {
	switch {
	case ratio > 0.7:
		return "External platform or algorithm event"
	case ratio > 0.5:
		return "Industry-wide or seasonal pattern"
	default:
		return "Common technical issue"
	}
}

func strengthForCount(count int) types.CorrelationStrength {
	switch {
	case count > 10:
		return types.StrengthStrong
	case count > 5:
		return types.StrengthModerate
	default:
		return types.StrengthWeak
	}
}

func spanDays(start, end string) int {
	s, err1 := types.ParseDate(start)
	e, err2 := types.ParseDate(end)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(e.Sub(s).Hours() / 24)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
