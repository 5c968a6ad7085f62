// Package predict projects likely future anomalies over a short
// horizon from four independent methods: trend continuation, weekly
// seasonality, known upcoming events, and spreading portfolio
// patterns. Overlapping projections for the same (entity, metric,
// date) are merged.
package predict

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/stats"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// trendMinDays is the shortest history the trend method accepts: one
// week to project from and one week behind it to compare against.
const trendMinDays = 14

// Engine generates the run's forward-looking predictions. Forecast
// dates are anchored to the newest observation in the data rather than
// the wall clock, so identical input yields identical predictions.
type Engine struct {
	cfg    config.PredictConfig
	logger *logrus.Logger
}

// NewEngine creates the predictive engine.
func NewEngine(cfg config.PredictConfig, logger *logrus.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Generate runs all four methods, consolidates duplicates, and returns
// predictions sorted by descending probability.
func (e *Engine) Generate(properties []types.PropertyData, analysis *types.PortfolioAnalysis, calendar *types.EventCalendar) []types.Prediction {
	anchor, ok := latestDate(properties)
	if !ok {
		return nil
	}

	var predictions []types.Prediction
	predictions = append(predictions, e.fromTrends(properties, anchor)...)
	predictions = append(predictions, e.fromSeasonality(properties, anchor)...)
	predictions = append(predictions, e.fromEvents(properties, calendar, anchor)...)
	predictions = append(predictions, e.fromPatterns(properties, analysis, anchor)...)

	consolidated := consolidate(predictions)
	for i := range consolidated {
		consolidated[i].Confidence = types.ConfidenceForProbability(consolidated[i].AnomalyProbability)
	}
	types.SortPredictions(consolidated)

	e.logger.WithFields(logrus.Fields{
		"horizon_days": e.cfg.HorizonDays,
		"raw":          len(predictions),
		"predictions":  len(consolidated),
	}).Info("Prediction generation complete")
	return consolidated
}

// fromTrends projects the week-over-week change rate forward with
// exponential decay and flags days expected to land outside the
// recent-average band.
func (e *Engine) fromTrends(properties []types.PropertyData, anchor time.Time) []types.Prediction {
	var predictions []types.Prediction
	for pi := range properties {
		property := &properties[pi]
		for _, metric := range types.AllMetrics {
			values := overallValues(property, metric)
			if len(values) < trendMinDays {
				continue
			}

			recent := values[len(values)-7:]
			older := values[len(values)-14 : len(values)-7]
			recentAvg := stats.Mean(recent)
			olderAvg := stats.Mean(older)
			if olderAvg <= 0 {
				continue
			}
			trendChange := (recentAvg - olderAvg) / olderAvg

			stdev := stats.StdDev(recent)
			if stdev == 0 {
				stdev = recentAvg * 0.1
			}
			lo := recentAvg - 2*stdev
			hi := recentAvg + 2*stdev

			for daysAhead := 1; daysAhead <= e.cfg.HorizonDays; daysAhead++ {
				decay := math.Pow(e.cfg.TrendDecay, float64(daysAhead))
				predictedChange := trendChange * decay
				predicted := recentAvg * (1 + predictedChange)
				if predicted >= lo && predicted <= hi {
					continue
				}

				predictions = append(predictions, types.Prediction{
					Entity:             property.Metadata.PropertyID,
					Metric:             metric,
					PredictionDate:     types.FormatDate(anchor.AddDate(0, 0, daysAhead)),
					PredictedValue:     round1(predicted),
					ExpectedLow:        round1(lo),
					ExpectedHigh:       round1(hi),
					AnomalyProbability: math.Min(math.Abs(predictedChange)*2, 0.9),
					Basis:              fmt.Sprintf("Trend projection (%+.1f%% change/week)", trendChange*100),
					RecommendedAction:  trendAction(metric, trendChange),
					PotentialImpact:    impactLabel(math.Min(math.Abs(trendChange)*50, 100)),
				})
			}
		}
	}
	return predictions
}

// fromSeasonality buckets history by day of week and flags future days
// whose weekday historically sits far from the current level.
func (e *Engine) fromSeasonality(properties []types.PropertyData, anchor time.Time) []types.Prediction {
	var predictions []types.Prediction
	for pi := range properties {
		property := &properties[pi]
		for _, metric := range types.AllMetrics {
			days := property.CleanDataset
			if len(days) < e.cfg.SeasonalMinDays {
				continue
			}

			buckets := make(map[time.Weekday][]float64)
			for _, day := range days {
				date, err := types.ParseDate(day.Date)
				if err != nil {
					continue
				}
				buckets[date.Weekday()] = append(buckets[date.Weekday()], day.MetricValue(metric))
			}

			values := overallValues(property, metric)
			recentAvg := stats.Mean(values[maxInt(0, len(values)-7):])

			for daysAhead := 1; daysAhead <= e.cfg.HorizonDays; daysAhead++ {
				future := anchor.AddDate(0, 0, daysAhead)
				bucket := buckets[future.Weekday()]
				if len(bucket) < 3 {
					continue
				}
				dowAvg := stats.Mean(bucket)
				dowStdev := stats.StdDev(bucket)
				if dowStdev == 0 {
					dowStdev = dowAvg * 0.1
				}
				if math.Abs(dowAvg-recentAvg) <= 2*dowStdev {
					continue
				}

				deltaPct := 0.0
				if recentAvg > 0 {
					deltaPct = (dowAvg/recentAvg - 1) * 100
				}
				predictions = append(predictions, types.Prediction{
					Entity:             property.Metadata.PropertyID,
					Metric:             metric,
					PredictionDate:     types.FormatDate(future),
					PredictedValue:     round1(dowAvg),
					ExpectedLow:        round1(dowAvg - dowStdev),
					ExpectedHigh:       round1(dowAvg + dowStdev),
					AnomalyProbability: 0.6,
					Basis: fmt.Sprintf("Weekly pattern (%s typically %+.1f%% different)",
						future.Weekday(), deltaPct),
					RecommendedAction: fmt.Sprintf("Expected %s variation - monitor for unusual deviation", future.Weekday()),
					PotentialImpact:   impactLabel(30),
				})
			}
		}
	}
	return predictions
}

// fromEvents projects the impact of calendar events falling inside the
// horizon onto every property's affected metrics.
func (e *Engine) fromEvents(properties []types.PropertyData, calendar *types.EventCalendar, anchor time.Time) []types.Prediction {
	if calendar == nil {
		return nil
	}

	horizon := make(map[string]bool, e.cfg.HorizonDays)
	for daysAhead := 1; daysAhead <= e.cfg.HorizonDays; daysAhead++ {
		horizon[types.FormatDate(anchor.AddDate(0, 0, daysAhead))] = true
	}

	var predictions []types.Prediction
	for _, event := range calendar.Events {
		if !horizon[event.Date] {
			continue
		}
		for pi := range properties {
			property := &properties[pi]
			for _, metric := range event.AffectedMetrics {
				values := overallValues(property, metric)
				if len(values) == 0 {
					continue
				}
				baseline := stats.Mean(values[maxInt(0, len(values)-7):])

				probability := 0.5
				impact := 40.0
				if event.ImpactLevel == types.ImpactHigh || event.ImpactLevel == types.ImpactCritical {
					probability = 0.75
					impact = 70
				}

				predictions = append(predictions, types.Prediction{
					Entity:             property.Metadata.PropertyID,
					Metric:             metric,
					PredictionDate:     event.Date,
					PredictedValue:     round1(baseline * eventImpactMultiplier(&event, metric)),
					ExpectedLow:        round1(baseline * 0.8),
					ExpectedHigh:       round1(baseline * 1.2),
					AnomalyProbability: probability,
					Basis:              fmt.Sprintf("Upcoming event: %s", event.Name),
					RecommendedAction:  fmt.Sprintf("Prepare for %s impact - %s", event.Name, event.Description),
					PotentialImpact:    impactLabel(impact),
				})
			}
		}
	}
	return predictions
}

// fromPatterns estimates which untouched properties an active cascade
// will reach next.
func (e *Engine) fromPatterns(properties []types.PropertyData, analysis *types.PortfolioAnalysis, anchor time.Time) []types.Prediction {
	if analysis == nil {
		return nil
	}

	var predictions []types.Prediction
	for _, pattern := range analysis.Cascading {
		if pattern.DurationDays <= 0 {
			continue
		}
		spreadRate := float64(len(pattern.AffectedClients)) / float64(pattern.DurationDays)

		daysSince := 1
		if end, err := types.ParseDate(pattern.EndDate); err == nil {
			if d := int(anchor.Sub(end).Hours() / 24); d > daysSince {
				daysSince = d
			}
		}

		probability := math.Min(spreadRate*float64(daysSince)*0.2, 0.7)
		if probability <= 0.3 {
			continue
		}

		affected := make(map[string]bool, len(pattern.AffectedClients))
		for _, client := range pattern.AffectedClients {
			affected[client] = true
		}

		nextDate := types.FormatDate(anchor.AddDate(0, 0, 1))
		for pi := range properties {
			property := &properties[pi]
			if affected[property.Metadata.PropertyID] {
				continue
			}
			predictions = append(predictions, types.Prediction{
				Entity:             property.Metadata.PropertyID,
				Metric:             pattern.Metric,
				PredictionDate:     nextDate,
				AnomalyProbability: round2(probability),
				Basis:              fmt.Sprintf("Cascading pattern spreading (%s)", pattern.Metric),
				RecommendedAction:  "Monitor for pattern propagation from other clients",
				PotentialImpact:    impactLabel(50),
			})
		}
	}
	return predictions
}

// consolidate merges predictions sharing (entity, metric, date) by
// averaging probabilities and keeping the more detailed basis.
func consolidate(predictions []types.Prediction) []types.Prediction {
	merged := make(map[string]*types.Prediction)
	order := make([]string, 0, len(predictions))
	for i := range predictions {
		pred := predictions[i]
		key := pred.Entity + "|" + string(pred.Metric) + "|" + pred.PredictionDate
		existing, ok := merged[key]
		if !ok {
			merged[key] = &pred
			order = append(order, key)
			continue
		}
		existing.AnomalyProbability = round2((existing.AnomalyProbability + pred.AnomalyProbability) / 2)
		if len(pred.Basis) > len(existing.Basis) {
			existing.Basis = pred.Basis
			existing.RecommendedAction = pred.RecommendedAction
		}
		if existing.PredictedValue == 0 && pred.PredictedValue != 0 {
			existing.PredictedValue = pred.PredictedValue
			existing.ExpectedLow = pred.ExpectedLow
			existing.ExpectedHigh = pred.ExpectedHigh
		}
	}

	out := make([]types.Prediction, 0, len(merged))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	return out
}

// eventImpactMultiplier estimates how an event type usually moves a
// metric relative to baseline.
func eventImpactMultiplier(event *types.ExternalEvent, metric types.Metric) float64 {
	switch event.EventType {
	case types.EventHoliday:
		switch metric {
		case types.MetricConversions:
			return 1.5
		case types.MetricSessions, types.MetricUsers:
			return 0.7
		}
	case types.EventGoogleAlgo:
		switch metric {
		case types.MetricSessions, types.MetricPageViews:
			return 0.8
		case types.MetricUsers:
			return 0.85
		}
	case types.EventTechnical:
		return 0.6
	case types.EventSeasonal:
		switch metric {
		case types.MetricConversions:
			return 1.2
		case types.MetricSessions:
			return 1.1
		}
	}
	return 1.0
}

func trendAction(metric types.Metric, trendChange float64) string {
	direction := "growing"
	if trendChange < 0 {
		direction = "declining"
	}
	severity := "steadily"
	if math.Abs(trendChange) > 0.2 {
		severity = "rapidly"
	}

	switch metric {
	case types.MetricConversions:
		return fmt.Sprintf("Conversions %s %s - review funnel and campaigns", severity, direction)
	case types.MetricUsers:
		return fmt.Sprintf("User acquisition %s %s - check traffic sources", severity, direction)
	case types.MetricSessions:
		return fmt.Sprintf("Sessions %s %s - monitor site performance", severity, direction)
	case types.MetricPageViews:
		return fmt.Sprintf("Engagement %s %s - review content strategy", severity, direction)
	default:
		return fmt.Sprintf("%s %s %s - investigate cause", metric, severity, direction)
	}
}

func impactLabel(score float64) string {
	return fmt.Sprintf("%.0f/100", score)
}

func overallValues(property *types.PropertyData, metric types.Metric) []float64 {
	values := make([]float64, len(property.CleanDataset))
	for i := range property.CleanDataset {
		values[i] = property.CleanDataset[i].MetricValue(metric)
	}
	return values
}

func latestDate(properties []types.PropertyData) (time.Time, bool) {
	var latest time.Time
	found := false
	for pi := range properties {
		for _, day := range properties[pi].CleanDataset {
			date, err := types.ParseDate(day.Date)
			if err != nil {
				continue
			}
			if !found || date.After(latest) {
				latest = date
				found = true
			}
		}
	}
	return latest, found
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
