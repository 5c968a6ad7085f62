package rootcause

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

// mondayRecoveryBoost is the baseline score of the synthetic
// weekend-recovery event attached to Monday anomalies.
const mondayRecoveryBoost = 0.40

// maxCandidates bounds how many scored causes each correlation keeps.
const maxCandidates = 3

// Correlator scores calendar events against anomalies. The calendar is
// read-only; Correlate mutates nothing but the anomalies it enriches.
type Correlator struct {
	cfg      config.RootCauseConfig
	calendar *types.EventCalendar
	byDate   map[string][]types.ExternalEvent
	logger   *logrus.Logger
}

// NewCorrelator indexes the calendar by date for window lookups.
func NewCorrelator(cfg config.RootCauseConfig, calendar *types.EventCalendar, logger *logrus.Logger) *Correlator {
	byDate := make(map[string][]types.ExternalEvent)
	for _, event := range calendar.Events {
		byDate[event.Date] = append(byDate[event.Date], event)
	}
	return &Correlator{cfg: cfg, calendar: calendar, byDate: byDate, logger: logger}
}

// Correlate attaches a root-cause correlation to every anomaly.
// Anomalies with no qualifying candidate are still enriched, tagged
// Unknown with low confidence, never dropped. portfolioWide marks
// anomalies whose (date, metric) belongs to a simultaneous pattern;
// platform-scale events score higher against those.
func (c *Correlator) Correlate(anomalies []types.Anomaly, portfolioWide map[string]bool) []types.Anomaly {
	identified := 0
	for i := range anomalies {
		anomaly := &anomalies[i]
		wide := portfolioWide[patternKey(anomaly.Date, anomaly.Metric)]
		correlation := c.correlateOne(anomaly, wide)
		anomaly.RootCause = correlation
		if correlation.PrimaryCause != UnknownCause {
			identified++
		}
	}

	c.logger.WithFields(logrus.Fields{
		"anomalies":  len(anomalies),
		"identified": identified,
	}).Info("Root cause correlation complete")
	return anomalies
}

// UnknownCause is the primary cause recorded when no calendar event
// clears the minimum score.
const UnknownCause = "Unknown"

func (c *Correlator) correlateOne(anomaly *types.Anomaly, portfolioWide bool) *types.RootCauseCorrelation {
	correlation := &types.RootCauseCorrelation{
		AnomalyKey:        anomaly.Key(),
		PrimaryCause:      UnknownCause,
		PrimaryConfidence: types.ConfidenceLow,
		Explanation:       "No clear external cause identified",
		RecommendedAction: "Investigate client-specific factors",
	}

	candidates := c.eventsInWindow(anomaly.Date)
	scored := make([]types.CandidateCause, 0, len(candidates))
	for _, event := range candidates {
		score := c.score(anomaly, &event, portfolioWide)
		if score <= c.cfg.MinScore {
			continue
		}
		scored = append(scored, types.CandidateCause{
			Event:      event,
			Score:      round2(score),
			Confidence: confidenceForScore(score),
		})
	}
	if len(scored) == 0 {
		return correlation
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > maxCandidates {
		scored = scored[:maxCandidates]
	}

	top := scored[0]
	correlation.Candidates = scored
	correlation.PrimaryCause = top.Event.Name
	correlation.PrimaryConfidence = top.Confidence
	correlation.Explanation = explain(&top.Event, top.Confidence)
	correlation.RecommendedAction = recommend(&top.Event)
	return correlation
}

// eventsInWindow collects calendar events within ±WindowDays of the
// anomaly date, plus the synthetic weekend-recovery event on Mondays.
func (c *Correlator) eventsInWindow(date string) []types.ExternalEvent {
	target, err := types.ParseDate(date)
	if err != nil {
		return nil
	}

	var events []types.ExternalEvent
	for offset := -c.cfg.WindowDays; offset <= c.cfg.WindowDays; offset++ {
		day := types.FormatDate(target.AddDate(0, 0, offset))
		events = append(events, c.byDate[day]...)
	}

	if target.Weekday() == time.Monday {
		events = append(events, types.ExternalEvent{
			Date:                date,
			EventType:           types.EventWeekendEffect,
			Name:                "Monday (Weekend Recovery)",
			Description:         "Traffic recovery after weekend",
			ImpactLevel:         types.ImpactLow,
			AffectedMetrics:     []types.Metric{types.MetricSessions, types.MetricUsers},
			TypicalDurationDays: 1,
			ConfidenceBoost:     mondayRecoveryBoost,
		})
	}
	return events
}

// score starts from the event's baseline confidence and multiplies in
// metric fit, severity alignment, and portfolio scale, capped at 1.0.
func (c *Correlator) score(anomaly *types.Anomaly, event *types.ExternalEvent, portfolioWide bool) float64 {
	score := event.ConfidenceBoost

	if event.Affects(anomaly.Metric) {
		score *= 1.2
	} else {
		score *= 0.7
	}

	severity := anomaly.BusinessImpact
	switch {
	case event.ImpactLevel == types.ImpactCritical && severity > 80:
		score *= 1.3
	case event.ImpactLevel == types.ImpactHigh && severity > 60:
		score *= 1.2
	case event.ImpactLevel == types.ImpactMedium && severity > 40:
		score *= 1.1
	case event.ImpactLevel == types.ImpactLow && severity < 40:
		// Aligned, no adjustment.
	default:
		score *= 0.8
	}

	if portfolioWide && event.IsPlatformScale() {
		score *= 1.4
	}

	return math.Min(score, 1.0)
}

func confidenceForScore(score float64) types.Confidence {
	switch {
	case score > 0.8:
		return types.ConfidenceVeryHigh
	case score > 0.6:
		return types.ConfidenceHigh
	case score > 0.4:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

func explain(event *types.ExternalEvent, confidence types.Confidence) string {
	var base string
	switch event.EventType {
	case types.EventGoogleAlgo:
		base = fmt.Sprintf("This anomaly aligns with %s, which typically affects organic traffic for up to %d days.",
			event.Name, event.TypicalDurationDays)
	case types.EventHoliday:
		base = fmt.Sprintf("Traffic patterns affected by %s. This is expected seasonal behavior.", event.Name)
	case types.EventGA4Update:
		base = fmt.Sprintf("GA4 platform change: %s. May require tracking adjustments.", event.Description)
	case types.EventTechnical:
		base = fmt.Sprintf("Technical factor: %s. Monitor for persistent impact.", event.Description)
	case types.EventSeasonal:
		base = fmt.Sprintf("Seasonal pattern: %s. Compare with previous year data.", event.Description)
	case types.EventWeekendEffect:
		base = "Normal weekend recovery pattern. No action needed."
	default:
		base = fmt.Sprintf("External event detected: %s", event.Description)
	}
	return fmt.Sprintf("%s (Confidence: %s)", base, confidence)
}

func recommend(event *types.ExternalEvent) string {
	switch event.EventType {
	case types.EventGoogleAlgo:
		return "Review search rankings and content quality. Algorithm effects typically stabilize within 2 weeks."
	case types.EventHoliday:
		return "Expected variation. Compare with previous year's holiday performance."
	case types.EventGA4Update:
		return "Check tracking implementation. May need configuration updates."
	case types.EventTechnical:
		return "Monitor closely. Contact development team if issues persist."
	case types.EventSeasonal:
		return "Normal seasonal variation. Adjust forecasts accordingly."
	case types.EventWeekendEffect:
		return "No action required. Normal weekly pattern."
	default:
		return "Monitor situation and gather more data."
	}
}

// PatternDates builds the portfolio-wide lookup the correlator takes:
// the (date, metric) keys covered by simultaneous patterns.
func PatternDates(analysis *types.PortfolioAnalysis) map[string]bool {
	wide := make(map[string]bool)
	if analysis == nil {
		return wide
	}
	for _, pattern := range analysis.Simultaneous {
		wide[patternKey(pattern.Date, pattern.Metric)] = true
	}
	return wide
}

func patternKey(date string, metric types.Metric) string {
	return date + "|" + string(metric)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
