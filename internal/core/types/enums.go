package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format for all dataset and calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a time as an ISO-8601 calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Priority ranks alerts from P0 (act immediately) to P3 (informational).
// Lower values outrank higher ones, so slices sort ascending by Priority.
type Priority int

const (
	PriorityP0 Priority = iota
	PriorityP1
	PriorityP2
	PriorityP3
)

func (p Priority) String() string {
	switch p {
	case PriorityP0:
		return "P0"
	case PriorityP1:
		return "P1"
	case PriorityP2:
		return "P2"
	case PriorityP3:
		return "P3"
	default:
		return fmt.Sprintf("P%d", int(p))
	}
}

// ParsePriority maps a wire label (P0..P3) back to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "P0":
		return PriorityP0, nil
	case "P1":
		return PriorityP1, nil
	case "P2":
		return PriorityP2, nil
	case "P3":
		return PriorityP3, nil
	default:
		return PriorityP3, fmt.Errorf("unknown priority %q", s)
	}
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// DetectorType identifies which detector produced an anomaly.
type DetectorType string

const (
	DetectorDisaster    DetectorType = "disaster"
	DetectorSpam        DetectorType = "spam"
	DetectorRecord      DetectorType = "record"
	DetectorTrend       DetectorType = "trend"
	DetectorSegment     DetectorType = "segment"
	DetectorStatistical DetectorType = "statistical"
)

// Dimension is a slicing axis for metric series.
type Dimension string

const (
	DimensionOverall       Dimension = "overall"
	DimensionGeography     Dimension = "geography"
	DimensionDevice        Dimension = "device"
	DimensionTrafficSource Dimension = "traffic_source"
	DimensionLandingPage   Dimension = "landing_page"
)

// SiteWide is the dimension value carried by Overall-dimension findings.
const SiteWide = "site-wide"

// Metric names the daily measures tracked per property.
type Metric string

const (
	MetricSessions    Metric = "sessions"
	MetricUsers       Metric = "users"
	MetricPageViews   Metric = "page_views"
	MetricConversions Metric = "conversions"
)

// AllMetrics lists every tracked metric in reporting order.
var AllMetrics = []Metric{MetricSessions, MetricUsers, MetricPageViews, MetricConversions}

// EventType classifies entries in the external event calendar.
type EventType string

const (
	EventGoogleAlgo    EventType = "google_algo"
	EventGoogleAds     EventType = "google_ads"
	EventGA4Update     EventType = "ga4_update"
	EventHoliday       EventType = "holiday"
	EventIndustry      EventType = "industry"
	EventSeasonal      EventType = "seasonal"
	EventTechnical     EventType = "technical"
	EventEconomic      EventType = "economic"
	EventWeekendEffect EventType = "weekend_effect"
)

// ImpactLevel grades how disruptive an external event usually is.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// Confidence labels correlation and prediction strength.
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

// PatternType classifies portfolio-level patterns.
type PatternType string

const (
	PatternSimultaneous      PatternType = "simultaneous"
	PatternCascading         PatternType = "cascading"
	PatternMetricCorrelation PatternType = "metric_correlation"
)

// CorrelationStrength labels how often a metric pair co-occurs.
type CorrelationStrength string

const (
	StrengthStrong   CorrelationStrength = "strong"
	StrengthModerate CorrelationStrength = "moderate"
	StrengthWeak     CorrelationStrength = "weak"
)

// Severity bands the classified alert feed by business impact.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityNormal   Severity = "normal"
)
