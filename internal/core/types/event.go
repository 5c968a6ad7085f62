package types

// ExternalEvent is one entry in the versioned reference calendar:
// an algorithm update, holiday, platform change, or seasonal pattern
// that can explain anomalies near its date.
type ExternalEvent struct {
	Date                string      `yaml:"date" json:"date"`
	EventType           EventType   `yaml:"type" json:"event_type"`
	Name                string      `yaml:"name" json:"name"`
	ImpactLevel         ImpactLevel `yaml:"impact" json:"impact_level"`
	AffectedMetrics     []Metric    `yaml:"affected_metrics" json:"affected_metrics,omitempty"`
	TypicalDurationDays int         `yaml:"typical_duration_days" json:"typical_duration_days,omitempty"`
	ConfidenceBoost     float64     `yaml:"confidence_boost" json:"confidence_boost"`
	Description         string      `yaml:"description" json:"description,omitempty"`
}

// Affects reports whether the event's declared scope includes the metric.
// Events with no declared metrics affect nothing specifically.
func (e *ExternalEvent) Affects(m Metric) bool {
	for _, am := range e.AffectedMetrics {
		if am == m {
			return true
		}
	}
	return false
}

// IsPlatformScale reports whether the event plausibly moves the whole
// portfolio at once rather than a single property.
func (e *ExternalEvent) IsPlatformScale() bool {
	switch e.EventType {
	case EventGoogleAlgo, EventGoogleAds, EventGA4Update, EventTechnical:
		return true
	default:
		return false
	}
}

// EventCalendar is the full versioned calendar, loaded once per run and
// safe for concurrent reads.
type EventCalendar struct {
	Version string          `yaml:"version" json:"version"`
	Events  []ExternalEvent `yaml:"events" json:"events"`
}
