package types

import "time"

// DetectorReport is the per-detector JSON document handed to the
// delivery collaborator.
type DetectorReport struct {
	GeneratedAt        time.Time    `json:"generated_at"`
	DetectorType       DetectorType `json:"detector_type"`
	Priority           string       `json:"priority"`
	PropertiesAnalyzed int          `json:"properties_analyzed"`
	TotalAlerts        int          `json:"total_alerts"`
	Dimensions         []Dimension  `json:"dimensions"`
	Alerts             []Anomaly    `json:"alerts"`
}

// RankedAlert is one classified entry in the combined alert feed.
type RankedAlert struct {
	Anomaly
	Severity     Severity `json:"severity"`
	DeviationPct float64  `json:"deviation_pct"`
	ImpactScore  float64  `json:"impact_score"`
	Method       string   `json:"detection_method"`
	Summary      string   `json:"summary"`
	Suppressed   bool     `json:"suppressed,omitempty"`
}

// AlertFeed is the combined, ranked alert list for a run.
type AlertFeed struct {
	GeneratedAt   time.Time     `json:"generated_at"`
	TotalAlerts   int           `json:"total_alerts"`
	CriticalCount int           `json:"critical_count"`
	WarningCount  int           `json:"warning_count"`
	NormalCount   int           `json:"normal_count"`
	Alerts        []RankedAlert `json:"alerts"`
}

// PredictionReport is the forward-looking JSON document for a run.
type PredictionReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	HorizonDays int          `json:"horizon_days"`
	Total       int          `json:"total_predictions"`
	Predictions []Prediction `json:"predictions"`
}

// PropertyFailure records one property that could not be analyzed.
type PropertyFailure struct {
	PropertyID string `json:"property_id"`
	Error      string `json:"error"`
}

// RunSummary is the per-run success/failure accounting surfaced to
// operators. A property failure is non-fatal; only a run that loaded
// zero properties is a failure.
type RunSummary struct {
	RunID               string                `json:"run_id"`
	StartedAt           time.Time             `json:"started_at"`
	FinishedAt          time.Time             `json:"finished_at"`
	DurationSeconds     float64               `json:"duration_seconds"`
	PropertiesTotal     int                   `json:"properties_total"`
	PropertiesSucceeded int                   `json:"properties_succeeded"`
	PropertiesFailed    int                   `json:"properties_failed"`
	FailedProperties    []PropertyFailure     `json:"failed_properties,omitempty"`
	TotalAnomalies      int                   `json:"total_anomalies"`
	AnomaliesByDetector map[DetectorType]int  `json:"anomalies_by_detector,omitempty"`
	AnomaliesByPriority map[string]int        `json:"anomalies_by_priority,omitempty"`
	PatternCount        int                   `json:"pattern_count"`
	RootCausesIdentified int                  `json:"root_causes_identified"`
	PredictionCount     int                   `json:"prediction_count"`
	AlertsGenerated     AlertCounts           `json:"alerts_generated"`
	HealthScore         float64               `json:"health_score"`
	Status              string                `json:"status"`
}

// AlertCounts is the severity breakdown of one run's ranked feed.
type AlertCounts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Normal   int `json:"normal"`
}

// Run status values.
const (
	RunStatusCompleted  = "completed"
	RunStatusPartial    = "completed_with_errors"
	RunStatusFailed     = "failed"
	RunStatusInProgress = "in_progress"
)

// QualityReport scores a property dataset's fitness for analysis.
type QualityReport struct {
	PropertyID   string   `json:"property_id"`
	Score        int      `json:"score"`
	DaysPresent  int      `json:"days_present"`
	DaysExpected int      `json:"days_expected"`
	Issues       []string `json:"issues,omitempty"`
	Ready        bool     `json:"ready"`
}
