package types

import (
	"fmt"
	"sort"
	"time"
)

// Anomaly is a single detector finding for one property segment on one
// date. Exactly one detector creates it and no other detector mutates
// it; the root-cause correlator may attach an explanation afterwards.
type Anomaly struct {
	PropertyID     string       `json:"property_id"`
	Domain         string       `json:"domain,omitempty"`
	Date           string       `json:"date"`
	DetectorType   DetectorType `json:"detector_type"`
	Subtype        string       `json:"subtype,omitempty"`
	Priority       Priority     `json:"priority"`
	Dimension      Dimension    `json:"dimension"`
	DimensionValue string       `json:"dimension_value,omitempty"`
	Metric         Metric       `json:"metric"`
	Value          float64      `json:"value"`
	Baseline       float64      `json:"baseline,omitempty"`
	PreviousRecord float64      `json:"previous_record,omitempty"`
	ZScore         float64      `json:"z_score,omitempty"`
	DropPct        float64      `json:"drop_percentage,omitempty"`
	ChangePct      float64      `json:"change_percentage,omitempty"`
	BounceRate     float64      `json:"bounce_rate,omitempty"`
	AvgDuration    float64      `json:"avg_session_duration,omitempty"`
	BusinessImpact float64      `json:"business_impact"`
	Message        string       `json:"message"`
	ActionRequired string       `json:"action_required,omitempty"`
	DetectedAt     time.Time    `json:"detected_at"`

	Methods   *DetectionMethods     `json:"detection_methods,omitempty"`
	RootCause *RootCauseCorrelation `json:"root_cause,omitempty"`
}

// DetectionMethods records which statistical methods flagged a point.
// Only the consensus detector populates it; single-method detectors
// leave it nil.
type DetectionMethods struct {
	ZScore      float64 `json:"z_score"`
	ZAnomaly    bool    `json:"z_anomaly"`
	IQRDistance float64 `json:"iqr_distance"`
	IQRAnomaly  bool    `json:"iqr_anomaly"`
}

// Key identifies an anomaly for deduplication and suppression. Two
// findings with the same key describe the same incident.
func (a *Anomaly) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		a.PropertyID, a.DetectorType, a.Dimension, a.DimensionValue, a.Metric, a.Date)
}

// IsDrop reports whether the finding describes a decline rather than a
// spike or improvement.
func (a *Anomaly) IsDrop() bool {
	if a.DropPct > 0 {
		return true
	}
	if a.ChangePct != 0 {
		return a.ChangePct < 0
	}
	return a.ZScore < 0
}

// SortAnomalies orders findings by priority, then by descending
// business impact within each priority.
func SortAnomalies(anomalies []Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		if anomalies[i].Priority != anomalies[j].Priority {
			return anomalies[i].Priority < anomalies[j].Priority
		}
		return anomalies[i].BusinessImpact > anomalies[j].BusinessImpact
	})
}

// CandidateCause is one scored calendar event for an anomaly.
type CandidateCause struct {
	Event      ExternalEvent `json:"event"`
	Score      float64       `json:"score"`
	Confidence Confidence    `json:"confidence"`
}

// RootCauseCorrelation names the calendar events most likely to explain
// an anomaly. Anomalies with no qualifying candidate still get one,
// tagged Unknown with low confidence.
type RootCauseCorrelation struct {
	AnomalyKey        string           `json:"anomaly_key"`
	Candidates        []CandidateCause `json:"candidates,omitempty"`
	PrimaryCause      string           `json:"primary_cause"`
	PrimaryConfidence Confidence       `json:"primary_confidence"`
	Explanation       string           `json:"explanation,omitempty"`
	RecommendedAction string           `json:"recommended_action,omitempty"`
}
