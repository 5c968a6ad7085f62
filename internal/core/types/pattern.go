package types

import "time"

// Pattern is a portfolio-level finding derived from one run's anomaly
// set. Patterns are regenerated every run, never persisted incrementally.
type Pattern struct {
	Type             PatternType         `json:"type"`
	Date             string              `json:"date,omitempty"`
	StartDate        string              `json:"start_date,omitempty"`
	EndDate          string              `json:"end_date,omitempty"`
	DurationDays     int                 `json:"duration_days,omitempty"`
	Metric           Metric              `json:"metric,omitempty"`
	CorrelatedMetric Metric              `json:"correlated_metric,omitempty"`
	AffectedClients  []string            `json:"affected_clients"`
	AffectedRatio    float64             `json:"affected_ratio,omitempty"`
	Confidence       float64             `json:"confidence,omitempty"`
	ConfidenceLabel  Confidence          `json:"confidence_label,omitempty"`
	Occurrences      int                 `json:"occurrences,omitempty"`
	Strength         CorrelationStrength `json:"strength,omitempty"`
	LikelyCause      string              `json:"likely_cause,omitempty"`
}

// PortfolioAnalysis aggregates one run's cross-property findings.
type PortfolioAnalysis struct {
	GeneratedAt        time.Time `json:"generated_at"`
	TotalProperties    int       `json:"total_properties"`
	TotalAnomalies     int       `json:"total_anomalies"`
	HealthScore        float64   `json:"health_score"`
	Simultaneous       []Pattern `json:"simultaneous_patterns"`
	Cascading          []Pattern `json:"cascading_patterns"`
	MetricCorrelations []Pattern `json:"metric_correlations"`
}

// AllPatterns flattens the analysis into one slice for correlation and
// prediction consumers.
func (p *PortfolioAnalysis) AllPatterns() []Pattern {
	out := make([]Pattern, 0, len(p.Simultaneous)+len(p.Cascading)+len(p.MetricCorrelations))
	out = append(out, p.Simultaneous...)
	out = append(out, p.Cascading...)
	out = append(out, p.MetricCorrelations...)
	return out
}
