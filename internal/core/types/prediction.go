package types

import "sort"

// Prediction describes an anomaly expected within the forecast horizon.
// It is not an Anomaly: it talks about the future, not the past.
type Prediction struct {
	Entity             string     `json:"entity"`
	Metric             Metric     `json:"metric"`
	PredictionDate     string     `json:"prediction_date"`
	PredictedValue     float64    `json:"predicted_value,omitempty"`
	ExpectedLow        float64    `json:"expected_low,omitempty"`
	ExpectedHigh       float64    `json:"expected_high,omitempty"`
	AnomalyProbability float64    `json:"anomaly_probability"`
	Confidence         Confidence `json:"confidence"`
	Basis              string     `json:"prediction_basis"`
	RecommendedAction  string     `json:"recommended_action,omitempty"`
	PotentialImpact    string     `json:"potential_impact,omitempty"`
}

// ConfidenceForProbability maps a probability to the shared label bands.
func ConfidenceForProbability(p float64) Confidence {
	switch {
	case p >= 0.7:
		return ConfidenceHigh
	case p >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SortPredictions orders predictions by descending probability.
func SortPredictions(predictions []Prediction) {
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].AnomalyProbability > predictions[j].AnomalyProbability
	})
}
