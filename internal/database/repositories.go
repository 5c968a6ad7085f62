package database

import (
	"context"

	"github.com/stm-analytics/scout-go/internal/core/types"
)

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	ID                  string  `db:"id" json:"id"`
	StartedAt           string  `db:"started_at" json:"started_at"`
	FinishedAt          string  `db:"finished_at" json:"finished_at"`
	Status              string  `db:"status" json:"status"`
	PropertiesTotal     int     `db:"properties_total" json:"properties_total"`
	PropertiesSucceeded int     `db:"properties_succeeded" json:"properties_succeeded"`
	PropertiesFailed    int     `db:"properties_failed" json:"properties_failed"`
	AnomalyCount        int     `db:"anomaly_count" json:"anomaly_count"`
	PatternCount        int     `db:"pattern_count" json:"pattern_count"`
	PredictionCount     int     `db:"prediction_count" json:"prediction_count"`
	HealthScore         float64 `db:"health_score" json:"health_score"`
}

// RunDetail is a run with its persisted findings rehydrated.
type RunDetail struct {
	Run         RunRecord          `json:"run"`
	Anomalies   []types.Anomaly    `json:"anomalies"`
	Patterns    []types.Pattern    `json:"patterns"`
	Predictions []types.Prediction `json:"predictions"`
}

// HistoryRepository persists run results as the audit trail. Storage
// failures must be treated as non-fatal by callers: a run that
// detected anomalies but could not record them is still a successful
// run.
type HistoryRepository interface {
	SaveRun(ctx context.Context, summary *types.RunSummary, anomalies []types.Anomaly,
		analysis *types.PortfolioAnalysis, predictions []types.Prediction) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetRun(ctx context.Context, runID string) (*RunDetail, error)
}
