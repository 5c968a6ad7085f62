// Package sqlite implements the history repository over SQLite via
// sqlx. Findings are stored as JSON documents keyed by run; the
// queryable columns live on the runs table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/core/types"
	"github.com/stm-analytics/scout-go/internal/database"
)

// HistoryRepository is the SQLite-backed audit trail.
type HistoryRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewHistoryRepository creates the history repository.
func NewHistoryRepository(db *sqlx.DB, logger *logrus.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

var _ database.HistoryRepository = (*HistoryRepository)(nil)

// SaveRun persists a run and all its findings in one transaction.
func (r *HistoryRepository) SaveRun(ctx context.Context, summary *types.RunSummary, anomalies []types.Anomaly,
	analysis *types.PortfolioAnalysis, predictions []types.Prediction) error {

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	patternCount := 0
	if analysis != nil {
		patternCount = len(analysis.AllPatterns())
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, status,
			properties_total, properties_succeeded, properties_failed,
			anomaly_count, pattern_count, prediction_count, health_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.FinishedAt.UTC().Format(time.RFC3339),
		summary.Status,
		summary.PropertiesTotal,
		summary.PropertiesSucceeded,
		summary.PropertiesFailed,
		len(anomalies),
		patternCount,
		len(predictions),
		summary.HealthScore,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}

	insertAnomaly, err := tx.PreparexContext(ctx, `
		INSERT INTO run_anomalies (run_id, property_id, date, detector_type, priority,
			dimension, metric, business_impact, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare anomaly insert: %w", err)
	}
	defer insertAnomaly.Close()

	for i := range anomalies {
		anomaly := &anomalies[i]
		payload, err := json.Marshal(anomaly)
		if err != nil {
			return fmt.Errorf("marshal anomaly %s: %w", anomaly.Key(), err)
		}
		if _, err := insertAnomaly.ExecContext(ctx,
			summary.RunID, anomaly.PropertyID, anomaly.Date,
			string(anomaly.DetectorType), anomaly.Priority.String(),
			string(anomaly.Dimension), string(anomaly.Metric),
			anomaly.BusinessImpact, payload,
		); err != nil {
			return fmt.Errorf("insert anomaly %s: %w", anomaly.Key(), err)
		}
	}

	if analysis != nil {
		for _, pattern := range analysis.AllPatterns() {
			payload, err := json.Marshal(pattern)
			if err != nil {
				return fmt.Errorf("marshal pattern: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_patterns (run_id, pattern_type, metric, payload)
				VALUES (?, ?, ?, ?)`,
				summary.RunID, string(pattern.Type), string(pattern.Metric), payload,
			); err != nil {
				return fmt.Errorf("insert pattern: %w", err)
			}
		}
	}

	for i := range predictions {
		prediction := &predictions[i]
		payload, err := json.Marshal(prediction)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_predictions (run_id, entity, metric, prediction_date, probability, payload)
			VALUES (?, ?, ?, ?, ?, ?)`,
			summary.RunID, prediction.Entity, string(prediction.Metric),
			prediction.PredictionDate, prediction.AnomalyProbability, payload,
		); err != nil {
			return fmt.Errorf("insert prediction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", summary.RunID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"run_id":      summary.RunID,
		"anomalies":   len(anomalies),
		"patterns":    patternCount,
		"predictions": len(predictions),
	}).Debug("Run persisted to history store")
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *HistoryRepository) ListRuns(ctx context.Context, limit int) ([]database.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	runs := []database.RunRecord{}
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, started_at, finished_at, status,
			properties_total, properties_succeeded, properties_failed,
			anomaly_count, pattern_count, prediction_count, health_score
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun loads one run with its findings. Returns sql.ErrNoRows when
// the run id is unknown.
func (r *HistoryRepository) GetRun(ctx context.Context, runID string) (*database.RunDetail, error) {
	detail := &database.RunDetail{}
	err := r.db.GetContext(ctx, &detail.Run, `
		SELECT id, started_at, finished_at, status,
			properties_total, properties_succeeded, properties_failed,
			anomaly_count, pattern_count, prediction_count, health_score
		FROM runs WHERE id = ?`, runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	if err := r.loadPayloads(ctx, "run_anomalies", runID, &detail.Anomalies); err != nil {
		return nil, err
	}
	if err := r.loadPayloads(ctx, "run_patterns", runID, &detail.Patterns); err != nil {
		return nil, err
	}
	if err := r.loadPayloads(ctx, "run_predictions", runID, &detail.Predictions); err != nil {
		return nil, err
	}
	return detail, nil
}

// loadPayloads rehydrates the JSON documents of one findings table
// into the destination slice.
func (r *HistoryRepository) loadPayloads(ctx context.Context, table, runID string, dest interface{}) error {
	var payloads [][]byte
	query := fmt.Sprintf("SELECT payload FROM %s WHERE run_id = ? ORDER BY id", table)
	if err := r.db.SelectContext(ctx, &payloads, query, runID); err != nil {
		return fmt.Errorf("load %s for run %s: %w", table, runID, err)
	}

	combined := make([]json.RawMessage, len(payloads))
	for i, p := range payloads {
		combined[i] = json.RawMessage(p)
	}
	raw, err := json.Marshal(combined)
	if err != nil {
		return fmt.Errorf("combine %s payloads: %w", table, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s payloads: %w", table, err)
	}
	return nil
}
