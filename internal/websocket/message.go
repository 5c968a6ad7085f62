// Package websocket streams pipeline run lifecycle events to connected
// operators: run started, per-property progress, and the final summary.
package websocket

import (
	"encoding/json"
	"time"
)

// Run lifecycle event types.
const (
	MessageTypeRunStarted       = "run_started"
	MessageTypePropertyAnalyzed = "property_analyzed"
	MessageTypeRunCompleted     = "run_completed"
	MessageTypeRunFailed        = "run_failed"
	MessageTypeConnection       = "connection"
	MessageTypeHeartbeat        = "heartbeat"
)

// Message is one event on the run stream.
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON serializes the message, stamping the send time.
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}

// RunStarted announces a new pipeline run.
func RunStarted(runID string, properties int) Message {
	return Message{
		Type: MessageTypeRunStarted,
		Data: map[string]interface{}{
			"run_id":     runID,
			"properties": properties,
		},
	}
}

// PropertyAnalyzed reports one property finishing detection.
func PropertyAnalyzed(runID, propertyID string, anomalies int, err error) Message {
	data := map[string]interface{}{
		"run_id":      runID,
		"property_id": propertyID,
		"anomalies":   anomalies,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return Message{Type: MessageTypePropertyAnalyzed, Data: data}
}

// RunCompleted carries the final counts of a finished run.
func RunCompleted(runID, status string, anomalies, patterns, predictions int, health float64) Message {
	return Message{
		Type: MessageTypeRunCompleted,
		Data: map[string]interface{}{
			"run_id":       runID,
			"status":       status,
			"anomalies":    anomalies,
			"patterns":     patterns,
			"predictions":  predictions,
			"health_score": health,
		},
	}
}

// RunFailed reports a run that produced nothing.
func RunFailed(runID string, err error) Message {
	return Message{
		Type: MessageTypeRunFailed,
		Data: map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		},
	}
}
