package logger

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PropertyMetrics holds per-property processing metrics for a batch window
type PropertyMetrics struct {
	Count       int           `json:"count"`
	Anomalies   int           `json:"anomalies"`
	TotalTime   time.Duration `json:"total_time"`
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// BatchLogger wraps logrus.Logger and batches successful per-property
// detection passes into periodic summaries so large portfolios don't
// produce one log line per property per run.
type BatchLogger struct {
	*logrus.Logger
	metrics    map[string]*PropertyMetrics
	batchCount int
	mutex      sync.RWMutex
	batchSize  int
}

// New creates a new logger instance with batching for successful property passes
func New() *BatchLogger {
	log := logrus.New()

	// Always use JSON formatter for clean, consistent output
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		PrettyPrint:     true, // Makes JSON human-readable with indentation
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "time",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "msg",
			logrus.FieldKeyFunc:  "func",
		},
	})

	// Set output
	log.SetOutput(os.Stdout)

	// Set level based on environment
	level := os.Getenv("LOG_LEVEL")
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return &BatchLogger{
		Logger:     log,
		metrics:    make(map[string]*PropertyMetrics),
		batchCount: 0,
		batchSize:  100,
	}
}

// LogProperty logs a per-property detection pass, batching successes
func (bl *BatchLogger) LogProperty(propertyID string, anomalies int, duration time.Duration, err error, fields logrus.Fields) {
	if err == nil {
		bl.batchSuccess(propertyID, anomalies, duration)
		return
	}

	// Failures are logged immediately with full context
	entry := bl.WithFields(fields).WithError(err)
	entry.Errorf("property %s failed after %v", propertyID, duration)
}

// batchSuccess adds a successful property pass to the batch
func (bl *BatchLogger) batchSuccess(propertyID string, anomalies int, duration time.Duration) {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()

	if bl.metrics[propertyID] == nil {
		bl.metrics[propertyID] = &PropertyMetrics{
			MinDuration: duration,
			MaxDuration: duration,
		}
	}

	metrics := bl.metrics[propertyID]
	metrics.Count++
	metrics.Anomalies += anomalies
	metrics.TotalTime += duration

	if duration < metrics.MinDuration {
		metrics.MinDuration = duration
	}
	if duration > metrics.MaxDuration {
		metrics.MaxDuration = duration
	}
	metrics.AvgDuration = metrics.TotalTime / time.Duration(metrics.Count)

	bl.batchCount++

	// Send summary when batch is full
	if bl.batchCount >= bl.batchSize {
		bl.flushBatch()
	}
}

// flushBatch sends a summary of batched property passes
func (bl *BatchLogger) flushBatch() {
	if bl.batchCount == 0 {
		return
	}

	summary := make(map[string]interface{})
	summary["batch_summary"] = true
	summary["total_properties"] = bl.batchCount
	summary["properties"] = bl.metrics

	bl.WithFields(summary).Info("Property batch summary")

	// Reset batch
	bl.metrics = make(map[string]*PropertyMetrics)
	bl.batchCount = 0
}

// FlushPending forces a flush of any pending batch data
func (bl *BatchLogger) FlushPending() {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()
	bl.flushBatch()
}

// WithContext returns a logger with common context fields
func WithContext(log *BatchLogger, fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(fields)
}
