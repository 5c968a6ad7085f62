package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writePropertyFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const validProperty = `{
	"client_metadata": {"property_id": "249571600", "domain": "https://www.acme-corp.com/"},
	"clean_dataset": [
		{"date": "2024-03-02", "sessions": 120, "users": 100, "page_views": 300, "conversions": 5},
		{"date": "2024-03-01", "sessions": 110, "users": 90, "page_views": 280, "conversions": 4}
	],
	"geo_segments": [
		{"date": "2024-03-02", "country": "United States", "sessions": 80},
		{"date": "2024-03-01", "country": "United States", "sessions": 70}
	]
}`

func TestLoaderLoadAll(t *testing.T) {
	t.Run("loads and normalizes a valid file", func(t *testing.T) {
		dir := t.TempDir()
		writePropertyFile(t, dir, "scout_production_clean_acme_249571600.json", validProperty)

		loader := NewLoader(config.DataConfig{
			InputDir:     dir,
			FilePattern:  "scout_production_clean_*.json",
			ExpectedDays: 2,
		}, testLogger())

		properties, failures, err := loader.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, failures)
		require.Len(t, properties, 1)

		property := properties[0]
		assert.Equal(t, "249571600", property.Metadata.PropertyID)
		assert.Equal(t, "acme_corp", property.Metadata.ClientName)

		// Rows are re-sorted by date ascending.
		require.Len(t, property.CleanDataset, 2)
		assert.Equal(t, "2024-03-01", property.CleanDataset[0].Date)
		assert.Equal(t, "2024-03-02", property.CleanDataset[1].Date)
		assert.Greater(t, property.QualityScore, 0)
	})

	t.Run("malformed file does not abort the batch", func(t *testing.T) {
		dir := t.TempDir()
		writePropertyFile(t, dir, "scout_production_clean_bad_111.json", "{not json")
		writePropertyFile(t, dir, "scout_production_clean_good_222.json", validProperty)

		loader := NewLoader(config.DataConfig{
			InputDir:    dir,
			FilePattern: "scout_production_clean_*.json",
		}, testLogger())

		properties, failures, err := loader.LoadAll(context.Background())
		require.NoError(t, err)
		require.Len(t, properties, 1)
		require.Len(t, failures, 1)
		assert.Equal(t, "111", failures[0].PropertyID)
	})

	t.Run("no files is a run-level failure", func(t *testing.T) {
		loader := NewLoader(config.DataConfig{
			InputDir:    t.TempDir(),
			FilePattern: "scout_production_clean_*.json",
		}, testLogger())

		_, _, err := loader.LoadAll(context.Background())
		assert.Error(t, err)
	})

	t.Run("all files malformed is a run-level failure", func(t *testing.T) {
		dir := t.TempDir()
		writePropertyFile(t, dir, "scout_production_clean_bad_111.json", "{not json")

		loader := NewLoader(config.DataConfig{
			InputDir:    dir,
			FilePattern: "scout_production_clean_*.json",
		}, testLogger())

		_, failures, err := loader.LoadAll(context.Background())
		assert.Error(t, err)
		assert.Len(t, failures, 1)
	})

	t.Run("quality gate filters low scoring properties", func(t *testing.T) {
		dir := t.TempDir()
		// Two zero-session days drop the score to 80, below a 90 gate.
		writePropertyFile(t, dir, "scout_production_clean_zero_333.json", `{
			"client_metadata": {"property_id": "333"},
			"clean_dataset": [
				{"date": "2024-03-01", "sessions": 0, "users": 0},
				{"date": "2024-03-02", "sessions": 0, "users": 0},
				{"date": "2024-03-03", "sessions": 100, "users": 90}
			]
		}`)
		writePropertyFile(t, dir, "scout_production_clean_good_444.json", validProperty)

		loader := NewLoader(config.DataConfig{
			InputDir:        dir,
			FilePattern:     "scout_production_clean_*.json",
			ExpectedDays:    2,
			MinQualityScore: 90,
		}, testLogger())

		properties, failures, err := loader.LoadAll(context.Background())
		require.NoError(t, err)
		require.Len(t, properties, 1)
		assert.Equal(t, "249571600", properties[0].Metadata.PropertyID)
		require.Len(t, failures, 1)
		assert.Equal(t, "333", failures[0].PropertyID)
	})
}

func TestAssessQuality(t *testing.T) {
	day := func(date string, sessions, users, conversions float64) types.MetricObservation {
		return types.MetricObservation{Date: date, Sessions: sessions, Users: users, Conversions: conversions}
	}

	tests := []struct {
		name     string
		days     []types.MetricObservation
		expected int
		ready    bool
	}{
		{
			name: "clean week scores 100",
			days: []types.MetricObservation{
				day("2024-03-01", 100, 90, 5), day("2024-03-02", 110, 95, 6),
				day("2024-03-03", 105, 92, 4), day("2024-03-04", 98, 88, 5),
				day("2024-03-05", 102, 91, 5), day("2024-03-06", 108, 94, 6),
				day("2024-03-07", 101, 90, 5),
			},
			expected: 100,
			ready:    true,
		},
		{
			name: "missing days cost 20",
			days: []types.MetricObservation{
				day("2024-03-01", 100, 90, 5), day("2024-03-02", 110, 95, 6),
			},
			expected: 80,
			ready:    true,
		},
		{
			name: "zero session days cost 10 each",
			days: []types.MetricObservation{
				day("2024-03-01", 0, 0, 0), day("2024-03-02", 0, 0, 0),
				day("2024-03-03", 100, 90, 5), day("2024-03-04", 100, 90, 5),
				day("2024-03-05", 100, 90, 5), day("2024-03-06", 100, 90, 5),
			},
			expected: 80,
			ready:    true,
		},
		{
			name: "implausible ratios and conversion rates",
			days: []types.MetricObservation{
				day("2024-03-01", 1000, 50, 10), // ratio 20
				day("2024-03-02", 100, 90, 60),  // conversion rate 60%
				day("2024-03-03", 100, 90, 5),
				day("2024-03-04", 100, 90, 5),
				day("2024-03-05", 100, 90, 5),
				day("2024-03-06", 100, 90, 5),
			},
			expected: 90,
			ready:    true,
		},
		{
			name:     "no data scores zero",
			days:     nil,
			expected: 0,
			ready:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := AssessQuality("p1", tt.days, 7)
			assert.Equal(t, tt.expected, report.Score)
			assert.Equal(t, tt.ready, report.Ready)
		})
	}
}

func TestInferClientName(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		expected string
	}{
		{name: "https with www", domain: "https://www.acme-corp.com/", expected: "acme_corp"},
		{name: "shop prefix", domain: "https://shop.widgets.io", expected: "widgets"},
		{name: "bare domain", domain: "example.com", expected: "example"},
		{name: "empty falls back", domain: "", expected: "client_42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferClientName(tt.domain, "42"))
		})
	}
}
