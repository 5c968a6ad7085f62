package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "empty", values: nil, expected: 0},
		{name: "single", values: []float64{42}, expected: 42},
		{name: "simple", values: []float64{1, 2, 3, 4}, expected: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Mean(tt.values))
		})
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "empty", values: nil, expected: 0},
		{name: "single value", values: []float64{10}, expected: 0},
		{name: "constant series", values: []float64{5, 5, 5, 5}, expected: 0},
		{name: "known sample stdev", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, expected: 2.138089935299395},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StdDev(tt.values), 1e-9)
		})
	}
}

func TestZScores(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, ZScores([]float64{1, 2}, 2.0))
	})

	t.Run("constant series reports no anomalies", func(t *testing.T) {
		scores := ZScores([]float64{100, 100, 100, 100}, 2.0)
		require.Len(t, scores, 4)
		for _, s := range scores {
			assert.False(t, s.IsAnomaly)
			assert.Zero(t, s.Score)
		}
	})

	t.Run("outlier flagged beyond threshold", func(t *testing.T) {
		values := []float64{100, 102, 98, 101, 99, 100, 300}
		scores := ZScores(values, 2.0)
		require.Len(t, scores, len(values))

		last := scores[len(scores)-1]
		assert.True(t, last.IsAnomaly)
		assert.Greater(t, last.Score, 2.0)

		for _, s := range scores[:len(scores)-1] {
			assert.False(t, s.IsAnomaly, "index %d should be normal", s.Index)
		}
	})

	t.Run("negative outlier has negative score", func(t *testing.T) {
		values := []float64{100, 102, 98, 101, 99, 100, 2}
		scores := ZScores(values, 2.0)
		last := scores[len(scores)-1]
		assert.True(t, last.IsAnomaly)
		assert.Less(t, last.Score, -2.0)
	})
}

func TestZScoreAgainst(t *testing.T) {
	t.Run("spike scored against baseline stats", func(t *testing.T) {
		// Baseline mean 1000, sample stdev 50; a 1400 day scores z=8.
		baseline := []float64{1000, 1050, 950, 1050, 950, 1050, 950}
		z, ok := ZScoreAgainst(baseline, 1400)
		require.True(t, ok)
		assert.InDelta(t, 8.0, z, 1e-9)
	})

	t.Run("no variance", func(t *testing.T) {
		_, ok := ZScoreAgainst([]float64{5, 5, 5}, 50)
		assert.False(t, ok)
	})

	t.Run("baseline too short", func(t *testing.T) {
		_, ok := ZScoreAgainst([]float64{5}, 50)
		assert.False(t, ok)
	})
}

func TestQuartiles(t *testing.T) {
	// Positional indexing: q1 = sorted[n/4], q3 = sorted[3n/4].
	values := []float64{8, 1, 2, 3, 4, 5, 6, 7}
	q1, q3 := Quartiles(values)
	assert.Equal(t, 3.0, q1)
	assert.Equal(t, 7.0, q3)

	// Input order is preserved.
	assert.Equal(t, []float64{8, 1, 2, 3, 4, 5, 6, 7}, values)
}

func TestIQROutliers(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		assert.Nil(t, IQROutliers([]float64{1, 2, 3}, 1.5))
	})

	t.Run("zero IQR reports no anomalies", func(t *testing.T) {
		scores := IQROutliers([]float64{7, 7, 7, 7, 7}, 1.5)
		require.Len(t, scores, 5)
		for _, s := range scores {
			assert.False(t, s.IsAnomaly)
		}
	})

	t.Run("outlier distance normalized by IQR", func(t *testing.T) {
		values := []float64{10, 12, 11, 13, 12, 11, 10, 100}
		scores := IQROutliers(values, 1.5)
		require.Len(t, scores, len(values))

		last := scores[len(scores)-1]
		assert.True(t, last.IsAnomaly)
		assert.Greater(t, last.Score, 0.0)

		for _, s := range scores[:len(scores)-1] {
			assert.False(t, s.IsAnomaly, "index %d should be normal", s.Index)
		}
	})
}

func TestConsensus(t *testing.T) {
	t.Run("constant series is quiet", func(t *testing.T) {
		points := Consensus([]float64{50, 50, 50, 50, 50}, 2.0, 1.5)
		require.Len(t, points, 5)
		for _, p := range points {
			assert.False(t, p.IsAnomaly)
			assert.Zero(t, p.Severity)
		}
	})

	t.Run("either method flags the point", func(t *testing.T) {
		values := []float64{100, 101, 99, 100, 102, 98, 100, 400}
		points := Consensus(values, 2.0, 1.5)
		require.Len(t, points, len(values))

		last := points[len(points)-1]
		assert.True(t, last.IsAnomaly)
		assert.True(t, last.ZAnomaly || last.IQRAnomaly)
	})

	t.Run("severity is the stronger signal", func(t *testing.T) {
		values := []float64{100, 101, 99, 100, 102, 98, 100, 400}
		points := Consensus(values, 2.0, 1.5)
		last := points[len(points)-1]
		assert.InDelta(t, math.Max(math.Abs(last.ZScore), last.IQRDistance), last.Severity, 1e-12)
	})

	t.Run("short series yields nothing", func(t *testing.T) {
		assert.Nil(t, Consensus([]float64{1, 2}, 2.0, 1.5))
	})
}
