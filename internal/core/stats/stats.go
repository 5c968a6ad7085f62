// Package stats provides the outlier primitives shared by every
// detector: z-score scanning, IQR bounds, and the consensus of both.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or 0 for an empty series.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1 denominator), or 0
// when fewer than two values are present.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PointScore is the per-index result of an outlier scan.
type PointScore struct {
	Index     int     `json:"index"`
	Value     float64 `json:"value"`
	Score     float64 `json:"score"`
	IsAnomaly bool    `json:"is_anomaly"`
}

// ZScores scores every point against the series mean. Series shorter
// than three points report nothing; zero variance reports every point
// as normal rather than dividing by zero.
func ZScores(values []float64, threshold float64) []PointScore {
	if len(values) < 3 {
		return nil
	}
	scores := make([]PointScore, len(values))
	mean := Mean(values)
	stdev := StdDev(values)
	for i, v := range values {
		var z float64
		if stdev > 0 {
			z = (v - mean) / stdev
		}
		scores[i] = PointScore{
			Index:     i,
			Value:     v,
			Score:     z,
			IsAnomaly: stdev > 0 && math.Abs(z) > threshold,
		}
	}
	return scores
}

// ZScoreAgainst scores a single value against a baseline's own mean and
// standard deviation. Scoring the newest point against its baseline
// rather than against the combined series keeps the score unbounded; a
// combined series of n points can never exceed (n-1)/sqrt(n), which
// with a week of history sits below every alerting threshold. ok is
// false when the baseline is shorter than two points or has no
// variance.
func ZScoreAgainst(baseline []float64, value float64) (float64, bool) {
	if len(baseline) < 2 {
		return 0, false
	}
	stdev := StdDev(baseline)
	if stdev == 0 {
		return 0, false
	}
	return (value - Mean(baseline)) / stdev, true
}

// Quartiles returns q1 and q3 by positional indexing of the sorted
// series: q1 = sorted[n/4], q3 = sorted[3n/4]. The input is not
// modified.
func Quartiles(values []float64) (q1, q3 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	q3Idx := 3 * n / 4
	if q3Idx >= n {
		q3Idx = n - 1
	}
	return sorted[n/4], sorted[q3Idx]
}

// IQROutliers flags points outside [q1 - multiplier*iqr, q3 + multiplier*iqr].
// Series shorter than four points or with a zero interquartile range
// report nothing. Score is the distance beyond the violated bound in
// IQR units, always non-negative.
func IQROutliers(values []float64, multiplier float64) []PointScore {
	if len(values) < 4 {
		return nil
	}
	q1, q3 := Quartiles(values)
	iqr := q3 - q1
	scores := make([]PointScore, len(values))
	if iqr == 0 {
		for i, v := range values {
			scores[i] = PointScore{Index: i, Value: v}
		}
		return scores
	}
	lower := q1 - multiplier*iqr
	upper := q3 + multiplier*iqr
	for i, v := range values {
		var dist float64
		switch {
		case v < lower:
			dist = (lower - v) / iqr
		case v > upper:
			dist = (v - upper) / iqr
		}
		scores[i] = PointScore{
			Index:     i,
			Value:     v,
			Score:     dist,
			IsAnomaly: dist > 0,
		}
	}
	return scores
}

// ConsensusPoint merges both outlier methods for one index.
type ConsensusPoint struct {
	Index       int     `json:"index"`
	Value       float64 `json:"value"`
	ZScore      float64 `json:"z_score"`
	IQRDistance float64 `json:"iqr_distance"`
	ZAnomaly    bool    `json:"z_anomaly"`
	IQRAnomaly  bool    `json:"iqr_anomaly"`
	IsAnomaly   bool    `json:"is_anomaly"`
	Severity    float64 `json:"severity"`
}

// Consensus flags a point when either method flags it. Severity is the
// larger of |z| and the IQR distance, so a point caught by both methods
// keeps its strongest signal.
func Consensus(values []float64, zThreshold, iqrMultiplier float64) []ConsensusPoint {
	if len(values) < 3 {
		return nil
	}
	zScores := ZScores(values, zThreshold)
	iqrScores := IQROutliers(values, iqrMultiplier)
	points := make([]ConsensusPoint, len(values))
	for i := range values {
		p := ConsensusPoint{
			Index:    i,
			Value:    values[i],
			ZScore:   zScores[i].Score,
			ZAnomaly: zScores[i].IsAnomaly,
		}
		if iqrScores != nil {
			p.IQRDistance = iqrScores[i].Score
			p.IQRAnomaly = iqrScores[i].IsAnomaly
		}
		p.IsAnomaly = p.ZAnomaly || p.IQRAnomaly
		if p.IsAnomaly {
			p.Severity = math.Max(math.Abs(p.ZScore), p.IQRDistance)
		}
		points[i] = p
	}
	return points
}
