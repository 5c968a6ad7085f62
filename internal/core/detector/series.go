package detector

import (
	"strings"

	"github.com/stm-analytics/scout-go/internal/core/types"
)

// SeriesPoint is one day of one segment with every measure the
// detectors look at.
type SeriesPoint struct {
	Date               string
	Sessions           float64
	Users              float64
	PageViews          float64
	Conversions        float64
	BounceRate         float64
	AvgSessionDuration float64
}

// SegmentSeries is a date-ordered series for one segment of one
// dimension of one property.
type SegmentSeries struct {
	PropertyID     string
	Domain         string
	ClientName     string
	Dimension      types.Dimension
	DimensionValue string
	Points         []SeriesPoint
}

// Len returns the number of observations in the series.
func (s *SegmentSeries) Len() int {
	return len(s.Points)
}

// Last returns the most recent point. Callers check Len first.
func (s *SegmentSeries) Last() SeriesPoint {
	return s.Points[len(s.Points)-1]
}

// Sessions returns the session counts in date order.
func (s *SegmentSeries) Sessions() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Sessions
	}
	return values
}

// MetricValues returns the named measure in date order.
func (s *SegmentSeries) MetricValues(m types.Metric) []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		switch m {
		case types.MetricSessions:
			values[i] = p.Sessions
		case types.MetricUsers:
			values[i] = p.Users
		case types.MetricPageViews:
			values[i] = p.PageViews
		case types.MetricConversions:
			values[i] = p.Conversions
		}
	}
	return values
}

// BuildSeries fans a property out into per-segment series for one
// dimension. Overall yields a single site-wide series; segment
// dimensions yield one series per distinct value, in first-seen order
// so repeated runs on identical input stay identical. Segments with an
// empty value are skipped.
func BuildSeries(property *types.PropertyData, dim types.Dimension) []SegmentSeries {
	domain := displayDomain(property.Metadata.Domain)

	if dim == types.DimensionOverall {
		if len(property.CleanDataset) == 0 {
			return nil
		}
		series := SegmentSeries{
			PropertyID:     property.Metadata.PropertyID,
			Domain:         domain,
			ClientName:     property.Metadata.ClientName,
			Dimension:      dim,
			DimensionValue: types.SiteWide,
			Points:         make([]SeriesPoint, 0, len(property.CleanDataset)),
		}
		for _, day := range property.CleanDataset {
			series.Points = append(series.Points, SeriesPoint{
				Date:               day.Date,
				Sessions:           day.Sessions,
				Users:              day.Users,
				PageViews:          day.PageViews,
				Conversions:        day.Conversions,
				BounceRate:         day.BounceRate,
				AvgSessionDuration: day.AvgSessionDuration,
			})
		}
		return []SegmentSeries{series}
	}

	segments := property.Segments(dim)
	if len(segments) == 0 {
		return nil
	}

	grouped := make(map[string]*SegmentSeries)
	order := make([]string, 0)
	for _, seg := range segments {
		value := seg.DimensionValue(dim)
		if value == "" || value == "/" {
			continue
		}
		series, ok := grouped[value]
		if !ok {
			series = &SegmentSeries{
				PropertyID:     property.Metadata.PropertyID,
				Domain:         domain,
				ClientName:     property.Metadata.ClientName,
				Dimension:      dim,
				DimensionValue: value,
			}
			grouped[value] = series
			order = append(order, value)
		}
		series.Points = append(series.Points, SeriesPoint{
			Date:               seg.Date,
			Sessions:           seg.Sessions,
			Users:              seg.Users,
			PageViews:          seg.PageViews,
			Conversions:        seg.Conversions,
			BounceRate:         seg.BounceRate,
			AvgSessionDuration: seg.AvgSessionDuration,
		})
	}

	out := make([]SegmentSeries, 0, len(order))
	for _, value := range order {
		out = append(out, *grouped[value])
	}
	return out
}

// displayDomain strips scheme, www prefix, and path from an inferred
// domain URL for use in alert payloads.
func displayDomain(domain string) string {
	d := strings.TrimPrefix(domain, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if idx := strings.Index(d, "/"); idx >= 0 {
		d = d[:idx]
	}
	return d
}
