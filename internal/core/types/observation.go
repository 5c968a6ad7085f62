package types

// MetricObservation is one day of overall measures for a property.
// Immutable once ingested.
type MetricObservation struct {
	Date               string  `json:"date"`
	Sessions           float64 `json:"sessions"`
	Users              float64 `json:"users"`
	PageViews          float64 `json:"page_views"`
	Conversions        float64 `json:"conversions"`
	BounceRate         float64 `json:"bounce_rate,omitempty"`
	AvgSessionDuration float64 `json:"avg_session_duration,omitempty"`
}

// MetricValue returns the named measure from the observation.
func (o *MetricObservation) MetricValue(m Metric) float64 {
	switch m {
	case MetricSessions:
		return o.Sessions
	case MetricUsers:
		return o.Users
	case MetricPageViews:
		return o.PageViews
	case MetricConversions:
		return o.Conversions
	default:
		return 0
	}
}

// SegmentObservation is a daily observation for one value of a slicing
// dimension. Extraction exports carry the dimension value under the
// column name native to that dimension, so all of them are accepted.
type SegmentObservation struct {
	Date               string  `json:"date"`
	Country            string  `json:"country,omitempty"`
	DeviceCategory     string  `json:"device_category,omitempty"`
	Source             string  `json:"source,omitempty"`
	Medium             string  `json:"medium,omitempty"`
	SourceMedium       string  `json:"source_medium,omitempty"`
	LandingPage        string  `json:"landing_page,omitempty"`
	Segment            string  `json:"segment,omitempty"`
	Sessions           float64 `json:"sessions"`
	Users              float64 `json:"users"`
	PageViews          float64 `json:"page_views"`
	Conversions        float64 `json:"conversions"`
	BounceRate         float64 `json:"bounce_rate,omitempty"`
	AvgSessionDuration float64 `json:"avg_session_duration,omitempty"`
}

// DimensionValue returns the segment's value for the given dimension,
// falling back to the generic segment column.
func (s *SegmentObservation) DimensionValue(dim Dimension) string {
	switch dim {
	case DimensionGeography:
		if s.Country != "" {
			return s.Country
		}
	case DimensionDevice:
		if s.DeviceCategory != "" {
			return s.DeviceCategory
		}
	case DimensionTrafficSource:
		if s.SourceMedium != "" {
			return s.SourceMedium
		}
		if s.Source != "" || s.Medium != "" {
			return s.Source + "/" + s.Medium
		}
	case DimensionLandingPage:
		if s.LandingPage != "" {
			return s.LandingPage
		}
	}
	return s.Segment
}

// MetricValue returns the named measure from the segment observation.
func (s *SegmentObservation) MetricValue(m Metric) float64 {
	switch m {
	case MetricSessions:
		return s.Sessions
	case MetricUsers:
		return s.Users
	case MetricPageViews:
		return s.PageViews
	case MetricConversions:
		return s.Conversions
	default:
		return 0
	}
}

// ClientMetadata identifies the property a clean dataset belongs to.
type ClientMetadata struct {
	PropertyID string `json:"property_id"`
	Domain     string `json:"domain,omitempty"`
	ClientName string `json:"client_name,omitempty"`
	ExportedAt string `json:"exported_at,omitempty"`
}

// PropertyData is one property's clean dataset for a run: the overall
// daily series plus whichever segment breakdowns the extraction produced.
// Missing segment arrays mean that dimension is skipped, not an error.
type PropertyData struct {
	Metadata        ClientMetadata       `json:"client_metadata"`
	CleanDataset    []MetricObservation  `json:"clean_dataset"`
	GeoSegments     []SegmentObservation `json:"geo_segments,omitempty"`
	DeviceSegments  []SegmentObservation `json:"device_segments,omitempty"`
	TrafficSegments []SegmentObservation `json:"traffic_segments,omitempty"`
	PageSegments    []SegmentObservation `json:"page_segments,omitempty"`
	QualityScore    int                  `json:"quality_score,omitempty"`
}

// Segments returns the segment observations for a dimension, or nil for
// dimensions without a breakdown (including Overall).
func (p *PropertyData) Segments(dim Dimension) []SegmentObservation {
	switch dim {
	case DimensionGeography:
		return p.GeoSegments
	case DimensionDevice:
		return p.DeviceSegments
	case DimensionTrafficSource:
		return p.TrafficSegments
	case DimensionLandingPage:
		return p.PageSegments
	default:
		return nil
	}
}

// MetricSeries is the unit of statistical analysis: one metric for one
// segment of one property, ordered by date ascending.
type MetricSeries struct {
	PropertyID     string    `json:"property_id"`
	Dimension      Dimension `json:"dimension"`
	DimensionValue string    `json:"dimension_value,omitempty"`
	Metric         Metric    `json:"metric"`
	Dates          []string  `json:"dates"`
	Values         []float64 `json:"values"`
}

// Len returns the number of observations in the series.
func (s *MetricSeries) Len() int {
	return len(s.Values)
}

// Last returns the most recent value, or 0 for an empty series.
func (s *MetricSeries) Last() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[len(s.Values)-1]
}

// LastDate returns the most recent date, or "" for an empty series.
func (s *MetricSeries) LastDate() string {
	if len(s.Dates) == 0 {
		return ""
	}
	return s.Dates[len(s.Dates)-1]
}

// Baseline returns every value except the most recent one.
func (s *MetricSeries) Baseline() []float64 {
	if len(s.Values) == 0 {
		return nil
	}
	return s.Values[:len(s.Values)-1]
}

// Tail returns up to n of the most recent values.
func (s *MetricSeries) Tail(n int) []float64 {
	if n <= 0 || len(s.Values) == 0 {
		return nil
	}
	if n >= len(s.Values) {
		return s.Values
	}
	return s.Values[len(s.Values)-n:]
}
