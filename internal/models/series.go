package models

import (
	"sort"
	"time"
)

// TotalTag is the reserved pseudo-tag summing every tag within a snapshot.
const TotalTag = "TOTAL"

// Point is one (timestamp, value) observation.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// TagSeries is a dense, timestamp-ordered series for one tag and metric.
type TagSeries struct {
	Tag    string
	Metric Metric
	Points []Point
}

// Values returns the series values in timestamp order.
func (s TagSeries) Values() []float64 {
	values := make([]float64, len(s.Points))
	for i, p := range s.Points {
		values[i] = p.Value
	}
	return values
}

// SeriesSet maps every tag in the universe to its aligned series for one metric.
type SeriesSet struct {
	Metric     Metric
	Timestamps []time.Time
	Series     map[string]TagSeries
}

// Tags returns the tag universe in lexicographic order.
func (s SeriesSet) Tags() []string {
	tags := make([]string, 0, len(s.Series))
	for tag := range s.Series {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Get returns the series for tag; an unknown tag yields an all-zero series on the same axis.
func (s SeriesSet) Get(tag string) (TagSeries, bool) {
	if series, ok := s.Series[tag]; ok {
		return series, true
	}
	points := make([]Point, len(s.Timestamps))
	for i, ts := range s.Timestamps {
		points[i] = Point{Timestamp: ts}
	}
	return TagSeries{Tag: tag, Metric: s.Metric, Points: points}, false
}
