package models

import (
	"fmt"
	"strings"
)

// Metric names one projection of a TagRecord into a series value.
type Metric string

const (
	MetricTotalUsedBytes    Metric = "TotalUsedBytes"
	MetricPagedUsedBytes    Metric = "PagedUsedBytes"
	MetricNonPagedUsedBytes Metric = "NonPagedUsedBytes"
	MetricTotalDiff         Metric = "TotalDiff"
	MetricPagedDiff         Metric = "PagedDiff"
	MetricNonPagedDiff      Metric = "NonPagedDiff"
)

// Metrics lists every supported metric, raw byte metrics first.
var Metrics = []Metric{
	MetricTotalUsedBytes,
	MetricPagedUsedBytes,
	MetricNonPagedUsedBytes,
	MetricTotalDiff,
	MetricPagedDiff,
	MetricNonPagedDiff,
}

// ParseMetric resolves a metric name case-insensitively.
func ParseMetric(name string) (Metric, error) {
	for _, m := range Metrics {
		if strings.EqualFold(string(m), name) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", name)
}

// Valid reports whether m is one of the supported metrics.
func (m Metric) Valid() bool {
	for _, known := range Metrics {
		if m == known {
			return true
		}
	}
	return false
}

// IsDiff reports whether m is an interval allocation-count metric.
func (m Metric) IsDiff() bool {
	return m == MetricTotalDiff || m == MetricPagedDiff || m == MetricNonPagedDiff
}

// IsBytes reports whether m is a point-in-time byte usage metric.
func (m Metric) IsBytes() bool {
	return m.Valid() && !m.IsDiff()
}
