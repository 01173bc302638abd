package utils

import (
	"fmt"
	"strings"
	"time"
)

// SnapshotLayout is the sampler's timestamp layout, without zone.
const SnapshotLayout = "2006-01-02T15:04:05"

// ParseSnapshotTime parses a sampler timestamp in loc.
func ParseSnapshotTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(SnapshotLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// SpanMinutes returns the minutes between the earliest and latest of times.
func SpanMinutes(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}
	first, last := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	return last.Sub(first).Minutes()
}
