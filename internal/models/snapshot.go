package models

import "time"

// TimestampSource selects which collection timestamp orders the snapshots.
type TimestampSource string

const (
	// TimestampLocal uses the sampler's local collection time.
	TimestampLocal TimestampSource = "DateTime"
	// TimestampUTC uses the sampler's UTC collection time.
	TimestampUTC TimestampSource = "DateTimeUTC"
)

// Valid reports whether s is a recognised timestamp column.
func (s TimestampSource) Valid() bool {
	return s == TimestampLocal || s == TimestampUTC
}

// TagRecord holds the raw counters reported for one tag in one snapshot.
type TagRecord struct {
	PagedAllocs       int64
	PagedFrees        int64
	PagedDiff         int64
	PagedUsedBytes    int64
	NonPagedAllocs    int64
	NonPagedFrees     int64
	NonPagedDiff      int64
	NonPagedUsedBytes int64
	TotalUsedBytes    int64
}

// TotalDiff is the combined interval allocation delta.
func (r TagRecord) TotalDiff() int64 {
	return r.PagedDiff + r.NonPagedDiff
}

// Add returns the field-wise sum of r and o.
func (r TagRecord) Add(o TagRecord) TagRecord {
	return TagRecord{
		PagedAllocs:       r.PagedAllocs + o.PagedAllocs,
		PagedFrees:        r.PagedFrees + o.PagedFrees,
		PagedDiff:         r.PagedDiff + o.PagedDiff,
		PagedUsedBytes:    r.PagedUsedBytes + o.PagedUsedBytes,
		NonPagedAllocs:    r.NonPagedAllocs + o.NonPagedAllocs,
		NonPagedFrees:     r.NonPagedFrees + o.NonPagedFrees,
		NonPagedDiff:      r.NonPagedDiff + o.NonPagedDiff,
		NonPagedUsedBytes: r.NonPagedUsedBytes + o.NonPagedUsedBytes,
		TotalUsedBytes:    r.TotalUsedBytes + o.TotalUsedBytes,
	}
}

// Snapshot is one point-in-time capture of per-tag pool usage.
type Snapshot struct {
	Source    string
	Timestamp time.Time
	Rows      map[string]TagRecord
}
