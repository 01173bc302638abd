package series

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/poolscope/internal/models"
)

func snapshotsAt(rows ...map[string]models.TagRecord) []models.Snapshot {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	snaps := make([]models.Snapshot, len(rows))
	for i, r := range rows {
		snaps[i] = models.Snapshot{Timestamp: start.Add(time.Duration(i) * time.Minute), Rows: r}
	}
	return snaps
}

func TestBuildAlignsEverySeries(t *testing.T) {
	snaps := snapshotsAt(
		map[string]models.TagRecord{"Tag1": {TotalUsedBytes: 10}, "Tag2": {TotalUsedBytes: 5}},
		map[string]models.TagRecord{"Tag2": {TotalUsedBytes: 5}},
		map[string]models.TagRecord{"Tag1": {TotalUsedBytes: 30}, "Tag3": {TotalUsedBytes: 7}},
	)

	set, err := NewBuilder(nil, false).Build(snaps, models.MetricTotalUsedBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"Tag1", "Tag2", "Tag3"}, set.Tags()); diff != "" {
		t.Fatalf("unexpected universe (-want +got):\n%s", diff)
	}
	for tag, s := range set.Series {
		if len(s.Points) != len(snaps) {
			t.Fatalf("series %s has %d points, want %d", tag, len(s.Points), len(snaps))
		}
		for i, p := range s.Points {
			if !p.Timestamp.Equal(snaps[i].Timestamp) {
				t.Fatalf("series %s point %d misaligned", tag, i)
			}
		}
	}

	// Absent from the second snapshot reads as zero, not a gap.
	if diff := cmp.Diff([]float64{10, 0, 30}, set.Series["Tag1"].Values()); diff != "" {
		t.Fatalf("unexpected Tag1 values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{0, 0, 7}, set.Series["Tag3"].Values()); diff != "" {
		t.Fatalf("unexpected Tag3 values (-want +got):\n%s", diff)
	}
}

func TestBuildWithTotal(t *testing.T) {
	snaps := snapshotsAt(
		map[string]models.TagRecord{"A": {PagedUsedBytes: 1}, "B": {PagedUsedBytes: 2}},
		map[string]models.TagRecord{"A": {PagedUsedBytes: 4}},
	)

	set, err := NewBuilder(nil, true).Build(snaps, models.MetricPagedUsedBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]float64{3, 4}, set.Series[models.TotalTag].Values()); diff != "" {
		t.Fatalf("unexpected TOTAL values (-want +got):\n%s", diff)
	}
}

func TestBuildRejectsDiffMetric(t *testing.T) {
	_, err := NewBuilder(nil, false).Build(nil, models.MetricTotalDiff)
	if !errors.Is(err, models.ErrInvalidSelectionParameters) {
		t.Fatalf("expected ErrInvalidSelectionParameters, got %v", err)
	}
}

func TestDiffComputer(t *testing.T) {
	snaps := snapshotsAt(
		map[string]models.TagRecord{"Old": {PagedDiff: 2, NonPagedDiff: 3}},
		map[string]models.TagRecord{"Old": {PagedDiff: 1, NonPagedDiff: 1}, "New": {PagedDiff: 40, NonPagedDiff: 2}},
	)

	dc := NewDiffComputer(nil)
	cases := []struct {
		metric models.Metric
		old    []float64
		fresh  []float64
	}{
		{models.MetricPagedDiff, []float64{2, 1}, []float64{0, 40}},
		{models.MetricNonPagedDiff, []float64{3, 1}, []float64{0, 2}},
		{models.MetricTotalDiff, []float64{5, 2}, []float64{0, 42}},
	}
	for _, tc := range cases {
		set, err := dc.Compute(snaps, tc.metric)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.metric, err)
		}
		if diff := cmp.Diff(tc.old, set.Series["Old"].Values()); diff != "" {
			t.Fatalf("%s Old (-want +got):\n%s", tc.metric, diff)
		}
		// First appearance carries the reported interval value, never a delta against zero.
		if diff := cmp.Diff(tc.fresh, set.Series["New"].Values()); diff != "" {
			t.Fatalf("%s New (-want +got):\n%s", tc.metric, diff)
		}
	}

	if _, err := dc.Compute(snaps, models.MetricTotalUsedBytes); !errors.Is(err, models.ErrInvalidSelectionParameters) {
		t.Fatalf("expected ErrInvalidSelectionParameters, got %v", err)
	}
}

func TestForMetricRoutes(t *testing.T) {
	snaps := snapshotsAt(map[string]models.TagRecord{"A": {TotalUsedBytes: 9, PagedDiff: 1}})
	for _, m := range models.Metrics {
		set, err := ForMetric(nil, snaps, m)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", m, err)
		}
		if set.Metric != m {
			t.Fatalf("expected metric %s, got %s", m, set.Metric)
		}
	}
}
