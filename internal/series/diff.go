package series

import (
	"fmt"

	"github.com/miradorstack/poolscope/internal/models"
	"github.com/miradorstack/poolscope/internal/utils"
)

// DiffComputer derives allocation-count series from the interval counters each snapshot
// already reports. It never differences successive snapshots, so a tag's first appearance
// carries its own reported interval value.
type DiffComputer struct {
	builder *Builder
}

// NewDiffComputer constructs a DiffComputer sharing the builder's alignment rules.
func NewDiffComputer(builder *Builder) *DiffComputer {
	if builder == nil {
		builder = NewBuilder(nil, false)
	}
	return &DiffComputer{builder: builder}
}

// Compute produces the series set for a diff metric. TotalDiff is PagedDiff + NonPagedDiff.
func (d *DiffComputer) Compute(snapshots []models.Snapshot, metric models.Metric) (models.SeriesSet, error) {
	var project Projection
	switch metric {
	case models.MetricPagedDiff:
		project = func(r models.TagRecord) float64 { return float64(r.PagedDiff) }
	case models.MetricNonPagedDiff:
		project = func(r models.TagRecord) float64 { return float64(r.NonPagedDiff) }
	case models.MetricTotalDiff:
		project = func(r models.TagRecord) float64 { return float64(r.TotalDiff()) }
	default:
		return models.SeriesSet{}, utils.NewAppError("compute diff", string(metric),
			utils.WithKind(models.ErrInvalidSelectionParameters, fmt.Errorf("not a diff metric")))
	}
	return d.builder.align(snapshots, metric, project), nil
}

// ForMetric routes raw metrics to the builder and diff metrics to the diff computer.
func ForMetric(builder *Builder, snapshots []models.Snapshot, metric models.Metric) (models.SeriesSet, error) {
	if builder == nil {
		builder = NewBuilder(nil, false)
	}
	if metric.IsDiff() {
		return NewDiffComputer(builder).Compute(snapshots, metric)
	}
	return builder.Build(snapshots, metric)
}
