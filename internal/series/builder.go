// Package series merges snapshots into dense per-tag time series.
package series

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/poolscope/internal/models"
	"github.com/miradorstack/poolscope/internal/utils"
)

// Projection extracts one metric value from a tag record.
type Projection func(models.TagRecord) float64

// Builder aligns snapshots into one series per tag for raw byte metrics.
type Builder struct {
	logger    *slog.Logger
	withTotal bool
}

// NewBuilder constructs a Builder. withTotal adds the synthetic TOTAL series.
func NewBuilder(logger *slog.Logger, withTotal bool) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, withTotal: withTotal}
}

// Universe returns the sorted union of tag names across all snapshots.
func Universe(snapshots []models.Snapshot) []string {
	seen := make(map[string]struct{})
	for _, snap := range snapshots {
		for tag := range snap.Rows {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Build produces the series set for a raw byte metric.
func (b *Builder) Build(snapshots []models.Snapshot, metric models.Metric) (models.SeriesSet, error) {
	var project Projection
	switch metric {
	case models.MetricTotalUsedBytes:
		project = func(r models.TagRecord) float64 { return float64(r.TotalUsedBytes) }
	case models.MetricPagedUsedBytes:
		project = func(r models.TagRecord) float64 { return float64(r.PagedUsedBytes) }
	case models.MetricNonPagedUsedBytes:
		project = func(r models.TagRecord) float64 { return float64(r.NonPagedUsedBytes) }
	default:
		return models.SeriesSet{}, utils.NewAppError("build series", string(metric),
			utils.WithKind(models.ErrInvalidSelectionParameters, fmt.Errorf("not a raw metric")))
	}
	return b.align(snapshots, metric, project), nil
}

// align emits exactly one value per snapshot per tag; tags absent from a snapshot read as zero.
func (b *Builder) align(snapshots []models.Snapshot, metric models.Metric, project Projection) models.SeriesSet {
	timestamps := make([]time.Time, len(snapshots))
	for i, snap := range snapshots {
		timestamps[i] = snap.Timestamp
	}

	tags := Universe(snapshots)
	set := models.SeriesSet{
		Metric:     metric,
		Timestamps: timestamps,
		Series:     make(map[string]models.TagSeries, len(tags)+1),
	}

	for _, tag := range tags {
		points := make([]models.Point, len(snapshots))
		for i, snap := range snapshots {
			points[i] = models.Point{Timestamp: snap.Timestamp}
			if row, ok := snap.Rows[tag]; ok {
				points[i].Value = project(row)
			}
		}
		set.Series[tag] = models.TagSeries{Tag: tag, Metric: metric, Points: points}
	}

	if b.withTotal {
		points := make([]models.Point, len(snapshots))
		for i, snap := range snapshots {
			var sum models.TagRecord
			for _, row := range snap.Rows {
				sum = sum.Add(row)
			}
			points[i] = models.Point{Timestamp: snap.Timestamp, Value: project(sum)}
		}
		set.Series[models.TotalTag] = models.TagSeries{Tag: models.TotalTag, Metric: metric, Points: points}
	}

	b.logger.Debug("series aligned",
		slog.String("metric", string(metric)),
		slog.Int("tags", len(tags)),
		slog.Int("snapshots", len(snapshots)),
	)
	return set
}
