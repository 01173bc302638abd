package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/miradorstack/poolscope/internal/metrics"
	"github.com/miradorstack/poolscope/internal/models"
	"github.com/miradorstack/poolscope/internal/series"
	"github.com/miradorstack/poolscope/internal/utils"
)

// SnapshotSource loads the ordered snapshots the pipeline analyses.
type SnapshotSource interface {
	LoadDir(dir string, source models.TimestampSource) ([]models.Snapshot, error)
}

// Request describes one analysis run.
type Request struct {
	Directory       string
	TimestampSource models.TimestampSource
	Metric          models.Metric
	Selection       models.SelectionParams
	Correlation     CorrelationRequest
}

// CorrelationRequest enables the correlation matrix for a run.
type CorrelationRequest struct {
	Enabled bool
	Scope   models.CorrelationScope
	Metric  models.Metric
}

// Result is everything a run hands to the plotting side.
type Result struct {
	Snapshots int
	Series    models.SeriesSet
	Selection models.Selection
	Matrix    *models.CorrelationMatrix
}

// Pipeline runs load, build, select and correlate in a single pass.
type Pipeline struct {
	logger     *slog.Logger
	source     SnapshotSource
	selector   *TagSelector
	correlator *CorrelationEngine
}

// NewPipeline constructs a pipeline; nil collaborators fall back to defaults.
func NewPipeline(logger *slog.Logger, source SnapshotSource, selector *TagSelector, correlator *CorrelationEngine) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = NewTagSelector(logger)
	}
	if correlator == nil {
		correlator = NewCorrelationEngine(logger)
	}
	return &Pipeline{
		logger:     logger,
		source:     source,
		selector:   selector,
		correlator: correlator,
	}
}

// Validate reports every request problem before any file is read.
func (r Request) Validate() error {
	var result *multierror.Error
	if r.Directory == "" {
		result = multierror.Append(result, fmt.Errorf("directory is required"))
	}
	if !r.TimestampSource.Valid() {
		result = multierror.Append(result, fmt.Errorf("unknown timestamp source %q", r.TimestampSource))
	}
	if !r.Metric.Valid() {
		result = multierror.Append(result, fmt.Errorf("unknown metric %q", r.Metric))
	}
	if r.Correlation.Enabled {
		if !r.Correlation.Scope.Valid() {
			result = multierror.Append(result, fmt.Errorf("unknown correlation scope %q", r.Correlation.Scope))
		}
		if r.Correlation.Metric != "" && !r.Correlation.Metric.Valid() {
			result = multierror.Append(result, fmt.Errorf("unknown correlation metric %q", r.Correlation.Metric))
		}
	}
	if err := ValidateSelection(r.Selection); err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			result = multierror.Append(result, merr.Errors...)
		} else {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return utils.WithKind(models.ErrInvalidSelectionParameters, err)
	}
	return nil
}

// Run executes the analysis and records run metrics.
func (p *Pipeline) Run(req Request) (Result, error) {
	start := time.Now()
	result, err := p.run(req)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveRun(time.Since(start), outcome)
	return result, err
}

func (p *Pipeline) run(req Request) (Result, error) {
	const op = "analyze"
	if err := req.Validate(); err != nil {
		return Result{}, utils.NewAppError(op, "parameters", err)
	}
	if p.source == nil {
		return Result{}, utils.NewAppError(op, "snapshot source not configured", nil)
	}

	snapshots, err := p.source.LoadDir(req.Directory, req.TimestampSource)
	if err != nil {
		return Result{}, err
	}

	builder := series.NewBuilder(p.logger, req.Selection.IncludeTotal)
	plotSet, err := series.ForMetric(builder, snapshots, req.Metric)
	if err != nil {
		return Result{}, err
	}
	universe := len(series.Universe(snapshots))
	metrics.ObserveDataset(len(snapshots), universe)
	p.logger.Info("series built",
		slog.Int("snapshots", len(snapshots)),
		slog.Int("tags", universe),
		slog.String("metric", string(req.Metric)),
		slog.Float64("span_minutes", snapshotSpan(snapshots)),
	)

	selection, err := p.selector.Select(plotSet, req.Selection)
	if err != nil {
		return Result{}, err
	}
	metrics.ObserveSelection(selection)

	result := Result{
		Snapshots: len(snapshots),
		Series:    plotSet,
		Selection: selection,
	}

	if req.Correlation.Enabled {
		corrSet := plotSet
		if m := req.Correlation.Metric; m != "" && m != req.Metric {
			corrSet, err = series.ForMetric(builder, snapshots, m)
			if err != nil {
				return Result{}, err
			}
		}
		matrix, err := p.correlator.Compute(corrSet, req.Correlation.Scope, &selection)
		if err != nil {
			return Result{}, err
		}
		result.Matrix = &matrix
	}

	return result, nil
}

func snapshotSpan(snapshots []models.Snapshot) float64 {
	times := make([]time.Time, len(snapshots))
	for i, snap := range snapshots {
		times[i] = snap.Timestamp
	}
	return utils.SpanMinutes(times)
}
