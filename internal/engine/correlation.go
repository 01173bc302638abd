package engine

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/poolscope/internal/models"
	"github.com/miradorstack/poolscope/internal/utils"
)

// CorrelationEngine computes pairwise Pearson coefficients between aligned tag series.
type CorrelationEngine struct {
	logger *slog.Logger
}

// NewCorrelationEngine constructs a CorrelationEngine.
func NewCorrelationEngine(logger *slog.Logger) *CorrelationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrelationEngine{logger: logger}
}

// Compute builds the symmetric matrix over the tags in scope. ScopeSelectedOnly requires a
// selection; ScopeAllTags uses every real tag in the set and leaves out TOTAL.
func (e *CorrelationEngine) Compute(set models.SeriesSet, scope models.CorrelationScope, selection *models.Selection) (models.CorrelationMatrix, error) {
	const op = "correlate"
	var tags []string
	switch scope {
	case models.ScopeSelectedOnly:
		if selection == nil {
			return models.CorrelationMatrix{}, utils.NewAppError(op, string(scope),
				utils.WithKind(models.ErrInvalidSelectionParameters, fmt.Errorf("selected scope needs a selection")))
		}
		tags = selection.Tags()
	case models.ScopeAllTags:
		for _, tag := range set.Tags() {
			if tag != models.TotalTag {
				tags = append(tags, tag)
			}
		}
	default:
		return models.CorrelationMatrix{}, utils.NewAppError(op, string(scope),
			utils.WithKind(models.ErrInvalidSelectionParameters, fmt.Errorf("unknown correlation scope")))
	}

	if set.Metric.IsBytes() {
		e.logger.Warn("correlating a byte metric, allocation counts are usually more telling", slog.String("metric", string(set.Metric)))
	}

	samples := make([][]float64, len(tags))
	for i, tag := range tags {
		series, _ := set.Get(tag)
		samples[i] = series.Values()
	}

	values := make([][]float64, len(tags))
	for i := range values {
		values[i] = make([]float64, len(tags))
	}
	for i := range tags {
		for j := i; j < len(tags); j++ {
			r := Pearson(samples[i], samples[j])
			values[i][j] = r
			values[j][i] = r
		}
	}

	e.logger.Debug("correlation computed", slog.String("scope", string(scope)), slog.Int("tags", len(tags)))
	return models.CorrelationMatrix{Metric: set.Metric, Scope: scope, Tags: tags, Values: values}, nil
}

// Pearson returns the correlation coefficient of two aligned samples.
//
// A sample with zero variance, including an all-zero or single-point sample, has no defined
// coefficient. Such pairs report 0.0 so the matrix stays displayable; this also applies to a
// constant sample paired with itself.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	if constant(x) || constant(y) {
		return 0
	}
	if sameSample(x, y) {
		return 1
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func sameSample(x, y []float64) bool {
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
