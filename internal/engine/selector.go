package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/poolscope/internal/models"
	"github.com/miradorstack/poolscope/internal/utils"
)

var validate = validator.New()

// ValidateSelection reports every unusable selection parameter in one error.
func ValidateSelection(params models.SelectionParams) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return utils.WithKind(models.ErrInvalidSelectionParameters, err)
	}
	var result *multierror.Error
	for _, fe := range verrs {
		result = multierror.Append(result, describeFieldError(fe))
	}
	return utils.WithKind(models.ErrInvalidSelectionParameters, result.ErrorOrNil())
}

func describeFieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "gte":
		return fmt.Errorf("%s must be >= %s, got %v", fe.Namespace(), fe.Param(), fe.Value())
	case "required":
		return fmt.Errorf("%s must not be empty", fe.Namespace())
	}
	return fmt.Errorf("%s fails %s", fe.Namespace(), fe.Tag())
}

// TagSelector picks a bounded set of tags worth displaying.
type TagSelector struct {
	logger *slog.Logger
}

// NewTagSelector constructs a TagSelector.
func NewTagSelector(logger *slog.Logger) *TagSelector {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagSelector{logger: logger}
}

// Stats summarises a series for ranking. Percentage growth is expressed in percent.
func Stats(series models.TagSeries, epsilon float64) models.TagStats {
	st := models.TagStats{Tag: series.Tag}
	values := series.Values()
	if len(values) == 0 {
		return st
	}
	if epsilon <= 0 {
		epsilon = models.DefaultEpsilon
	}

	st.Peak = floats.Max(values)
	st.Mean = stat.Mean(values, nil)
	st.First = values[0]
	st.Last = values[len(values)-1]
	st.GrowthAbs = st.Last - st.First
	st.GrowthPercent = 100 * st.GrowthAbs / max(st.First, epsilon)
	return st
}

// Select unions the top-N tags of each criterion with the include list. Excluded tags never
// rank; an include always wins, and a tag in both lists is reported in Selection.Warnings.
func (s *TagSelector) Select(set models.SeriesSet, params models.SelectionParams) (models.Selection, error) {
	if err := ValidateSelection(params); err != nil {
		return models.Selection{}, utils.NewAppError("select tags", "validate", err)
	}

	excluded := make(map[string]struct{}, len(params.Exclude))
	for _, tag := range params.Exclude {
		excluded[tag] = struct{}{}
	}

	selection := models.Selection{
		Ranked:  make(map[models.Criterion][]string, len(models.Criteria)),
		Reasons: make(map[string][]models.Criterion),
		Stats:   make(map[string]models.TagStats),
	}

	// Candidates stay in lexicographic order so stable sorts break ties by name.
	candidates := make([]models.TagStats, 0, len(set.Series))
	for _, tag := range set.Tags() {
		if tag == models.TotalTag {
			continue
		}
		if _, skip := excluded[tag]; skip {
			continue
		}
		candidates = append(candidates, Stats(set.Series[tag], params.Epsilon))
	}

	for _, criterion := range models.Criteria {
		ranked := rank(candidates, criterion, params.Count(criterion))
		selection.Ranked[criterion] = ranked
		for _, tag := range ranked {
			addReason(&selection, tag, criterion)
		}
		if len(ranked) > 0 {
			s.logger.Info("tags selected", slog.String("criterion", criterion.Describe()), slog.Any("tags", ranked))
		}
	}

	for _, tag := range uniqueStrings(params.Include) {
		if _, both := excluded[tag]; both {
			warning := fmt.Errorf("%w: %s", models.ErrContradictoryTagFilter, tag)
			selection.Warnings = append(selection.Warnings, warning)
			s.logger.Warn("tag both included and excluded, including", slog.String("tag", tag))
		}
		if _, known := set.Series[tag]; !known {
			s.logger.Warn("included tag not present in any snapshot", slog.String("tag", tag))
		}
		addReason(&selection, tag, models.CriterionIncluded)
	}
	selection.Ranked[models.CriterionIncluded] = uniqueStrings(params.Include)

	if params.IncludeTotal {
		_, ok := set.Series[models.TotalTag]
		_, dropped := excluded[models.TotalTag]
		if _, forced := selection.Reasons[models.TotalTag]; ok && (forced || !dropped) {
			addReason(&selection, models.TotalTag, models.CriterionTotal)
		}
	}

	for tag := range selection.Reasons {
		series, _ := set.Get(tag)
		selection.Stats[tag] = Stats(series, params.Epsilon)
	}

	return selection, nil
}

func addReason(sel *models.Selection, tag string, c models.Criterion) {
	for _, existing := range sel.Reasons[tag] {
		if existing == c {
			return
		}
	}
	sel.Reasons[tag] = append(sel.Reasons[tag], c)
}

func rank(candidates []models.TagStats, criterion models.Criterion, n int) []string {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	ordered := append([]models.TagStats(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score(criterion) > ordered[j].Score(criterion)
	})
	if len(ordered) > n {
		ordered = ordered[:n]
	}
	tags := make([]string, len(ordered))
	for i, st := range ordered {
		tags[i] = st.Tag
	}
	return tags
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
