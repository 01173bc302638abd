package models

import "sort"

// Criterion names one ranking used by the tag selector.
type Criterion string

const (
	CriterionHighestPeak    Criterion = "highest_peak"
	CriterionHighestAverage Criterion = "highest_average"
	CriterionMostChangedPct Criterion = "most_changed_percentage"
	CriterionMostChangedAbs Criterion = "most_changed_absolute"
	CriterionIncluded       Criterion = "included"
	CriterionTotal          Criterion = "total"
)

// Criteria lists the ranking criteria in evaluation order.
var Criteria = []Criterion{
	CriterionHighestPeak,
	CriterionHighestAverage,
	CriterionMostChangedPct,
	CriterionMostChangedAbs,
}

// Describe returns the human label used when explaining a selection.
func (c Criterion) Describe() string {
	switch c {
	case CriterionHighestPeak:
		return "HIGHEST PEAK USAGE"
	case CriterionHighestAverage:
		return "HIGHEST AVERAGE USAGE"
	case CriterionMostChangedPct:
		return "GREATEST PERCENT INCREASE"
	case CriterionMostChangedAbs:
		return "GREATEST INCREASE"
	case CriterionIncluded:
		return "EXPLICITLY INCLUDED"
	case CriterionTotal:
		return "TOTAL"
	default:
		return string(c)
	}
}

// DefaultEpsilon guards percentage growth against a zero first value.
const DefaultEpsilon = 0.001

// SelectionParams configures the tag selector. A zero count disables its criterion.
type SelectionParams struct {
	Include             []string `validate:"dive,required"`
	Exclude             []string `validate:"dive,required"`
	HighestPeak         int      `validate:"gte=0"`
	HighestAverage      int      `validate:"gte=0"`
	MostChangedPercent  int      `validate:"gte=0"`
	MostChangedAbsolute int      `validate:"gte=0"`

	// Epsilon floors the first value when computing percentage growth.
	Epsilon      float64 `validate:"gte=0"`
	IncludeTotal bool
}

// TagStats summarises one tag series for ranking.
type TagStats struct {
	Tag           string  `json:"tag"`
	Peak          float64 `json:"peak"`
	Mean          float64 `json:"mean"`
	First         float64 `json:"first"`
	Last          float64 `json:"last"`
	GrowthAbs     float64 `json:"growth"`
	GrowthPercent float64 `json:"growthPercent"`
}

// Selection is the immutable outcome of one tag selection.
type Selection struct {
	// Ranked holds each criterion's top-N tags in rank order.
	Ranked map[Criterion][]string

	// Reasons maps each selected tag to the criteria that picked it.
	Reasons map[string][]Criterion

	Stats    map[string]TagStats
	Warnings []error
}

// Count returns the top-N requested for a ranking criterion.
func (p SelectionParams) Count(c Criterion) int {
	switch c {
	case CriterionHighestPeak:
		return p.HighestPeak
	case CriterionHighestAverage:
		return p.HighestAverage
	case CriterionMostChangedPct:
		return p.MostChangedPercent
	case CriterionMostChangedAbs:
		return p.MostChangedAbsolute
	}
	return 0
}

// Score returns the ranking value of st under a criterion.
func (st TagStats) Score(c Criterion) float64 {
	switch c {
	case CriterionHighestPeak:
		return st.Peak
	case CriterionHighestAverage:
		return st.Mean
	case CriterionMostChangedPct:
		return st.GrowthPercent
	case CriterionMostChangedAbs:
		return st.GrowthAbs
	}
	return 0
}

// Tags returns the selected tags in lexicographic order.
func (s Selection) Tags() []string {
	tags := make([]string, 0, len(s.Reasons))
	for tag := range s.Reasons {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Contains reports whether tag was selected.
func (s Selection) Contains(tag string) bool {
	_, ok := s.Reasons[tag]
	return ok
}

// Len returns the number of selected tags.
func (s Selection) Len() int {
	return len(s.Reasons)
}
