package models

// CorrelationScope picks which tags enter the correlation matrix.
type CorrelationScope string

const (
	ScopeSelectedOnly CorrelationScope = "selected"
	ScopeAllTags      CorrelationScope = "all"
)

// Valid reports whether s is a known scope.
func (s CorrelationScope) Valid() bool {
	return s == ScopeSelectedOnly || s == ScopeAllTags
}

// CorrelationMatrix holds pairwise Pearson coefficients over Tags.
// Values[i][j] is the coefficient between Tags[i] and Tags[j].
type CorrelationMatrix struct {
	Metric Metric
	Scope  CorrelationScope
	Tags   []string
	Values [][]float64
}

// At returns the coefficient for a tag pair and whether both tags are in the matrix.
func (m CorrelationMatrix) At(a, b string) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

func (m CorrelationMatrix) index(tag string) int {
	for i, t := range m.Tags {
		if t == tag {
			return i
		}
	}
	return -1
}
