// Package report packages analysis results for the plotting side and renders them.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/miradorstack/poolscope/internal/engine"
	"github.com/miradorstack/poolscope/internal/models"
)

// Chart is the finalized, time-aligned data a plotter draws.
type Chart struct {
	Metric     models.Metric
	Timestamps []time.Time
	Series     []models.TagSeries
	Selection  models.Selection
	Matrix     *models.CorrelationMatrix
}

// Build extracts the selected tags' series from a run result. Tags missing from every
// snapshot are handed off as zero series on the shared axis.
func Build(res engine.Result) Chart {
	tags := res.Selection.Tags()
	chart := Chart{
		Metric:     res.Series.Metric,
		Timestamps: res.Series.Timestamps,
		Series:     make([]models.TagSeries, 0, len(tags)),
		Selection:  res.Selection,
		Matrix:     res.Matrix,
	}
	for _, tag := range tags {
		series, _ := res.Series.Get(tag)
		chart.Series = append(chart.Series, series)
	}
	return chart
}

// WriteSummary prints which criterion picked which tags.
func WriteSummary(w io.Writer, chart Chart) error {
	criteria := append(append([]models.Criterion(nil), models.Criteria...), models.CriterionIncluded)
	for _, c := range criteria {
		tags := chart.Selection.Ranked[c]
		if len(tags) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "tags with %-25s: [%s]\n", c.Describe(), strings.Join(tags, " ")); err != nil {
			return err
		}
	}
	for _, warning := range chart.Selection.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %v\n", warning); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders per-tag statistics for the selection.
func WriteTable(w io.Writer, chart Chart) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Tag", "Selected by", "First", "Last", "Peak", "Mean", "Growth", "Growth %"})

	alignments := []int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT}
	for i := 0; i < 6; i++ {
		alignments = append(alignments, tablewriter.ALIGN_RIGHT)
	}
	table.SetColumnAlignment(alignments)

	for _, s := range chart.Series {
		st := chart.Selection.Stats[s.Tag]
		reasons := make([]string, 0, len(chart.Selection.Reasons[s.Tag]))
		for _, c := range chart.Selection.Reasons[s.Tag] {
			reasons = append(reasons, string(c))
		}
		table.Append([]string{
			s.Tag,
			strings.Join(reasons, ","),
			FormatValue(chart.Metric, st.First),
			FormatValue(chart.Metric, st.Last),
			FormatValue(chart.Metric, st.Peak),
			FormatValue(chart.Metric, st.Mean),
			FormatValue(chart.Metric, st.GrowthAbs),
			fmt.Sprintf("%.1f", st.GrowthPercent),
		})
	}
	table.Render()
}

// WriteMatrix renders a correlation matrix with three decimals.
func WriteMatrix(w io.Writer, m models.CorrelationMatrix) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(append([]string{string(m.Metric)}, m.Tags...))
	for i, tag := range m.Tags {
		row := make([]string, 0, len(m.Tags)+1)
		row = append(row, tag)
		for _, v := range m.Values[i] {
			row = append(row, fmt.Sprintf("%.3f", v))
		}
		table.Append(row)
	}
	table.Render()
}

// FormatValue renders byte metrics in IEC units and count metrics as grouped integers.
func FormatValue(metric models.Metric, v float64) string {
	if metric.IsBytes() {
		sign := ""
		if v < 0 {
			sign = "-"
		}
		return sign + humanize.IBytes(uint64(math.Abs(v)))
	}
	rounded := math.Round(v)
	if rounded == v {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 2)
}

type jsonPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type jsonSeries struct {
	Tag     string             `json:"tag"`
	Reasons []models.Criterion `json:"reasons"`
	Stats   models.TagStats    `json:"stats"`
	Points  []jsonPoint        `json:"points"`
}

type jsonMatrix struct {
	Metric models.Metric           `json:"metric"`
	Scope  models.CorrelationScope `json:"scope"`
	Tags   []string                `json:"tags"`
	Values [][]float64             `json:"values"`
}

type jsonChart struct {
	Metric   models.Metric `json:"metric"`
	Series   []jsonSeries  `json:"series"`
	Matrix   *jsonMatrix   `json:"correlation,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

// WriteJSON encodes the chart for an external plotter.
func WriteJSON(w io.Writer, chart Chart) error {
	out := jsonChart{Metric: chart.Metric, Series: make([]jsonSeries, 0, len(chart.Series))}
	for _, s := range chart.Series {
		points := make([]jsonPoint, len(s.Points))
		for i, p := range s.Points {
			points[i] = jsonPoint{Timestamp: p.Timestamp, Value: p.Value}
		}
		out.Series = append(out.Series, jsonSeries{
			Tag:     s.Tag,
			Reasons: chart.Selection.Reasons[s.Tag],
			Stats:   chart.Selection.Stats[s.Tag],
			Points:  points,
		})
	}
	if m := chart.Matrix; m != nil {
		out.Matrix = &jsonMatrix{Metric: m.Metric, Scope: m.Scope, Tags: m.Tags, Values: m.Values}
	}
	for _, warning := range chart.Selection.Warnings {
		out.Warnings = append(out.Warnings, warning.Error())
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
