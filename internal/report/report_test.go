package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/poolscope/internal/engine"
	"github.com/miradorstack/poolscope/internal/models"
)

func sampleResult(t *testing.T) engine.Result {
	t.Helper()
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	set := models.SeriesSet{
		Metric:     models.MetricTotalUsedBytes,
		Timestamps: []time.Time{start, start.Add(time.Minute)},
		Series: map[string]models.TagSeries{
			"Ntfs": {Tag: "Ntfs", Metric: models.MetricTotalUsedBytes, Points: []models.Point{
				{Timestamp: start, Value: 1024},
				{Timestamp: start.Add(time.Minute), Value: 4096},
			}},
		},
	}
	sel, err := engine.NewTagSelector(nil).Select(set, models.SelectionParams{
		HighestPeak: 1,
		Include:     []string{"Ghost"},
		Exclude:     []string{"Ghost"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	return engine.Result{Snapshots: 2, Series: set, Selection: sel}
}

func TestBuildIncludesZeroSeriesForUnknownTags(t *testing.T) {
	chart := Build(sampleResult(t))
	if len(chart.Series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(chart.Series))
	}
	ghost := chart.Series[0]
	if ghost.Tag != "Ghost" {
		t.Fatalf("expected Ghost first, got %s", ghost.Tag)
	}
	if diff := cmp.Diff([]float64{0, 0}, ghost.Values()); diff != "" {
		t.Fatalf("unexpected Ghost values (-want +got):\n%s", diff)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, Build(sampleResult(t))); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "HIGHEST PEAK USAGE") || !strings.Contains(out, "[Ntfs]") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "warning:") {
		t.Fatalf("expected contradictory filter warning:\n%s", out)
	}
}

func TestWriteTableHumanizesBytes(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, Build(sampleResult(t)))
	if !strings.Contains(buf.String(), "4.0 KiB") {
		t.Fatalf("expected humanized bytes:\n%s", buf.String())
	}
}

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	WriteMatrix(&buf, models.CorrelationMatrix{
		Metric: models.MetricTotalDiff,
		Tags:   []string{"A", "B"},
		Values: [][]float64{{1, -0.5}, {-0.5, 1}},
	})
	if !strings.Contains(buf.String(), "-0.500") {
		t.Fatalf("expected coefficient in output:\n%s", buf.String())
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		metric models.Metric
		value  float64
		want   string
	}{
		{models.MetricPagedUsedBytes, 2048, "2.0 KiB"},
		{models.MetricPagedUsedBytes, -2048, "-2.0 KiB"},
		{models.MetricTotalDiff, 12345, "12,345"},
		{models.MetricTotalDiff, 1.5, "1.5"},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%v", tc.metric, tc.value), func(t *testing.T) {
			if got := FormatValue(tc.metric, tc.value); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	res := sampleResult(t)
	res.Matrix = &models.CorrelationMatrix{
		Metric: models.MetricTotalUsedBytes,
		Scope:  models.ScopeSelectedOnly,
		Tags:   []string{"Ghost", "Ntfs"},
		Values: [][]float64{{0, 0}, {0, 1}},
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, Build(res)); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var decoded struct {
		Metric string `json:"metric"`
		Series []struct {
			Tag    string `json:"tag"`
			Points []struct {
				Value float64 `json:"value"`
			} `json:"points"`
		} `json:"series"`
		Correlation struct {
			Tags []string `json:"tags"`
		} `json:"correlation"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Metric != string(models.MetricTotalUsedBytes) || len(decoded.Series) != 2 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
	if decoded.Series[1].Points[1].Value != 4096 {
		t.Fatalf("unexpected Ntfs points: %+v", decoded.Series[1].Points)
	}
	if len(decoded.Correlation.Tags) != 2 || len(decoded.Warnings) != 1 {
		t.Fatalf("expected matrix and warnings: %+v", decoded)
	}
}
