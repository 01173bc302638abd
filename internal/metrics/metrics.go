package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/miradorstack/poolscope/internal/models"
)

const (
	// OutcomeSuccess labels analysis runs that produced a report.
	OutcomeSuccess = "success"
	// OutcomeError labels analysis runs aborted by bad input or parameters.
	OutcomeError = "error"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poolscope",
			Name:      "runs_total",
			Help:      "Total number of analysis runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "poolscope",
			Name:      "run_seconds",
			Help:      "Analysis run latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	snapshotsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolscope",
		Name:      "snapshots_loaded",
		Help:      "Number of snapshot files in the last run.",
	})

	tagsObserved = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolscope",
		Name:      "tags_observed",
		Help:      "Size of the tag universe in the last run.",
	})

	tagsSelected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolscope",
		Name:      "tags_selected",
		Help:      "Size of the selection set in the last run.",
	})

	criterionTags = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "poolscope",
			Name:      "selection_tags",
			Help:      "Tags contributed by each selection criterion in the last run.",
		},
		[]string{"criterion"},
	)
)

// Register attaches poolscope collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		snapshotsLoaded,
		tagsObserved,
		tagsSelected,
		criterionTags,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveDataset records the size of the analysed dataset.
func ObserveDataset(snapshots, tags int) {
	snapshotsLoaded.Set(float64(snapshots))
	tagsObserved.Set(float64(tags))
}

// ObserveSelection records the selection size and each criterion's contribution.
func ObserveSelection(sel models.Selection) {
	tagsSelected.Set(float64(sel.Len()))
	for criterion, tags := range sel.Ranked {
		criterionTags.WithLabelValues(string(criterion)).Set(float64(len(tags)))
	}
}

// Flush exports gathered metrics at the end of a batch run. An empty textfile path or
// pushgateway URL skips that exporter.
func Flush(g prometheus.Gatherer, textfile, pushURL, job string) error {
	if textfile != "" {
		if err := prometheus.WriteToTextfile(textfile, g); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if pushURL != "" {
		if job == "" {
			job = "poolscope"
		}
		if err := push.New(pushURL, job).Gatherer(g).Push(); err != nil {
			return fmt.Errorf("push metrics: %w", err)
		}
	}
	return nil
}
