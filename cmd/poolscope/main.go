package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/miradorstack/poolscope/internal/config"
	"github.com/miradorstack/poolscope/internal/engine"
	"github.com/miradorstack/poolscope/internal/loader"
	"github.com/miradorstack/poolscope/internal/metrics"
	"github.com/miradorstack/poolscope/internal/models"
	"github.com/miradorstack/poolscope/internal/report"
	"github.com/miradorstack/poolscope/internal/utils"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("poolscope failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "poolscope",
		Usage: "Select and correlate kernel pool tags from periodic usage snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to configuration file"},
			&cli.StringFlag{Name: "directory", Aliases: []string{"d"}, Usage: "The directory where the CSV files reside"},
			&cli.StringFlag{Name: "pattern", Usage: "Glob matching snapshot files"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Metric to plot: TotalUsedBytes, PagedUsedBytes, NonPagedUsedBytes, TotalDiff, PagedDiff, NonPagedDiff"},
			&cli.StringFlag{Name: "time-stamp", Aliases: []string{"ts"}, Usage: "Which timestamp to use: DateTime or DateTimeUTC"},
			&cli.StringSliceFlag{Name: "include-tags", Aliases: []string{"it"}, Usage: "Tags that must be included, repeated (-it A -it B) or comma separated (-it A,B)"},
			&cli.StringSliceFlag{Name: "exclude-tags", Aliases: []string{"et"}, Usage: "Tags that must be excluded, repeated (-et A -et B) or comma separated (-et A,B)"},
			&cli.IntFlag{Name: "n-highest-usage-tags", Aliases: []string{"nh"}, Usage: "Number of tags with the highest peak usage"},
			&cli.IntFlag{Name: "n-highest-average-usage-tags", Aliases: []string{"nha"}, Usage: "Number of tags with the highest average usage"},
			&cli.IntFlag{Name: "n-most-changed-tags", Aliases: []string{"nmc", "nmcp"}, Usage: "Number of tags with the highest percentage growth"},
			&cli.IntFlag{Name: "n-most-changed-absolute-tags", Aliases: []string{"nmca"}, Usage: "Number of tags with the highest absolute growth"},
			&cli.BoolFlag{Name: "no-total", Usage: "Leave the TOTAL pseudo-tag out of the selection"},
			&cli.BoolFlag{Name: "correlation", Aliases: []string{"c"}, Usage: "Correlate the selected tags"},
			&cli.BoolFlag{Name: "correlation-extended", Aliases: []string{"ce"}, Usage: "Correlate every tag"},
			&cli.StringFlag{Name: "correlation-metric", Usage: "Metric sampled for correlation"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Report format: table or json"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "log-json", Usage: "Emit JSON logs"},
			&cli.StringFlag{Name: "metrics-textfile", Usage: "Write run metrics to a node_exporter textfile"},
			&cli.StringFlag{Name: "pushgateway-url", Usage: "Push run metrics to a Prometheus Pushgateway"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	// Flag parsing stops at the first positional argument, so anything left over
	// means later flags were never applied.
	if c.NArg() > 0 {
		return utils.NewAppError("parse arguments", strings.Join(c.Args().Slice(), " "),
			utils.WithKind(models.ErrInvalidSelectionParameters,
				fmt.Errorf("unexpected positional arguments; pass tag lists as -it A -it B or -it A,B")))
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(c, cfg)

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	defer func() {
		if err := metrics.Flush(reg, cfg.Metrics.Textfile, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.Warn("metrics export failed", slog.Any("error", err))
		}
	}()

	req, err := buildRequest(cfg)
	if err != nil {
		return err
	}

	pipeline := engine.NewPipeline(
		logger,
		loader.NewLoader(logger, cfg.Input.Pattern),
		engine.NewTagSelector(logger),
		engine.NewCorrelationEngine(logger),
	)

	result, err := pipeline.Run(req)
	if err != nil {
		return err
	}

	chart := report.Build(result)
	out := c.App.Writer
	switch cfg.Output.Format {
	case "json":
		return report.WriteJSON(out, chart)
	default:
		if err := report.WriteSummary(out, chart); err != nil {
			return err
		}
		report.WriteTable(out, chart)
		if chart.Matrix != nil {
			fmt.Fprintf(out, "\ncorrelation (%s, %s)\n", chart.Matrix.Metric, chart.Matrix.Scope)
			report.WriteMatrix(out, *chart.Matrix)
		}
	}
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("directory") {
		cfg.Input.Directory = c.String("directory")
	}
	if c.IsSet("pattern") {
		cfg.Input.Pattern = c.String("pattern")
	}
	if c.IsSet("type") {
		cfg.Selection.Metric = c.String("type")
	}
	if c.IsSet("time-stamp") {
		cfg.Input.TimestampSource = c.String("time-stamp")
	}
	if c.IsSet("include-tags") {
		cfg.Selection.Include = c.StringSlice("include-tags")
	}
	if c.IsSet("exclude-tags") {
		cfg.Selection.Exclude = c.StringSlice("exclude-tags")
	}
	if c.IsSet("n-highest-usage-tags") {
		cfg.Selection.HighestPeak = c.Int("n-highest-usage-tags")
	}
	if c.IsSet("n-highest-average-usage-tags") {
		cfg.Selection.HighestAverage = c.Int("n-highest-average-usage-tags")
	}
	if c.IsSet("n-most-changed-tags") {
		cfg.Selection.MostChangedPercent = c.Int("n-most-changed-tags")
	}
	if c.IsSet("n-most-changed-absolute-tags") {
		cfg.Selection.MostChangedAbsolute = c.Int("n-most-changed-absolute-tags")
	}
	if c.Bool("no-total") {
		cfg.Selection.IncludeTotal = false
	}
	if c.Bool("correlation") {
		cfg.Correlation.Enabled = true
		cfg.Correlation.Scope = string(models.ScopeSelectedOnly)
	}
	if c.Bool("correlation-extended") {
		cfg.Correlation.Enabled = true
		cfg.Correlation.Scope = string(models.ScopeAllTags)
	}
	if c.IsSet("correlation-metric") {
		cfg.Correlation.Metric = c.String("correlation-metric")
	}
	if c.IsSet("output") {
		cfg.Output.Format = c.String("output")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.Bool("log-json") {
		cfg.Logging.JSON = true
	}
	if c.IsSet("metrics-textfile") {
		cfg.Metrics.Textfile = c.String("metrics-textfile")
	}
	if c.IsSet("pushgateway-url") {
		cfg.Metrics.PushgatewayURL = c.String("pushgateway-url")
	}
}

// buildRequest resolves metric names case-insensitively; anything unknown is left for
// Request.Validate to report alongside the other parameter problems.
func buildRequest(cfg *config.Config) (engine.Request, error) {
	metric := models.Metric(cfg.Selection.Metric)
	if m, err := models.ParseMetric(cfg.Selection.Metric); err == nil {
		metric = m
	}
	corrMetric := models.Metric(cfg.Correlation.Metric)
	if m, err := models.ParseMetric(cfg.Correlation.Metric); err == nil {
		corrMetric = m
	}

	switch cfg.Output.Format {
	case "table", "json":
	default:
		return engine.Request{}, utils.NewAppError("build request", "output",
			utils.WithKind(models.ErrInvalidSelectionParameters, fmt.Errorf("unknown output format %q", cfg.Output.Format)))
	}

	return engine.Request{
		Directory:       cfg.Input.Directory,
		TimestampSource: models.TimestampSource(cfg.Input.TimestampSource),
		Metric:          metric,
		Selection:       cfg.Selection.SelectionParams(),
		Correlation: engine.CorrelationRequest{
			Enabled: cfg.Correlation.Enabled,
			Scope:   models.CorrelationScope(cfg.Correlation.Scope),
			Metric:  corrMetric,
		},
	}, nil
}
