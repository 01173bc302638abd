package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/poolscope/internal/models"
)

// Config captures every setting an analysis run needs.
type Config struct {
	Input       InputConfig       `yaml:"input"`
	Selection   SelectionConfig   `yaml:"selection"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Output      OutputConfig      `yaml:"output"`
}

// InputConfig locates the snapshot files.
type InputConfig struct {
	Directory       string `yaml:"directory"`
	Pattern         string `yaml:"pattern"`
	TimestampSource string `yaml:"timestampSource"`
}

// SelectionConfig controls which tags are plotted.
type SelectionConfig struct {
	Metric              string   `yaml:"metric"`
	Include             []string `yaml:"include"`
	Exclude             []string `yaml:"exclude"`
	HighestPeak         int      `yaml:"highestPeak"`
	HighestAverage      int      `yaml:"highestAverage"`
	MostChangedPercent  int      `yaml:"mostChangedPercent"`
	MostChangedAbsolute int      `yaml:"mostChangedAbsolute"`
	Epsilon             float64  `yaml:"epsilon"`
	IncludeTotal        bool     `yaml:"includeTotal"`
}

// CorrelationConfig controls the optional correlation matrix.
type CorrelationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Scope   string `yaml:"scope"`
	Metric  string `yaml:"metric"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls where run metrics are exported at exit.
type MetricsConfig struct {
	Textfile       string `yaml:"textfile"`
	PushgatewayURL string `yaml:"pushgatewayURL"`
	Job            string `yaml:"job"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `yaml:"format"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("POOLSCOPE_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Input: InputConfig{
			Directory:       ".",
			Pattern:         "*pool.csv",
			TimestampSource: string(models.TimestampLocal),
		},
		Selection: SelectionConfig{
			Metric:              string(models.MetricTotalUsedBytes),
			HighestPeak:         5,
			HighestAverage:      5,
			MostChangedPercent:  5,
			MostChangedAbsolute: 5,
			Epsilon:             models.DefaultEpsilon,
			IncludeTotal:        true,
		},
		Correlation: CorrelationConfig{
			Enabled: false,
			Scope:   string(models.ScopeSelectedOnly),
			Metric:  string(models.MetricTotalDiff),
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Metrics: MetricsConfig{Job: "poolscope"},
		Output:  OutputConfig{Format: "table"},
	}
}

// SelectionParams converts the selection section into selector parameters.
func (c SelectionConfig) SelectionParams() models.SelectionParams {
	return models.SelectionParams{
		Include:             append([]string(nil), c.Include...),
		Exclude:             append([]string(nil), c.Exclude...),
		HighestPeak:         c.HighestPeak,
		HighestAverage:      c.HighestAverage,
		MostChangedPercent:  c.MostChangedPercent,
		MostChangedAbsolute: c.MostChangedAbsolute,
		Epsilon:             c.Epsilon,
		IncludeTotal:        c.IncludeTotal,
	}
}

// SplitList splits a comma or whitespace separated tag list, dropping empties.
func SplitList(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POOLSCOPE_DIRECTORY"); v != "" {
		cfg.Input.Directory = v
	}
	if v := os.Getenv("POOLSCOPE_PATTERN"); v != "" {
		cfg.Input.Pattern = v
	}
	if v := os.Getenv("POOLSCOPE_TIMESTAMP"); v != "" {
		cfg.Input.TimestampSource = v
	}
	if v := os.Getenv("POOLSCOPE_METRIC"); v != "" {
		cfg.Selection.Metric = v
	}
	if v := os.Getenv("POOLSCOPE_INCLUDE_TAGS"); v != "" {
		cfg.Selection.Include = SplitList(v)
	}
	if v := os.Getenv("POOLSCOPE_EXCLUDE_TAGS"); v != "" {
		cfg.Selection.Exclude = SplitList(v)
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setInt("POOLSCOPE_N_HIGHEST", &cfg.Selection.HighestPeak)
	setInt("POOLSCOPE_N_HIGHEST_AVERAGE", &cfg.Selection.HighestAverage)
	setInt("POOLSCOPE_N_MOST_CHANGED_PERCENT", &cfg.Selection.MostChangedPercent)
	setInt("POOLSCOPE_N_MOST_CHANGED", &cfg.Selection.MostChangedAbsolute)
	if v := os.Getenv("POOLSCOPE_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Selection.Epsilon = f
		}
	}
	if v := os.Getenv("POOLSCOPE_INCLUDE_TOTAL"); v != "" {
		cfg.Selection.IncludeTotal = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("POOLSCOPE_CORRELATION"); v != "" {
		cfg.Correlation.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("POOLSCOPE_CORRELATION_SCOPE"); v != "" {
		cfg.Correlation.Scope = v
	}
	if v := os.Getenv("POOLSCOPE_CORRELATION_METRIC"); v != "" {
		cfg.Correlation.Metric = v
	}
	if v := os.Getenv("POOLSCOPE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("POOLSCOPE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("POOLSCOPE_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	if v := os.Getenv("POOLSCOPE_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("POOLSCOPE_OUTPUT"); v != "" {
		cfg.Output.Format = v
	}
}
