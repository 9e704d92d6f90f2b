package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"scrollchart/models"
	"scrollchart/signals"
	"scrollchart/store"
)

const (
	DEFAULT_POLL_INTERVAL = time.Second
	DEFAULT_FRAME_RATE    = 30
	DEFAULT_MAX_POINTS    = 100
	SYSTEM_CHART          = "system"
)

// Config is the YAML chart file.
type Config struct {
	PollInterval time.Duration         `yaml:"poll_interval"`
	FrameRate    int                   `yaml:"frame_rate"`
	Charts       []ChartConfig         `yaml:"charts"`
	Metrics      map[string]MetricSpec `yaml:"metrics"`
	Signals      []signals.Signal      `yaml:"signals"`
}

type ChartConfig struct {
	Key           string         `yaml:"key"`
	Title         string         `yaml:"title"`
	MaxPoints     int            `yaml:"max_points"`
	WindowSeconds float64        `yaml:"window_seconds"`
	AutoScroll    *bool          `yaml:"auto_scroll"`
	AutoScale     *bool          `yaml:"auto_scale"`
	Lookback      int            `yaml:"lookback"`
	NonNegative   bool           `yaml:"non_negative"`
	MetricDefault *bool          `yaml:"metric_defaults"`
	XRange        []float64      `yaml:"x_range"`
	YRange        []float64      `yaml:"y_range"`
	Series        []SeriesConfig `yaml:"series"`
}

type SeriesConfig struct {
	Name   string `yaml:"name"`
	Colour string `yaml:"colour"`
}

// MetricSpec adds or overrides a metric table row. A metric with both bounds gets a canonical range.
type MetricSpec struct {
	YMin      *float64 `yaml:"y_min"`
	YMax      *float64 `yaml:"y_max"`
	Unit      string   `yaml:"unit"`
	Label     string   `yaml:"label"`
	RandomMin float64  `yaml:"random_min"`
	RandomMax float64  `yaml:"random_max"`
}

// DefaultConfig is a single system chart with the three headline metrics.
func DefaultConfig() *Config {
	return &Config{
		PollInterval: DEFAULT_POLL_INTERVAL,
		FrameRate:    DEFAULT_FRAME_RATE,
		Charts: []ChartConfig{
			{
				Key:       SYSTEM_CHART,
				Title:     "System",
				MaxPoints: DEFAULT_MAX_POINTS,
				Series: []SeriesConfig{
					{Name: store.CPU_METRIC},
					{Name: store.MEMORY_METRIC},
					{Name: store.TEMPERATURE_METRIC},
				},
			},
		},
	}
}

// Load reads path, or returns DefaultConfig when path is empty or missing.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadFromReader(f)
}

func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks everything that doesn't need a chart to be built.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval %v must be positive: %w", c.PollInterval, models.ErrInvalidArgument)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate %d must be positive: %w", c.FrameRate, models.ErrInvalidArgument)
	}
	if len(c.Charts) == 0 {
		return fmt.Errorf("no charts configured: %w", models.ErrInvalidArgument)
	}
	seen := make(map[string]bool, len(c.Charts))
	for i, chart := range c.Charts {
		if chart.Key == "" {
			return fmt.Errorf("chart %d has no key: %w", i, models.ErrInvalidArgument)
		}
		if seen[chart.Key] {
			return fmt.Errorf("chart %q defined twice: %w", chart.Key, models.ErrInvalidArgument)
		}
		seen[chart.Key] = true
		for _, axis := range [][]float64{chart.XRange, chart.YRange} {
			if axis != nil && len(axis) != 2 {
				return fmt.Errorf("chart %q axis range needs [min, max]: %w", chart.Key, models.ErrInvalidArgument)
			}
		}
	}
	for name, m := range c.Metrics {
		if m.RandomMax < m.RandomMin {
			return fmt.Errorf("metric %q random band [%v, %v]: %w", name, m.RandomMin, m.RandomMax, models.ErrInvalidArgument)
		}
	}
	return nil
}

// FrameInterval is the render period implied by FrameRate.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// MetricTable is the default table plus the file's overrides.
func (c *Config) MetricTable() *store.MetricTable {
	table := store.NewMetricTable()
	for name, m := range c.Metrics {
		d := store.MetricDefaults{
			Metric:    models.Metric{Unit: m.Unit, Label: m.Label},
			RandomMin: m.RandomMin,
			RandomMax: m.RandomMax,
		}
		if d.Label == "" {
			d.Label = store.UnknownMetric.Label
		}
		if m.YMin != nil && m.YMax != nil && *m.YMax > *m.YMin {
			d.Fixed, d.YMin, d.YMax = true, *m.YMin, *m.YMax
		}
		if d.RandomMin == 0 && d.RandomMax == 0 {
			d.RandomMin, d.RandomMax = store.UnknownMetric.RandomMin, store.UnknownMetric.RandomMax
		}
		table.Register(name, d)
	}
	return table
}

// SignalTable returns nil when the file defines no signals.
func (c *Config) SignalTable() (*signals.Table, error) {
	if len(c.Signals) == 0 {
		return nil, nil
	}
	return signals.NewTable(c.Signals)
}

// BuildCharts creates every configured chart with its series registered.
func (c *Config) BuildCharts(metrics *store.MetricTable, publisher models.Publisher) ([]*models.Chart, error) {
	charts := make([]*models.Chart, 0, len(c.Charts))
	for _, cc := range c.Charts {
		chartCfg := models.ChartConfig{
			Title:         cc.Title,
			MaxPoints:     cc.MaxPoints,
			WindowSeconds: cc.WindowSeconds,
			AutoScroll:    boolOr(cc.AutoScroll, true),
			AutoScale:     boolOr(cc.AutoScale, true),
			Lookback:      cc.Lookback,
			NonNegative:   cc.NonNegative,
			Palette:       store.Palette(),
		}
		if chartCfg.Title == "" {
			chartCfg.Title = cc.Key
		}
		if chartCfg.MaxPoints == 0 {
			chartCfg.MaxPoints = DEFAULT_MAX_POINTS
		}
		if boolOr(cc.MetricDefault, true) && metrics != nil {
			chartCfg.Metrics = metrics
		}
		if cc.XRange != nil {
			chartCfg.FixedX = &models.Range{XMin: cc.XRange[0], XMax: cc.XRange[1], YMin: 0, YMax: 1}
		}
		if cc.YRange != nil {
			chartCfg.FixedY = &models.Range{XMin: 0, XMax: 1, YMin: cc.YRange[0], YMax: cc.YRange[1]}
		}

		chart, err := models.NewChart(cc.Key, chartCfg, publisher)
		if err != nil {
			return nil, err
		}
		for _, s := range cc.Series {
			if err := chart.AddSeries(s.Name, s.Colour); err != nil {
				return nil, fmt.Errorf("chart %q: %w", cc.Key, err)
			}
		}
		charts = append(charts, chart)
	}
	return charts, nil
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
