package store

import (
	"maps"
	"strings"

	"scrollchart/models"
)

const (
	CPU_METRIC              = "cpu"
	CPU_TOTAL_METRIC        = "cpu total"
	GPU_CORE_METRIC         = "gpu core"
	GPU_MEMORY_METRIC       = "gpu memory"
	DISK_METRIC             = "disk"
	MEMORY_METRIC           = "memory"
	MEMORY_USED_METRIC      = "memory used"
	TEMPERATURE_METRIC      = "temperature"
	NETWORK_UPLOAD_METRIC   = "network upload"
	NETWORK_DOWNLOAD_METRIC = "network download"
	LOAD_METRIC             = "load"
)

// MetricDefaults is one row of the metric table.
type MetricDefaults struct {
	models.Metric
	// RandomMin and RandomMax bound the values the random fallback provider invents.
	RandomMin float64
	RandomMax float64
}

var percentage = MetricDefaults{models.Metric{Fixed: true, YMin: 0, YMax: 100, Unit: "%", Label: "Usage (%)"}, 10, 90}

var defaultMetrics = map[string]MetricDefaults{
	CPU_METRIC:              percentage,
	CPU_TOTAL_METRIC:        percentage,
	GPU_CORE_METRIC:         percentage,
	GPU_MEMORY_METRIC:       percentage,
	DISK_METRIC:             percentage,
	MEMORY_METRIC:           {models.Metric{Fixed: true, YMin: 0, YMax: 32, Unit: "GB", Label: "Memory (GB)"}, 8, 24},
	MEMORY_USED_METRIC:      {models.Metric{Fixed: true, YMin: 0, YMax: 32, Unit: "GB", Label: "Memory (GB)"}, 8, 24},
	TEMPERATURE_METRIC:      {models.Metric{Fixed: true, YMin: 0, YMax: 100, Unit: "°C", Label: "Temperature (°C)"}, 30, 80},
	NETWORK_UPLOAD_METRIC:   {models.Metric{Fixed: true, YMin: 0, YMax: 1000, Unit: "Mbps", Label: "Speed (Mbps)"}, 0, 500},
	NETWORK_DOWNLOAD_METRIC: {models.Metric{Fixed: true, YMin: 0, YMax: 1000, Unit: "Mbps", Label: "Speed (Mbps)"}, 0, 500},
	LOAD_METRIC:             {models.Metric{Label: "Load average"}, 0, 4},
}

// UnknownMetric is returned for names the table doesn't know: auto-scaled, no unit.
var UnknownMetric = MetricDefaults{models.Metric{Label: "Value"}, 10, 90}

// MetricTable maps normalised metric names to their defaults. Each table is independent, so
// registering a metric on one never leaks into another.
type MetricTable struct {
	metrics map[string]MetricDefaults
}

func NewMetricTable() *MetricTable {
	return &MetricTable{metrics: maps.Clone(defaultMetrics)}
}

func NormaliseMetric(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (t *MetricTable) Register(name string, defaults MetricDefaults) {
	t.metrics[NormaliseMetric(name)] = defaults
}

// Defaults returns the row for name and whether the table recognised it.
func (t *MetricTable) Defaults(name string) (MetricDefaults, bool) {
	d, ok := t.metrics[NormaliseMetric(name)]
	if !ok {
		return UnknownMetric, false
	}
	return d, true
}

func (t *MetricTable) Lookup(name string) models.Metric {
	d, _ := t.Defaults(name)
	return d.Metric
}

// DefaultPalette cycles for series added without a colour.
var DefaultPalette = []string{
	"#4BC0C0", // teal
	"#FF6384", // red
	"#36A2EB", // blue
	"#FFCD56", // yellow
	"#9966FF", // purple
	"#FF9F40", // orange
	"#C7C7C7", // grey
	"#5366FF", // indigo
}

func Palette() []string {
	return append([]string(nil), DefaultPalette...)
}
