package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrollchart/events"
)

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Broadcast(event *events.Event) {
	p.events = append(p.events, *event)
}

type fixedMetrics map[string]Metric

func (m fixedMetrics) Lookup(name string) Metric {
	if metric, ok := m[name]; ok {
		return metric
	}
	return Metric{Label: "Value"}
}

func newTestChart(t *testing.T, cfg ChartConfig) (*Chart, *recordingPublisher) {
	t.Helper()
	publisher := &recordingPublisher{}
	if cfg.MaxPoints == 0 {
		cfg.MaxPoints = 100
	}
	c, err := NewChart("test", cfg, publisher)
	require.NoError(t, err)
	return c, publisher
}

func points(xy ...float64) []DataPoint {
	out := make([]DataPoint, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, NewDataPoint(xy[i], xy[i+1]))
	}
	return out
}

func TestNewChart_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := map[string]ChartConfig{
		"zero capacity":     {MaxPoints: 0},
		"negative capacity": {MaxPoints: -3},
		"negative window":   {MaxPoints: 10, WindowSeconds: -1},
		"negative lookback": {MaxPoints: 10, Lookback: -1},
		"inverted fixed y":  {MaxPoints: 10, FixedY: &Range{0, 1, 5, 1}},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewChart("bad", cfg, nil)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestAddSeries(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{Palette: []string{"#111111", "#222222"}})

	require.NoError(t, c.AddSeries("cpu", ""))
	require.NoError(t, c.AddSeries("mem", "#abcdef"))
	require.NoError(t, c.AddSeries("temp", ""))

	assert.ErrorIs(t, c.AddSeries("", "#000000"), ErrInvalidArgument)
	assert.ErrorIs(t, c.AddSeries("cpu", "#999999"), ErrDuplicateSeries)

	cpu, ok := c.Series("cpu")
	require.True(t, ok)
	assert.Equal(t, "#111111", cpu.Colour(), "duplicate add must not replace the original")
	mem, _ := c.Series("mem")
	assert.Equal(t, "#abcdef", mem.Colour())
	temp, _ := c.Series("temp")
	assert.Equal(t, "#222222", temp.Colour())
	assert.Equal(t, []string{"cpu", "mem", "temp"}, c.SeriesNames())
}

func TestRemoveSeries(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{})
	require.NoError(t, c.AddSeries("a", ""))
	require.NoError(t, c.AddSeries("b", ""))
	require.NoError(t, c.AddPoint("a", 0, 1))

	assert.True(t, c.RemoveSeries("a"))
	assert.False(t, c.RemoveSeries("a"))
	assert.False(t, c.HasSeries("a"))
	assert.Equal(t, []string{"b"}, c.SeriesNames())
	assert.Nil(t, c.Points("a"))

	require.NoError(t, c.AddSeries("a", ""), "a removed name can be added again")
	assert.Empty(t, c.Points("a"))
}

func TestAddPoint_CapacityEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	c, publisher := newTestChart(t, ChartConfig{MaxPoints: 3})
	require.NoError(t, c.AddSeries("T", ""))

	for i, y := range []float64{10, 20, 30, 40} {
		require.NoError(t, c.AddPoint("T", float64(i), y))
		assert.LessOrEqual(t, len(c.Points("T")), 3)
	}

	assert.Equal(t, points(1, 20, 2, 30, 3, 40), c.Points("T"))
	assert.Len(t, publisher.events, 4)
	assert.Equal(t, events.Event{ChartKey: "test", SeriesKey: "T", X: 3, Y: 40}, publisher.events[3])
}

func TestAddPoint_FIFOKeepsLastMaxPoints(t *testing.T) {
	t.Parallel()

	const maxPoints = 7
	c, _ := newTestChart(t, ChartConfig{MaxPoints: maxPoints})
	require.NoError(t, c.AddSeries("s", ""))

	var all []DataPoint
	for i := 0; i < 50; i++ {
		p := NewDataPoint(float64(i), float64(i*i%13))
		all = append(all, p)
		require.NoError(t, c.AddPoint("s", p.X(), p.Y()))
		assert.LessOrEqual(t, len(c.Points("s")), maxPoints)
	}
	assert.Equal(t, all[len(all)-maxPoints:], c.Points("s"))
}

func TestAddPoint_Errors(t *testing.T) {
	t.Parallel()

	c, publisher := newTestChart(t, ChartConfig{})
	require.NoError(t, c.AddSeries("s", ""))

	assert.ErrorIs(t, c.AddPoint("missing", 0, 1), ErrUnknownSeries)
	assert.ErrorIs(t, c.AddPoint("s", math.NaN(), 1), ErrInvalidArgument)
	assert.ErrorIs(t, c.AddPoint("s", 0, math.Inf(1)), ErrInvalidArgument)
	assert.ErrorIs(t, c.AddPoint("s", 0, math.Inf(-1)), ErrInvalidArgument)

	assert.Empty(t, c.Points("s"))
	assert.Empty(t, publisher.events)
}

func TestAddPoints_BatchLargerThanCapacity(t *testing.T) {
	t.Parallel()

	c, publisher := newTestChart(t, ChartConfig{MaxPoints: 3})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 0, 1, 1)))

	batch := points(10, 1, 11, 2, 12, 3, 13, 4, 14, 5)
	require.NoError(t, c.AddPoints("s", batch))

	assert.Equal(t, batch[2:], c.Points("s"))
	assert.Len(t, publisher.events, 7, "one event per inserted point")
	assert.Equal(t, 10.0, publisher.events[2].X)
	assert.Equal(t, 14.0, publisher.events[6].X)
}

func TestAddPoints_SmallBatchWrapsAroundExisting(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{MaxPoints: 4})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 0, 1, 1, 2, 2)))
	require.NoError(t, c.AddPoints("s", points(3, 3, 4, 4)))

	assert.Equal(t, points(1, 1, 2, 2, 3, 3, 4, 4), c.Points("s"))
}

func TestAddPoints_InvalidBatchIsAtomic(t *testing.T) {
	t.Parallel()

	c, publisher := newTestChart(t, ChartConfig{MaxPoints: 3})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoint("s", 0, 5))
	publisher.events = nil

	err := c.AddPoints("s", points(1, 1, 2, math.NaN(), 3, 3))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, points(0, 5), c.Points("s"))
	assert.Empty(t, publisher.events)

	assert.ErrorIs(t, c.AddPoints("nope", points(1, 1)), ErrUnknownSeries)
	assert.NoError(t, c.AddPoints("s", nil))
}

func TestTimeWindow_EvictsByAgeBeforeCapacity(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{MaxPoints: 100, WindowSeconds: 60, AutoScroll: true})
	require.NoError(t, c.AddSeries("elapsed", ""))

	require.NoError(t, c.AddPoint("elapsed", 0, 1))
	require.NoError(t, c.AddPoint("elapsed", 30, 2))
	require.NoError(t, c.AddPoint("elapsed", 61, 3))
	assert.Equal(t, points(30, 2, 61, 3), c.Points("elapsed"))

	require.NoError(t, c.AddPoint("elapsed", 90, 4))
	assert.Equal(t, points(61, 3, 90, 4), c.Points("elapsed"))

	r, err := c.VisibleRange("elapsed")
	require.NoError(t, err)
	assert.Equal(t, 30.0, r.XMin)
	assert.Equal(t, 90.0, r.XMax)
}

func TestTimeWindow_CapacityStillApplies(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{MaxPoints: 2, WindowSeconds: 60})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 1, 1, 2, 2, 3)))

	assert.Equal(t, points(1, 2, 2, 3), c.Points("s"))
}

func TestClearSeries_KeepsConfiguration(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{})
	require.NoError(t, c.AddSeries("cpu", "#ff0000"))
	require.NoError(t, c.AddSeries("mem", "#00ff00"))
	require.NoError(t, c.AddPoint("cpu", 0, 1))
	require.NoError(t, c.AddPoint("mem", 0, 2))

	require.NoError(t, c.ClearSeries("cpu"))
	_, ok := c.Latest("cpu")
	assert.False(t, ok)
	cpu, ok := c.Series("cpu")
	require.True(t, ok)
	assert.Equal(t, "cpu", cpu.Key())
	assert.Equal(t, "#ff0000", cpu.Colour())

	latest, ok := c.Latest("mem")
	require.True(t, ok)
	assert.Equal(t, NewDataPoint(0, 2), latest)

	c.ClearAll()
	_, ok = c.Latest("mem")
	assert.False(t, ok)
	assert.Equal(t, []string{"cpu", "mem"}, c.SeriesNames())

	assert.ErrorIs(t, c.ClearSeries("gpu"), ErrUnknownSeries)
}

func TestLatest(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{})
	_, ok := c.Latest("absent")
	assert.False(t, ok)

	require.NoError(t, c.AddSeries("s", ""))
	_, ok = c.Latest("s")
	assert.False(t, ok)

	require.NoError(t, c.AddPoints("s", points(1, 10, 2, 20)))
	latest, ok := c.Latest("s")
	require.True(t, ok)
	assert.Equal(t, 2.0, latest.X())
	assert.Equal(t, 20.0, latest.Y())
}

func TestVisibleRange_EmptyAndUnknown(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{AutoScroll: true, AutoScale: true})
	require.NoError(t, c.AddSeries("s", ""))

	r, err := c.VisibleRange("s")
	require.NoError(t, err)
	assert.Equal(t, DefaultRange, r)

	r, err = c.VisibleRange("missing")
	assert.ErrorIs(t, err, ErrUnknownSeries)
	assert.Equal(t, DefaultRange, r)
}

func TestVisibleRange_NeverCollapses(t *testing.T) {
	t.Parallel()

	tests := map[string][]DataPoint{
		"single point":   points(5, 42),
		"all equal":      points(0, 7, 1, 7, 2, 7, 3, 7),
		"equal at zero":  points(0, 0, 1, 0),
		"negative equal": points(0, -3, 1, -3),
	}
	for name, batch := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestChart(t, ChartConfig{AutoScroll: true, AutoScale: true})
			require.NoError(t, c.AddSeries("s", ""))
			require.NoError(t, c.AddPoints("s", batch))

			r, err := c.VisibleRange("s")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, r.Height(), MinimumSpan)
			assert.GreaterOrEqual(t, r.Width(), MinimumSpan)
			y := batch[0].Y()
			assert.True(t, r.YMin <= y && y <= r.YMax, "range %+v must contain %v", r, y)
		})
	}
}

func TestVisibleRange_AutoScalePadding(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{AutoScroll: true, AutoScale: true})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 10, 5, 30, 10, 20)))

	r, err := c.VisibleRange("s")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, r.YMin, 1e-9)
	assert.InDelta(t, 32.0, r.YMax, 1e-9)
	assert.Equal(t, 0.0, r.XMin)
	assert.Equal(t, 10.0, r.XMax)
}

func TestVisibleRange_NonNegativeAndLookback(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{AutoScroll: true, AutoScale: true, NonNegative: true, Lookback: 2})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 1000, 1, 0, 2, 10)))

	r, err := c.VisibleRange("s")
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.YMin, "padding below zero is clamped")
	assert.InDelta(t, 11.0, r.YMax, 1e-9, "only the last two points are scaled")
}

func TestVisibleRange_FixedRanges(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{
		AutoScroll: true,
		AutoScale:  true,
		FixedY:     &Range{0, 1, 0, 100},
	})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 500, 1, 600)))

	r, err := c.VisibleRange("s")
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.YMin)
	assert.Equal(t, 100.0, r.YMax)

	require.NoError(t, c.SetAxisRanges(Range{XMin: 0, XMax: 30}, Range{YMin: -5, YMax: 5}))
	r, err = c.VisibleRange("s")
	require.NoError(t, err)
	assert.Equal(t, Range{0, 30, -5, 5}, r)

	assert.ErrorIs(t, c.SetAxisRanges(Range{XMin: 3, XMax: 3}, Range{YMin: 0, YMax: 1}), ErrInvalidArgument)

	c.ClearAxisRanges()
	r, err = c.VisibleRange("s")
	require.NoError(t, err)
	assert.InDelta(t, 490.0, r.YMin, 1e-9)
}

func TestVisibleRange_MetricDefaults(t *testing.T) {
	t.Parallel()

	metrics := fixedMetrics{
		"temperature": {Fixed: true, YMin: 0, YMax: 100, Unit: "°C", Label: "Temperature (°C)"},
	}
	c, _ := newTestChart(t, ChartConfig{AutoScroll: true, AutoScale: false, Metrics: metrics})
	require.NoError(t, c.AddSeries("temperature", ""))
	require.NoError(t, c.AddSeries("fan", ""))

	temp, _ := c.Series("temperature")
	assert.Equal(t, "°C", temp.Unit())
	assert.Equal(t, "Temperature (°C)", temp.Label())

	r, err := c.VisibleRange("temperature")
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.YMin)
	assert.Equal(t, 100.0, r.YMax, "canonical range applies before any data")

	require.NoError(t, c.AddPoint("temperature", 0, 55))
	require.NoError(t, c.AddPoints("fan", points(0, 1200, 1, 1300)))

	r, _ = c.VisibleRange("temperature")
	assert.Equal(t, 100.0, r.YMax)

	r, _ = c.VisibleRange("fan")
	assert.InDelta(t, 1190.0, r.YMin, 1e-9, "unknown metrics fall back to auto-scaling")

	fan, _ := c.Series("fan")
	assert.Equal(t, "Value", fan.Label())
}

func TestChartRange_UnionOfSeries(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{AutoScroll: true, AutoScale: true})
	assert.Equal(t, DefaultRange, c.Range())

	require.NoError(t, c.AddSeries("a", ""))
	require.NoError(t, c.AddSeries("b", ""))
	require.NoError(t, c.AddSeries("empty", ""))
	require.NoError(t, c.AddPoints("a", points(0, 0, 10, 10)))
	require.NoError(t, c.AddPoints("b", points(5, 50, 20, 60)))

	r := c.Range()
	assert.Equal(t, 0.0, r.XMin)
	assert.Equal(t, 20.0, r.XMax)
	assert.InDelta(t, -1.0, r.YMin, 1e-9)
	assert.InDelta(t, 61.0, r.YMax, 1e-9)
}

func TestAutoScroll_PauseFreezesRange(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{AutoScroll: true, AutoScale: true})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 0, 10, 10)))
	before, _ := c.VisibleRange("s")

	assert.False(t, c.ToggleAutoScroll())
	require.NoError(t, c.AddPoint("s", 100, 1000))
	paused, _ := c.VisibleRange("s")
	assert.Equal(t, before, paused)
	assert.Len(t, c.Points("s"), 3, "pausing doesn't stop buffering")

	assert.True(t, c.ToggleAutoScroll())
	resumed, _ := c.VisibleRange("s")
	assert.Equal(t, 100.0, resumed.XMax)
}

func TestAutoScroll_OffFromTheStartHoldsRange(t *testing.T) {
	t.Parallel()

	metrics := fixedMetrics{
		"cpu": {Fixed: true, YMin: 0, YMax: 100, Unit: "%"},
	}
	c, _ := newTestChart(t, ChartConfig{AutoScroll: false, AutoScale: false, Metrics: metrics})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddSeries("cpu", ""))
	before, _ := c.VisibleRange("s")
	assert.Equal(t, DefaultRange, before)

	require.NoError(t, c.AddPoint("s", 0, 10))
	require.NoError(t, c.AddPoint("s", 50, 500))
	require.NoError(t, c.AddPoint("cpu", 50, 42))
	after, _ := c.VisibleRange("s")
	assert.Equal(t, before, after)
	cpu, _ := c.VisibleRange("cpu")
	assert.Equal(t, Range{XMin: 0, XMax: 1, YMin: 0, YMax: 100}, cpu)

	// a series added while paused is frozen too
	require.NoError(t, c.AddSeries("late", ""))
	require.NoError(t, c.AddPoint("late", 70, 7))
	late, _ := c.VisibleRange("late")
	assert.Equal(t, DefaultRange, late)

	c.SetAutoScroll(true)
	resumed, _ := c.VisibleRange("s")
	assert.Equal(t, 50.0, resumed.XMax)
}

func TestSetMaxPoints(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{MaxPoints: 5})
	require.NoError(t, c.AddSeries("s", ""))
	require.NoError(t, c.AddPoints("s", points(0, 0, 1, 1, 2, 2, 3, 3, 4, 4)))

	require.NoError(t, c.SetMaxPoints(2))
	assert.Equal(t, points(3, 3, 4, 4), c.Points("s"))
	assert.Equal(t, 2, c.MaxPoints())

	require.NoError(t, c.SetMaxPoints(4))
	require.NoError(t, c.AddPoints("s", points(5, 5, 6, 6, 7, 7)))
	assert.Equal(t, points(4, 4, 5, 5, 6, 6, 7, 7), c.Points("s"))

	assert.ErrorIs(t, c.SetMaxPoints(0), ErrInvalidArgument)
}

func TestTakeDirty(t *testing.T) {
	t.Parallel()

	c, _ := newTestChart(t, ChartConfig{})
	require.NoError(t, c.AddSeries("a", ""))
	require.NoError(t, c.AddSeries("b", ""))
	assert.Equal(t, []string{"a", "b"}, c.TakeDirty())
	assert.False(t, c.Dirty())
	assert.Empty(t, c.TakeDirty())

	require.NoError(t, c.AddPoint("b", 0, 1))
	assert.True(t, c.Dirty())
	assert.Equal(t, []string{"b"}, c.TakeDirty())

	c.RemoveSeries("a")
	assert.True(t, c.Dirty())
	assert.Empty(t, c.TakeDirty())
	assert.False(t, c.Dirty())
}

func TestCharts_AreIndependent(t *testing.T) {
	t.Parallel()

	a, _ := newTestChart(t, ChartConfig{MaxPoints: 2})
	b, _ := newTestChart(t, ChartConfig{MaxPoints: 5})
	require.NoError(t, a.AddSeries("s", ""))
	require.NoError(t, b.AddSeries("s", ""))
	require.NoError(t, a.AddPoints("s", points(0, 0, 1, 1, 2, 2)))

	assert.Len(t, a.Points("s"), 2)
	assert.Empty(t, b.Points("s"))
}
