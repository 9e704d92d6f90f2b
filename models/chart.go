package models

import (
	"fmt"

	"scrollchart/events"
)

// Metric is what the metric table knows about a well known series name.
type Metric struct {
	// Fixed reports whether YMin and YMax are a canonical range, unknown metrics auto-scale.
	Fixed bool
	YMin  float64
	YMax  float64
	Unit  string
	Label string
}

// MetricTable resolves series names to their canonical ranges and labels.
type MetricTable interface {
	Lookup(name string) Metric
}

// Publisher receives one event per inserted point.
type Publisher interface {
	Broadcast(event *events.Event)
}

type ChartConfig struct {
	Title string
	// MaxPoints is the capacity of every series buffer.
	MaxPoints int
	// WindowSeconds turns on age based eviction: points at or older than latestX - WindowSeconds are dropped.
	WindowSeconds float64
	// AutoScroll makes the x range track the newest data. Turning it off freezes the visible range.
	AutoScroll bool
	// AutoScale recomputes the y range from buffered values. When false, series the metric table
	// recognises use their canonical range and everything else still auto-scales.
	AutoScale bool
	// Lookback limits auto-scaling to the newest N points, 0 uses everything buffered.
	Lookback int
	// NonNegative clamps auto-scaled lower bounds at zero.
	NonNegative bool
	// FixedX and FixedY override everything above when set.
	FixedX *Range
	FixedY *Range
	// Metrics and Palette are optional.
	Metrics MetricTable
	Palette []string
}

// Chart keeps a bounded, scrolling buffer of samples per named series.
//
// A Chart is not safe for concurrent use. All calls must come from the goroutine that owns it,
// producers on other goroutines have to hand their samples over first.
type Chart struct {
	key       string
	cfg       ChartConfig
	publisher Publisher

	series map[string]*Series
	// order keeps series in the order they were added
	order       []string
	colourIndex int

	// frozen holds the ranges captured when auto scroll was switched off
	frozen map[string]Range
	// dirty is set by anything that changes what a renderer should show
	dirty bool
}

func NewChart(key string, cfg ChartConfig, publisher Publisher) (*Chart, error) {
	if cfg.MaxPoints <= 0 {
		return nil, fmt.Errorf("chart %q max points %d: %w", key, cfg.MaxPoints, ErrInvalidArgument)
	}
	if cfg.WindowSeconds < 0 || !isFinite(cfg.WindowSeconds) {
		return nil, fmt.Errorf("chart %q window %v: %w", key, cfg.WindowSeconds, ErrInvalidArgument)
	}
	if cfg.Lookback < 0 {
		return nil, fmt.Errorf("chart %q lookback %d: %w", key, cfg.Lookback, ErrInvalidArgument)
	}
	for _, fixed := range []*Range{cfg.FixedX, cfg.FixedY} {
		if fixed != nil && !fixed.valid() {
			return nil, fmt.Errorf("chart %q fixed range %+v: %w", key, *fixed, ErrInvalidArgument)
		}
	}
	c := &Chart{
		key:       key,
		cfg:       cfg,
		publisher: publisher,
		series:    make(map[string]*Series),
		dirty:     true,
	}
	if !cfg.AutoScroll {
		c.frozen = make(map[string]Range)
	}
	return c, nil
}

func (c *Chart) Key() string {
	return c.key
}

func (c *Chart) Title() string {
	return c.cfg.Title
}

func (c *Chart) MaxPoints() int {
	return c.cfg.MaxPoints
}

func (c *Chart) WindowSeconds() float64 {
	return c.cfg.WindowSeconds
}

// AddSeries registers an empty series. An empty colour picks the next palette entry.
func (c *Chart) AddSeries(name, colour string) error {
	if name == "" {
		return fmt.Errorf("add series: empty name: %w", ErrInvalidArgument)
	}
	if _, ok := c.series[name]; ok {
		return fmt.Errorf("add series %q: %w", name, ErrDuplicateSeries)
	}
	if colour == "" && len(c.cfg.Palette) > 0 {
		colour = c.cfg.Palette[c.colourIndex%len(c.cfg.Palette)]
		c.colourIndex++
	}
	s := newSeries(name, colour, c.cfg.MaxPoints)
	if c.cfg.Metrics != nil {
		metric := c.cfg.Metrics.Lookup(name)
		s.unit = metric.Unit
		s.label = metric.Label
		if metric.Fixed {
			s.canonical = &Range{YMin: metric.YMin, YMax: metric.YMax}
		}
	}
	c.series[name] = s
	c.order = append(c.order, name)
	// a series added while paused stays on its empty range until scrolling resumes
	if !c.cfg.AutoScroll {
		c.frozen[name] = c.liveRange(s)
	}
	c.dirty = true
	return nil
}

func (c *Chart) RemoveSeries(name string) bool {
	if _, ok := c.series[name]; !ok {
		return false
	}
	delete(c.series, name)
	delete(c.frozen, name)
	for i, key := range c.order {
		if key == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.dirty = true
	return true
}

func (c *Chart) HasSeries(name string) bool {
	_, ok := c.series[name]
	return ok
}

func (c *Chart) Series(name string) (*Series, bool) {
	s, ok := c.series[name]
	return s, ok
}

func (c *Chart) SeriesNames() []string {
	return append([]string(nil), c.order...)
}

func (c *Chart) AddPoint(name string, x, y float64) error {
	s, ok := c.series[name]
	if !ok {
		return fmt.Errorf("add point to %q: %w", name, ErrUnknownSeries)
	}
	point := DataPoint{x, y}
	if !point.finite() {
		return fmt.Errorf("add point (%v, %v) to %q: %w", x, y, name, ErrInvalidArgument)
	}

	s.points.push(point)
	c.evictByAge(s)
	c.markDirty(s)
	c.publish(name, point)
	return nil
}

// AddPoints appends a batch in order. Nothing is inserted unless every point is valid, and one
// event is published per point.
func (c *Chart) AddPoints(name string, points []DataPoint) error {
	s, ok := c.series[name]
	if !ok {
		return fmt.Errorf("add points to %q: %w", name, ErrUnknownSeries)
	}
	for i, p := range points {
		if !p.finite() {
			return fmt.Errorf("add points to %q: point %d (%v, %v): %w", name, i, p.x, p.y, ErrInvalidArgument)
		}
	}
	if len(points) == 0 {
		return nil
	}

	s.points.pushAll(points)
	c.evictByAge(s)
	c.markDirty(s)
	for _, p := range points {
		c.publish(name, p)
	}
	return nil
}

func (c *Chart) ClearSeries(name string) error {
	s, ok := c.series[name]
	if !ok {
		return fmt.Errorf("clear series %q: %w", name, ErrUnknownSeries)
	}
	s.points.clear()
	c.markDirty(s)
	return nil
}

func (c *Chart) ClearAll() {
	for _, s := range c.series {
		s.points.clear()
		c.markDirty(s)
	}
}

func (c *Chart) Latest(name string) (DataPoint, bool) {
	s, ok := c.series[name]
	if !ok {
		return DataPoint{}, false
	}
	return s.Latest()
}

// Points returns a copy of the named series, nil if it doesn't exist.
func (c *Chart) Points(name string) []DataPoint {
	s, ok := c.series[name]
	if !ok {
		return nil
	}
	return s.Points()
}

// SetMaxPoints changes the capacity of every series, keeping the newest points.
func (c *Chart) SetMaxPoints(maxPoints int) error {
	if maxPoints <= 0 {
		return fmt.Errorf("set max points %d: %w", maxPoints, ErrInvalidArgument)
	}
	c.cfg.MaxPoints = maxPoints
	for _, s := range c.series {
		if s.points.cap() == maxPoints {
			continue
		}
		s.points.setCap(maxPoints)
		c.markDirty(s)
	}
	return nil
}

// SetAxisRanges pins both axes regardless of buffered data.
func (c *Chart) SetAxisRanges(x, y Range) error {
	fixedX := Range{XMin: x.XMin, XMax: x.XMax, YMin: 0, YMax: 1}
	fixedY := Range{XMin: 0, XMax: 1, YMin: y.YMin, YMax: y.YMax}
	if !fixedX.valid() || !fixedY.valid() {
		return fmt.Errorf("set axis ranges x=[%v,%v] y=[%v,%v]: %w", x.XMin, x.XMax, y.YMin, y.YMax, ErrInvalidArgument)
	}
	c.cfg.FixedX = &fixedX
	c.cfg.FixedY = &fixedY
	c.dirty = true
	return nil
}

func (c *Chart) ClearAxisRanges() {
	c.cfg.FixedX = nil
	c.cfg.FixedY = nil
	c.dirty = true
}

func (c *Chart) AutoScroll() bool {
	return c.cfg.AutoScroll
}

// SetAutoScroll pauses or resumes scrolling. Pausing freezes every series at its current range.
func (c *Chart) SetAutoScroll(enabled bool) {
	if enabled == c.cfg.AutoScroll {
		return
	}
	if enabled {
		c.frozen = nil
	} else {
		frozen := make(map[string]Range, len(c.series))
		for name, s := range c.series {
			frozen[name] = c.liveRange(s)
		}
		c.frozen = frozen
	}
	c.cfg.AutoScroll = enabled
	c.dirty = true
}

func (c *Chart) ToggleAutoScroll() bool {
	c.SetAutoScroll(!c.cfg.AutoScroll)
	return c.cfg.AutoScroll
}

// VisibleRange reports what a renderer should show for the named series. Unknown series get
// DefaultRange alongside ErrUnknownSeries.
func (c *Chart) VisibleRange(name string) (Range, error) {
	s, ok := c.series[name]
	if !ok {
		return DefaultRange, fmt.Errorf("visible range of %q: %w", name, ErrUnknownSeries)
	}
	return c.seriesRange(s), nil
}

// Range is the union of every series' visible range, for charts sharing one pair of axes.
func (c *Chart) Range() Range {
	var (
		union Range
		found bool
	)
	for _, name := range c.order {
		s := c.series[name]
		if s.points.len() == 0 {
			continue
		}
		r := c.seriesRange(s)
		if !found {
			union, found = r, true
			continue
		}
		union = union.Union(r)
	}
	if !found {
		return c.emptyRange()
	}
	return union
}

// Dirty reports whether anything changed since the last TakeDirty.
func (c *Chart) Dirty() bool {
	return c.dirty
}

// TakeDirty returns the series changed since the last call, in insertion order, and resets
// every dirty flag.
func (c *Chart) TakeDirty() []string {
	var names []string
	for _, name := range c.order {
		s := c.series[name]
		if s.dirty {
			names = append(names, name)
			s.dirty = false
		}
	}
	c.dirty = false
	return names
}

func (c *Chart) markDirty(s *Series) {
	s.dirty = true
	c.dirty = true
}

func (c *Chart) publish(name string, p DataPoint) {
	if c.publisher == nil {
		return
	}
	c.publisher.Broadcast(&events.Event{ChartKey: c.key, SeriesKey: name, X: p.x, Y: p.y})
}

func (c *Chart) evictByAge(s *Series) {
	if c.cfg.WindowSeconds <= 0 || s.points.len() == 0 {
		return
	}
	s.evictOlderThan(s.points.back().x - c.cfg.WindowSeconds)
}

func (c *Chart) seriesRange(s *Series) Range {
	if !c.cfg.AutoScroll {
		if r, ok := c.frozen[s.key]; ok {
			return r
		}
	}
	return c.liveRange(s)
}

func (c *Chart) liveRange(s *Series) Range {
	r := c.emptyRange()
	if s.points.len() == 0 {
		if !c.cfg.AutoScale && s.canonical != nil && c.cfg.FixedY == nil {
			r.YMin, r.YMax = s.canonical.YMin, s.canonical.YMax
		}
		return r
	}

	if c.cfg.FixedX == nil {
		r.XMin, r.XMax = c.xRange(s)
	}
	switch {
	case c.cfg.FixedY != nil:
	case !c.cfg.AutoScale && s.canonical != nil:
		r.YMin, r.YMax = s.canonical.YMin, s.canonical.YMax
	default:
		r.YMin, r.YMax = c.yRange(s)
	}
	return r
}

// emptyRange is DefaultRange with any fixed axis applied.
func (c *Chart) emptyRange() Range {
	r := DefaultRange
	if c.cfg.FixedX != nil {
		r.XMin, r.XMax = c.cfg.FixedX.XMin, c.cfg.FixedX.XMax
	}
	if c.cfg.FixedY != nil {
		r.YMin, r.YMax = c.cfg.FixedY.YMin, c.cfg.FixedY.YMax
	}
	return r
}

func (c *Chart) xRange(s *Series) (float64, float64) {
	if c.cfg.WindowSeconds > 0 {
		latest := s.points.back().x
		return latest - c.cfg.WindowSeconds, latest
	}
	lo, hi := extent(s.points.slice(), DataPoint.X)
	return padSpan(lo, hi, 0, false)
}

func (c *Chart) yRange(s *Series) (float64, float64) {
	lo, hi := extent(s.points.tail(c.cfg.Lookback), DataPoint.Y)
	return padSpan(lo, hi, (hi-lo)*YPadding, c.cfg.NonNegative)
}
