// Package engine owns the charts. Every chart mutation happens on the goroutine running
// Engine.Run; drivers hand samples over through Push and renderers act through Do.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"scrollchart/drivers"
	"scrollchart/events"
	"scrollchart/models"
)

const (
	DEFAULT_POLL_INTERVAL  = time.Second
	DEFAULT_FRAME_INTERVAL = time.Second / 30
	SAMPLE_BUFFER          = 1024
	FRAME_BUFFER           = 8
)

var ErrStopped = errors.New("engine stopped")

// Ticker is the host owned timer driving polling and rendering.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

func NewTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

type Options struct {
	PollInterval  time.Duration
	FrameInterval time.Duration
	// Provider is polled every PollInterval for each series. Nil disables polling.
	Provider drivers.Provider
	Logger   *slog.Logger
	// NewTicker and Now default to the real clock.
	NewTicker func(d time.Duration) Ticker
	Now       func() time.Time
}

type Engine struct {
	charts []*models.Chart
	byKey  map[string]*models.Chart

	opts   Options
	logger *slog.Logger
	poller *drivers.Poller
	frames *events.Hub[*Frame]
	start  time.Time

	samples  chan drivers.Sample
	commands chan func()
	done     chan struct{}
}

func New(charts []*models.Chart, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DEFAULT_POLL_INTERVAL
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DEFAULT_FRAME_INTERVAL
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTicker
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		charts:   charts,
		byKey:    make(map[string]*models.Chart, len(charts)),
		opts:     opts,
		logger:   opts.Logger,
		frames:   events.NewHub[*Frame](false),
		start:    opts.Now(),
		samples:  make(chan drivers.Sample, SAMPLE_BUFFER),
		commands: make(chan func()),
		done:     make(chan struct{}),
	}
	for _, chart := range charts {
		e.byKey[chart.Key()] = chart
	}
	if opts.Provider != nil {
		e.poller = drivers.NewPoller(opts.Provider, opts.Logger)
	}
	return e
}

// Frames is where a frame for every changed chart is broadcast on each render tick.
func (e *Engine) Frames() *events.Hub[*Frame] {
	return e.frames
}

// Run owns the charts until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	var pollC <-chan time.Time
	if e.poller != nil {
		poll := e.opts.NewTicker(e.opts.PollInterval)
		defer poll.Stop()
		pollC = poll.C()
	}
	render := e.opts.NewTicker(e.opts.FrameInterval)
	defer render.Stop()

	e.logger.Info("engine started", "charts", len(e.charts), "poll_interval", e.opts.PollInterval, "frame_interval", e.opts.FrameInterval)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return nil
		case <-pollC:
			e.poll(ctx)
		case <-render.C():
			e.render()
		case sample := <-e.samples:
			e.insert(sample)
		case cmd := <-e.commands:
			e.drainSamples()
			cmd()
		}
	}
}

// Push queues a sample from any goroutine. It blocks while the queue is full and drops the
// sample once the engine has stopped.
func (e *Engine) Push(sample drivers.Sample) {
	select {
	case e.samples <- sample:
	case <-e.done:
	}
}

// Do runs fn on the engine goroutine and waits for it. Samples pushed before Do are applied first.
func (e *Engine) Do(ctx context.Context, fn func(e *Engine)) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		fn(e)
	}
	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrStopped
	}
}

// Chart and Charts must only be called from inside Do.
func (e *Engine) Chart(key string) (*models.Chart, bool) {
	chart, ok := e.byKey[key]
	return chart, ok
}

func (e *Engine) Charts() []*models.Chart {
	return e.charts
}

// Snapshot returns a frame for every chart, in configuration order.
func (e *Engine) Snapshot(ctx context.Context) ([]*Frame, error) {
	var frames []*Frame
	err := e.Do(ctx, func(e *Engine) {
		frames = make([]*Frame, 0, len(e.charts))
		for _, chart := range e.charts {
			frames = append(frames, newFrame(chart, nil))
		}
	})
	return frames, err
}

// ClearChart drops every point of the chart but keeps its series.
func (e *Engine) ClearChart(ctx context.Context, key string) error {
	var err error
	if doErr := e.Do(ctx, func(e *Engine) {
		chart, ok := e.Chart(key)
		if !ok {
			err = fmt.Errorf("clear chart %q: %w", key, models.ErrInvalidArgument)
			return
		}
		chart.ClearAll()
	}); doErr != nil {
		return doErr
	}
	return err
}

// ToggleScroll pauses or resumes a chart and returns whether it is now scrolling.
func (e *Engine) ToggleScroll(ctx context.Context, key string) (bool, error) {
	var (
		scrolling bool
		err       error
	)
	if doErr := e.Do(ctx, func(e *Engine) {
		chart, ok := e.Chart(key)
		if !ok {
			err = fmt.Errorf("toggle scroll %q: %w", key, models.ErrInvalidArgument)
			return
		}
		scrolling = chart.ToggleAutoScroll()
	}); doErr != nil {
		return false, doErr
	}
	return scrolling, err
}

// elapsed converts a wall clock time into chart x, seconds since the engine was created.
func (e *Engine) elapsed(at time.Time) float64 {
	if at.IsZero() {
		at = e.opts.Now()
	}
	return at.Sub(e.start).Seconds()
}

func (e *Engine) poll(ctx context.Context) {
	var metrics []string
	seen := make(map[string]bool)
	for _, chart := range e.charts {
		for _, name := range chart.SeriesNames() {
			if !seen[name] {
				seen[name] = true
				metrics = append(metrics, name)
			}
		}
	}
	if len(metrics) == 0 {
		return
	}

	readings := e.poller.Poll(ctx, metrics)
	x := e.elapsed(time.Time{})
	for _, reading := range readings {
		for _, chart := range e.charts {
			if !chart.HasSeries(reading.Key) {
				continue
			}
			if err := chart.AddPoint(reading.Key, x, reading.Value); err != nil {
				e.logger.Warn("couldn't add point", "chart", chart.Key(), "series", reading.Key, "error", err)
			}
		}
	}
}

// insert routes a pushed sample. Without a chart key it goes to every chart already showing
// the series, or registers the series on the first chart.
func (e *Engine) insert(sample drivers.Sample) {
	x := e.elapsed(sample.At)

	var targets []*models.Chart
	if sample.Chart != "" {
		chart, ok := e.byKey[sample.Chart]
		if !ok {
			e.logger.Debug("dropping sample for unknown chart", "chart", sample.Chart, "series", sample.Series)
			return
		}
		targets = append(targets, chart)
	} else {
		for _, chart := range e.charts {
			if chart.HasSeries(sample.Series) {
				targets = append(targets, chart)
			}
		}
		if len(targets) == 0 && len(e.charts) > 0 {
			targets = append(targets, e.charts[0])
		}
	}

	for _, chart := range targets {
		if !chart.HasSeries(sample.Series) {
			if err := chart.AddSeries(sample.Series, ""); err != nil {
				e.logger.Warn("couldn't register series", "chart", chart.Key(), "series", sample.Series, "error", err)
				continue
			}
			e.logger.Debug("registered series", "chart", chart.Key(), "series", sample.Series)
		}
		if err := chart.AddPoint(sample.Series, x, sample.Value); err != nil {
			e.logger.Debug("couldn't add sample", "chart", chart.Key(), "series", sample.Series, "error", err)
		}
	}
}

func (e *Engine) drainSamples() {
	for {
		select {
		case sample := <-e.samples:
			e.insert(sample)
		default:
			return
		}
	}
}

func (e *Engine) render() {
	for _, chart := range e.charts {
		if !chart.Dirty() {
			continue
		}
		changed := chart.TakeDirty()
		e.frames.Broadcast(newFrame(chart, changed))
	}
}
