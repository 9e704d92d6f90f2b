package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"scrollchart/signals"
)

// Poller asks a Provider for a set of metrics once per tick. A metric that errors, panics or
// returns a non-finite value is logged and skipped for that tick only.
type Poller struct {
	provider Provider
	logger   *slog.Logger
	failures map[string]int
}

func NewPoller(provider Provider, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{
		provider: provider,
		logger:   logger,
		failures: make(map[string]int),
	}
}

// Poll returns a reading for every metric the provider could serve, in the order asked.
func (p *Poller) Poll(ctx context.Context, metrics []string) []signals.Reading {
	readings := make([]signals.Reading, 0, len(metrics))
	for _, metric := range metrics {
		if ctx.Err() != nil {
			break
		}
		value, err := p.value(ctx, metric)
		if errors.Is(err, ErrNoReading) {
			p.logger.Debug("metric not ready", "metric", metric)
			continue
		}
		if err != nil {
			p.failures[metric]++
			p.logger.Warn("couldn't poll metric", "metric", metric, "error", err, "consecutive_failures", p.failures[metric])
			continue
		}
		if p.failures[metric] > 0 {
			p.logger.Info("metric recovered", "metric", metric, "after_failures", p.failures[metric])
			delete(p.failures, metric)
		}
		readings = append(readings, signals.Reading{Key: metric, Value: value})
	}
	return readings
}

// Failures reports how many ticks in a row metric has failed.
func (p *Poller) Failures(metric string) int {
	return p.failures[metric]
}

func (p *Poller) value(ctx context.Context, metric string) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	value, err = p.provider.Value(ctx, metric)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%v: %w", value, errNonFinite)
	}
	return value, nil
}
