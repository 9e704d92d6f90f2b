package drivers

import (
	"context"
	"errors"
	"time"

	"scrollchart/signals"
)

var (
	ErrUnsupportedMetric = errors.New("unsupported metric")
	// ErrNoReading means the provider has nothing yet, e.g. a rate still seeding its counters.
	ErrNoReading = errors.New("no reading yet")
	errNonFinite = errors.New("non-finite value")
)

// Sample is a pushed value. An empty Chart lets the receiver route by series name, a zero At means now.
type Sample struct {
	Chart  string
	Series string
	Value  float64
	At     time.Time
}

// Sink receives samples from drivers running on their own goroutines. Implementations must hand
// them over to whoever owns the charts rather than touching a chart directly.
type Sink interface {
	Push(sample Sample)
}

// Driver pushes samples as they arrive from hardware or a recording.
type Driver interface {
	Init(ctx context.Context) error
	Run(ctx context.Context) error
}

// Provider is polled once per tick for each active series.
type Provider interface {
	Value(ctx context.Context, metric string) (float64, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context, metric string) (float64, error)

func (f ProviderFunc) Value(ctx context.Context, metric string) (float64, error) {
	return f(ctx, metric)
}

func pushReadings(sink Sink, readings []signals.Reading, at time.Time) {
	for _, reading := range readings {
		if reading.Key == "" {
			continue
		}
		sink.Push(Sample{Series: reading.Key, Value: reading.Value, At: at})
	}
}
