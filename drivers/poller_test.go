package drivers

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"scrollchart/signals"
)

type collectSink struct {
	mu      sync.Mutex
	samples []Sample
}

func (s *collectSink) Push(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
}

func (s *collectSink) all() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sample(nil), s.samples...)
}

func TestPoller_IsolatesFaultyMetrics(t *testing.T) {
	t.Parallel()

	provider := ProviderFunc(func(_ context.Context, metric string) (float64, error) {
		switch metric {
		case "err":
			return 0, errors.New("no sensor")
		case "panic":
			panic("driver bug")
		case "inf":
			return math.Inf(-1), nil
		}
		return 7, nil
	})
	poller := NewPoller(provider, nil)

	readings := poller.Poll(context.Background(), []string{"err", "cpu", "panic", "inf", "memory"})
	assert.Equal(t, []signals.Reading{{Key: "cpu", Value: 7}, {Key: "memory", Value: 7}}, readings)
	assert.Equal(t, 1, poller.Failures("err"))
	assert.Equal(t, 1, poller.Failures("panic"))
	assert.Equal(t, 1, poller.Failures("inf"))
	assert.Equal(t, 0, poller.Failures("cpu"))
}

func TestPoller_FailureCountResetsOnRecovery(t *testing.T) {
	t.Parallel()

	fail := true
	provider := ProviderFunc(func(_ context.Context, _ string) (float64, error) {
		if fail {
			return 0, errors.New("flaky")
		}
		return 1, nil
	})
	poller := NewPoller(provider, nil)

	poller.Poll(context.Background(), []string{"temp"})
	poller.Poll(context.Background(), []string{"temp"})
	assert.Equal(t, 2, poller.Failures("temp"))

	fail = false
	assert.Len(t, poller.Poll(context.Background(), []string{"temp"}), 1)
	assert.Equal(t, 0, poller.Failures("temp"))
}

func TestPoller_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	calls := 0
	provider := ProviderFunc(func(_ context.Context, _ string) (float64, error) {
		calls++
		return 1, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, NewPoller(provider, nil).Poll(ctx, []string{"a", "b"}))
	assert.Equal(t, 0, calls)
}

func TestPoller_SkipsMetricsWithNoReadingYet(t *testing.T) {
	t.Parallel()

	seeded := false
	provider := ProviderFunc(func(_ context.Context, _ string) (float64, error) {
		if !seeded {
			seeded = true
			return 0, ErrNoReading
		}
		return 12, nil
	})
	poller := NewPoller(provider, nil)

	assert.Empty(t, poller.Poll(context.Background(), []string{"cpu"}))
	assert.Equal(t, 0, poller.Failures("cpu"), "warming up isn't a failure")
	assert.Equal(t, []signals.Reading{{Key: "cpu", Value: 12}}, poller.Poll(context.Background(), []string{"cpu"}))
}
