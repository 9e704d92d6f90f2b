package drivers

import (
	"context"
	"math/rand/v2"
	"sync"

	"scrollchart/store"
)

// RandomProvider makes up plausible values inside each metric's fallback band.
type RandomProvider struct {
	metrics *store.MetricTable

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomProvider uses the default metric table when metrics is nil and a time seeded
// generator when rng is nil.
func NewRandomProvider(metrics *store.MetricTable, rng *rand.Rand) *RandomProvider {
	if metrics == nil {
		metrics = store.NewMetricTable()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomProvider{metrics: metrics, rng: rng}
}

func (p *RandomProvider) Value(_ context.Context, metric string) (float64, error) {
	defaults, _ := p.metrics.Defaults(metric)
	p.mu.Lock()
	defer p.mu.Unlock()
	return defaults.RandomMin + p.rng.Float64()*(defaults.RandomMax-defaults.RandomMin), nil
}

// intn is shared with LogProvider so one seed drives both.
func (p *RandomProvider) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}
