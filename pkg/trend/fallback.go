package trend

import (
	"math/rand/v2"
	"sync"
)

// FallbackPolicy supplies the contribution of a source that failed, timed out
// or is not configured.
type FallbackPolicy interface {
	Fallback(kind Kind) float64
}

// FallbackBands documents the half-width of the uniform band each source
// falls back to.
var FallbackBands = map[Kind]float64{
	KindSearchTrend: 0.020,
	KindMicroBlog:   0.015,
	KindForum:       0.015,
	KindVideo:       0.010,
	KindShortVideo:  0.010,
}

const defaultFallbackBand = 0.010

// RandomFallback draws uniformly from [-band, +band] per kind so prices keep
// moving while sources are down.
type RandomFallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomFallback uses rng when non-nil, otherwise a time-seeded generator.
func NewRandomFallback(rng *rand.Rand) *RandomFallback {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomFallback{rng: rng}
}

// Fallback implements FallbackPolicy.
func (f *RandomFallback) Fallback(kind Kind) float64 {
	band, ok := FallbackBands[kind]
	if !ok {
		band = defaultFallbackBand
	}
	f.mu.Lock()
	u := f.rng.Float64()
	f.mu.Unlock()
	return (u*2 - 1) * band
}

// FixedFallback returns a constant per kind; unknown kinds return 0.
type FixedFallback map[Kind]float64

// Fallback implements FallbackPolicy.
func (f FixedFallback) Fallback(kind Kind) float64 {
	return f[kind]
}
