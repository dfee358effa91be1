package trend

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	kind  Kind
	value float64
	err   error
	panic bool
	delay time.Duration
	calls atomic.Int32

	mu    sync.Mutex
	terms []string
}

func (s *stubSource) Kind() Kind { return s.kind }

func (s *stubSource) Score(ctx context.Context, q Query) (float64, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.terms = q.Terms
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if s.panic {
		panic("boom")
	}
	return s.value, s.err
}

func newTestAggregator(t *testing.T, sources map[Kind]Source, opts ...Option) *Aggregator {
	t.Helper()
	cache, err := NewCache(time.Minute)
	require.NoError(t, err)
	agg, err := NewAggregator(sources, cache, opts...)
	require.NoError(t, err)
	return agg
}

func allSources(value float64) map[Kind]Source {
	out := make(map[Kind]Source)
	for _, k := range Kinds() {
		out[k] = &stubSource{kind: k, value: value}
	}
	return out
}

func TestAggregatorWeightedSum(t *testing.T) {
	sources := map[Kind]Source{
		KindSearchTrend: &stubSource{kind: KindSearchTrend, value: 0.08},
		KindMicroBlog:   &stubSource{kind: KindMicroBlog, value: 0.04},
		KindForum:       &stubSource{kind: KindForum, value: -0.02},
		KindVideo:       &stubSource{kind: KindVideo, value: 0},
		KindShortVideo:  &stubSource{kind: KindShortVideo, value: 0.08},
	}
	agg := newTestAggregator(t, sources, WithFallback(FixedFallback{}))

	got := agg.Score(context.Background(), "doge")
	want := 0.30*0.08 + 0.25*0.04 + 0.20*-0.02 + 0.15*0 + 0.10*0.08
	assert.InDelta(t, want, got, 1e-12, "weighted sum across sources")

	s := agg.Breakdown(context.Background(), "DOGE")
	require.Len(t, s.Outcomes, len(Kinds()))
	for _, o := range s.Outcomes {
		assert.False(t, o.Fallback, "%s should not fall back", o.Kind)
		assert.InDelta(t, DefaultWeights()[o.Kind], o.Weight, 1e-12)
	}
	assert.Equal(t, "DOGE", s.Symbol)
}

func TestAggregatorTotalOutageStaysInBand(t *testing.T) {
	failing := make(map[Kind]Source)
	for _, k := range Kinds() {
		failing[k] = &stubSource{kind: k, err: errors.New("unavailable")}
	}

	maxBand := 0.0
	for k, w := range DefaultWeights() {
		maxBand += w * FallbackBands[k]
	}

	for i := 0; i < 50; i++ {
		agg := newTestAggregator(t, failing)
		v := agg.Score(context.Background(), "GME")
		assert.LessOrEqual(t, math.Abs(v), maxBand+1e-12, "total outage keeps score within fallback band")
		assert.LessOrEqual(t, math.Abs(v), MaxScore)
	}
}

func TestAggregatorMissingAndPanickingSourcesFallBack(t *testing.T) {
	sources := map[Kind]Source{
		KindSearchTrend: &stubSource{kind: KindSearchTrend, panic: true},
		KindForum:       &stubSource{kind: KindForum, value: 0.05},
	}
	fallback := FixedFallback{
		KindSearchTrend: 0.01,
		KindMicroBlog:   0.02,
		KindVideo:       -0.01,
		KindShortVideo:  0.01,
	}
	agg := newTestAggregator(t, sources, WithFallback(fallback))

	s := agg.Breakdown(context.Background(), "AMC")
	byKind := make(map[Kind]Outcome)
	for _, o := range s.Outcomes {
		byKind[o.Kind] = o
	}
	assert.True(t, byKind[KindSearchTrend].Fallback)
	assert.Contains(t, byKind[KindSearchTrend].Reason, "panic")
	assert.True(t, byKind[KindMicroBlog].Fallback)
	assert.Equal(t, "not configured", byKind[KindMicroBlog].Reason)
	assert.False(t, byKind[KindForum].Fallback)

	want := 0.30*0.01 + 0.25*0.02 + 0.20*0.05 + 0.15*-0.01 + 0.10*0.01
	assert.InDelta(t, want, s.Value, 1e-12)
}

func TestAggregatorClampsOutOfRangeSources(t *testing.T) {
	agg := newTestAggregator(t, allSources(5), WithFallback(FixedFallback{}))
	assert.InDelta(t, MaxScore, agg.Score(context.Background(), "X"), 1e-12)

	agg = newTestAggregator(t, allSources(math.NaN()), WithFallback(FixedFallback{}))
	assert.Equal(t, 0.0, agg.Score(context.Background(), "X"))
}

func TestAggregatorCacheHitSkipsSources(t *testing.T) {
	sources := allSources(0.02)
	agg := newTestAggregator(t, sources)

	first := agg.Score(context.Background(), "PEPE")
	second := agg.Score(context.Background(), "pepe")
	assert.Equal(t, first, second, "cached value is returned verbatim")

	for _, src := range sources {
		assert.EqualValues(t, 1, src.(*stubSource).calls.Load(), "each source called once")
	}

	agg.Cache().Delete("PEPE")
	agg.Score(context.Background(), "PEPE")
	for _, src := range sources {
		assert.EqualValues(t, 2, src.(*stubSource).calls.Load(), "evicted symbol refetches")
	}
}

func TestAggregatorConcurrentMissesShareOneFetch(t *testing.T) {
	sources := make(map[Kind]Source)
	for _, k := range Kinds() {
		sources[k] = &stubSource{kind: k, value: 0.01, delay: 50 * time.Millisecond}
	}
	agg := newTestAggregator(t, sources)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Score(context.Background(), "SHIB")
		}()
	}
	wg.Wait()

	for _, src := range sources {
		assert.EqualValues(t, 1, src.(*stubSource).calls.Load())
	}
}

func TestAggregatorSourcesRunConcurrently(t *testing.T) {
	sources := make(map[Kind]Source)
	for _, k := range Kinds() {
		sources[k] = &stubSource{kind: k, delay: 100 * time.Millisecond}
	}
	agg := newTestAggregator(t, sources)

	start := time.Now()
	agg.Score(context.Background(), "BONK")
	assert.Less(t, time.Since(start), 400*time.Millisecond, "sources should run in parallel")
}

func TestAggregatorTermsResolver(t *testing.T) {
	src := &stubSource{kind: KindForum}
	agg := newTestAggregator(t, map[Kind]Source{KindForum: src},
		WithFallback(FixedFallback{}),
		WithTerms(func(symbol string) []string {
			if symbol == "WIF" {
				return []string{" dogwifhat ", "", "$WIF"}
			}
			return nil
		}),
	)

	agg.Score(context.Background(), "wif")
	src.mu.Lock()
	assert.Equal(t, []string{"dogwifhat", "$WIF"}, src.terms)
	src.mu.Unlock()

	agg.Score(context.Background(), "other")
	src.mu.Lock()
	assert.Equal(t, []string{"OTHER"}, src.terms, "empty terms fall back to the symbol")
	src.mu.Unlock()
}

func TestAggregatorTimestampUsesClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	agg := newTestAggregator(t, nil, WithFallback(FixedFallback{}), WithClock(func() time.Time { return fixed }))
	s := agg.Breakdown(context.Background(), "ABC")
	assert.Equal(t, fixed, s.Timestamp)
	assert.Equal(t, 0.0, s.Value)
}
