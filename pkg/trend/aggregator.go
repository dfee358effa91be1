package trend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"
)

// TermsFunc resolves the search terms used for a symbol.
type TermsFunc func(symbol string) []string

// Aggregator combines the configured sources into one score per symbol.
type Aggregator struct {
	sources  map[Kind]Source
	weights  map[Kind]float64
	cache    *Cache
	fallback FallbackPolicy
	terms    TermsFunc
	now      func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithFallback replaces the random fallback policy.
func WithFallback(p FallbackPolicy) Option {
	return func(a *Aggregator) {
		if p != nil {
			a.fallback = p
		}
	}
}

// WithWeights overrides the default per-kind weights.
func WithWeights(w map[Kind]float64) Option {
	return func(a *Aggregator) {
		if len(w) > 0 {
			a.weights = copyWeights(w)
		}
	}
}

// WithTerms sets the symbol to search-terms resolver.
func WithTerms(fn TermsFunc) Option {
	return func(a *Aggregator) {
		if fn != nil {
			a.terms = fn
		}
	}
}

// WithClock injects the time source used for score timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator wires sources to a cache. A nil cache gets a default one.
func NewAggregator(sources map[Kind]Source, cache *Cache, opts ...Option) (*Aggregator, error) {
	if cache == nil {
		c, err := NewCache(DefaultCacheTTL)
		if err != nil {
			return nil, err
		}
		cache = c
	}
	a := &Aggregator{
		sources:  make(map[Kind]Source, len(sources)),
		weights:  DefaultWeights(),
		cache:    cache,
		fallback: NewRandomFallback(nil),
		terms:    func(symbol string) []string { return []string{symbol} },
		now:      time.Now,
	}
	for kind, src := range sources {
		if src != nil {
			a.sources[kind] = src
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Cache exposes the underlying score cache.
func (a *Aggregator) Cache() *Cache { return a.cache }

// Score returns the bounded trend value for symbol. It never fails; sources
// that are down contribute a fallback instead.
func (a *Aggregator) Score(ctx context.Context, symbol string) float64 {
	return a.Breakdown(ctx, symbol).Value
}

// Breakdown returns the cached or freshly computed Score including the
// outcome of each source.
func (a *Aggregator) Breakdown(ctx context.Context, symbol string) Score {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if s, ok := a.cache.Get(symbol); ok {
		return s
	}
	s, err := a.cache.Take(symbol, func() (Score, error) {
		return a.compute(ctx, symbol), nil
	})
	if err != nil {
		logx.WithContext(ctx).Errorf("trend: cache take %s: %v", symbol, err)
		return a.compute(ctx, symbol)
	}
	return s
}

func (a *Aggregator) compute(ctx context.Context, symbol string) Score {
	query := Query{Symbol: symbol, Terms: a.resolveTerms(symbol)}
	kinds := Kinds()
	outcomes := make([]Outcome, len(kinds))

	var fns []func()
	for i, kind := range kinds {
		i, kind := i, kind
		fns = append(fns, func() {
			outcomes[i] = a.run(ctx, kind, query)
		})
	}
	mr.FinishVoid(fns...)

	total := 0.0
	fallbacks := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		total += o.Weighted()
		if o.Fallback {
			fallbacks = append(fallbacks, fmt.Sprintf("%s(%s)", o.Kind, o.Reason))
		}
	}
	score := Score{
		Symbol:    symbol,
		Value:     Clamp(total),
		Timestamp: a.now(),
		Outcomes:  outcomes,
	}
	logx.WithContext(ctx).Infow("trend score computed",
		logx.Field("symbol", symbol),
		logx.Field("value", score.Value),
		logx.Field("fallbacks", fallbacks),
	)
	return score
}

func (a *Aggregator) run(ctx context.Context, kind Kind, q Query) (out Outcome) {
	start := time.Now()
	out = Outcome{Kind: kind, Weight: a.weights[kind]}
	defer func() {
		if r := recover(); r != nil {
			out.Value = clampTo(a.fallback.Fallback(kind), MaxScore)
			out.Fallback = true
			out.Reason = fmt.Sprintf("panic: %v", r)
		}
		out.Elapsed = time.Since(start)
	}()

	src, ok := a.sources[kind]
	if !ok {
		out.Value = clampTo(a.fallback.Fallback(kind), MaxScore)
		out.Fallback = true
		out.Reason = "not configured"
		return out
	}
	v, err := src.Score(ctx, q)
	if err != nil {
		out.Value = clampTo(a.fallback.Fallback(kind), MaxScore)
		out.Fallback = true
		out.Reason = err.Error()
		return out
	}
	out.Value = Clamp(v)
	return out
}

func (a *Aggregator) resolveTerms(symbol string) []string {
	terms := a.terms(symbol)
	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, symbol)
	}
	return cleaned
}

func copyWeights(w map[Kind]float64) map[Kind]float64 {
	out := make(map[Kind]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
