package market

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"stonks-api/pkg/resistance"
)

const (
	DefaultBaseVolatility = 0.08
	DefaultBaseDrift      = 0.0
	DefaultPriceFloor     = 0.01
)

// Rand is the uniform [0, 1) source used for the random walk.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Params are the engine defaults applied when no event is active.
type Params struct {
	BaseVolatility float64 `json:"baseVolatility"`
	BaseDrift      float64 `json:"baseDrift"`
	PriceFloor     float64 `json:"priceFloor"`
}

// DefaultParams returns the stock engine configuration.
func DefaultParams() Params {
	return Params{
		BaseVolatility: DefaultBaseVolatility,
		BaseDrift:      DefaultBaseDrift,
		PriceFloor:     DefaultPriceFloor,
	}
}

// Update describes one price step.
type Update struct {
	Symbol     string              `json:"symbol"`
	OldPrice   float64             `json:"oldPrice"`
	NewPrice   float64             `json:"newPrice"`
	ChangePct  float64             `json:"changePct"`
	Zone       resistance.ZoneName `json:"zone"`
	TrendScore float64             `json:"trendScore"`
	Event      string              `json:"event,omitempty"`
	At         time.Time           `json:"at"`
}

// Engine computes the next price of an instrument. It is safe for concurrent use.
type Engine struct {
	params Params
	events *Board
	now    func() time.Time

	mu  sync.Mutex
	rng Rand
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithRand injects the random source.
func WithRand(r Rand) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithEvents lets active market events override the base parameters.
func WithEvents(b *Board) EngineOption {
	return func(e *Engine) { e.events = b }
}

// WithEngineClock injects the clock used to stamp updates.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds an engine. Zero params fall back to the defaults.
func NewEngine(p Params, opts ...EngineOption) *Engine {
	if p.BaseVolatility <= 0 {
		p.BaseVolatility = DefaultBaseVolatility
	}
	if p.PriceFloor <= 0 {
		p.PriceFloor = DefaultPriceFloor
	}
	e := &Engine{params: p, rng: globalRand{}, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the effective engine parameters.
func (e *Engine) Params() Params { return e.params }

// Events returns the attached event board, possibly nil.
func (e *Engine) Events() *Board { return e.events }

// NextPrice applies the zone-adjusted random walk plus trend score to inst.
func (e *Engine) NextPrice(inst Instrument, trendScore float64) (Update, error) {
	if !isFinite(inst.Price) || inst.Price <= 0 {
		return Update{}, fmt.Errorf("market: %s price %v: %w", inst.Symbol, inst.Price, ErrInvalidInput)
	}
	if !isFinite(inst.Ceiling) || inst.Ceiling <= 0 {
		return Update{}, fmt.Errorf("market: %s ceiling %v: %w", inst.Symbol, inst.Ceiling, ErrInvalidInput)
	}
	if !isFinite(trendScore) {
		return Update{}, fmt.Errorf("market: %s trend score %v: %w", inst.Symbol, trendScore, ErrInvalidInput)
	}

	now := e.now()
	vol, drift := e.params.BaseVolatility, e.params.BaseDrift
	var eventName string
	if e.events != nil {
		if ev, ok := e.events.For(inst.Symbol, now); ok {
			vol, drift, eventName = ev.Volatility, ev.Drift, ev.EventName
		}
	}

	zone := resistance.Classify(inst.Price, inst.Ceiling)
	adjustedVol := vol * zone.VolatilityMultiplier
	adjustedDrift := drift + zone.Drift()
	random := (e.float64() - 0.5) * 2 * adjustedVol
	total := adjustedDrift + random + trendScore

	next := math.Max(e.params.PriceFloor, inst.Price*(1+total))
	return Update{
		Symbol:     inst.Symbol,
		OldPrice:   inst.Price,
		NewPrice:   next,
		ChangePct:  (next - inst.Price) / inst.Price * 100,
		Zone:       zone.Name,
		TrendScore: trendScore,
		Event:      eventName,
		At:         now,
	}, nil
}

func (e *Engine) float64() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// Apply returns inst with the result of upd folded in.
func Apply(inst Instrument, upd Update) Instrument {
	inst.Price = upd.NewPrice
	inst.LastChange = upd.ChangePct
	inst.LastUpdate = upd.At
	return inst
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
