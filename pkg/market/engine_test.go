package market

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stonks-api/pkg/resistance"
)

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNextPriceNeutralRandomAddsTrend(t *testing.T) {
	clock := newFakeClock()
	e := NewEngine(DefaultParams(), WithRand(fixedRand(0.5)), WithEngineClock(clock.Now))

	upd, err := e.NextPrice(Instrument{Symbol: "DOGE", Price: 100, Ceiling: 1000}, 0.02)
	require.NoError(t, err)
	assert.InDelta(t, 102, upd.NewPrice, 1e-9)
	assert.InDelta(t, 2, upd.ChangePct, 1e-9)
	assert.Equal(t, resistance.ZoneLow, upd.Zone)
	assert.Equal(t, 0.02, upd.TrendScore)
	assert.Equal(t, clock.Now(), upd.At)
	assert.Empty(t, upd.Event)
}

func TestNextPriceExtremeZoneDampensAndPullsDown(t *testing.T) {
	e := NewEngine(DefaultParams(), WithRand(fixedRand(1)))

	upd, err := e.NextPrice(Instrument{Symbol: "GME", Price: 712.5, Ceiling: 750}, 0)
	require.NoError(t, err)
	assert.Equal(t, resistance.ZoneExtreme, upd.Zone)
	// random = 0.5*2*0.08*0.20 = 0.016, drift = -0.03
	assert.InDelta(t, 712.5*(1-0.014), upd.NewPrice, 1e-9)
}

func TestNextPriceRespectsFloor(t *testing.T) {
	e := NewEngine(Params{BaseVolatility: 0.08, BaseDrift: -2, PriceFloor: 0.01}, WithRand(fixedRand(0)))
	upd, err := e.NextPrice(Instrument{Symbol: "RUG", Price: 0.5, Ceiling: 10}, -0.08)
	require.NoError(t, err)
	assert.Equal(t, 0.01, upd.NewPrice)
	assert.InDelta(t, -98, upd.ChangePct, 1e-9)
}

func TestNextPriceNeverBelowFloor(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	e := NewEngine(DefaultParams(), WithRand(rng))
	inst := Instrument{Symbol: "PEPE", Price: 1, Ceiling: 2}
	for i := 0; i < 5000; i++ {
		trend := (rng.Float64()*2 - 1) * 0.08
		upd, err := e.NextPrice(inst, trend)
		require.NoError(t, err)
		require.GreaterOrEqual(t, upd.NewPrice, DefaultPriceFloor, "step %d", i)
		require.False(t, math.IsNaN(upd.NewPrice) || math.IsInf(upd.NewPrice, 0))
		inst = Apply(inst, upd)
	}
}

func TestNextPriceInvalidInput(t *testing.T) {
	e := NewEngine(DefaultParams())
	cases := []struct {
		name  string
		inst  Instrument
		trend float64
	}{
		{"zero price", Instrument{Price: 0, Ceiling: 10}, 0},
		{"negative price", Instrument{Price: -1, Ceiling: 10}, 0},
		{"nan price", Instrument{Price: math.NaN(), Ceiling: 10}, 0},
		{"inf price", Instrument{Price: math.Inf(1), Ceiling: 10}, 0},
		{"zero ceiling", Instrument{Price: 1, Ceiling: 0}, 0},
		{"nan ceiling", Instrument{Price: 1, Ceiling: math.NaN()}, 0},
		{"nan trend", Instrument{Price: 1, Ceiling: 10}, math.NaN()},
		{"inf trend", Instrument{Price: 1, Ceiling: 10}, math.Inf(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.NextPrice(tc.inst, tc.trend)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestNextPriceUsesActiveEvent(t *testing.T) {
	clock := newFakeClock()
	board := NewBoard(WithBoardClock(clock.Now), WithBoardRand(fixedRand(0)))
	e := NewEngine(DefaultParams(), WithRand(fixedRand(1)), WithEvents(board), WithEngineClock(clock.Now))

	ev, err := board.Trigger("market_freeze", 0, []string{"DOGE", "GME"})
	require.NoError(t, err)
	assert.Len(t, ev.AffectedInstruments, 2)

	inst := Instrument{Symbol: "DOGE", Price: 100, Ceiling: 1000}
	upd, err := e.NextPrice(inst, 0)
	require.NoError(t, err)
	assert.Equal(t, "market_freeze", upd.Event)
	// volatility 0.01 replaces the base 0.08
	assert.InDelta(t, 101, upd.NewPrice, 1e-9)

	clock.Advance(11 * time.Minute)
	upd, err = e.NextPrice(inst, 0)
	require.NoError(t, err)
	assert.Empty(t, upd.Event, "expired event reverts to defaults")
	assert.InDelta(t, 108, upd.NewPrice, 1e-9)
}

func TestApply(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	inst := Instrument{Symbol: "X", Price: 10, Ceiling: 20, Volatility: VolatilityHigh}
	got := Apply(inst, Update{NewPrice: 11, ChangePct: 10, At: at})
	assert.Equal(t, 11.0, got.Price)
	assert.Equal(t, 10.0, got.LastChange)
	assert.Equal(t, at, got.LastUpdate)
	assert.Equal(t, 20.0, got.Ceiling)
	assert.Equal(t, VolatilityHigh, got.Volatility)
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(Params{})
	assert.Equal(t, DefaultParams(), e.Params())
}
