package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stonks-api/pkg/market"
)

type staticScorer struct {
	value  float64
	panics map[string]bool
	delay  time.Duration
	calls  atomic.Int32
}

func (s *staticScorer) Score(_ context.Context, symbol string) float64 {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.panics[symbol] {
		panic("scorer exploded")
	}
	return s.value
}

type countingStore struct {
	*market.MemoryStore
	saves    atomic.Int32
	saveErr  error
	inflight atomic.Int32
	maxSeen  atomic.Int32
	hold     time.Duration
}

func (s *countingStore) Load(ctx context.Context) ([]market.Instrument, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if s.hold > 0 {
		time.Sleep(s.hold)
	}
	return s.MemoryStore.Load(ctx)
}

func (s *countingStore) SaveBatch(ctx context.Context, batch []market.Instrument) error {
	s.saves.Add(1)
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.SaveBatch(ctx, batch)
}

func seedStore(insts ...market.Instrument) *countingStore {
	if len(insts) == 0 {
		insts = []market.Instrument{
			{Symbol: "AMC", Price: 5, Ceiling: 100},
			{Symbol: "DOGE", Price: 0.1, Ceiling: 1},
			{Symbol: "GME", Price: 20, Ceiling: 500},
		}
	}
	return &countingStore{MemoryStore: market.NewMemoryStore(insts...)}
}

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }

func newEngine() *market.Engine {
	return market.NewEngine(market.DefaultParams(), market.WithRand(halfRand{}))
}

func TestTickAdvancesAndPersistsOnce(t *testing.T) {
	store := seedStore()
	var observed []Report
	var mu sync.Mutex
	obs := ObserverFunc(func(_ context.Context, r Report) error {
		mu.Lock()
		observed = append(observed, r)
		mu.Unlock()
		return nil
	})
	s := New(store, newEngine(), &staticScorer{value: 0.05}, WithObservers(obs))

	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Persisted)
	assert.Len(t, report.Updates, 3)
	assert.Empty(t, report.Failures)
	assert.EqualValues(t, 1, store.saves.Load(), "one batch write per tick")
	assert.EqualValues(t, 1, s.Ticks())

	got, err := store.MemoryStore.Load(context.Background())
	require.NoError(t, err)
	for _, inst := range got {
		assert.InDelta(t, 5, inst.LastChange, 1e-9, "%s moved by the trend score", inst.Symbol)
	}
	prices := market.Prices(got)
	assert.InDelta(t, 21, prices["GME"], 1e-9)

	mu.Lock()
	require.Len(t, observed, 1)
	assert.Equal(t, report.Updates, observed[0].Updates)
	mu.Unlock()

	last, ok := s.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.Started, last.Started)
}

func TestTickIsolatesFailures(t *testing.T) {
	store := seedStore(
		market.Instrument{Symbol: "BAD", Price: 1, Ceiling: 0},
		market.Instrument{Symbol: "BOOM", Price: 1, Ceiling: 10},
		market.Instrument{Symbol: "OK", Price: 1, Ceiling: 10},
	)
	scorer := &staticScorer{panics: map[string]bool{"BOOM": true}}
	s := New(store, newEngine(), scorer)

	report, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Updates, 1)
	assert.Equal(t, "OK", report.Updates[0].Symbol)
	assert.Contains(t, report.Failures["BAD"], "invalid numeric input")
	assert.Contains(t, report.Failures["BOOM"], "panic")
	assert.True(t, report.Persisted)
}

func TestTickSaveFailureSkipsObservers(t *testing.T) {
	store := seedStore()
	store.saveErr = errors.New("disk full")
	called := false
	s := New(store, newEngine(), &staticScorer{}, WithObservers(ObserverFunc(func(context.Context, Report) error {
		called = true
		return nil
	})))

	report, err := s.Tick(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, report.Persisted)
	assert.False(t, called)

	got, err := store.MemoryStore.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20.0, market.Prices(got)["GME"], "nothing written")
}

func TestTickObserverErrorIsNotFatal(t *testing.T) {
	var second atomic.Bool
	s := New(seedStore(), newEngine(), &staticScorer{}, WithObservers(
		ObserverFunc(func(context.Context, Report) error { return errors.New("kafka down") }),
		ObserverFunc(func(context.Context, Report) error { second.Store(true); return nil }),
	))
	_, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Load(), "later observers still run")
}

func TestAddObserver(t *testing.T) {
	s := New(seedStore(), newEngine(), &staticScorer{})
	var calls atomic.Int32
	s.AddObserver(nil)
	s.AddObserver(ObserverFunc(func(context.Context, Report) error { calls.Add(1); return nil }))
	_, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTickIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := seedStore()
	s := New(store, newEngine(), &staticScorer{})
	report, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, report.Persisted)
}

func TestTicksNeverOverlap(t *testing.T) {
	store := seedStore()
	store.hold = 30 * time.Millisecond
	s := New(store, newEngine(), &staticScorer{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Tick(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, store.maxSeen.Load(), "ticks are serialized")
	assert.EqualValues(t, 4, s.Ticks())
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	store := seedStore()
	s := New(store, newEngine(), &staticScorer{}, WithInterval(time.Hour))
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateRunning, s.State())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	assert.Eventually(t, func() bool { return s.Ticks() == 1 }, time.Second, 5*time.Millisecond, "first tick is immediate")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateIdle, s.State())
	require.NoError(t, s.Stop(ctx), "stopping an idle scheduler is a no-op")

	require.NoError(t, s.Start(context.Background()), "can restart after stop")
	require.NoError(t, s.Stop(ctx))
}

func TestStopWaitsForInflightTick(t *testing.T) {
	store := seedStore()
	scorer := &staticScorer{delay: 80 * time.Millisecond}
	s := New(store, newEngine(), scorer, WithInterval(time.Hour), WithWorkers(1))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return scorer.calls.Load() > 0 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.EqualValues(t, 1, store.saves.Load(), "in-flight tick completes before stop returns")
	assert.EqualValues(t, 3, scorer.calls.Load())
}

func TestIntervalTicks(t *testing.T) {
	s := New(seedStore(), newEngine(), &staticScorer{}, WithInterval(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool { return s.Ticks() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return s.State() == StateIdle }, time.Second, 5*time.Millisecond,
		"parent cancellation stops the loop")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
}
