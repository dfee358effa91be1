// Package scheduler advances the simulated market on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"

	"stonks-api/pkg/market"
)

const (
	DefaultInterval = 2 * time.Minute
	DefaultWorkers  = 8
)

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("scheduler: already running")

// State is the lifecycle of the recurring loop.
type State int32

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "idle"
	}
}

// TrendScorer supplies the bounded trend score for a symbol.
type TrendScorer interface {
	Score(ctx context.Context, symbol string) float64
}

// PriceEngine computes one price step.
type PriceEngine interface {
	NextPrice(inst market.Instrument, trendScore float64) (market.Update, error)
}

// Observer is notified after a tick has been persisted.
type Observer interface {
	OnTick(ctx context.Context, report Report) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, report Report) error

// OnTick implements Observer.
func (f ObserverFunc) OnTick(ctx context.Context, report Report) error { return f(ctx, report) }

// Report summarises one tick.
type Report struct {
	Started     time.Time           `json:"started"`
	Finished    time.Time           `json:"finished"`
	Updates     []market.Update     `json:"updates"`
	Instruments []market.Instrument `json:"instruments"`
	Failures    map[string]string   `json:"failures,omitempty"`
	Persisted   bool                `json:"persisted"`
}

// Scheduler runs ticks on an interval. Ticks never overlap, whether started
// by the loop or called directly.
type Scheduler struct {
	store     market.Store
	engine    PriceEngine
	trend     TrendScorer
	observers []Observer
	interval  time.Duration
	workers   int
	now       func() time.Time

	tickMu sync.Mutex

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	ticks  int64
	last   *Report
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWorkers bounds how many instruments are processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithObservers appends tick observers.
func WithObservers(obs ...Observer) Option {
	return func(s *Scheduler) {
		for _, o := range obs {
			if o != nil {
				s.observers = append(s.observers, o)
			}
		}
	}
}

// WithClock injects the time source for report stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds an idle scheduler.
func New(store market.Store, engine PriceEngine, scorer TrendScorer, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		engine:   engine,
		trend:    scorer,
		interval: DefaultInterval,
		workers:  DefaultWorkers,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddObserver registers obs for subsequent ticks. It waits for a running tick.
func (s *Scheduler) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.observers = append(s.observers, obs)
}

// Interval returns the configured tick period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// State reports whether the loop is running.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ticks returns how many ticks completed since construction.
func (s *Scheduler) Ticks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// LastReport returns the most recent tick report, if any.
func (s *Scheduler) LastReport() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

// Start launches the loop and runs a first tick immediately. The loop stops
// when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning
	go s.loop(loopCtx, s.done)
	logx.Infof("scheduler: started, interval=%s workers=%d", s.interval, s.workers)
	return nil
}

// Stop cancels the loop and waits for an in-flight tick to finish, or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.cancel = nil
		s.mu.Unlock()
		close(done)
		logx.Info("scheduler: stopped")
	}()

	s.runScheduled(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	report, err := s.Tick(ctx)
	if err != nil {
		logx.WithContext(ctx).Errorf("scheduler: tick failed: %v", err)
		return
	}
	logx.WithContext(ctx).Infof("scheduler: tick updated=%d failed=%d in %s",
		len(report.Updates), len(report.Failures), report.Finished.Sub(report.Started))
}

type outcome struct {
	update market.Update
	inst   market.Instrument
	err    error
}

// Tick advances every instrument once. It is not aborted by ctx cancellation.
// Per-instrument failures are reported and skipped; the successful updates
// are persisted as one batch before observers run.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	report := Report{Started: s.now(), Failures: map[string]string{}}

	instruments, err := s.store.Load(ctx)
	if err != nil {
		report.Finished = s.now()
		return report, fmt.Errorf("scheduler: load instruments: %w", err)
	}

	results := make([]outcome, len(instruments))
	mr.ForEach(func(source chan<- int) {
		for i := range instruments {
			source <- i
		}
	}, func(i int) {
		results[i] = s.advance(ctx, instruments[i])
	}, mr.WithWorkers(s.workers))

	batch := make([]market.Instrument, 0, len(results))
	for i, res := range results {
		if res.err != nil {
			report.Failures[instruments[i].Symbol] = res.err.Error()
			logx.WithContext(ctx).Errorf("scheduler: %s skipped: %v", instruments[i].Symbol, res.err)
			continue
		}
		report.Updates = append(report.Updates, res.update)
		batch = append(batch, res.inst)
	}

	if len(batch) > 0 {
		if err := s.store.SaveBatch(ctx, batch); err != nil {
			report.Finished = s.now()
			return report, fmt.Errorf("scheduler: save batch: %w", err)
		}
		report.Persisted = true
	}
	report.Instruments = batch
	report.Finished = s.now()

	s.mu.Lock()
	s.ticks++
	last := report
	s.last = &last
	s.mu.Unlock()

	for _, obs := range s.observers {
		if err := obs.OnTick(ctx, report); err != nil {
			logx.WithContext(ctx).Errorf("scheduler: observer failed: %v", err)
		}
	}
	return report, nil
}

func (s *Scheduler) advance(ctx context.Context, inst market.Instrument) (res outcome) {
	defer func() {
		if r := recover(); r != nil {
			res = outcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	score := s.trend.Score(ctx, inst.Symbol)
	upd, err := s.engine.NextPrice(inst, score)
	if err != nil {
		return outcome{err: err}
	}
	return outcome{update: upd, inst: market.Apply(inst, upd)}
}
