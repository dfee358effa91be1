package market

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxEventDuration caps how long a triggered event may last.
const MaxEventDuration = 24 * time.Hour

// EventSpec is a catalog entry describing a market-wide shock.
type EventSpec struct {
	Name       string        `json:"name"`
	Volatility float64       `json:"volatility"`
	Drift      float64       `json:"drift"`
	Duration   time.Duration `json:"duration"`
	Share      float64       `json:"share"` // fraction of instruments affected
}

var eventCatalog = map[string]EventSpec{
	"meme_crash":    {Name: "meme_crash", Volatility: 0.15, Drift: -0.05, Duration: 30 * time.Minute, Share: 0.5},
	"viral_surge":   {Name: "viral_surge", Volatility: 0.12, Drift: 0.04, Duration: 20 * time.Minute, Share: 0.3},
	"diamond_hands": {Name: "diamond_hands", Volatility: 0.04, Drift: 0.01, Duration: time.Hour, Share: 0.6},
	"paper_hands":   {Name: "paper_hands", Volatility: 0.10, Drift: -0.02, Duration: 45 * time.Minute, Share: 0.4},
	"market_freeze": {Name: "market_freeze", Volatility: 0.01, Drift: 0.0, Duration: 10 * time.Minute, Share: 1.0},
}

// EventCatalog lists the known events sorted by name.
func EventCatalog() []EventSpec {
	out := make([]EventSpec, 0, len(eventCatalog))
	for _, spec := range eventCatalog {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupEvent finds a catalog entry by name, case-insensitively.
func LookupEvent(name string) (EventSpec, bool) {
	spec, ok := eventCatalog[strings.ToLower(strings.TrimSpace(name))]
	return spec, ok
}

// Triggered is an active or past event instance.
type Triggered struct {
	ID                  string    `json:"id"`
	EventName           string    `json:"eventName"`
	AffectedInstruments []string  `json:"affectedInstruments"`
	StartsAt            time.Time `json:"startsAt"`
	EndsAt              time.Time `json:"endsAt"`
	Volatility          float64   `json:"volatility"`
	Drift               float64   `json:"drift"`
}

// Covers reports whether symbol is affected at time now.
func (t Triggered) Covers(symbol string, now time.Time) bool {
	if !t.activeAt(now) {
		return false
	}
	for _, s := range t.AffectedInstruments {
		if s == symbol {
			return true
		}
	}
	return false
}

func (t Triggered) activeAt(now time.Time) bool {
	return !now.Before(t.StartsAt) && now.Before(t.EndsAt)
}

// Board tracks triggered events. Expired events are pruned lazily.
type Board struct {
	now func() time.Time

	mu     sync.Mutex
	rng    Rand
	active []Triggered // trigger order
}

// BoardOption customises a Board.
type BoardOption func(*Board)

// WithBoardClock injects the clock used for start and expiry.
func WithBoardClock(now func() time.Time) BoardOption {
	return func(b *Board) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBoardRand injects the random source used to pick affected instruments.
func WithBoardRand(r Rand) BoardOption {
	return func(b *Board) {
		if r != nil {
			b.rng = r
		}
	}
}

// NewBoard returns an empty event board.
func NewBoard(opts ...BoardOption) *Board {
	b := &Board{now: time.Now, rng: globalRand{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Trigger starts eventType over a random subset of universe. A non-positive
// duration selects the catalog default.
func (b *Board) Trigger(eventType string, duration time.Duration, universe []string) (Triggered, error) {
	spec, ok := LookupEvent(eventType)
	if !ok {
		return Triggered{}, fmt.Errorf("market: trigger %q: %w", eventType, ErrUnknownEvent)
	}
	symbols := uniqueSymbols(universe)
	if len(symbols) == 0 {
		return Triggered{}, fmt.Errorf("market: trigger %s: no instruments: %w", spec.Name, ErrInvalidInput)
	}
	if duration <= 0 {
		duration = spec.Duration
	}
	if duration > MaxEventDuration {
		duration = MaxEventDuration
	}

	count := int(math.Ceil(spec.Share*float64(len(symbols)) - 1e-9))
	count = max(1, min(count, len(symbols)))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(symbols) - 1; i > 0; i-- {
		j := int(b.rng.Float64() * float64(i+1))
		if j > i {
			j = i
		}
		symbols[i], symbols[j] = symbols[j], symbols[i]
	}
	affected := symbols[:count]
	sort.Strings(affected)

	now := b.now()
	ev := Triggered{
		ID:                  uuid.NewString(),
		EventName:           spec.Name,
		AffectedInstruments: affected,
		StartsAt:            now,
		EndsAt:              now.Add(duration),
		Volatility:          spec.Volatility,
		Drift:               spec.Drift,
	}
	b.pruneLocked(now)
	b.active = append(b.active, ev)
	return ev, nil
}

// For returns the event governing symbol at now. When several overlap, the
// most recently started one wins.
func (b *Board) For(symbol string, now time.Time) (Triggered, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(now)
	var (
		best  Triggered
		found bool
	)
	for _, ev := range b.active {
		if !ev.Covers(symbol, now) {
			continue
		}
		if !found || !ev.StartsAt.Before(best.StartsAt) {
			best, found = ev, true
		}
	}
	return best, found
}

// Active lists events that have not yet expired.
func (b *Board) Active() []Triggered {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(b.now())
	return append([]Triggered(nil), b.active...)
}

// Cancel ends the event with id immediately.
func (b *Board) Cancel(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ev := range b.active {
		if ev.ID == id {
			b.active = append(b.active[:i], b.active[i+1:]...)
			return true
		}
	}
	return false
}

// CancelAll ends every event and returns how many were active.
func (b *Board) CancelAll() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(b.now())
	n := len(b.active)
	b.active = nil
	return n
}

func (b *Board) pruneLocked(now time.Time) {
	kept := b.active[:0]
	for _, ev := range b.active {
		if now.Before(ev.EndsAt) {
			kept = append(kept, ev)
		}
	}
	b.active = kept
}

func uniqueSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
