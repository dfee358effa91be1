package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store persists instrument state. SaveBatch must apply the whole batch or
// none of it.
type Store interface {
	Load(ctx context.Context) ([]Instrument, error)
	SaveBatch(ctx context.Context, batch []Instrument) error
}

// MemoryStore keeps instrument state in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Instrument
}

// NewMemoryStore returns a store seeded with initial.
func NewMemoryStore(initial ...Instrument) *MemoryStore {
	s := &MemoryStore{items: make(map[string]Instrument, len(initial))}
	for _, inst := range initial {
		s.items[inst.Symbol] = cloneInstrument(inst)
	}
	return s
}

// Load returns every instrument sorted by symbol.
func (s *MemoryStore) Load(ctx context.Context) ([]Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Instrument, 0, len(s.items))
	for _, inst := range s.items {
		out = append(out, cloneInstrument(inst))
	}
	SortBySymbol(out)
	return out, nil
}

// SaveBatch upserts batch under one lock.
func (s *MemoryStore) SaveBatch(ctx context.Context, batch []Instrument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateBatch(batch); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range batch {
		s.items[inst.Symbol] = cloneInstrument(inst)
	}
	return nil
}

// Seed adds catalog instruments missing from store and returns how many were added.
func Seed(ctx context.Context, store Store, cfg *Config, now time.Time) (int, error) {
	if store == nil || cfg == nil {
		return 0, nil
	}
	existing, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("market: seed load: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, inst := range existing {
		have[inst.Symbol] = struct{}{}
	}
	var missing []Instrument
	for _, inst := range cfg.BuildInstruments(now) {
		if _, ok := have[inst.Symbol]; !ok {
			missing = append(missing, inst)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := store.SaveBatch(ctx, missing); err != nil {
		return 0, fmt.Errorf("market: seed save: %w", err)
	}
	return len(missing), nil
}

// Movers returns up to n top gainers and losers by last change. Instruments
// without movement in a direction are not listed on that side.
func Movers(instruments []Instrument, n int) (gainers, losers []Instrument) {
	if n <= 0 {
		return nil, nil
	}
	sorted := append([]Instrument(nil), instruments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LastChange > sorted[j].LastChange })
	for _, inst := range sorted {
		if len(gainers) == n || inst.LastChange <= 0 {
			break
		}
		gainers = append(gainers, inst)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		inst := sorted[i]
		if len(losers) == n || inst.LastChange >= 0 {
			break
		}
		losers = append(losers, inst)
	}
	return gainers, losers
}

// SortBySymbol orders instruments alphabetically in place.
func SortBySymbol(instruments []Instrument) {
	sort.Slice(instruments, func(i, j int) bool { return instruments[i].Symbol < instruments[j].Symbol })
}

// ValidateBatch rejects instruments with an empty symbol or a non-positive price.
func ValidateBatch(batch []Instrument) error {
	for _, inst := range batch {
		if inst.Symbol == "" {
			return fmt.Errorf("market: save batch: empty symbol: %w", ErrInvalidInput)
		}
		if !isFinite(inst.Price) || inst.Price <= 0 {
			return fmt.Errorf("market: save batch: %s price %v: %w", inst.Symbol, inst.Price, ErrInvalidInput)
		}
	}
	return nil
}

func cloneInstrument(inst Instrument) Instrument {
	inst.Terms = append([]string(nil), inst.Terms...)
	return inst
}
