// Package market simulates instrument prices from a bounded random walk, a
// per-instrument resistance zone and an external trend score.
package market

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidInput marks non-finite or non-positive numeric input.
	ErrInvalidInput = errors.New("market: invalid numeric input")
	// ErrUnknownEvent is returned when triggering an event type not in the catalog.
	ErrUnknownEvent = errors.New("market: unknown event")
)

// VolatilityClass is an informational label fixed per instrument.
type VolatilityClass string

const (
	VolatilityLow     VolatilityClass = "low"
	VolatilityMedium  VolatilityClass = "medium"
	VolatilityHigh    VolatilityClass = "high"
	VolatilityExtreme VolatilityClass = "extreme"
)

// ParseVolatilityClass accepts any casing; empty maps to medium.
func ParseVolatilityClass(s string) (VolatilityClass, error) {
	switch v := VolatilityClass(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VolatilityMedium, nil
	case VolatilityLow, VolatilityMedium, VolatilityHigh, VolatilityExtreme:
		return v, nil
	default:
		return "", fmt.Errorf("market: unknown volatility class %q", s)
	}
}

// Instrument is the simulated state of one tradeable symbol.
type Instrument struct {
	Symbol     string          `json:"symbol"`
	Price      float64         `json:"price"`
	Ceiling    float64         `json:"ceiling"`
	Volatility VolatilityClass `json:"volatility"`
	LastChange float64         `json:"lastChange"` // percent
	LastUpdate time.Time       `json:"lastUpdate"`
	Terms      []string        `json:"terms,omitempty"`
}

// SearchTerms returns the trend search terms, defaulting to the symbol.
func (i Instrument) SearchTerms() []string {
	if len(i.Terms) == 0 {
		return []string{i.Symbol}
	}
	return append([]string(nil), i.Terms...)
}

// NormalizeSymbol upper-cases and trims s.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Prices flattens instruments into a symbol → price map.
func Prices(instruments []Instrument) map[string]float64 {
	out := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		out[inst.Symbol] = inst.Price
	}
	return out
}

// Symbols lists the instrument symbols in input order.
func Symbols(instruments []Instrument) []string {
	out := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		out = append(out, inst.Symbol)
	}
	return out
}
