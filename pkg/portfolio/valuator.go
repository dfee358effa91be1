// Package portfolio values user holdings against current market prices and
// ranks users on a leaderboard.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultStartingBalance is the cash every user begins with.
	DefaultStartingBalance = 1000.0
	// investedRatio estimates cost basis from current value; no true cost
	// basis is tracked.
	investedRatio = 0.8
)

// ErrInvalidInput marks non-finite balances or quantities and non-finite or negative prices.
var ErrInvalidInput = errors.New("portfolio: invalid numeric input")

// User is a read-only account record.
type User struct {
	ID          string    `json:"id"`
	Balance     float64   `json:"balance"`
	LastDaily   time.Time `json:"lastDaily,omitempty"`
	LastMessage time.Time `json:"lastMessage,omitempty"`
}

// Holding is a signed net position; at most one per user and symbol.
type Holding struct {
	UserID   string  `json:"userId"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// Transaction is an immutable fill.
type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"` // negative for sells
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Position is a valued holding.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
}

// Valuation is the breakdown of one user's net worth.
type Valuation struct {
	Balance        float64    `json:"balance"`
	PortfolioValue float64    `json:"portfolioValue"`
	Invested       float64    `json:"invested"`
	TotalValue     float64    `json:"totalValue"`
	Profit         float64    `json:"profit"`
	ProfitPct      float64    `json:"profitPct"`
	Positions      []Position `json:"positions,omitempty"`
}

// Valuate prices holdings and derives profit against startingBalance plus the
// estimated invested amount. Symbols without a price are valued at zero.
// Monetary outputs are rounded to two decimals, half away from zero.
func Valuate(balance float64, holdings []Holding, prices map[string]float64, startingBalance float64) (Valuation, error) {
	if !isFinite(balance) {
		return Valuation{}, fmt.Errorf("portfolio: balance %v: %w", balance, ErrInvalidInput)
	}
	if !isFinite(startingBalance) {
		return Valuation{}, fmt.Errorf("portfolio: starting balance %v: %w", startingBalance, ErrInvalidInput)
	}

	portfolioValue := decimal.Zero
	invested := decimal.Zero
	positions := make([]Position, 0, len(holdings))
	for _, h := range holdings {
		if !isFinite(h.Quantity) {
			return Valuation{}, fmt.Errorf("portfolio: %s quantity %v: %w", h.Symbol, h.Quantity, ErrInvalidInput)
		}
		price, ok := prices[h.Symbol]
		if !ok {
			price = 0
		}
		if !isFinite(price) || price < 0 {
			return Valuation{}, fmt.Errorf("portfolio: %s price %v: %w", h.Symbol, price, ErrInvalidInput)
		}
		qty := decimal.NewFromFloat(h.Quantity)
		px := decimal.NewFromFloat(price)
		value := qty.Mul(px)
		portfolioValue = portfolioValue.Add(value)
		invested = invested.Add(qty.Abs().Mul(px).Mul(decimal.NewFromFloat(investedRatio)))
		positions = append(positions, Position{
			Symbol:   h.Symbol,
			Quantity: h.Quantity,
			Price:    price,
			Value:    round2(value),
		})
	}

	bal := decimal.NewFromFloat(balance)
	total := bal.Add(portfolioValue)
	basis := decimal.NewFromFloat(startingBalance).Add(invested)
	profit := total.Sub(basis)
	pct := decimal.Zero
	if !basis.IsZero() {
		pct = profit.Div(basis).Mul(decimal.NewFromInt(100))
	}

	return Valuation{
		Balance:        round2(bal),
		PortfolioValue: round2(portfolioValue),
		Invested:       round2(invested),
		TotalValue:     round2(total),
		Profit:         round2(profit),
		ProfitPct:      round2(pct),
		Positions:      positions,
	}, nil
}

// Valuator binds a starting balance for repeated valuations.
type Valuator struct {
	StartingBalance float64
}

// NewValuator uses DefaultStartingBalance when startingBalance <= 0.
func NewValuator(startingBalance float64) Valuator {
	if startingBalance <= 0 || !isFinite(startingBalance) {
		startingBalance = DefaultStartingBalance
	}
	return Valuator{StartingBalance: startingBalance}
}

// Valuate values a user's holdings.
func (v Valuator) Valuate(u User, holdings []Holding, prices map[string]float64) (Valuation, error) {
	return Valuate(u.Balance, holdings, prices, v.StartingBalance)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
