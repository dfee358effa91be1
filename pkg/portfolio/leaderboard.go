package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/pkg/market"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 50
)

// Ledger is the read side of user accounts.
type Ledger interface {
	Users(ctx context.Context) ([]User, error)
	// Holdings returns net positions keyed by user id. A nil ids slice means all users.
	Holdings(ctx context.Context, userIDs []string) (map[string][]Holding, error)
	// History returns a user's transactions, newest first.
	History(ctx context.Context, userID string, limit int) ([]Transaction, error)
}

// PriceSource supplies current instrument state.
type PriceSource interface {
	Load(ctx context.Context) ([]market.Instrument, error)
}

// Entry is one leaderboard row.
type Entry struct {
	Rank           int        `json:"rank"`
	UserID         string     `json:"userId"`
	Balance        float64    `json:"balance"`
	PortfolioValue float64    `json:"portfolioValue"`
	TotalValue     float64    `json:"totalValue"`
	Profit         float64    `json:"profit"`
	ProfitPct      float64    `json:"profitPct"`
	LastDaily      time.Time  `json:"lastDaily,omitempty"`
	LastMessage    time.Time  `json:"lastMessage,omitempty"`
	Holdings       []Position `json:"holdings,omitempty"`
}

// Leaderboard ranks users by total value.
type Leaderboard struct {
	ledger   Ledger
	prices   PriceSource
	valuator Valuator
}

// NewLeaderboard wires a ledger and price source.
func NewLeaderboard(ledger Ledger, prices PriceSource, valuator Valuator) *Leaderboard {
	if valuator.StartingBalance <= 0 {
		valuator = NewValuator(0)
	}
	return &Leaderboard{ledger: ledger, prices: prices, valuator: valuator}
}

// ClampLimit applies the default and maximum leaderboard sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	return min(limit, MaxLeaderboardLimit)
}

// Build values every user and returns the top entries. Ties keep ledger order.
func (l *Leaderboard) Build(ctx context.Context, limit int, includeHoldings bool) ([]Entry, error) {
	limit = ClampLimit(limit)

	users, err := l.ledger.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio: load users: %w", err)
	}
	holdings, err := l.ledger.Holdings(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("portfolio: load holdings: %w", err)
	}
	instruments, err := l.prices.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio: load prices: %w", err)
	}
	prices := market.Prices(instruments)

	entries := make([]Entry, 0, len(users))
	for _, u := range users {
		v, err := l.valuator.Valuate(u, holdings[u.ID], prices)
		if err != nil {
			logx.WithContext(ctx).Errorf("portfolio: skip user %s: %v", u.ID, err)
			continue
		}
		entry := Entry{
			UserID:         u.ID,
			Balance:        v.Balance,
			PortfolioValue: v.PortfolioValue,
			TotalValue:     v.TotalValue,
			Profit:         v.Profit,
			ProfitPct:      v.ProfitPct,
			LastDaily:      u.LastDaily,
			LastMessage:    u.LastMessage,
		}
		if includeHoldings {
			entry.Holdings = v.Positions
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].TotalValue > entries[j].TotalValue })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
