package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stonks-api/pkg/market"
)

func priceStore(prices map[string]float64) *market.MemoryStore {
	var insts []market.Instrument
	for sym, px := range prices {
		insts = append(insts, market.Instrument{Symbol: sym, Price: px, Ceiling: px * 10})
	}
	return market.NewMemoryStore(insts...)
}

func TestLeaderboardRankingExample(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(
		User{ID: "A", Balance: 1500},
		User{ID: "B", Balance: 1000},
		User{ID: "C", Balance: 200},
	)
	_, err := ledger.Record(ctx, Transaction{UserID: "B", Symbol: "GME", Quantity: 10, Price: 40})
	require.NoError(t, err)

	lb := NewLeaderboard(ledger, priceStore(map[string]float64{"GME": 50}), NewValuator(1000))
	entries, err := lb.Build(ctx, 2, false)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].UserID, "tie keeps ledger order")
	assert.Equal(t, "B", entries[1].UserID)
	assert.Equal(t, 1500.0, entries[0].TotalValue)
	assert.Equal(t, 1500.0, entries[1].TotalValue)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Nil(t, entries[1].Holdings)
}

func TestLeaderboardHoldingsAndEnrichment(t *testing.T) {
	ctx := context.Background()
	daily := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	ledger := NewMemoryLedger(User{ID: "A", Balance: 10, LastDaily: daily})
	_, err := ledger.Record(ctx, Transaction{UserID: "A", Symbol: "doge", Quantity: 100, Price: 0.1})
	require.NoError(t, err)

	lb := NewLeaderboard(ledger, priceStore(map[string]float64{"DOGE": 0.2}), Valuator{})
	entries, err := lb.Build(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, daily, entries[0].LastDaily)
	require.Len(t, entries[0].Holdings, 1)
	assert.Equal(t, "DOGE", entries[0].Holdings[0].Symbol)
	assert.Equal(t, 20.0, entries[0].Holdings[0].Value)
	assert.Equal(t, 30.0, entries[0].TotalValue)
}

func TestLeaderboardLimits(t *testing.T) {
	var users []User
	for i := 0; i < 60; i++ {
		users = append(users, User{ID: string(rune('a'+i%26)) + string(rune('0'+i/26)), Balance: float64(i)})
	}
	lb := NewLeaderboard(NewMemoryLedger(users...), market.NewMemoryStore(), NewValuator(0))

	entries, err := lb.Build(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Len(t, entries, DefaultLeaderboardLimit)
	assert.Equal(t, 59.0, entries[0].TotalValue, "sorted by total value")

	entries, err = lb.Build(context.Background(), 500, false)
	require.NoError(t, err)
	assert.Len(t, entries, MaxLeaderboardLimit)

	assert.Equal(t, 10, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
}

func TestLeaderboardSkipsInvalidUsers(t *testing.T) {
	ledger := NewMemoryLedger(User{ID: "ok", Balance: 5}, User{ID: "broken", Balance: math.NaN()})
	lb := NewLeaderboard(ledger, market.NewMemoryStore(), NewValuator(0))
	entries, err := lb.Build(context.Background(), 10, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].UserID)
}

type failingPrices struct{}

func (failingPrices) Load(context.Context) ([]market.Instrument, error) {
	return nil, errors.New("store offline")
}

func TestLeaderboardPriceError(t *testing.T) {
	lb := NewLeaderboard(NewMemoryLedger(User{ID: "a"}), failingPrices{}, NewValuator(0))
	_, err := lb.Build(context.Background(), 10, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
}
