package portfolio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransaction(t *testing.T) {
	var h []Holding
	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "GME", Quantity: 5})
	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "AMC", Quantity: 2})
	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "GME", Quantity: 3})
	require.Len(t, h, 2, "one record per symbol")
	assert.Equal(t, 8.0, h[0].Quantity)

	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "GME", Quantity: -8})
	require.Len(t, h, 1, "zero position removed")
	assert.Equal(t, "AMC", h[0].Symbol)

	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "AMC", Quantity: -5})
	require.Len(t, h, 1)
	assert.Equal(t, -3.0, h[0].Quantity, "positions are signed")

	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "NOPE", Quantity: 0})
	assert.Len(t, h, 1, "zero fill does not open a position")
}

func TestApplyTransactionFractionalFillsNetOut(t *testing.T) {
	var h []Holding
	for _, qty := range []float64{0.1, 0.2, -0.3} {
		h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "DOGE", Quantity: qty})
	}
	assert.Empty(t, h)

	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "DOGE", Quantity: 0.1})
	h = ApplyTransaction(h, Transaction{UserID: "u", Symbol: "DOGE", Quantity: 0.2})
	require.Len(t, h, 1)
	assert.Equal(t, 0.3, h[0].Quantity)
}

type recordingLedger interface {
	Ledger
	Record(ctx context.Context, tx Transaction) (Transaction, error)
}

func exerciseLedger(t *testing.T, l recordingLedger) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	fills := []Transaction{
		{UserID: "u1", Symbol: "gme", Quantity: 10, Price: 20, Timestamp: base},
		{UserID: "u1", Symbol: "GME", Quantity: -4, Price: 25, Timestamp: base.Add(2 * time.Hour)},
		{UserID: "u1", Symbol: "DOGE", Quantity: 100, Price: 0.1, Timestamp: base.Add(time.Hour)},
		{UserID: "u2", Symbol: "AMC", Quantity: 1, Price: 4, Timestamp: base},
	}
	for _, tx := range fills {
		rec, err := l.Record(ctx, tx)
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
	}
	_, err := l.Record(ctx, Transaction{UserID: "u1", Symbol: "X", Quantity: 1, Price: -3})
	assert.ErrorIs(t, err, ErrInvalidInput)

	hist, err := l.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, -4.0, hist[0].Quantity, "newest first")
	assert.Equal(t, "DOGE", hist[1].Symbol)

	hist, err = l.History(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	all, err := l.Holdings(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Len(t, all["u1"], 2)

	some, err := l.Holdings(ctx, []string{"u2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, some, 1)
	assert.Equal(t, "AMC", some["u2"][0].Symbol)
}

func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger(User{ID: "u1"}, User{ID: "u2"})
	exerciseLedger(t, l)

	l.UpsertUser(User{ID: "u1", Balance: 99})
	users, err := l.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, 99.0, users[0].Balance, "upsert keeps position")
}

func TestFileLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l := NewFileLedger(path)
	require.NoError(t, l.UpsertUser(context.Background(), User{ID: "u1", Balance: 10}))
	require.NoError(t, l.UpsertUser(context.Background(), User{ID: "u2", Balance: 20}))
	exerciseLedger(t, l)

	reopened := NewFileLedger(path)
	users, err := reopened.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, []string{users[0].ID, users[1].ID})
	holdings, err := reopened.Holdings(context.Background(), []string{"u1"})
	require.NoError(t, err)
	assert.Len(t, holdings["u1"], 2)
}

func TestPrepareTransaction(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	tx, err := PrepareTransaction(Transaction{UserID: " u1 ", Symbol: " gme", Quantity: 2, Price: 10}, now)
	require.NoError(t, err)
	assert.Equal(t, "u1", tx.UserID)
	assert.Equal(t, "GME", tx.Symbol)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, now, tx.Timestamp)

	kept, err := PrepareTransaction(Transaction{ID: "fixed", UserID: "u", Symbol: "X", Timestamp: now.Add(time.Hour)}, now)
	require.NoError(t, err)
	assert.Equal(t, "fixed", kept.ID)
	assert.Equal(t, now.Add(time.Hour), kept.Timestamp)

	_, err = PrepareTransaction(Transaction{UserID: "", Symbol: "X"}, now)
	assert.Error(t, err)
}
