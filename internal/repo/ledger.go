package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"stonks-api/pkg/portfolio"
)

// Ledger adapts the repository set to portfolio.Ledger.
type Ledger struct {
	conn sqlx.SqlConn
	set  *Set
	now  func() time.Time
}

// NewLedger builds a Postgres-backed ledger.
func NewLedger(deps Dependencies) (*Ledger, error) {
	set, err := New(deps)
	if err != nil {
		return nil, err
	}
	return &Ledger{conn: deps.DBConn, set: set, now: time.Now}, nil
}

// EnsureSchema creates the ledger tables if needed.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.conn.ExecCtx(ctx, Schema); err != nil {
		return fmt.Errorf("repo: ensure schema: %w", err)
	}
	return nil
}

// Users implements portfolio.Ledger.
func (l *Ledger) Users(ctx context.Context) ([]portfolio.User, error) {
	return l.set.Users.All(ctx)
}

// Holdings implements portfolio.Ledger.
func (l *Ledger) Holdings(ctx context.Context, userIDs []string) (map[string][]portfolio.Holding, error) {
	return l.set.Holdings.ByUsers(ctx, userIDs)
}

// History implements portfolio.Ledger.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]portfolio.Transaction, error) {
	return l.set.Transactions.RecentByUser(ctx, userID, limit)
}

// Record validates and stores a fill.
func (l *Ledger) Record(ctx context.Context, tx portfolio.Transaction) (portfolio.Transaction, error) {
	tx, err := portfolio.PrepareTransaction(tx, l.now().UTC())
	if err != nil {
		return portfolio.Transaction{}, err
	}
	if err := l.set.Transactions.Insert(ctx, tx); err != nil {
		return portfolio.Transaction{}, err
	}
	return tx, nil
}
