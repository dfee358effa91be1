package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"stonks-api/pkg/portfolio"
)

// TransactionsRepo exposes trade history queries and the write path for fills.
type TransactionsRepo interface {
	// RecentByUser returns transactions ordered by timestamp descending.
	RecentByUser(ctx context.Context, userID string, limit int) ([]portfolio.Transaction, error)
	// Insert records tx and folds it into the user's holding in one transaction.
	Insert(ctx context.Context, tx portfolio.Transaction) error
}

type transactionsRepo struct {
	conn sqlx.SqlConn
}

func newTransactionsRepo(deps Dependencies) TransactionsRepo {
	return &transactionsRepo{
		conn: deps.DBConn,
	}
}

func (r *transactionsRepo) RecentByUser(ctx context.Context, userID string, limit int) ([]portfolio.Transaction, error) {
	query := `
SELECT id, user_id, symbol, quantity, price, ts
FROM public.transactions
WHERE user_id = $1
ORDER BY ts DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += "\nLIMIT $2"
		args = append(args, limit)
	}

	var rows []transactionRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("transactionsRepo.RecentByUser query: %w", err)
	}
	out := make([]portfolio.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.transaction())
	}
	return out, nil
}

const insertTransactionStmt = `
INSERT INTO public.transactions (id, user_id, symbol, quantity, price, ts)
VALUES ($1, $2, $3, $4, $5, $6)`

const foldHoldingStmt = `
INSERT INTO public.holdings (user_id, symbol, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, symbol) DO UPDATE SET
    quantity = public.holdings.quantity + EXCLUDED.quantity`

const pruneHoldingStmt = `
DELETE FROM public.holdings WHERE user_id = $1 AND symbol = $2 AND quantity = 0`

func (r *transactionsRepo) Insert(ctx context.Context, tx portfolio.Transaction) error {
	return r.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		if _, err := session.ExecCtx(ctx, insertTransactionStmt,
			tx.ID, tx.UserID, tx.Symbol, tx.Quantity, tx.Price, tx.Timestamp.UTC()); err != nil {
			return fmt.Errorf("transactionsRepo.Insert transaction: %w", err)
		}
		if tx.Quantity == 0 {
			return nil
		}
		if _, err := session.ExecCtx(ctx, foldHoldingStmt, tx.UserID, tx.Symbol, tx.Quantity); err != nil {
			return fmt.Errorf("transactionsRepo.Insert holding: %w", err)
		}
		if _, err := session.ExecCtx(ctx, pruneHoldingStmt, tx.UserID, tx.Symbol); err != nil {
			return fmt.Errorf("transactionsRepo.Insert prune: %w", err)
		}
		return nil
	})
}

type transactionRow struct {
	ID       string    `db:"id"`
	UserID   string    `db:"user_id"`
	Symbol   string    `db:"symbol"`
	Quantity float64   `db:"quantity"`
	Price    float64   `db:"price"`
	Ts       time.Time `db:"ts"`
}

func (r transactionRow) transaction() portfolio.Transaction {
	return portfolio.Transaction{
		ID:        r.ID,
		UserID:    r.UserID,
		Symbol:    r.Symbol,
		Quantity:  r.Quantity,
		Price:     r.Price,
		Timestamp: r.Ts.UTC(),
	}
}
