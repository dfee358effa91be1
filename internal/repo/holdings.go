package repo

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"stonks-api/pkg/portfolio"
)

// HoldingsRepo fetches net positions aggregated by user.
type HoldingsRepo interface {
	// ByUsers returns holdings keyed by user ID. When userIDs is nil it returns all users.
	ByUsers(ctx context.Context, userIDs []string) (map[string][]portfolio.Holding, error)
}

type holdingsRepo struct {
	conn sqlx.SqlConn
}

func newHoldingsRepo(deps Dependencies) HoldingsRepo {
	return &holdingsRepo{
		conn: deps.DBConn,
	}
}

func (r *holdingsRepo) ByUsers(ctx context.Context, userIDs []string) (map[string][]portfolio.Holding, error) {
	query, args := holdingsQuery(userIDs)
	var rows []holdingRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("holdingsRepo.ByUsers query: %w", err)
	}

	result := make(map[string][]portfolio.Holding)
	for _, row := range rows {
		result[row.UserID] = append(result[row.UserID], portfolio.Holding{
			UserID:   row.UserID,
			Symbol:   row.Symbol,
			Quantity: row.Quantity,
		})
	}
	return result, nil
}

func holdingsQuery(userIDs []string) (string, []any) {
	query := `
SELECT user_id, symbol, quantity
FROM public.holdings
WHERE quantity <> 0
%s
ORDER BY user_id, symbol`

	var (
		args   []any
		clause string
	)
	if userIDs != nil {
		clause = "AND user_id = ANY($1)"
		args = append(args, pq.Array(userIDs))
	}
	return fmt.Sprintf(query, clause), args
}

type holdingRow struct {
	UserID   string  `db:"user_id"`
	Symbol   string  `db:"symbol"`
	Quantity float64 `db:"quantity"`
}
