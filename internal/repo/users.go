package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"stonks-api/pkg/portfolio"
)

// UsersRepo exposes read helpers for user accounts.
type UsersRepo interface {
	// All returns every user in creation order.
	All(ctx context.Context) ([]portfolio.User, error)
}

type usersRepo struct {
	conn sqlx.SqlConn
}

func newUsersRepo(deps Dependencies) UsersRepo {
	return &usersRepo{
		conn: deps.DBConn,
	}
}

func (r *usersRepo) All(ctx context.Context) ([]portfolio.User, error) {
	const query = `
SELECT id, balance, last_daily, last_message
FROM public.users
ORDER BY created_at, id`

	var rows []userRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("usersRepo.All query: %w", err)
	}
	out := make([]portfolio.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.user())
	}
	return out, nil
}

type userRow struct {
	ID          string          `db:"id"`
	Balance     sql.NullFloat64 `db:"balance"`
	LastDaily   sql.NullTime    `db:"last_daily"`
	LastMessage sql.NullTime    `db:"last_message"`
}

func (r userRow) user() portfolio.User {
	u := portfolio.User{ID: r.ID}
	if r.Balance.Valid {
		u.Balance = r.Balance.Float64
	}
	if r.LastDaily.Valid {
		u.LastDaily = r.LastDaily.Time.UTC()
	}
	if r.LastMessage.Valid {
		u.LastMessage = r.LastMessage.Time.UTC()
	}
	return u
}
