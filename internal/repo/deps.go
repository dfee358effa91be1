package repo

import (
	"errors"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// Dependencies bundles the shared infrastructure required by repository implementations.
type Dependencies struct {
	DBConn sqlx.SqlConn
}

// Set exposes strongly typed repositories to application logic.
type Set struct {
	Users        UsersRepo
	Holdings     HoldingsRepo
	Transactions TransactionsRepo
}

// New constructs the repository set, validating required dependencies.
func New(deps Dependencies) (*Set, error) {
	if deps.DBConn == nil {
		return nil, errors.New("repo: missing DBConn dependency")
	}
	return &Set{
		Users:        newUsersRepo(deps),
		Holdings:     newHoldingsRepo(deps),
		Transactions: newTransactionsRepo(deps),
	}, nil
}
