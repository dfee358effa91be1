package logic

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"stonks-api/internal/svc"
	"stonks-api/internal/types"
)

type LeaderboardLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewLeaderboardLogic(ctx context.Context, svcCtx *svc.ServiceContext) *LeaderboardLogic {
	return &LeaderboardLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *LeaderboardLogic) GetLeaderboard(req *types.LeaderboardRequest) (resp *types.LeaderboardResponse, err error) {
	entries, err := l.svcCtx.RankUsers(l.ctx, req.Limit, req.Holdings)
	if err != nil {
		return nil, err
	}
	resp = &types.LeaderboardResponse{Entries: make([]types.LeaderboardEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, entryView(e))
	}
	return resp, nil
}

func (l *LeaderboardLogic) GetHistory(req *types.HistoryRequest) (resp *types.HistoryResponse, err error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrBadRequest)
	}
	txs, err := l.svcCtx.Ledger.History(l.ctx, req.UserID, req.Limit)
	if err != nil {
		return nil, err
	}
	resp = &types.HistoryResponse{UserID: req.UserID, Transactions: make([]types.TransactionView, 0, len(txs))}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, types.TransactionView{
			ID:        tx.ID,
			Symbol:    tx.Symbol,
			Quantity:  tx.Quantity,
			Price:     tx.Price,
			Timestamp: unixMilli(tx.Timestamp),
		})
	}
	return resp, nil
}
